// Package storage persists style profiles, personas, and the activity feed
// in a local SQLite database.
package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for profiles, personas, and
// activities.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "plume.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Style profiles ---

// SetStyleProfile stores the owner's style profile, replacing any previous one.
func (s *Store) SetStyleProfile(owner, profileJSON string) error {
	_, err := s.db.Exec(`
		INSERT INTO style_profiles (owner, profile_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET profile_json = excluded.profile_json, updated_at = excluded.updated_at`,
		owner, profileJSON, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// StyleProfile returns the owner's stored profile JSON, or the empty string
// when none is stored.
func (s *Store) StyleProfile(owner string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT profile_json FROM style_profiles WHERE owner = ?", owner).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// DeleteStyleProfile removes the owner's profile. Deleting a missing profile
// is not an error.
func (s *Store) DeleteStyleProfile(owner string) error {
	_, err := s.db.Exec("DELETE FROM style_profiles WHERE owner = ?", owner)
	return err
}

// --- Personas ---

// SavePersona inserts or replaces one persona document.
func (s *Store) SavePersona(owner, id, personaJSON string) error {
	_, err := s.db.Exec(`
		INSERT INTO personas (owner, id, data, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(owner, id) DO UPDATE SET data = excluded.data`,
		owner, id, personaJSON, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Persona returns one persona document, or the empty string when not found.
func (s *Store) Persona(owner, id string) (string, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM personas WHERE owner = ? AND id = ?", owner, id).Scan(&data)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return data, err
}

// ListPersonas returns the owner's persona documents in creation order.
func (s *Store) ListPersonas(owner string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT data FROM personas WHERE owner = ? ORDER BY created_at ASC, rowid ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		results = append(results, data)
	}
	return results, rows.Err()
}

// DeletePersona removes one persona. Deleting a missing persona is not an error.
func (s *Store) DeletePersona(owner, id string) error {
	_, err := s.db.Exec("DELETE FROM personas WHERE owner = ? AND id = ?", owner, id)
	return err
}

// SetActivePersonaID marks the owner's active persona.
func (s *Store) SetActivePersonaID(owner, id string) error {
	_, err := s.db.Exec(`
		INSERT INTO active_personas (owner, persona_id) VALUES (?, ?)
		ON CONFLICT(owner) DO UPDATE SET persona_id = excluded.persona_id`,
		owner, id,
	)
	return err
}

// ActivePersonaID returns the owner's active persona id, or the empty string
// when none is set.
func (s *Store) ActivePersonaID(owner string) (string, error) {
	var id string
	err := s.db.QueryRow("SELECT persona_id FROM active_personas WHERE owner = ?", owner).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

// ClearActivePersonaID unsets the owner's active persona.
func (s *Store) ClearActivePersonaID(owner string) error {
	_, err := s.db.Exec("DELETE FROM active_personas WHERE owner = ?", owner)
	return err
}

// --- Activities ---

// SaveActivity appends one record to the activity feed.
func (s *Store) SaveActivity(a Activity) error {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO activities (id, owner, action, format, engine, chars_in, chars_out, reduction_pct, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Owner, a.Action, a.Format, a.Engine,
		a.CharsIn, a.CharsOut, a.ReductionPct, createdAt.UTC().Format(time.RFC3339),
	)
	return err
}

// RecentActivities returns the owner's newest activity records, newest first.
func (s *Store) RecentActivities(owner string, limit int) ([]Activity, error) {
	rows, err := s.db.Query(`
		SELECT id, owner, action, format, engine, chars_in, chars_out, reduction_pct, created_at
		FROM activities WHERE owner = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		owner, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Activity
	for rows.Next() {
		var a Activity
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Owner, &a.Action, &a.Format, &a.Engine,
			&a.CharsIn, &a.CharsOut, &a.ReductionPct, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		a.CreatedAt = t
		results = append(results, a)
	}
	return results, rows.Err()
}
