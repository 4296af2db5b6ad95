// Package profile manages owner-scoped style profiles and personas: every
// owner has at most one active style profile and at most one active persona.
package profile

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dlashko/plume/internal/style"
)

// Store defines the persistence operations the Manager needs.
// Implemented by storage.Store.
type Store interface {
	SetStyleProfile(owner, profileJSON string) error
	StyleProfile(owner string) (string, error) // empty string when none stored
	DeleteStyleProfile(owner string) error

	SavePersona(owner, id, personaJSON string) error
	Persona(owner, id string) (string, error) // empty string when not found
	ListPersonas(owner string) ([]string, error)
	DeletePersona(owner, id string) error

	SetActivePersonaID(owner, id string) error
	ActivePersonaID(owner string) (string, error) // empty string when none
	ClearActivePersonaID(owner string) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type cachedProfile struct {
	profile  style.Profile
	ok       bool
	cachedAt time.Time
}

// Manager provides cached, serialized access to the profile and persona
// state of each owner. Writes for an owner serialize through the manager
// mutex; last write wins, matching the no-merge semantics of profiles.
type Manager struct {
	store Store
	clock Clock
	ttl   time.Duration

	mu     sync.RWMutex
	cached map[string]cachedProfile
}

// NewManager creates a Manager with a 60-second profile cache TTL.
func NewManager(store Store) *Manager {
	return NewManagerWithClock(store, realClock{}, 60*time.Second)
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store Store, clock Clock, ttl time.Duration) *Manager {
	return &Manager{
		store:  store,
		clock:  clock,
		ttl:    ttl,
		cached: make(map[string]cachedProfile),
	}
}

// SetStyleProfile stores p as the owner's style profile, replacing any
// previous one.
func (m *Manager) SetStyleProfile(owner string, p style.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshalling style profile: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SetStyleProfile(owner, string(data)); err != nil {
		return fmt.Errorf("storing style profile: %w", err)
	}
	delete(m.cached, owner)
	return nil
}

// StyleProfile returns the owner's style profile. The second return value is
// false when the owner has no profile.
func (m *Manager) StyleProfile(owner string) (style.Profile, bool, error) {
	m.mu.RLock()
	if c, hit := m.cached[owner]; hit && m.clock.Now().Before(c.cachedAt.Add(m.ttl)) {
		m.mu.RUnlock()
		return c.profile, c.ok, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring the write lock.
	if c, hit := m.cached[owner]; hit && m.clock.Now().Before(c.cachedAt.Add(m.ttl)) {
		return c.profile, c.ok, nil
	}

	raw, err := m.store.StyleProfile(owner)
	if err != nil {
		return style.Profile{}, false, fmt.Errorf("loading style profile: %w", err)
	}

	var c cachedProfile
	c.cachedAt = m.clock.Now()
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &c.profile); err != nil {
			return style.Profile{}, false, fmt.Errorf("parsing stored style profile: %w", err)
		}
		c.ok = true
	}
	m.cached[owner] = c
	return c.profile, c.ok, nil
}

// ClearStyleProfile removes the owner's style profile.
func (m *Manager) ClearStyleProfile(owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.DeleteStyleProfile(owner); err != nil {
		return fmt.Errorf("deleting style profile: %w", err)
	}
	delete(m.cached, owner)
	return nil
}

// CreatePersona stores a new persona for the owner and returns it with its
// assigned id and timestamps.
func (m *Manager) CreatePersona(owner string, p Persona) (Persona, error) {
	p.ID = uuid.New().String()
	now := m.clock.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.savePersonaLocked(owner, p); err != nil {
		return Persona{}, err
	}
	return p, nil
}

// UpdatePersona overwrites the named fields of an existing persona.
func (m *Manager) UpdatePersona(owner string, p Persona) (Persona, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.personaLocked(owner, p.ID)
	if err != nil {
		return Persona{}, err
	}

	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = m.clock.Now().UTC()
	if err := m.savePersonaLocked(owner, p); err != nil {
		return Persona{}, err
	}
	return p, nil
}

// DeletePersona removes a persona. Deleting the active persona clears the
// active pointer.
func (m *Manager) DeletePersona(owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.personaLocked(owner, id); err != nil {
		return err
	}
	if err := m.store.DeletePersona(owner, id); err != nil {
		return fmt.Errorf("deleting persona: %w", err)
	}

	active, err := m.store.ActivePersonaID(owner)
	if err != nil {
		return fmt.Errorf("reading active persona: %w", err)
	}
	if active == id {
		if err := m.store.ClearActivePersonaID(owner); err != nil {
			return fmt.Errorf("clearing active persona: %w", err)
		}
	}
	return nil
}

// Personas lists the owner's personas in creation order.
func (m *Manager) Personas(owner string) ([]Persona, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs, err := m.store.ListPersonas(owner)
	if err != nil {
		return nil, fmt.Errorf("listing personas: %w", err)
	}
	out := make([]Persona, 0, len(docs))
	for _, doc := range docs {
		var p Persona
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, fmt.Errorf("parsing stored persona: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Persona returns one persona by id, or ErrUnknownPersona.
func (m *Manager) Persona(owner, id string) (Persona, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.personaLocked(owner, id)
}

// Activate marks the persona as the owner's single active persona.
func (m *Manager) Activate(owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.personaLocked(owner, id); err != nil {
		return err
	}
	if err := m.store.SetActivePersonaID(owner, id); err != nil {
		return fmt.Errorf("activating persona: %w", err)
	}
	return nil
}

// ActivePersona returns the owner's active persona, or nil when none is set.
func (m *Manager) ActivePersona(owner string) (*Persona, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, err := m.store.ActivePersonaID(owner)
	if err != nil {
		return nil, fmt.Errorf("reading active persona: %w", err)
	}
	if id == "" {
		return nil, nil
	}
	p, err := m.personaLocked(owner, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *Manager) personaLocked(owner, id string) (Persona, error) {
	doc, err := m.store.Persona(owner, id)
	if err != nil {
		return Persona{}, fmt.Errorf("loading persona: %w", err)
	}
	if doc == "" {
		return Persona{}, ErrUnknownPersona
	}
	var p Persona
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return Persona{}, fmt.Errorf("parsing stored persona: %w", err)
	}
	return p, nil
}

func (m *Manager) savePersonaLocked(owner string, p Persona) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshalling persona: %w", err)
	}
	if err := m.store.SavePersona(owner, p.ID, string(data)); err != nil {
		return fmt.Errorf("storing persona: %w", err)
	}
	return nil
}
