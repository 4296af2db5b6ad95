package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const tokenFileName = "api_token"

// LoadOrCreateToken returns the API bearer token from the data dir,
// generating and persisting a fresh one on first run. PLUME_API_TOKEN
// overrides the stored token without touching the file.
func LoadOrCreateToken(dataDir string) (string, error) {
	if env := os.Getenv("PLUME_API_TOKEN"); env != "" {
		return env, nil
	}

	path := filepath.Join(dataDir, tokenFileName)
	if data, err := os.ReadFile(path); err == nil {
		token := strings.TrimSpace(string(data))
		if token != "" {
			return token, nil
		}
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("writing token file: %w", err)
	}
	return token, nil
}
