package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

// NewInitConfig returns the starting configuration for `config init`.
// A random JWT secret is generated so the file works out of the box for
// development.
func NewInitConfig() (*Config, error) {
	cfg := GetDefaultConfig()

	secret, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	cfg.Auth.JWTSecret = secret
	cfg.ObjectStorage.Bucket = "chronolens"

	return cfg, nil
}

// WriteInitConfig writes an init configuration, refusing to overwrite an
// existing file unless force is set.
func WriteInitConfig(cfg *Config, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}
	return SaveConfig(cfg, path)
}

// generateSecret returns 32 random bytes as a 64-character hex string.
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
