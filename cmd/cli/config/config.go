package config

import (
	"os"
	"path/filepath"
)

const defaultAPIURL = "http://localhost:8080"

const tokenFileName = ".rideshare_token"

// APIURL returns the base URL for the ride-share API.
// It can be overridden with the RIDESHARE_API_URL environment variable.
func APIURL() string {
	if v := os.Getenv("RIDESHARE_API_URL"); v != "" {
		return v
	}
	return defaultAPIURL
}

// TokenPath returns the path of the locally stored JWT token file.
func TokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return tokenFileName
	}
	return filepath.Join(home, tokenFileName)
}

// SaveToken writes the JWT token to the local token file.
func SaveToken(token string) error {
	return os.WriteFile(TokenPath(), []byte(token), 0600)
}

// LoadToken reads the locally stored JWT token, or "" when not logged in.
func LoadToken() string {
	b, err := os.ReadFile(TokenPath())
	if err != nil {
		return ""
	}
	return string(b)
}

// ClearToken removes the local token file.
func ClearToken() error {
	err := os.Remove(TokenPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
