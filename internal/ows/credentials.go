package ows

import (
	"fmt"
	"os"
	"strings"
)

// Credentials is a basic-auth username/password pair.
type Credentials struct {
	Username string
	Password string
}

// ReadCredentialsFile reads credentials from a local two-line file:
// username on the first line, password on the second. The file is read
// on every request so a rotated password takes effect without a restart.
func ReadCredentialsFile(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read credentials file: %w", err)
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return Credentials{}, fmt.Errorf("credentials file %s needs two lines (username, password)", path)
	}

	creds := Credentials{
		Username: strings.TrimSpace(lines[0]),
		Password: strings.TrimSpace(lines[1]),
	}
	if creds.Username == "" || creds.Password == "" {
		return Credentials{}, fmt.Errorf("credentials file %s has an empty username or password", path)
	}
	return creds, nil
}
