package testutils

import (
	"os"
	"path/filepath"
	"testing"

	prof "github.com/opst/exodash/cmd/exodash/config/profiles"
	"gopkg.in/yaml.v3"
)

// TempProfile writes a profile store with one profile into a temporary directory.
//
// The file is removed after the test.
//
// # Returns
//
// - string: path to the profile store
//
// - error
func TempProfile(t *testing.T, name string, profile *prof.Profile) (string, error) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "profile")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := yaml.NewEncoder(f).Encode(prof.ProfileStore{name: profile}); err != nil {
		return "", err
	}
	return path, nil
}
