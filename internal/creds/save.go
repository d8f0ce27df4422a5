package creds

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Save writes the pair to a KEY=value secrets file. The write goes through a
// temp file in the same directory followed by a rename so a crash can never
// leave a half-written secrets file behind. Permissions are restricted to
// the owning user.
func Save(path string, c Credentials) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}

	content, err := godotenv.Marshal(map[string]string{
		EnvUsername: c.Username,
		EnvPassword: c.Password,
	})
	if err != nil {
		return fmt.Errorf("encoding secrets: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("creating temp secrets file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("restricting secrets file permissions: %w", err)
	}
	if _, err := tmp.WriteString(content + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("writing secrets: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("flushing secrets: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing secrets file: %w", err)
	}
	return nil
}
