package manifest

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// LockFileName sits next to the manifest and pins its expected content hash.
const LockFileName = ".manifest.lock"

// LockRecord is the on-disk format of the manifest lock file.
type LockRecord struct {
	Version     int    `yaml:"version"`
	GeneratedAt string `yaml:"generated_at"`
	Manifest    string `yaml:"manifest"`
	Hash        string `yaml:"hash"`
}

// ComputeHash computes the BLAKE3 hash of the manifest file.
func ComputeHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// WriteLock records the manifest's current hash in .manifest.lock alongside it.
func WriteLock(manifestPath string) (*LockRecord, error) {
	hash, err := ComputeHash(manifestPath)
	if err != nil {
		return nil, err
	}

	rec := &LockRecord{
		Version:     1,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Manifest:    filepath.Base(manifestPath),
		Hash:        hash,
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock record: %w", err)
	}

	lockPath := lockPathFor(manifestPath)
	if err := os.WriteFile(lockPath, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", lockPath, err)
	}
	return rec, nil
}

// VerifyLock checks the manifest against its lock record. A missing lock file
// is not an error; verification is opt-in until the first `manifest lock`.
func VerifyLock(manifestPath string) error {
	lockPath := lockPathFor(manifestPath)
	data, err := os.ReadFile(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", lockPath, err)
	}

	var rec LockRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("failed to parse %s: %w", lockPath, err)
	}
	if rec.Version != 1 {
		return fmt.Errorf("unsupported lock record version: %d", rec.Version)
	}

	actual, err := ComputeHash(manifestPath)
	if err != nil {
		return err
	}
	if actual != rec.Hash {
		return fmt.Errorf("manifest hash mismatch for %s: expected %s, got %s\n"+
			"If you edited the manifest intentionally, run: forgeline manifest lock",
			filepath.Base(manifestPath), rec.Hash, actual)
	}
	return nil
}

func lockPathFor(manifestPath string) string {
	return filepath.Join(filepath.Dir(manifestPath), LockFileName)
}
