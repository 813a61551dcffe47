// Package state records the parameters of the last source build so that
// check and update can replay it.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// DefaultFile is the snapshot file name inside the deploy directory.
const DefaultFile = ".build-source.json"

// ErrNoSnapshot means no source build has been recorded yet.
var ErrNoSnapshot = errors.New("no build snapshot recorded")

// Snapshot is the persisted record of a source build. Repo and Path are
// mutually exclusive; unused fields are empty strings.
type Snapshot struct {
	Repo           string `json:"repo"`
	Path           string `json:"path"`
	Ref            string `json:"ref"`
	RegistryPrefix string `json:"registryPrefix"`
	PlatformDir    string `json:"platformDir"`
}

// Local reports whether the snapshot records a user-owned local checkout.
func (s Snapshot) Local() bool {
	return s.Repo == "" && s.Path != ""
}

// Save replaces the snapshot at path atomically.
func Save(path string, s Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

// Load reads the snapshot at path. A missing file is ErrNoSnapshot.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return s, nil
}
