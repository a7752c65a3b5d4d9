package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// snapshotStore reads and writes the dose history file: a pretty-printed JSON
// array replacing the prior file entirely on every change. Writes go through
// a temp file and rename so a crash mid-write never leaves a torn snapshot.
type snapshotStore struct {
	path string
}

func newSnapshotStore(path string) *snapshotStore {
	return &snapshotStore{path: path}
}

// read loads the snapshot. A missing file is an empty history, not an error.
func (s *snapshotStore) read() ([]DoseRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read dose history: %w", err)
	}

	var records []DoseRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("corrupted dose history: %w", err)
	}
	return records, nil
}

// write replaces the snapshot with the given records.
func (s *snapshotStore) write(records []DoseRecord) error {
	if records == nil {
		records = []DoseRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dose history: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write dose history: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace dose history: %w", err)
	}
	return nil
}

// export writes a timestamped copy of the records alongside the primary file
// and returns the path written. The primary snapshot is not touched.
func (s *snapshotStore) export(records []DoseRecord, now time.Time) (string, error) {
	if records == nil {
		records = []DoseRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal dose history export: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	name := fmt.Sprintf("%s_%s.json", base, now.Format("20060102T150405"))
	path := filepath.Join(filepath.Dir(s.path), name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write dose history export: %w", err)
	}
	return path, nil
}
