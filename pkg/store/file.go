package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// fileFormat is the on-disk shape of a store: a single JSON document so
// readers never see column drift between records.
type fileFormat struct {
	Records []Record `json:"records"`
}

// Load reads a persisted store from path. A missing file yields an empty
// store; an unreadable or undecodable file is an error so a corrupt store
// is never silently replaced.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("read store %s: %w", path, err)
	}

	var file fileFormat
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, path, err)
	}

	s := New()
	for _, rec := range file.Records {
		if rec.ID == "" {
			return nil, fmt.Errorf("%w: %s: record with empty id", ErrCorruptStore, path)
		}
		if _, dup := s.records[rec.ID]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate id %q", ErrCorruptStore, path, rec.ID)
		}
		s.order = append(s.order, rec.ID)
		s.records[rec.ID] = rec
	}

	log.Debug().
		Str("path", path).
		Int("records", s.Len()).
		Msg("Loaded store")

	return s, nil
}

// Persist writes the store to path atomically: encode to a temp file in
// the target directory, fsync, then rename over the target. A reader never
// observes a torn file, and the target is never missing once it exists.
//
// minRecords guards against replacing good data with a shrunken result set
// after an upstream outage: when the target already exists, a store smaller
// than minRecords is refused with ErrMinRecords. A first-ever persist is
// exempt so a fresh deployment can bootstrap.
func (s *Store) Persist(path string, minRecords int) error {
	if minRecords > 0 && s.Len() < minRecords {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: have %d records, need %d for %s",
				ErrMinRecords, s.Len(), minRecords, path)
		}
	}

	data, err := json.MarshalIndent(fileFormat{Records: s.Records()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir %s: %w", dir, err)
	}

	// Temp file must live in the target directory: rename is only atomic
	// within one filesystem.
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp store: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace store %s: %w", path, err)
	}

	log.Debug().
		Str("path", path).
		Int("records", s.Len()).
		Msg("Persisted store")

	return nil
}
