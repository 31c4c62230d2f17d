package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func successRecord(id string) Record {
	return Record{
		ID:        id,
		Status:    StatusSuccess,
		Payload:   map[string]any{"value": id},
		FetchedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func failureRecord(id string, kind FailureKind) Record {
	return Record{
		ID:        id,
		Status:    StatusFailure,
		Error:     &Failure{Kind: kind},
		FetchedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCommit_OverwriteRules(t *testing.T) {
	tests := []struct {
		name       string
		first      Record
		second     Record
		wantSecond bool
		wantStatus Status
	}{
		{
			name:       "success never replaced by failure",
			first:      successRecord("aries"),
			second:     failureRecord("aries", KindTimeout),
			wantSecond: false,
			wantStatus: StatusSuccess,
		},
		{
			name:       "success never replaced by success",
			first:      successRecord("aries"),
			second:     successRecord("aries"),
			wantSecond: false,
			wantStatus: StatusSuccess,
		},
		{
			name:       "failure replaced by success",
			first:      failureRecord("taurus", KindTimeout),
			second:     successRecord("taurus"),
			wantSecond: true,
			wantStatus: StatusSuccess,
		},
		{
			name:       "failure replaced by fresher failure",
			first:      failureRecord("taurus", KindTimeout),
			second:     failureRecord("taurus", KindHTTPError),
			wantSecond: true,
			wantStatus: StatusFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			require.True(t, s.Commit(tt.first))
			assert.Equal(t, tt.wantSecond, s.Commit(tt.second))

			rec, ok := s.Get(tt.first.ID)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, rec.Status)
			assert.Equal(t, 1, s.Len())
		})
	}
}

func TestRemaining_PreservesOrderAndRetriesFailures(t *testing.T) {
	s := New()
	s.Commit(successRecord("aries"))
	s.Commit(failureRecord("taurus", KindTimeout))

	remaining := s.Remaining([]string{"aries", "taurus", "gemini"})
	assert.Equal(t, []string{"taurus", "gemini"}, remaining)
}

func TestRemaining_EmptyStore(t *testing.T) {
	s := New()
	ids := []string{"a", "b", "c"}
	assert.Equal(t, ids, s.Remaining(ids))
}

func TestLoad_MissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrCorruptStore)
}

func TestLoad_DuplicateID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	doc := `{"records":[{"id":"x","status":"success"},{"id":"x","status":"success"}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrCorruptStore)
}

func TestPersistLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	s := New()
	s.Commit(successRecord("aries"))
	s.Commit(failureRecord("taurus", KindTimeout))
	s.Commit(successRecord("gemini"))
	require.NoError(t, s.Persist(path, 0))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, loaded.Len())

	recs := loaded.Records()
	assert.Equal(t, "aries", recs[0].ID)
	assert.Equal(t, "taurus", recs[1].ID)
	assert.Equal(t, "gemini", recs[2].ID)
	assert.Equal(t, StatusFailure, recs[1].Status)
	require.NotNil(t, recs[1].Error)
	assert.Equal(t, KindTimeout, recs[1].Error.Kind)
}

func TestPersist_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	s := New()
	s.Commit(successRecord("aries"))
	s.Commit(successRecord("taurus"))
	require.NoError(t, s.Persist(path, 0))

	first, err := os.ReadFile(path)
	require.NoError(t, err)

	// Reload and persist again without changes: bytes must be identical.
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, reloaded.Persist(path, 0))

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPersist_MinRecordsGuard(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")

	// Seed a healthy store with 50 records.
	healthy := New()
	for i := 0; i < 50; i++ {
		healthy.Commit(successRecord(string(rune('A' + i%26)) + string(rune('0'+i/26))))
	}
	require.NoError(t, healthy.Persist(path, 50))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// A shrunken store must be refused and the file left untouched.
	shrunken := New()
	shrunken.Commit(successRecord("a"))
	shrunken.Commit(successRecord("b"))
	shrunken.Commit(successRecord("c"))
	err = shrunken.Persist(path, 50)
	assert.ErrorIs(t, err, ErrMinRecords)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPersist_MinRecordsGuard_Bootstrap(t *testing.T) {
	// First-ever persist is exempt from the guard so a fresh deployment
	// can make forward progress before reaching min records.
	path := filepath.Join(t.TempDir(), "store.json")

	s := New()
	s.Commit(successRecord("a"))
	assert.NoError(t, s.Persist(path, 50))
}

func TestPersist_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")

	s := New()
	s.Commit(successRecord("aries"))
	require.NoError(t, s.Persist(path, 0))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "store.json", entries[0].Name())
}

func TestSuccessCount(t *testing.T) {
	s := New()
	s.Commit(successRecord("a"))
	s.Commit(failureRecord("b", KindHTTPError))
	s.Commit(successRecord("c"))

	assert.Equal(t, 2, s.SuccessCount())
	assert.Equal(t, 3, s.Len())
}
