package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store under t.TempDir().
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// rec builds a record with a JSON doc of the form {"n":"<key>"}.
func rec(key, index string) Record {
	return Record{Key: key, Index: index, Doc: []byte(`{"n":"` + key + `"}`)}
}

func keys(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Key)
	}
	return out
}
