package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/store"
)

// ExportFilename returns the default backup file name for t.
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("electromanage-backup-%s.json", t.UTC().Format("2006-01-02"))
}

// Export writes a full backup of ex to w as indented JSON.
func Export(ctx context.Context, ex store.Executor, w io.Writer, clock model.Clock) error {
	doc, err := Capture(ctx, ex, ScopeExport)
	if err != nil {
		return err
	}
	now := clock.Now()
	doc.ExportDate = &now
	doc.Version = Version
	return Encode(w, doc)
}

// Encode writes doc to w as indented JSON followed by a newline.
func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}

// Import reads a backup document from r, validates it and applies it to
// st atomically. A malformed document is rejected with ImportFormat and
// nothing is written.
func Import(ctx context.Context, st *store.Store, r io.Reader, source string, clock model.Clock) (Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Report{}, model.ImportFormat(source, fmt.Errorf("read: %w", err))
	}

	doc, err := Parse(source, data)
	if err != nil {
		return Report{}, err
	}

	return Apply(ctx, st, doc, clock)
}
