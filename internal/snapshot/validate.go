package snapshot

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/settings"
)

//go:embed schema.cue
var schemaCUE string

// cue.Context is not safe for concurrent use; validation is serialised.
var (
	schemaMu     sync.Mutex
	schemaCtx    *cue.Context
	schemaValue  cue.Value
	schemaLoaded bool
)

func documentSchema() (*cue.Context, cue.Value, error) {
	if !schemaLoaded {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			return nil, cue.Value{}, fmt.Errorf("compile document schema: %w", err)
		}
		schemaValue = v.LookupPath(cue.ParsePath("#Document"))
		if err := schemaValue.Err(); err != nil {
			return nil, cue.Value{}, fmt.Errorf("lookup #Document: %w", err)
		}
		schemaLoaded = true
	}
	return schemaCtx, schemaValue, nil
}

// Parse validates data against the document schema and decodes it.
// Every failure is an ImportFormat error naming source.
func Parse(source string, data []byte) (Document, error) {
	if err := validateSchema(source, data); err != nil {
		return Document{}, model.ImportFormat(source, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, model.ImportFormat(source, fmt.Errorf("decode: %w", err))
	}

	for _, key := range settings.Keys(doc.Settings) {
		if err := settings.Validate(key, doc.Settings[key]); err != nil {
			return Document{}, model.ImportFormat(source, err)
		}
	}

	doc.normalize()
	if err := doc.checkKeys(); err != nil {
		return Document{}, model.ImportFormat(source, err)
	}
	return doc, nil
}

// checkKeys rejects documents that would store two rows under one key.
// A cart line is keyed by its component, so its id must match it.
func (d Document) checkKeys() error {
	components := make(map[string]bool, len(d.Components))
	for _, c := range d.Components {
		if components[c.ID] {
			return fmt.Errorf("duplicate component id %q", c.ID)
		}
		components[c.ID] = true
	}

	lines := make(map[string]bool, len(d.Cart))
	for _, l := range d.Cart {
		if l.ID != l.ComponentID {
			return fmt.Errorf("cart line %q must have the id of its component %q", l.ID, l.ComponentID)
		}
		if lines[l.ComponentID] {
			return fmt.Errorf("duplicate cart line for component %q", l.ComponentID)
		}
		lines[l.ComponentID] = true
	}

	txs := make(map[string]bool, len(d.Transactions))
	for _, tx := range d.Transactions {
		if txs[tx.ID] {
			return fmt.Errorf("duplicate transaction id %q", tx.ID)
		}
		txs[tx.ID] = true
	}
	return nil
}

func validateSchema(source string, data []byte) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	ctx, schema, err := documentSchema()
	if err != nil {
		return err
	}

	expr, err := cuejson.Extract(source, data)
	if err != nil {
		return fmt.Errorf("parse: %w", firstCUEError(err))
	}

	v := schema.Unify(ctx.BuildExpr(expr))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema: %w", firstCUEError(err))
	}
	return nil
}

// firstCUEError reduces a CUE error list to its first entry.
func firstCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	return errs[0]
}
