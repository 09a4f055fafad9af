package remote

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/snapshot"
)

const tracerName = "electromanage/remote"

// Adapter is a remote document backend.
type Adapter interface {
	// Push overwrites the remote document with doc.
	Push(ctx context.Context, doc snapshot.Document) error

	// Pull fetches the remote document. It returns nil, nil when no
	// remote document exists yet.
	Pull(ctx context.Context) (*snapshot.Document, error)

	// Subscribe calls fn for every remote document written by another
	// session until stop is called or ctx is done.
	Subscribe(ctx context.Context, fn Listener) (stop func(), err error)

	// Name identifies the backend in logs and errors.
	Name() string
}

// Listener receives inbound documents.
type Listener func(snapshot.Document)

// call runs fn under timeout inside a span. Errors come back as SyncFailed.
func call(ctx context.Context, backend, op string, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "remote."+op,
		trace.WithAttributes(attribute.String("sync.backend", backend)),
	)
	defer span.End()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		if model.IsSync(err) {
			return err
		}
		return model.SyncFailed(backend, op, err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// foreign reports whether doc was written by a session other than origin.
// Documents without an origin are always foreign.
func foreign(doc snapshot.Document, origin string) bool {
	return doc.Origin == "" || origin == "" || doc.Origin != origin
}
