package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/roach88/electromanage/internal/snapshot"
)

const (
	// GistFilename is the file inside the gist that holds the document.
	GistFilename = "electromanage-data.json"

	// GistDescription is the description given to created gists.
	GistDescription = "ElectroManage Component Data"

	// DefaultGistURL is the GitHub API root.
	DefaultGistURL = "https://api.github.com"

	// DefaultPollInterval is how often Subscribe polls for changes.
	DefaultPollInterval = 30 * time.Second
)

// errGistGone is returned by update when the stored gist id no longer exists.
var errGistGone = errors.New("gist not found")

// DocumentIDStore persists the id of the remote gist.
type DocumentIDStore interface {
	RemoteDocumentID(ctx context.Context) (string, error)
	SetRemoteDocumentID(ctx context.Context, id string) error
}

// GistConfig configures a Gist adapter.
type GistConfig struct {
	BaseURL      string
	Token        string
	Origin       string
	Timeout      time.Duration
	PollInterval time.Duration
}

// Gist stores the document as a file in a GitHub gist.
type Gist struct {
	cfg    GistConfig
	client *http.Client
	ids    DocumentIDStore
	logger *slog.Logger
}

// NewGist creates a Gist adapter. A nil client gets a traced client over
// http.DefaultTransport.
func NewGist(cfg GistConfig, ids DocumentIDStore, client *http.Client, logger *slog.Logger) *Gist {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGistURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gist{cfg: cfg, client: client, ids: ids, logger: logger}
}

// Name returns "gist".
func (g *Gist) Name() string { return "gist" }

type gistFile struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
	RawURL    string `json:"raw_url,omitempty"`
}

type gistBody struct {
	ID          string              `json:"id,omitempty"`
	Description string              `json:"description,omitempty"`
	Public      *bool               `json:"public,omitempty"`
	Files       map[string]gistFile `json:"files"`
}

// apiError is a non-2xx response from the gist API.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gist api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("gist api: %d %s", e.Status, e.Message)
}

// Push updates the stored gist, creating a new one when no id is stored or
// the stored one is gone.
func (g *Gist) Push(ctx context.Context, doc snapshot.Document) error {
	return call(ctx, g.Name(), "push", g.cfg.Timeout, func(ctx context.Context) error {
		var content bytes.Buffer
		if err := snapshot.Encode(&content, doc); err != nil {
			return err
		}

		id, err := g.ids.RemoteDocumentID(ctx)
		if err != nil {
			return fmt.Errorf("read gist id: %w", err)
		}

		if id != "" {
			err = g.update(ctx, id, content.String())
			if !errors.Is(err, errGistGone) {
				return err
			}
			g.logger.Warn("stored gist no longer exists, creating a new one", "gist_id", id)
		}

		newID, err := g.create(ctx, content.String())
		if err != nil {
			return err
		}
		if err := g.ids.SetRemoteDocumentID(ctx, newID); err != nil {
			return fmt.Errorf("store gist id: %w", err)
		}
		g.logger.Info("created gist", "gist_id", newID)
		return nil
	})
}

func (g *Gist) create(ctx context.Context, content string) (string, error) {
	public := false
	body := gistBody{
		Description: GistDescription,
		Public:      &public,
		Files:       map[string]gistFile{GistFilename: {Content: content}},
	}

	var out gistBody
	if err := g.do(ctx, http.MethodPost, g.cfg.BaseURL+"/gists", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("gist api: create returned no id")
	}
	return out.ID, nil
}

func (g *Gist) update(ctx context.Context, id, content string) error {
	body := gistBody{
		Description: GistDescription,
		Files:       map[string]gistFile{GistFilename: {Content: content}},
	}

	err := g.do(ctx, http.MethodPatch, g.cfg.BaseURL+"/gists/"+id, body, nil)
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return errGistGone
	}
	return err
}

// Pull fetches and validates the document. It returns nil, nil when no gist
// id is stored.
func (g *Gist) Pull(ctx context.Context) (*snapshot.Document, error) {
	var doc *snapshot.Document
	err := call(ctx, g.Name(), "pull", g.cfg.Timeout, func(ctx context.Context) error {
		var err error
		doc, err = g.fetch(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (g *Gist) fetch(ctx context.Context) (*snapshot.Document, error) {
	id, err := g.ids.RemoteDocumentID(ctx)
	if err != nil {
		return nil, fmt.Errorf("read gist id: %w", err)
	}
	if id == "" {
		return nil, nil
	}

	var gist gistBody
	if err := g.do(ctx, http.MethodGet, g.cfg.BaseURL+"/gists/"+id, nil, &gist); err != nil {
		return nil, err
	}

	file, ok := gist.Files[GistFilename]
	if !ok {
		return nil, fmt.Errorf("gist %s has no %s", id, GistFilename)
	}

	content := []byte(file.Content)
	if file.Truncated && file.RawURL != "" {
		if content, err = g.raw(ctx, file.RawURL); err != nil {
			return nil, err
		}
	}

	doc, err := snapshot.Parse("gist "+id, content)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Subscribe polls the gist every PollInterval and calls fn when its
// lastUpdated stamp changes and the document came from another session.
func (g *Gist) Subscribe(ctx context.Context, fn Listener) (func(), error) {
	seen, err := g.Pull(ctx)
	if err != nil {
		return nil, err
	}
	var last time.Time
	if seen != nil && seen.LastUpdated != nil {
		last = *seen.LastUpdated
	}

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(g.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-subCtx.Done():
				return
			case <-ticker.C:
			}

			doc, err := g.Pull(subCtx)
			if err != nil {
				if subCtx.Err() == nil {
					g.logger.Warn("gist poll failed", "error", err)
				}
				continue
			}
			if doc == nil || doc.LastUpdated == nil || doc.LastUpdated.Equal(last) {
				continue
			}
			last = *doc.LastUpdated
			if !foreign(*doc, g.cfg.Origin) {
				continue
			}
			fn(*doc)
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
	return stop, nil
}

func (g *Gist) do(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	g.authorize(req)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (g *Gist) raw(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	g.authorize(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readAPIError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (g *Gist) authorize(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if g.cfg.Token != "" {
		req.Header.Set("Authorization", "token "+g.cfg.Token)
	}
}

func readAPIError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)
	return &apiError{Status: resp.StatusCode, Message: payload.Message}
}
