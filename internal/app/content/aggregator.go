// Package content fans out the catalog queries to the content repository
// and assembles the aggregated payload the pages render from.
package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/vlsiclub/internal/domain/models"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownPage is returned by Page for a page with no catalog entry.
var ErrUnknownPage = errors.New("content: unknown page")

// Querier runs one query against the content repository.
type Querier interface {
	Query(ctx context.Context, groq string, params map[string]any) (json.RawMessage, error)
}

// Payload maps collection names to their documents.
type Payload map[string][]models.Document

// FetchError reports which collection failed and whether it timed out.
type FetchError struct {
	Collection string
	Timeout    bool
	Err        error
}

func (e *FetchError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("content: %s query timed out: %v", e.Collection, e.Err)
	}
	return fmt.Sprintf("content: %s query failed: %v", e.Collection, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Aggregator runs catalog queries concurrently, each under its own timeout.
type Aggregator struct {
	q       Querier
	timeout time.Duration
	log     *zap.Logger
	byName  map[string]Collection
	order   []string
}

// NewAggregator creates an aggregator over the default Catalog.
func NewAggregator(q Querier, timeout time.Duration, logger *zap.Logger) *Aggregator {
	return NewAggregatorWithCatalog(q, Catalog, timeout, logger)
}

// NewAggregatorWithCatalog creates an aggregator over a custom catalog.
func NewAggregatorWithCatalog(q Querier, catalog []Collection, timeout time.Duration, logger *zap.Logger) *Aggregator {
	a := &Aggregator{
		q:       q,
		timeout: timeout,
		log:     logger,
		byName:  make(map[string]Collection, len(catalog)),
	}
	for _, c := range catalog {
		a.byName[c.Name] = c
		a.order = append(a.order, c.Name)
	}
	return a
}

// All fetches every collection in the catalog.
func (a *Aggregator) All(ctx context.Context) (Payload, error) {
	return a.Fetch(ctx, a.order...)
}

// Page fetches the collections one page needs.
func (a *Aggregator) Page(ctx context.Context, page string) (Payload, error) {
	names, ok := Pages[page]
	if !ok {
		return nil, ErrUnknownPage
	}
	return a.Fetch(ctx, names...)
}

// Fetch runs the named queries concurrently. It returns only once every
// query has settled, and it returns either the full payload or an error,
// never a partial payload. The first failure cancels the rest.
func (a *Aggregator) Fetch(ctx context.Context, names ...string) (Payload, error) {
	cols := make([]Collection, 0, len(names))
	for _, n := range names {
		c, ok := a.byName[n]
		if !ok {
			return nil, fmt.Errorf("content: unknown collection %q", n)
		}
		cols = append(cols, c)
	}

	results := make([][]models.Document, len(cols))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range cols {
		g.Go(func() error {
			docs, err := a.fetchOne(gctx, c)
			if err != nil {
				return err
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(Payload, len(cols))
	for i, c := range cols {
		out[c.Name] = results[i]
	}
	return out, nil
}

func (a *Aggregator) fetchOne(ctx context.Context, c Collection) ([]models.Document, error) {
	qctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	raw, err := a.q.Query(qctx, c.Query, nil)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(qctx.Err(), context.DeadlineExceeded)
		if !errors.Is(err, context.Canceled) || timedOut {
			a.log.Warn("content query failed",
				zap.String("collection", c.Name),
				zap.Bool("timeout", timedOut),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
		}
		return nil, &FetchError{Collection: c.Name, Timeout: timedOut, Err: err}
	}

	docs, err := decodeDocuments(raw)
	if err != nil {
		a.log.Warn("content result malformed", zap.String("collection", c.Name), zap.Error(err))
		return nil, &FetchError{Collection: c.Name, Err: err}
	}

	PruneAssets(docs, c.Assets)
	if c.Kind != "" {
		for _, d := range docs {
			d[models.KindField] = c.Kind
		}
	}

	a.log.Debug("content query ok",
		zap.String("collection", c.Name),
		zap.Int("count", len(docs)),
		zap.Duration("elapsed", time.Since(start)))
	return docs, nil
}

// decodeDocuments decodes a query result that must be an array of objects.
// A null result is an empty collection.
func decodeDocuments(raw json.RawMessage) ([]models.Document, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []models.Document{}, nil
	}
	var docs []models.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	if docs == nil {
		docs = []models.Document{}
	}
	for i, d := range docs {
		if d == nil {
			return nil, fmt.Errorf("decode documents: element %d is not an object", i)
		}
	}
	return docs, nil
}
