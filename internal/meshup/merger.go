// Package meshup merges OpenCitations Index citation data and Meta
// bibliographic metadata for one citing work into a single SKG-IF graph.
package meshup

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/matsen/oc2skg/internal/index"
	"github.com/matsen/oc2skg/internal/logging"
	"github.com/matsen/oc2skg/internal/meta"
	"github.com/matsen/oc2skg/internal/oc"
	"github.com/matsen/oc2skg/internal/skg"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the default number of parallel metadata fetches.
const DefaultConcurrency = 4

// ErrNoCitingProduct indicates the citing metadata produced no product node.
var ErrNoCitingProduct = errors.New("no citing product in metadata")

// citedDOIPattern captures every doi: token of a cited identifier string.
var citedDOIPattern = regexp.MustCompile(`doi:([^\s]+)`)

// Fetcher retrieves source records. *oc.Client implements it.
type Fetcher interface {
	References(ctx context.Context, id string) ([]oc.Link, error)
	Metadata(ctx context.Context, id string) ([]oc.Record, error)
}

var _ Fetcher = (*oc.Client)(nil)

// FetchError reports a failed fetch that aborted a merge.
type FetchError struct {
	Op  string // "references" or "metadata"
	ID  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s for %s: %v", e.Op, e.ID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Merger combines citation and metadata graphs for a citing identifier.
type Merger struct {
	fetcher     Fetcher
	index       *index.Converter
	meta        *meta.Converter
	concurrency int
}

// Option configures a Merger.
type Option func(*Merger)

// WithConcurrency bounds the number of parallel cited-metadata fetches.
func WithConcurrency(n int) Option {
	return func(m *Merger) {
		m.concurrency = max(n, 1)
	}
}

// WithConverters replaces the index and meta converters.
func WithConverters(ic *index.Converter, mc *meta.Converter) Option {
	return func(m *Merger) {
		m.index = ic
		m.meta = mc
	}
}

// NewMerger returns a merger fetching through f.
func NewMerger(f Fetcher, opts ...Option) *Merger {
	m := &Merger{
		fetcher:     f,
		index:       index.NewConverter(),
		meta:        meta.NewConverter(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Convert builds the merged graph for id, e.g. "doi:10.1162/qss_a_00023".
//
// The citing product from the metadata call receives the cites list of the
// citation graph and is placed first, followed by the rest of the citing
// metadata nodes, then the nodes of every cited work with a DOI. A cited DOI
// that Meta does not cover contributes no nodes; any other fetch failure
// aborts the merge with a *FetchError.
func (m *Merger) Convert(ctx context.Context, id string) (*skg.Document, error) {
	logger := logging.FromContext(ctx)
	progress := logging.NewProgress(logger)

	links, err := m.fetcher.References(ctx, id)
	if err != nil {
		return nil, &FetchError{Op: "references", ID: id, Err: err}
	}
	logger.Debug("fetched references", "id", id, "links", len(links))

	cites := []string{}
	if len(links) > 0 {
		citations, err := m.index.Convert(links)
		if err != nil {
			return nil, fmt.Errorf("converting references for %s: %w", id, err)
		}
		cites = citations.Cites()
	} else {
		logger.Warn("no references found", "id", id)
	}

	records, err := m.fetcher.Metadata(ctx, id)
	if err != nil {
		return nil, &FetchError{Op: "metadata", ID: id, Err: err}
	}
	citingNodes, err := m.meta.Convert(records)
	if err != nil {
		return nil, fmt.Errorf("converting metadata for %s: %w", id, err)
	}

	citingNodes, err = attachCites(ctx, citingNodes, id, cites)
	if err != nil {
		return nil, err
	}

	dois := CitedDOIs(links)
	logger.Debug("fetching cited metadata", "dois", len(dois), "concurrency", m.concurrency)
	citedRecords, err := m.fetchAll(ctx, dois)
	if err != nil {
		return nil, err
	}
	citedNodes, err := m.meta.Convert(citedRecords)
	if err != nil {
		return nil, fmt.Errorf("converting cited metadata: %w", err)
	}

	nodes := make([]skg.Node, 0, len(citingNodes)+len(citedNodes))
	nodes = append(nodes, citingNodes...)
	nodes = append(nodes, citedNodes...)

	progress.Done("merged graph", "id", id, "cited", len(dois), "nodes", len(nodes))
	return skg.NewDocument(nodes), nil
}

// fetchAll fetches metadata for ids in parallel and returns the records
// flattened in ids order. Identifiers unknown to Meta yield no records.
func (m *Merger) fetchAll(ctx context.Context, ids []string) ([]oc.Record, error) {
	logger := logging.FromContext(ctx)
	results := make([][]oc.Record, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			recs, err := m.fetcher.Metadata(gctx, id)
			if oc.IsNotFound(err) {
				logger.Warn("no metadata for cited work", "id", id)
				return nil
			}
			if err != nil {
				return &FetchError{Op: "metadata", ID: id, Err: err}
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var flat []oc.Record
	for _, recs := range results {
		flat = append(flat, recs...)
	}
	return flat, nil
}

// attachCites sets cites on the product matching id and moves it to the
// head of nodes. When no product carries id, the first product is used.
func attachCites(ctx context.Context, nodes []skg.Node, id string, cites []string) ([]skg.Node, error) {
	want := skg.ParseIdentifier(id)

	pos := -1
	for i, n := range nodes {
		p, ok := n.(*skg.Product)
		if !ok {
			continue
		}
		if p.HasIdentifier(want) {
			pos = i
			break
		}
		if pos < 0 {
			pos = i
		}
	}
	if pos < 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoCitingProduct, id)
	}

	citing := nodes[pos].(*skg.Product)
	if !citing.HasIdentifier(want) {
		logging.FromContext(ctx).Warn("no product matches citing identifier, using first product",
			"id", id, "product", citing.LocalIdentifier)
	}
	citing.RelatedProducts = &skg.RelatedProducts{Cites: cites}

	out := make([]skg.Node, 0, len(nodes))
	out = append(out, citing)
	out = append(out, nodes[:pos]...)
	out = append(out, nodes[pos+1:]...)
	return out, nil
}

// CitedDOIs returns the doi: identifiers of every cited field in links,
// without duplicates, in first-seen order.
func CitedDOIs(links []oc.Link) []string {
	seen := make(map[string]bool)
	var dois []string
	for _, link := range links {
		for _, m := range citedDOIPattern.FindAllStringSubmatch(link.Cited, -1) {
			doi := "doi:" + m[1]
			if seen[doi] {
				continue
			}
			seen[doi] = true
			dois = append(dois, doi)
		}
	}
	return dois
}
