// Package index converts OpenCitations Index citation links into an SKG-IF
// citation graph: one citing product plus one product per cited reference.
package index

import (
	"strings"

	"github.com/matsen/oc2skg/internal/oc"
	"github.com/matsen/oc2skg/internal/skg"
)

// Converter builds citation graphs. It holds no per-call state and is safe
// for concurrent use.
type Converter struct {
	Minter skg.Minter
}

// NewConverter returns a converter minting local identifiers under
// skg.IndexBase.
func NewConverter() *Converter {
	return &Converter{Minter: skg.Minter{Base: skg.IndexBase}}
}

// Graph is a converted citation graph.
type Graph struct {
	Citing *skg.Product
	Cited  []*skg.Product
}

// Nodes returns the citing product followed by the cited products in input
// order.
func (g *Graph) Nodes() []skg.Node {
	nodes := make([]skg.Node, 0, 1+len(g.Cited))
	nodes = append(nodes, g.Citing)
	for _, p := range g.Cited {
		nodes = append(nodes, p)
	}
	return nodes
}

// Document wraps the graph in an SKG-IF JSON-LD document.
func (g *Graph) Document() *skg.Document {
	return skg.NewDocument(g.Nodes())
}

// Cites returns the citing product's reference list.
func (g *Graph) Cites() []string {
	if g.Citing.RelatedProducts == nil {
		return nil
	}
	return g.Citing.RelatedProducts.Cites
}

// Convert builds the citation graph for links. The first link's citing
// field defines the citing product; every link contributes one cited
// product and one cites entry, without deduplication.
//
// Malformed creation dates and timespans never fail the conversion; they
// only drop the corresponding publication date. An empty links slice
// returns skg.ErrEmptyInput.
func (c *Converter) Convert(links []oc.Link) (*Graph, error) {
	if len(links) == 0 {
		return nil, skg.ErrEmptyInput
	}

	first := links[0]
	citing := &skg.Product{
		LocalIdentifier: c.Minter.LocalID(primaryToken(first.Citing)),
		Identifiers:     skg.ParseIdentifiers(first.Citing),
	}
	if first.Creation != nil {
		if t, ok := skg.ParseDate(*first.Creation); ok {
			citing.Manifestations = []skg.Manifestation{publishedOn(skg.FormatTimestamp(t))}
		}
	}

	cites := make([]string, len(links))
	for i, link := range links {
		cites[i] = c.Minter.ResolveReference(link.Cited)
	}
	citing.RelatedProducts = &skg.RelatedProducts{Cites: cites}

	graph := &Graph{
		Citing: citing,
		Cited:  make([]*skg.Product, 0, len(links)),
	}
	for _, link := range links {
		graph.Cited = append(graph.Cited, c.citedProduct(link))
	}
	return graph, nil
}

// citedProduct builds the node for the cited side of link. Its publication
// date is inferred as creation minus timespan when both are present.
func (c *Converter) citedProduct(link oc.Link) *skg.Product {
	p := &skg.Product{
		LocalIdentifier: c.Minter.LocalID(primaryToken(link.Cited)),
		Identifiers:     skg.ParseIdentifiers(link.Cited),
	}
	if link.Creation == nil || link.Timespan == nil {
		return p
	}

	// Both keys present: the list is emitted even when parsing fails.
	p.Manifestations = []skg.Manifestation{}
	created, ok := skg.ParseDate(*link.Creation)
	if !ok {
		return p
	}
	period, ok := skg.ParsePeriod(*link.Timespan)
	if !ok {
		return p
	}
	published := period.SubtractFrom(created)
	if published.Year() < 1 {
		return p
	}
	p.Manifestations = append(p.Manifestations, publishedOn(skg.FormatTimestamp(published)))
	return p
}

func publishedOn(timestamp string) skg.Manifestation {
	return skg.Manifestation{Dates: &skg.Dates{Publication: timestamp}}
}

// primaryToken returns the first whitespace-separated token of s.
func primaryToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
