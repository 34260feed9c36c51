// Package skg defines the SKG-IF JSON-LD graph model emitted by the converters,
// along with the identifier and date parsing shared by them.
package skg

import "strings"

// JSON-LD context and namespace constants.
const (
	ContextURL     = "https://w3id.org/skg-if/context/skg-if.json"
	SandboxBase    = "https://w3id.org/skg-if/sandbox/oc/"
	IndexBase      = "https://w3id.org/oc/index/"
	MetaBase       = "https://w3id.org/oc/meta/"
	FabioNamespace = "http://purl.org/spar/fabio"
)

// Entity types.
const (
	EntityProduct      = "product"
	EntityPerson       = "person"
	EntityOrganisation = "organisation"
	EntityAgent        = "agent"
	EntityVenue        = "venue"
)

// Contribution roles.
const (
	RoleAuthor    = "author"
	RoleEditor    = "editor"
	RolePublisher = "publisher"
)

// Product types.
const (
	ProductResearchData     = "research data"
	ProductResearchSoftware = "research software"
	ProductLiterature       = "literature"
)

// Node is a graph node: *Product, *Agent or *Venue.
type Node interface {
	LocalID() string
	node()
}

// Identifier is a (scheme, value) pair such as doi:10.1/x.
type Identifier struct {
	Scheme string `json:"scheme"`
	Value  string `json:"value"`
}

// String returns the identifier in scheme:value form.
func (id Identifier) String() string {
	return id.Scheme + ":" + id.Value
}

// Contribution links an agent to a product or venue.
// Rank is 1-based and left at 0 (omitted) for publishers.
type Contribution struct {
	By   string `json:"by"`
	Role string `json:"role"`
	Rank int    `json:"rank,omitempty"`
}

// Product is a research product node.
//
// Manifestations and Contributions use omitzero so that a nil slice drops
// the key while an empty non-nil slice is written as [].
type Product struct {
	EntityType      string            `json:"entity_type,omitempty"`
	LocalIdentifier string            `json:"local_identifier"`
	Identifiers     []Identifier      `json:"identifiers,omitempty"`
	ProductType     string            `json:"product_type,omitempty"`
	Titles          map[string]string `json:"titles,omitempty"`
	Contributions   []Contribution    `json:"contributions,omitzero"`
	Manifestations  []Manifestation   `json:"manifestations,omitzero"`
	RelatedProducts *RelatedProducts  `json:"related_products,omitempty"`
}

// RelatedProducts holds outgoing product references.
type RelatedProducts struct {
	Cites []string `json:"cites"`
}

// Manifestation is a concrete published expression of a product.
type Manifestation struct {
	Type        *ManifestationType `json:"type,omitempty"`
	Identifiers []Identifier       `json:"identifiers,omitempty"`
	Dates       *Dates             `json:"dates,omitempty"`
	Biblio      *Biblio            `json:"biblio,omitempty"`
}

// ManifestationType classifies a manifestation against the FaBiO ontology.
type ManifestationType struct {
	Class     string            `json:"class"`
	Labels    map[string]string `json:"labels"`
	DefinedIn string            `json:"defined_in"`
}

// Dates holds manifestation dates as ISO-8601 timestamps.
type Dates struct {
	Publication string `json:"publication"`
}

// Biblio holds bibliographic coordinates of a manifestation.
type Biblio struct {
	Issue  string `json:"issue,omitempty"`
	Volume string `json:"volume,omitempty"`
	Pages  *Pages `json:"pages,omitempty"`
	In     string `json:"in,omitempty"`
}

// Pages is a first/last page span.
type Pages struct {
	First string `json:"first"`
	Last  string `json:"last"`
}

// Agent is a person, organisation or generic agent node.
type Agent struct {
	LocalIdentifier string       `json:"local_identifier"`
	Identifiers     []Identifier `json:"identifiers,omitempty"`
	EntityType      string       `json:"entity_type"`
	GivenName       string       `json:"given_name,omitempty"`
	FamilyName      string       `json:"family_name,omitempty"`
	Name            string       `json:"name,omitempty"`
}

// Venue is a journal or book node.
type Venue struct {
	LocalIdentifier string         `json:"local_identifier"`
	EntityType      string         `json:"entity_type"`
	Title           string         `json:"title"`
	Type            string         `json:"type"`
	Identifiers     []Identifier   `json:"identifiers,omitempty"`
	Contributions   []Contribution `json:"contributions,omitempty"`
}

func (p *Product) LocalID() string { return p.LocalIdentifier }
func (a *Agent) LocalID() string   { return a.LocalIdentifier }
func (v *Venue) LocalID() string   { return v.LocalIdentifier }

func (*Product) node() {}
func (*Agent) node()   {}
func (*Venue) node()   {}

// HasIdentifier reports whether the product carries id. Schemes compare
// exactly, values case-insensitively (DOIs are case-insensitive).
func (p *Product) HasIdentifier(id Identifier) bool {
	for _, own := range p.Identifiers {
		if own.Scheme == id.Scheme && strings.EqualFold(own.Value, id.Value) {
			return true
		}
	}
	return false
}

// Document is a JSON-LD document with the SKG-IF context.
type Document struct {
	Context []any  `json:"@context"`
	Graph   []Node `json:"@graph"`
}

type contextBase struct {
	Base string `json:"@base"`
	SKG  string `json:"skg"`
}

// NewDocument wraps nodes in a document carrying the SKG-IF context.
// A nil nodes slice is written as an empty @graph.
func NewDocument(nodes []Node) *Document {
	if nodes == nil {
		nodes = []Node{}
	}
	return &Document{
		Context: []any{
			ContextURL,
			contextBase{Base: SandboxBase, SKG: SandboxBase},
		},
		Graph: nodes,
	}
}
