// Package meta converts OpenCitations Meta bibliographic records into SKG-IF
// product, agent and venue nodes.
package meta

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/matsen/oc2skg/internal/oc"
	"github.com/matsen/oc2skg/internal/skg"
)

// fabioClasses maps Meta record types to FaBiO classes.
var fabioClasses = map[string]string{
	"journal article": skg.FabioNamespace + "/JournalArticle",
	"book chapter":    skg.FabioNamespace + "/BookChapter",
}

// venueTypes maps Meta record types to the type of their venue.
var venueTypes = map[string]string{
	"journal article": "journal",
	"book chapter":    "book",
}

const venueBook = "book"

// Converter builds metadata graphs. It holds no per-call state and is safe
// for concurrent use.
type Converter struct {
	Minter skg.Minter
}

// NewConverter returns a converter minting local identifiers under
// skg.MetaBase.
func NewConverter() *Converter {
	return &Converter{Minter: skg.Minter{Base: skg.MetaBase}}
}

// Convert returns the graph nodes for records: per record, its product,
// then any agents not already in the graph, then its venue if one is named.
//
// Agents are deduplicated by full equality across the whole call. Venues
// are not deduplicated. A pub_date or page value that cannot be parsed
// fails the conversion with a *skg.ParseError.
func (c *Converter) Convert(records []oc.Record) ([]skg.Node, error) {
	b := &builder{minter: c.Minter}
	for _, rec := range records {
		if err := b.add(rec); err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
	}
	if b.graph == nil {
		return []skg.Node{}, nil
	}
	return b.graph, nil
}

// builder accumulates the graph of a single Convert call.
type builder struct {
	minter skg.Minter
	graph  []skg.Node
	agents []*skg.Agent
}

func (b *builder) add(rec oc.Record) error {
	product := &skg.Product{
		EntityType:      skg.EntityProduct,
		LocalIdentifier: b.minter.LocalID(rec.ID),
		Identifiers:     skg.ParseIdentifiers(rec.ID),
		ProductType:     productType(rec.Type),
	}
	if rec.Title != "" {
		product.Titles = map[string]string{"none": rec.Title}
	}
	b.graph = append(b.graph, product)

	authors, authorAgents := b.contributors(rec.Author, skg.RoleAuthor)
	editors, editorAgents := b.contributors(rec.Editor, skg.RoleEditor)
	publishers, publisherAgents := b.contributors(rec.Publisher, skg.RolePublisher)

	product.Contributions = make([]skg.Contribution, 0, len(authors)+len(editors)+len(publishers))
	product.Contributions = append(product.Contributions, authors...)
	product.Contributions = append(product.Contributions, editors...)
	product.Contributions = append(product.Contributions, publishers...)

	for _, group := range [][]*skg.Agent{authorAgents, editorAgents, publisherAgents} {
		for _, agent := range group {
			b.addAgent(agent)
		}
	}

	m := skg.Manifestation{
		Type: &skg.ManifestationType{
			Class:     fabioClasses[rec.Type],
			Labels:    map[string]string{"en": rec.Type},
			DefinedIn: skg.FabioNamespace,
		},
		Identifiers: skg.ParseIdentifiers(rec.ID),
	}

	if rec.PubDate != "" {
		t, ok := skg.ParseDate(rec.PubDate)
		if !ok {
			return &skg.ParseError{Field: "pub_date", Value: rec.PubDate, Err: skg.ErrInvalidDate}
		}
		m.Dates = &skg.Dates{Publication: skg.FormatTimestamp(t)}
	}

	if rec.HasBiblio() {
		biblio, err := b.biblio(rec, editors, publishers)
		if err != nil {
			return err
		}
		m.Biblio = biblio
	}

	product.Manifestations = []skg.Manifestation{m}
	return nil
}

// biblio builds the bibliographic block of rec and, when the venue string
// names one, appends the venue node to the graph.
func (b *builder) biblio(rec oc.Record, editors, publishers []skg.Contribution) (*skg.Biblio, error) {
	biblio := &skg.Biblio{Issue: rec.Issue, Volume: rec.Volume}

	if rec.Page != "" {
		pages, err := parsePages(rec.Page)
		if err != nil {
			return nil, err
		}
		biblio.Pages = pages
	}

	if rec.Venue == "" {
		return biblio, nil
	}
	l, ok := parseLabeled(rec.Venue)
	if !ok {
		return biblio, nil
	}

	venue := &skg.Venue{
		LocalIdentifier: b.minter.LocalID(l.ids),
		EntityType:      skg.EntityVenue,
		Title:           l.name,
		Type:            venueTypes[rec.Type],
		Identifiers:     skg.ParseIdentifiers(l.ids),
	}
	if venue.Type == venueBook {
		venue.Contributions = append(venue.Contributions, editors...)
	}
	venue.Contributions = append(venue.Contributions, publishers...)

	biblio.In = venue.LocalIdentifier
	b.graph = append(b.graph, venue)
	return biblio, nil
}

// contributors parses a "; "-separated contributor list. Every non-empty
// entry advances the rank, including entries that fail to parse; those
// produce neither a contribution nor an agent.
func (b *builder) contributors(field, role string) ([]skg.Contribution, []*skg.Agent) {
	if field == "" {
		return nil, nil
	}

	var (
		contribs []skg.Contribution
		agents   []*skg.Agent
		rank     int
	)
	for _, entry := range strings.Split(field, "; ") {
		if entry == "" {
			continue
		}
		rank++

		l, ok := parseLabeled(entry)
		if !ok {
			continue
		}

		by := b.minter.LocalID(l.ids)
		contrib := skg.Contribution{By: by, Role: role}
		if role != skg.RolePublisher {
			contrib.Rank = rank
		}
		contribs = append(contribs, contrib)
		agents = append(agents, newAgent(by, l, role))
	}
	return contribs, agents
}

// addAgent appends agent unless an equal agent is already in the graph.
func (b *builder) addAgent(agent *skg.Agent) {
	for _, seen := range b.agents {
		if reflect.DeepEqual(seen, agent) {
			return
		}
	}
	b.agents = append(b.agents, agent)
	b.graph = append(b.graph, agent)
}

func newAgent(localID string, l labeled, role string) *skg.Agent {
	agent := &skg.Agent{
		LocalIdentifier: localID,
		Identifiers:     skg.ParseIdentifiers(l.ids),
	}
	if family, given, ok := strings.Cut(l.name, ", "); ok {
		agent.EntityType = skg.EntityPerson
		agent.FamilyName = family
		agent.GivenName = given
		return agent
	}
	if role == skg.RolePublisher {
		agent.EntityType = skg.EntityOrganisation
	} else {
		agent.EntityType = skg.EntityAgent
	}
	agent.Name = l.name
	return agent
}

func productType(recordType string) string {
	switch recordType {
	case "data file", "dataset":
		return skg.ProductResearchData
	case "software":
		return skg.ProductResearchSoftware
	default:
		return skg.ProductLiterature
	}
}

// parsePages splits "first-last" on its dash. A value without a dash is a
// single page; more than one dash is rejected.
func parsePages(page string) (*skg.Pages, error) {
	switch strings.Count(page, "-") {
	case 0:
		return &skg.Pages{First: page, Last: page}, nil
	case 1:
		first, last, _ := strings.Cut(page, "-")
		return &skg.Pages{First: first, Last: last}, nil
	default:
		return nil, &skg.ParseError{Field: "page", Value: page, Err: skg.ErrInvalidPageRange}
	}
}
