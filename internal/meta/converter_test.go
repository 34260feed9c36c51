package meta

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/matsen/oc2skg/internal/oc"
	"github.com/matsen/oc2skg/internal/skg"
)

func convert(t *testing.T, records ...oc.Record) []skg.Node {
	t.Helper()
	nodes, err := NewConverter().Convert(records)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	return nodes
}

func agents(nodes []skg.Node) []*skg.Agent {
	var out []*skg.Agent
	for _, n := range nodes {
		if a, ok := n.(*skg.Agent); ok {
			out = append(out, a)
		}
	}
	return out
}

func venues(nodes []skg.Node) []*skg.Venue {
	var out []*skg.Venue
	for _, n := range nodes {
		if v, ok := n.(*skg.Venue); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestConvert_Product(t *testing.T) {
	nodes := convert(t, oc.Record{
		ID:      "omid:br/0601 doi:10.1162/qss_a_00023",
		Type:    "journal article",
		Title:   "Software review: COCI",
		Author:  "Heibi, Ivan [omid:ra/1 orcid:0000-0001-5366-5194]",
		PubDate: "2020-02",
	})

	p, ok := nodes[0].(*skg.Product)
	if !ok {
		t.Fatalf("nodes[0] = %T, want *skg.Product", nodes[0])
	}
	if p.EntityType != "product" {
		t.Errorf("EntityType = %q", p.EntityType)
	}
	if p.LocalIdentifier != "https://w3id.org/oc/meta/br/0601" {
		t.Errorf("LocalIdentifier = %q", p.LocalIdentifier)
	}
	if p.ProductType != "literature" {
		t.Errorf("ProductType = %q", p.ProductType)
	}
	if p.Titles["none"] != "Software review: COCI" {
		t.Errorf("Titles = %v", p.Titles)
	}

	m := p.Manifestations[0]
	if m.Type.Class != "http://purl.org/spar/fabio/JournalArticle" {
		t.Errorf("class = %q", m.Type.Class)
	}
	if m.Type.Labels["en"] != "journal article" || m.Type.DefinedIn != "http://purl.org/spar/fabio" {
		t.Errorf("type = %+v", m.Type)
	}
	if !reflect.DeepEqual(m.Identifiers, p.Identifiers) {
		t.Errorf("manifestation identifiers = %v", m.Identifiers)
	}
	if m.Dates.Publication != "2020-02-01T00:00:00+00:00" {
		t.Errorf("publication = %q", m.Dates.Publication)
	}
	if m.Biblio != nil {
		t.Errorf("Biblio = %+v, want nil", m.Biblio)
	}

	a := agents(nodes)
	if len(a) != 1 {
		t.Fatalf("agents = %d, want 1", len(a))
	}
	want := &skg.Agent{
		LocalIdentifier: "https://w3id.org/oc/meta/ra/1",
		Identifiers: []skg.Identifier{
			{Scheme: "omid", Value: "ra/1"},
			{Scheme: "orcid", Value: "0000-0001-5366-5194"},
		},
		EntityType: "person",
		FamilyName: "Heibi",
		GivenName:  "Ivan",
	}
	if !reflect.DeepEqual(a[0], want) {
		t.Errorf("agent = %+v, want %+v", a[0], want)
	}
}

func TestConvert_ProductType(t *testing.T) {
	tests := []struct {
		recordType string
		want       string
	}{
		{"data file", "research data"},
		{"dataset", "research data"},
		{"software", "research software"},
		{"journal article", "literature"},
		{"book chapter", "literature"},
		{"proceedings article", "literature"},
		{"", "literature"},
	}

	for _, tt := range tests {
		t.Run(tt.recordType, func(t *testing.T) {
			nodes := convert(t, oc.Record{ID: "omid:br/1", Type: tt.recordType})
			if got := nodes[0].(*skg.Product).ProductType; got != tt.want {
				t.Errorf("ProductType = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConvert_UnmappedClassIsEmpty(t *testing.T) {
	nodes := convert(t, oc.Record{ID: "omid:br/1", Type: "dataset"})
	m := nodes[0].(*skg.Product).Manifestations[0]
	if m.Type.Class != "" || m.Type.Labels["en"] != "dataset" {
		t.Errorf("type = %+v", m.Type)
	}
}

func TestConvert_ContributionRanks(t *testing.T) {
	nodes := convert(t, oc.Record{
		ID:     "omid:br/1",
		Type:   "journal article",
		Author: "Smith, J [omid:1]; Doe, A [omid:2]; , [omid:3]",
	})

	p := nodes[0].(*skg.Product)
	if len(p.Contributions) != 3 {
		t.Fatalf("contributions = %+v", p.Contributions)
	}
	for i, c := range p.Contributions {
		if c.Rank != i+1 || c.Role != "author" {
			t.Errorf("contribution[%d] = %+v", i, c)
		}
	}
	if p.Contributions[2].By != "https://w3id.org/oc/meta/3" {
		t.Errorf("contribution[2].By = %q", p.Contributions[2].By)
	}
}

func TestConvert_UnmatchedContributorAdvancesRank(t *testing.T) {
	nodes := convert(t, oc.Record{
		ID:     "omid:br/1",
		Author: "Smith, J [omid:1]; Anonymous; Doe, A [omid:2]",
	})

	p := nodes[0].(*skg.Product)
	if len(p.Contributions) != 2 {
		t.Fatalf("contributions = %+v", p.Contributions)
	}
	if p.Contributions[0].Rank != 1 || p.Contributions[1].Rank != 3 {
		t.Errorf("ranks = %d, %d, want 1, 3", p.Contributions[0].Rank, p.Contributions[1].Rank)
	}
	if len(agents(nodes)) != 2 {
		t.Errorf("agents = %d, want 2", len(agents(nodes)))
	}
}

func TestConvert_ContributionOrder(t *testing.T) {
	nodes := convert(t, oc.Record{
		ID:        "omid:br/1",
		Type:      "book chapter",
		Author:    "A, B [omid:ra/1]",
		Editor:    "C, D [omid:ra/2]; E, F [omid:ra/3]",
		Publisher: "Springer [omid:ra/4 crossref:297]",
	})

	p := nodes[0].(*skg.Product)
	var roles []string
	var ranks []int
	for _, c := range p.Contributions {
		roles = append(roles, c.Role)
		ranks = append(ranks, c.Rank)
	}
	if !reflect.DeepEqual(roles, []string{"author", "editor", "editor", "publisher"}) {
		t.Errorf("roles = %v", roles)
	}
	if !reflect.DeepEqual(ranks, []int{1, 1, 2, 0}) {
		t.Errorf("ranks = %v", ranks)
	}

	a := agents(nodes)
	if len(a) != 4 {
		t.Fatalf("agents = %d, want 4", len(a))
	}
	if a[3].EntityType != "organisation" || a[3].Name != "Springer" {
		t.Errorf("publisher agent = %+v", a[3])
	}
}

func TestConvert_PublisherRankOmitted(t *testing.T) {
	nodes := convert(t, oc.Record{ID: "omid:br/1", Publisher: "Springer [omid:ra/4]"})
	data, err := json.Marshal(nodes[0])
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"rank"`) {
		t.Errorf("product JSON = %s, publisher must have no rank", data)
	}
}

func TestConvert_AgentEntityTypes(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		role  string
		want  skg.Agent
	}{
		{
			name:  "person",
			entry: "Peroni, Silvio [omid:ra/1]",
			role:  "author",
			want:  skg.Agent{EntityType: "person", FamilyName: "Peroni", GivenName: "Silvio"},
		},
		{
			name:  "person without given name",
			entry: "Peroni,  [omid:ra/1]",
			role:  "author",
			want:  skg.Agent{EntityType: "person", FamilyName: "Peroni"},
		},
		{
			name:  "agent",
			entry: "OpenCitations [omid:ra/1]",
			role:  "editor",
			want:  skg.Agent{EntityType: "agent", Name: "OpenCitations"},
		},
		{
			name:  "organisation",
			entry: "Springer [omid:ra/1]",
			role:  "publisher",
			want:  skg.Agent{EntityType: "organisation", Name: "Springer"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := oc.Record{ID: "omid:br/1"}
			switch tt.role {
			case "author":
				rec.Author = tt.entry
			case "editor":
				rec.Editor = tt.entry
			case "publisher":
				rec.Publisher = tt.entry
			}

			a := agents(convert(t, rec))
			if len(a) != 1 {
				t.Fatalf("agents = %d, want 1", len(a))
			}
			got := *a[0]
			got.LocalIdentifier, got.Identifiers = "", nil
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("agent = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConvert_AgentDeduplication(t *testing.T) {
	nodes := convert(t,
		oc.Record{ID: "omid:br/1", Author: "Smith, J [omid:1]"},
		oc.Record{ID: "omid:br/2", Author: "Smith, J [omid:1]; Smith, J [omid:1]"},
	)

	a := agents(nodes)
	if len(a) != 1 {
		t.Fatalf("agents = %d, want 1", len(a))
	}
	if a[0].LocalIdentifier != "https://w3id.org/oc/meta/1" {
		t.Errorf("LocalIdentifier = %q", a[0].LocalIdentifier)
	}
	if got := nodes[2].(*skg.Product).Contributions; len(got) != 2 {
		t.Errorf("second product contributions = %d, want 2", len(got))
	}
}

func TestConvert_AgentDeduplicationIsByFullEquality(t *testing.T) {
	// Same omid with a different spelling is a different node.
	nodes := convert(t,
		oc.Record{ID: "omid:br/1", Author: "Smith, J [omid:1]"},
		oc.Record{ID: "omid:br/2", Author: "Smith, John [omid:1]"},
	)
	if got := len(agents(nodes)); got != 2 {
		t.Errorf("agents = %d, want 2", got)
	}
}

func TestConvert_GraphOrder(t *testing.T) {
	nodes := convert(t,
		oc.Record{ID: "omid:br/1", Type: "journal article", Author: "A, B [omid:ra/1]", Venue: "J [omid:br/9]"},
		oc.Record{ID: "omid:br/2", Type: "journal article", Author: "A, B [omid:ra/1]", Venue: "J [omid:br/9]"},
	)

	var kinds []string
	for _, n := range nodes {
		switch n.(type) {
		case *skg.Product:
			kinds = append(kinds, "product")
		case *skg.Agent:
			kinds = append(kinds, "agent")
		case *skg.Venue:
			kinds = append(kinds, "venue")
		}
	}
	want := []string{"product", "agent", "venue", "product", "venue"}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("graph order = %v, want %v", kinds, want)
	}
}

func TestConvert_VenueClassification(t *testing.T) {
	tests := []struct {
		name            string
		recordType      string
		wantType        string
		wantEditorsOnIt bool
	}{
		{"book chapter", "book chapter", "book", true},
		{"journal article", "journal article", "journal", false},
		{"other", "report", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := convert(t, oc.Record{
				ID:        "omid:br/1",
				Type:      tt.recordType,
				Editor:    "Ed, It [omid:ra/2]",
				Publisher: "Pub [omid:ra/3]",
				Venue:     "Springer [issn:1234]",
			})

			v := venues(nodes)
			if len(v) != 1 {
				t.Fatalf("venues = %d, want 1", len(v))
			}
			if v[0].Type != tt.wantType {
				t.Errorf("venue type = %q, want %q", v[0].Type, tt.wantType)
			}
			if v[0].Title != "Springer" || v[0].EntityType != "venue" {
				t.Errorf("venue = %+v", v[0])
			}

			var hasEditor, hasPublisher bool
			for _, c := range v[0].Contributions {
				hasEditor = hasEditor || c.Role == "editor"
				hasPublisher = hasPublisher || c.Role == "publisher"
			}
			if hasEditor != tt.wantEditorsOnIt {
				t.Errorf("editor on venue = %v, want %v", hasEditor, tt.wantEditorsOnIt)
			}
			if !hasPublisher {
				t.Error("publisher not attached to venue")
			}
		})
	}
}

func TestConvert_VenueWithoutOmid(t *testing.T) {
	nodes := convert(t, oc.Record{ID: "omid:br/1", Type: "book chapter", Venue: "Springer [issn:1234]"})

	v := venues(nodes)[0]
	if v.LocalIdentifier != "issn:1234" {
		t.Errorf("LocalIdentifier = %q, want ids passed through", v.LocalIdentifier)
	}
	if got := nodes[0].(*skg.Product).Manifestations[0].Biblio.In; got != v.LocalIdentifier {
		t.Errorf("biblio.in = %q, want %q", got, v.LocalIdentifier)
	}
}

func TestConvert_VenueNotDeduplicated(t *testing.T) {
	nodes := convert(t,
		oc.Record{ID: "omid:br/1", Venue: "J [omid:br/9]"},
		oc.Record{ID: "omid:br/2", Venue: "J [omid:br/9]"},
	)
	if got := len(venues(nodes)); got != 2 {
		t.Errorf("venues = %d, want 2", got)
	}
}

func TestConvert_UnmatchedVenue(t *testing.T) {
	nodes := convert(t, oc.Record{ID: "omid:br/1", Venue: "Nature", Volume: "3"})

	if len(venues(nodes)) != 0 {
		t.Error("venue node emitted for unmatched venue string")
	}
	b := nodes[0].(*skg.Product).Manifestations[0].Biblio
	if b == nil || b.Volume != "3" || b.In != "" {
		t.Errorf("Biblio = %+v", b)
	}
}

func TestConvert_Biblio(t *testing.T) {
	tests := []struct {
		name string
		rec  oc.Record
		want *skg.Biblio
	}{
		{
			name: "no biblio fields",
			rec:  oc.Record{ID: "omid:br/1"},
			want: nil,
		},
		{
			name: "page range",
			rec:  oc.Record{ID: "omid:br/1", Page: "101-120", Volume: "4", Issue: "2"},
			want: &skg.Biblio{Issue: "2", Volume: "4", Pages: &skg.Pages{First: "101", Last: "120"}},
		},
		{
			name: "single page",
			rec:  oc.Record{ID: "omid:br/1", Page: "e1003"},
			want: &skg.Biblio{Pages: &skg.Pages{First: "e1003", Last: "e1003"}},
		},
		{
			name: "issue only",
			rec:  oc.Record{ID: "omid:br/1", Issue: "7"},
			want: &skg.Biblio{Issue: "7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := convert(t, tt.rec)
			got := nodes[0].(*skg.Product).Manifestations[0].Biblio
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Biblio = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name    string
		rec     oc.Record
		field   string
		wantErr error
	}{
		{"bad pub_date", oc.Record{ID: "omid:br/1", PubDate: "Spring 2020"}, "pub_date", skg.ErrInvalidDate},
		{"impossible pub_date", oc.Record{ID: "omid:br/1", PubDate: "2020-02-30"}, "pub_date", skg.ErrInvalidDate},
		{"two dashes", oc.Record{ID: "omid:br/1", Page: "1-2-3"}, "page", skg.ErrInvalidPageRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConverter().Convert([]oc.Record{tt.rec})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Convert() error = %v, want %v", err, tt.wantErr)
			}
			var perr *skg.ParseError
			if !errors.As(err, &perr) || perr.Field != tt.field {
				t.Errorf("error = %v, want ParseError on %s", err, tt.field)
			}
			if !strings.Contains(err.Error(), tt.rec.ID) {
				t.Errorf("error %q does not name the record", err)
			}
		})
	}
}

func TestConvert_ContributionsAlwaysEmitted(t *testing.T) {
	nodes := convert(t, oc.Record{ID: "omid:br/1"})
	data, err := json.Marshal(nodes[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"contributions":[]`) {
		t.Errorf("product JSON = %s, want empty contributions", data)
	}
}

func TestConvert_Empty(t *testing.T) {
	nodes := convert(t)
	if nodes == nil || len(nodes) != 0 {
		t.Errorf("Convert() = %v, want empty non-nil", nodes)
	}
}

func TestConvert_FreshPerCall(t *testing.T) {
	c := NewConverter()
	rec := oc.Record{ID: "omid:br/1", Author: "Smith, J [omid:1]"}

	first, err := c.Convert([]oc.Record{rec})
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Convert([]oc.Record{rec})
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Errorf("graph sizes = %d, %d, want 2, 2", len(first), len(second))
	}
}

func TestParseLabeled(t *testing.T) {
	tests := []struct {
		input string
		want  labeled
		ok    bool
	}{
		{"Smith, J [omid:1]", labeled{name: "Smith, J", ids: "omid:1"}, true},
		{"Springer [omid:ra/4 crossref:297]", labeled{name: "Springer", ids: "omid:ra/4 crossref:297"}, true},
		{"[omid:1]", labeled{}, false},
		{"Smith, J", labeled{}, false},
		{"Smith, J [omid:1] extra", labeled{}, false},
	}

	for _, tt := range tests {
		got, ok := parseLabeled(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseLabeled(%q) = %+v, %v, want %+v, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}
