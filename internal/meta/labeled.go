package meta

import "regexp"

// labeledPattern matches "Name [ids]" as used by contributor and venue
// fields, e.g. "Peroni, Silvio [omid:ra/0601 orcid:0000-0003-0530-4305]".
var labeledPattern = regexp.MustCompile(`^(.+) \[(.+)\]$`)

// labeled is a "Name [ids]" entry: a display name and the raw
// whitespace-separated identifier list.
type labeled struct {
	name string
	ids  string
}

// parseLabeled matches s against the Name [ids] form. The second return
// value is false for entries in any other shape.
func parseLabeled(s string) (labeled, bool) {
	m := labeledPattern.FindStringSubmatch(s)
	if m == nil {
		return labeled{}, false
	}
	return labeled{name: m[1], ids: m[2]}, true
}
