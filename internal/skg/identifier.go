package skg

import (
	"regexp"
	"strings"
)

// PrimaryScheme is the OpenCitations Meta identifier scheme used as the
// canonical key of every entity.
const PrimaryScheme = "omid"

// DefaultScheme is assumed for identifier tokens that carry no scheme prefix.
const DefaultScheme = "doi"

// omidPattern captures the value of the last omid: token in a string.
var omidPattern = regexp.MustCompile(`^.*` + PrimaryScheme + `:([^ ]+).*$`)

// ParseIdentifiers splits a whitespace-separated identifier string into
// identifiers. Each token is split on its first colon; tokens without a
// colon are taken as DOIs. Order is preserved and duplicates are kept.
//
// Examples:
//   - "omid:br/0601 doi:10.1/x" -> [{omid br/0601} {doi 10.1/x}]
//   - "10.1/x"                  -> [{doi 10.1/x}]
func ParseIdentifiers(s string) []Identifier {
	var ids []Identifier
	for _, token := range strings.Fields(s) {
		ids = append(ids, ParseIdentifier(token))
	}
	return ids
}

// ParseIdentifier parses a single scheme:value token.
func ParseIdentifier(token string) Identifier {
	scheme, value, ok := strings.Cut(token, ":")
	if !ok {
		return Identifier{Scheme: DefaultScheme, Value: token}
	}
	return Identifier{Scheme: strings.ToLower(scheme), Value: value}
}

// Minter mints canonical local identifiers by substituting Base for the
// omid: prefix of an identifier string.
type Minter struct {
	Base string
}

// LocalID returns the canonical URL for the omid token in s. Strings that
// carry no omid token are returned unchanged.
func (m Minter) LocalID(s string) string {
	match := omidPattern.FindStringSubmatch(s)
	if match == nil {
		return s
	}
	return m.Base + match[1]
}

// ResolveReference returns the reference used in related_products for a
// cited identifier string: the first token, minted when it is an omid.
// Blank input yields "".
func (m Minter) ResolveReference(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	first := fields[0]
	if strings.Contains(first, PrimaryScheme) {
		return m.LocalID(first)
	}
	return first
}
