// Package oc provides the OpenCitations source record types and a client
// for the Index and Meta REST APIs.
package oc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Link is a citation link as returned by the Index references endpoint.
// Citing and Cited are whitespace-separated identifier lists whose first
// token is the omid. Creation and Timespan are nil when absent.
type Link struct {
	OCI       string  `json:"oci,omitempty"`
	Citing    string  `json:"citing"`
	Cited     string  `json:"cited"`
	Creation  *string `json:"creation,omitempty"`
	Timespan  *string `json:"timespan,omitempty"`
	JournalSC string  `json:"journal_sc,omitempty"`
	AuthorSC  string  `json:"author_sc,omitempty"`
}

// Record is a bibliographic record as returned by the Meta metadata endpoint.
// The API always emits every key, so an empty string is the absent value.
//
// Author, Editor and Publisher hold "Name [ids]; Name [ids]" lists; Venue
// holds a single "Name [ids]".
type Record struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Editor    string `json:"editor"`
	Publisher string `json:"publisher"`
	PubDate   string `json:"pub_date"`
	Volume    string `json:"volume"`
	Issue     string `json:"issue"`
	Page      string `json:"page"`
	Venue     string `json:"venue"`
}

// HasBiblio reports whether any bibliographic coordinate is present.
func (r Record) HasBiblio() bool {
	return r.Volume != "" || r.Page != "" || r.Venue != "" || r.Issue != ""
}

// RecordSet is a list of records decoded from any of the shapes the Meta
// API and its callers produce: a single object, an array of objects, or an
// array wrapping exactly one array of objects.
type RecordSet []Record

// UnmarshalJSON implements json.Unmarshaler.
func (s *RecordSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("decoding records: empty input")
	}

	switch data[0] {
	case '{':
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decoding record: %w", err)
		}
		*s = RecordSet{rec}
		return nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decoding records: %w", err)
		}
		// One level of [[...]] is unwrapped, no more.
		if len(items) == 1 && isArray(items[0]) {
			var nested []json.RawMessage
			if err := json.Unmarshal(items[0], &nested); err != nil {
				return fmt.Errorf("decoding nested records: %w", err)
			}
			items = nested
		}
		recs := make(RecordSet, 0, len(items))
		for i, item := range items {
			var rec Record
			if err := json.Unmarshal(item, &rec); err != nil {
				return fmt.Errorf("decoding record %d: %w", i, err)
			}
			recs = append(recs, rec)
		}
		*s = recs
		return nil
	default:
		return fmt.Errorf("decoding records: unexpected JSON value %.20q", data)
	}
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}
