// Package storage reads OpenCitations source files and writes SKG-IF
// JSON-LD documents.
package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matsen/oc2skg/internal/oc"
	"github.com/matsen/oc2skg/internal/skg"
)

// ReadLinks reads Index citation links from path. The file holds either a
// JSON array of links, as returned by the references endpoint, or one link
// object per line (JSONL).
func ReadLinks(path string) ([]oc.Link, error) {
	var links []oc.Link
	err := decodeValues(path, func(i int, raw json.RawMessage) error {
		if isArray(raw) {
			var batch []oc.Link
			if err := json.Unmarshal(raw, &batch); err != nil {
				return fmt.Errorf("parsing links value %d: %w", i, err)
			}
			links = append(links, batch...)
			return nil
		}
		var link oc.Link
		if err := json.Unmarshal(raw, &link); err != nil {
			return fmt.Errorf("parsing link %d: %w", i, err)
		}
		links = append(links, link)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return links, nil
}

// ReadRecords reads Meta bibliographic records from path. Each top-level
// value may be a record, an array of records or an array wrapping one
// array of records; JSONL files are read value by value.
func ReadRecords(path string) ([]oc.Record, error) {
	var records []oc.Record
	err := decodeValues(path, func(i int, raw json.RawMessage) error {
		var set oc.RecordSet
		if err := json.Unmarshal(raw, &set); err != nil {
			return fmt.Errorf("parsing records value %d: %w", i, err)
		}
		records = append(records, set...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// decodeValues calls fn for each top-level JSON value in the file at path.
// An empty file is an error wrapping skg.ErrEmptyInput.
func decodeValues(path string, fn func(i int, raw json.RawMessage) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening input file: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	n := 0
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("parsing %s at offset %d: %w", path, dec.InputOffset(), err)
		}
		if err := fn(n, raw); err != nil {
			return err
		}
		n++
	}

	if n == 0 {
		return fmt.Errorf("%s: %w", path, skg.ErrEmptyInput)
	}
	return nil
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

// WriteDocument writes doc to path as indented JSON, creating parent
// directories as needed. Non-ASCII text and HTML characters are written
// unescaped.
func WriteDocument(path string, doc *skg.Document) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	if err := EncodeDocument(f, doc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	return nil
}

// EncodeDocument writes doc to w with four-space indentation.
func EncodeDocument(w io.Writer, doc *skg.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	return nil
}
