// Package manifest loads the CSV enumeration of work items that seeds the
// ledger. A manifest is produced once by an external scrape and read many
// times; row order defines the index space partitions are computed over.
package manifest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/language"
)

// Row is one work item seed: a stable id, a resolved source kind, and the
// locator to fetch. Index is the zero-based position in the manifest.
type Row struct {
	Index    int
	ID       string
	Kind     Kind
	URL      string
	Language string
	Title    string
}

// Manifest is the ordered, validated set of rows from one CSV file.
type Manifest struct {
	Path string
	Rows []Row
}

// Len returns the number of rows.
func (m *Manifest) Len() int {
	return len(m.Rows)
}

// Slice returns rows in the half-open index range [start, end), clamped to
// the manifest bounds.
func (m *Manifest) Slice(start, end int) []Row {
	if start < 0 {
		start = 0
	}
	if end > len(m.Rows) {
		end = len(m.Rows)
	}
	if start >= end {
		return nil
	}
	return m.Rows[start:end]
}

var requiredColumns = []string{"id", "kind", "url"}

// Load reads and validates a manifest CSV. The header must contain id, kind,
// and url columns; language and title are optional. Duplicate ids and unknown
// kinds are load errors so partitions never disagree about the index space.
func Load(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()

	m, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Parse reads manifest rows from r. Exposed separately so tests and future
// remote manifest sources can reuse the validation.
func Parse(r io.Reader) (*Manifest, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty manifest")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	seen := make(map[string]int)
	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(rows)+2, err)
		}

		field := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		id := field("id")
		if id == "" {
			return nil, fmt.Errorf("row %d: empty id", len(rows)+2)
		}
		if prior, dup := seen[id]; dup {
			return nil, fmt.Errorf("row %d: duplicate id %q (first seen on row %d)", len(rows)+2, id, prior)
		}
		seen[id] = len(rows) + 2

		kind, err := ParseKind(field("kind"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(rows)+2, err)
		}

		url := field("url")
		if url == "" {
			return nil, fmt.Errorf("row %d: empty url for id %q", len(rows)+2, id)
		}

		rows = append(rows, Row{
			Index:    len(rows),
			ID:       id,
			Kind:     kind,
			URL:      url,
			Language: canonicalLanguage(field("language")),
			Title:    field("title"),
		})
	}

	return &Manifest{Rows: rows}, nil
}

// canonicalLanguage normalizes a language column value to its BCP 47 form.
// Parliament scrapes carry everything from "de" to "is-IS" to local spellings;
// unparseable values are kept verbatim rather than dropped.
func canonicalLanguage(value string) string {
	if value == "" {
		return ""
	}
	tag, err := language.Parse(value)
	if err != nil {
		return value
	}
	return tag.String()
}
