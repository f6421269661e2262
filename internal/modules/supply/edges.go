// Package supply maps the supply chain as a weighted directed graph and
// ranks nodes by how much traffic between other nodes must pass through them.
package supply

import (
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"strconv"

	"github.com/stratalpha/stratalpha/pkg/embedded"
)

// Edge is one supplier-to-customer relationship. Weight expresses dependency
// strength in (0, 1].
type Edge struct {
	Supplier     string  `json:"supplier"`
	Customer     string  `json:"customer"`
	Relationship string  `json:"relationship"`
	Country      string  `json:"country"`
	Weight       float64 `json:"weight"`
}

// LoadEdgesCSV reads an edge list from a CSV file. The relationship, country
// and weight columns are optional; weight defaults to 1.0.
func LoadEdgesCSV(fsys fs.FS, path string) ([]Edge, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open supply edges %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read supply edges header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"supplier", "customer"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("supply edges missing column %q", required)
		}
	}

	get := func(record []string, name string) string {
		if i, ok := col[name]; ok && i < len(record) {
			return record[i]
		}
		return ""
	}

	var edges []Edge
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read supply edges row: %w", err)
		}

		edge := Edge{
			Supplier:     get(record, "supplier"),
			Customer:     get(record, "customer"),
			Relationship: get(record, "relationship"),
			Country:      get(record, "country"),
			Weight:       1.0,
		}
		if edge.Country == "" {
			edge.Country = "Unknown"
		}
		if raw := get(record, "weight"); raw != "" {
			w, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid weight %q for %s->%s: %w", raw, edge.Supplier, edge.Customer, err)
			}
			edge.Weight = w
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// LoadBundledEdges reads the embedded sample edge list.
func LoadBundledEdges() ([]Edge, error) {
	return LoadEdgesCSV(embedded.Data, embedded.SupplyEdgesCSV)
}
