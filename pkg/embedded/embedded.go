// Package embedded carries the bundled sample datasets used when no external
// data source is configured.
package embedded

import "embed"

//go:embed data
var Data embed.FS

const (
	// SampleMacroCSV is the bundled macro indicator history.
	SampleMacroCSV = "data/sample_macro.csv"

	// SupplyEdgesCSV is the bundled supply chain edge list.
	SupplyEdgesCSV = "data/supply_edges.csv"
)
