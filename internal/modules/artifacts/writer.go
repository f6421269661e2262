// Package artifacts persists analysis outputs (CSV grids, JSON results) to
// the artifacts directory for downstream consumption.
package artifacts

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/stratalpha/stratalpha/internal/modules/valuation"
)

// Writer writes analysis artifacts into a single base directory.
type Writer struct {
	dir string
	log zerolog.Logger
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string, log zerolog.Logger) *Writer {
	return &Writer{
		dir: dir,
		log: log.With().Str("component", "artifacts").Logger(),
	}
}

// Dir returns the artifacts base directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteSensitivityCSV writes the DCF sensitivity grid. NaN cells are left
// empty so spreadsheet tools read them as missing.
func (w *Writer) WriteSensitivityCSV(name string, grid valuation.SensitivityGrid) (string, error) {
	path := filepath.Join(w.dir, name)
	f, err := w.create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := append([]string{""}, grid.ColLabels...)
	if err := cw.Write(header); err != nil {
		return "", fmt.Errorf("failed to write sensitivity header: %w", err)
	}
	for i, label := range grid.RowLabels {
		record := make([]string, 0, len(grid.ColLabels)+1)
		record = append(record, label)
		for _, v := range grid.Values[i] {
			record = append(record, formatCell(v, -1))
		}
		if err := cw.Write(record); err != nil {
			return "", fmt.Errorf("failed to write sensitivity row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("failed to flush sensitivity CSV: %w", err)
	}

	w.log.Debug().Str("path", path).Msg("Wrote sensitivity grid")
	return path, nil
}

// WriteCompsCSV writes the comps table with multiples rounded to two places.
func (w *Writer) WriteCompsCSV(name string, table valuation.CompsTable) (string, error) {
	path := filepath.Join(w.dir, name)
	f, err := w.create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := []string{"ticker", "price", "market_cap", "net_debt", "enterprise_value", "pe", "ev_ebitda", "ps"}
	if err := cw.Write(header); err != nil {
		return "", fmt.Errorf("failed to write comps header: %w", err)
	}
	for _, row := range table.Rows {
		record := []string{
			row.Ticker,
			formatCell(row.Price, -1),
			formatCell(row.MarketCap, -1),
			formatCell(row.NetDebt, -1),
			formatCell(row.EnterpriseValue, -1),
			formatCell(row.PE, 2),
			formatCell(row.EVEBITDA, 2),
			formatCell(row.PS, 2),
		}
		if err := cw.Write(record); err != nil {
			return "", fmt.Errorf("failed to write comps row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("failed to flush comps CSV: %w", err)
	}

	w.log.Debug().Str("path", path).Msg("Wrote comps table")
	return path, nil
}

// WriteJSON writes any value as indented JSON.
func (w *Writer) WriteJSON(name string, v interface{}) (string, error) {
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifacts dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}

	w.log.Debug().Str("path", path).Msg("Wrote JSON artifact")
	return path, nil
}

func (w *Writer) create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, nil
}

// formatCell renders a float for CSV output. NaN and infinities become empty
// cells; prec < 0 uses the shortest exact representation.
func formatCell(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}
