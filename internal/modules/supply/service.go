package supply

import (
	"fmt"
	"io/fs"

	"github.com/rs/zerolog"
)

// chokepointCount is how many top nodes the analysis singles out.
const chokepointCount = 5

// Result is the aggregate supply chain analysis output.
type Result struct {
	Edges       []Edge        `json:"edges"`
	Metrics     []NodeMetrics `json:"metrics"`
	Chokepoints []NodeMetrics `json:"chokepoints"`
}

// Service runs supply chain analysis over an edge list source.
type Service struct {
	fsys fs.FS
	path string
	log  zerolog.Logger
}

// NewService creates a supply service reading edges from the given file.
// Passing a nil filesystem selects the bundled sample edge list.
func NewService(fsys fs.FS, path string, log zerolog.Logger) *Service {
	return &Service{
		fsys: fsys,
		path: path,
		log:  log.With().Str("component", "supply").Logger(),
	}
}

// Analyze loads the edge list, computes centrality metrics, and extracts the
// top chokepoints.
func (s *Service) Analyze() (Result, error) {
	var edges []Edge
	var err error
	if s.fsys == nil {
		edges, err = LoadBundledEdges()
	} else {
		edges, err = LoadEdgesCSV(s.fsys, s.path)
	}
	if err != nil {
		return Result{}, err
	}
	if len(edges) == 0 {
		return Result{}, fmt.Errorf("supply edge list is empty")
	}

	net := BuildNetwork(edges)
	metrics := net.Metrics()
	chokepoints := Chokepoints(metrics, chokepointCount)

	s.log.Info().
		Int("nodes", net.NodeCount()).
		Int("edges", len(edges)).
		Str("top_chokepoint", chokepoints[0].Node).
		Msg("Supply chain analysis complete")

	return Result{
		Edges:       edges,
		Metrics:     metrics,
		Chokepoints: chokepoints,
	}, nil
}
