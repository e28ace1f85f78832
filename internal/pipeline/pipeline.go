// Package pipeline turns a scene into a stored road network.
//
// A run builds the tensor field, traces streamlines, cuts them into a planar
// graph and derives the analysis layers (dead ends, districts, lots) before
// saving the result. Each phase reports progress and its duration.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Benny93/roadnet-go/internal/config"
	"github.com/Benny93/roadnet-go/internal/graph"
	"github.com/Benny93/roadnet-go/internal/storage"
	"github.com/Benny93/roadnet-go/internal/streamline"
)

// Phase names reported to the progress callback, in run order.
const (
	PhaseField       = "Building tensor field"
	PhaseStreamlines = "Tracing streamlines"
	PhaseGraph       = "Building graph"
	PhaseDeadEnds    = "Finding dead ends"
	PhaseDistricts   = "Detecting districts"
	PhaseLots        = "Finding lots"
	PhaseSave        = "Saving network"
)

// Network is a generated network together with its analysis layers.
type Network struct {
	*storage.NetworkRecord

	DeadEnds  []graph.NodeID `json:"dead_ends"`
	Districts []District     `json:"districts"`
	Lots      []Lot          `json:"lots"`
}

// PipelineResult summarizes a pipeline run.
type PipelineResult struct {
	Streamlines  int     `json:"streamlines"`
	Nodes        int     `json:"nodes"`
	Edges        int     `json:"edges"`
	Junctions    int     `json:"junctions"`
	DeadEnds     int     `json:"dead_ends"`
	Districts    int     `json:"districts"`
	Lots         int     `json:"lots"`
	Ambiguities  int     `json:"ambiguities"`
	Length       float64 `json:"length"`
	DurationSecs float64 `json:"duration_secs"`
}

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// runner times phases and forwards progress.
type runner struct {
	progress ProgressCallback
	logger   *slog.Logger
}

func (r *runner) phase(name string, fn func() error) error {
	if r.progress != nil {
		r.progress(name, 0.0)
	}
	start := time.Now()
	if err := fn(); err != nil {
		return err
	}
	r.logger.Debug("phase done", "phase", name, "duration", time.Since(start))
	if r.progress != nil {
		r.progress(name, 1.0)
	}
	return nil
}

// RunPipeline generates the network described by scene and stores it under
// name. A nil store skips the saving phase. Scene problems are reported
// before any tracing starts.
func RunPipeline(
	ctx context.Context,
	scene *config.Scene,
	store storage.NetworkStore,
	name string,
	progress ProgressCallback,
) (*Network, *PipelineResult, error) {
	started := time.Now()
	logger := slog.Default().With("network", name)
	r := &runner{progress: progress, logger: logger}

	if store != nil {
		if err := storage.ValidateName(name); err != nil {
			return nil, nil, err
		}
	}
	if err := scene.Validate(); err != nil {
		return nil, nil, err
	}

	rec := &storage.NetworkRecord{
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Scene:     scene,
	}

	var gen *streamline.Generator
	if err := r.phase(PhaseField, func() error {
		field, err := scene.BuildField()
		if err != nil {
			return fmt.Errorf("building field: %w", err)
		}
		opts := append(scene.GeneratorOptions(), streamline.WithLogger(logger))
		gen, err = streamline.NewGenerator(field, scene.Parameters, scene.World.Rect(), opts...)
		return err
	}); err != nil {
		return nil, nil, err
	}

	if err := r.phase(PhaseStreamlines, func() error {
		res, err := gen.Generate(ctx)
		if err != nil {
			return err
		}
		rec.Streamlines = res.Simplified
		rec.Major = res.Major
		rec.Stats = res.Stats
		return nil
	}); err != nil {
		return nil, nil, err
	}

	if err := r.phase(PhaseGraph, func() error {
		opts := append([]graph.Option{graph.WithMajor(rec.Major), graph.WithLogger(logger)}, scene.GraphOptions()...)
		g, err := graph.Build(rec.Streamlines, opts...)
		if err != nil {
			return fmt.Errorf("building graph: %w", err)
		}
		rec.Graph = g
		return nil
	}); err != nil {
		return nil, nil, err
	}

	network := &Network{NetworkRecord: rec}
	analyses := []struct {
		name string
		run  func()
	}{
		{PhaseDeadEnds, func() { network.DeadEnds = FindDeadEnds(rec.Graph) }},
		{PhaseDistricts, func() { network.Districts = DetectDistricts(rec.Graph) }},
		{PhaseLots, func() { network.Lots = FindLots(rec.Graph) }},
	}
	for _, a := range analyses {
		if err := r.phase(a.name, func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a.run()
			return nil
		}); err != nil {
			return nil, nil, err
		}
	}

	if store != nil {
		if err := r.phase(PhaseSave, func() error {
			if err := store.Save(ctx, rec); err != nil {
				return fmt.Errorf("saving network: %w", err)
			}
			return nil
		}); err != nil {
			return nil, nil, err
		}
	}

	result := Summarize(network)
	result.DurationSecs = time.Since(started).Seconds()
	logger.Info("network generated",
		"streamlines", result.Streamlines,
		"nodes", result.Nodes,
		"edges", result.Edges,
		"duration", time.Since(started))

	return network, result, nil
}

// Analyze derives the analysis layers of a stored network.
func Analyze(rec *storage.NetworkRecord) *Network {
	if rec.Graph == nil {
		rec.Graph = &graph.Graph{}
	}
	return &Network{
		NetworkRecord: rec,
		DeadEnds:      FindDeadEnds(rec.Graph),
		Districts:     DetectDistricts(rec.Graph),
		Lots:          FindLots(rec.Graph),
	}
}

// Summarize counts what the network holds. DurationSecs is left zero.
func Summarize(n *Network) *PipelineResult {
	stats := n.Graph.Stats()
	return &PipelineResult{
		Streamlines: len(n.Streamlines),
		Nodes:       stats["nodes"],
		Edges:       stats["edges"],
		Junctions:   stats["junctions"],
		DeadEnds:    len(n.DeadEnds),
		Districts:   len(n.Districts),
		Lots:        len(n.Lots),
		Ambiguities: stats["ambiguities"],
		Length:      n.Graph.TotalLength(),
	}
}
