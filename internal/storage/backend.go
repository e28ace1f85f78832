// Package storage persists generated road networks.
//
// It defines the NetworkStore protocol that all storage implementations
// must satisfy, along with the record and summary types shared by backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Benny93/roadnet-go/internal/config"
	"github.com/Benny93/roadnet-go/internal/geom"
	"github.com/Benny93/roadnet-go/internal/graph"
	"github.com/Benny93/roadnet-go/internal/streamline"
)

var (
	// ErrNotFound is returned when no network is stored under a name.
	ErrNotFound = errors.New("storage: network not found")

	// ErrNotInitialized is returned when a backend is used before
	// Initialize or after Close.
	ErrNotInitialized = errors.New("storage: backend not initialized")

	// ErrInvalidName is returned for empty names or names containing
	// whitespace or a colon.
	ErrInvalidName = errors.New("storage: invalid network name")
)

// NetworkRecord is everything a generation run produced.
type NetworkRecord struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`

	// Scene is the scene the network was generated from.
	Scene *config.Scene `json:"scene"`

	Graph *graph.Graph `json:"graph"`

	// Streamlines are the simplified polylines in placement order; Major
	// holds the family of each one.
	Streamlines [][]geom.Vec2 `json:"streamlines"`
	Major       []bool        `json:"major"`

	Stats streamline.Stats `json:"stats"`
}

// Summary is the listing entry of a stored network.
type Summary struct {
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	Seed        int64     `json:"seed"`
	Streamlines int       `json:"streamlines"`
	Nodes       int       `json:"nodes"`
	Edges       int       `json:"edges"`
	Length      float64   `json:"length"`
}

// Summary derives the listing entry of r.
func (r *NetworkRecord) Summary() Summary {
	s := Summary{
		Name:        r.Name,
		CreatedAt:   r.CreatedAt,
		Streamlines: len(r.Streamlines),
	}
	if r.Scene != nil {
		s.Seed = r.Scene.Seed
	}
	if r.Graph != nil {
		s.Nodes = r.Graph.NodeCount()
		s.Edges = r.Graph.EdgeCount()
		s.Length = r.Graph.TotalLength()
	}
	return s
}

// ValidateName checks that name can be used as a storage key.
func ValidateName(name string) error {
	if name == "" || strings.ContainsAny(name, ": \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// NetworkStore defines the interface for storage implementations.
//
// Implementations must be thread-safe and support concurrent access.
type NetworkStore interface {
	// Lifecycle methods

	// Initialize opens or creates the store at the given path.
	// If readOnly is true, the store is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the store.
	Close() error

	// Network operations

	// Save stores the record under its name, replacing any previous one.
	Save(ctx context.Context, rec *NetworkRecord) error

	// Load returns the record stored under name, or ErrNotFound.
	Load(ctx context.Context, name string) (*NetworkRecord, error)

	// List returns the summaries of all stored networks ordered by name.
	List(ctx context.Context) ([]Summary, error)

	// Delete removes the network stored under name, or returns ErrNotFound.
	Delete(ctx context.Context, name string) error
}
