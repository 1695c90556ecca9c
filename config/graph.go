package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// GraphConfig maps filter instance names to their parameter sets, grouped
// by filter kind.
type GraphConfig struct {
	Cavvex     map[string]*CavvexParams     `json:"cavvex,omitempty"`
	Buffer     map[string]*BufferParams     `json:"buffer,omitempty"`
	RingBuffer map[string]*RingBufferParams `json:"ring_buffer,omitempty"`
	LineFit    map[string]*LineFitParams    `json:"line_fit,omitempty"`
}

// LoadGraphConfig loads a GraphConfig from a JSON file.
// The file must have a .json extension and be smaller than 1 MiB. Filters
// missing from the file, and parameters missing from a filter's object,
// keep their defaults.
func LoadGraphConfig(path string) (*GraphConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &GraphConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every parameter set in the graph.
func (g *GraphConfig) Validate() error {
	for name, p := range g.Cavvex {
		if p == nil {
			continue
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("filter %q: %w", name, err)
		}
	}
	for name, p := range g.Buffer {
		if p == nil {
			continue
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("filter %q: %w", name, err)
		}
	}
	for name, p := range g.RingBuffer {
		if p == nil {
			continue
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("filter %q: %w", name, err)
		}
	}
	for name, p := range g.LineFit {
		if p == nil {
			continue
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("filter %q: %w", name, err)
		}
	}
	return nil
}

// CavvexFor returns the parameters of a cavvex filter instance, or an
// all-default set if the instance is not configured.
func (g *GraphConfig) CavvexFor(name string) *CavvexParams {
	if p := g.Cavvex[name]; p != nil {
		return p
	}
	return &CavvexParams{}
}

// BufferFor returns the parameters of a buffer filter instance.
func (g *GraphConfig) BufferFor(name string) *BufferParams {
	if p := g.Buffer[name]; p != nil {
		return p
	}
	return &BufferParams{}
}

// RingBufferFor returns the parameters of a ring buffer recorder instance.
func (g *GraphConfig) RingBufferFor(name string) *RingBufferParams {
	if p := g.RingBuffer[name]; p != nil {
		return p
	}
	return &RingBufferParams{}
}

// LineFitFor returns the parameters of a line fit filter instance.
func (g *GraphConfig) LineFitFor(name string) *LineFitParams {
	if p := g.LineFit[name]; p != nil {
		return p
	}
	return &LineFitParams{}
}
