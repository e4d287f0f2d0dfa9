package registry

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"regwatch.co/sentinel/common"
	"regwatch.co/sentinel/internal/model"
)

// Registry is the ordered, immutable set of monitored sources. It is
// loaded once at startup; the monitor iterates it on every run.
type Registry struct {
	sources []model.Source
	byID    map[string]model.Source
}

type sourcesFile struct {
	Sources []model.Source `yaml:"sources"`
}

// Load reads and validates the registry from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources file: %w", err)
	}
	return Parse(data)
}

// Parse validates raw YAML registry content. Source IDs must be unique
// slugs; endpoints must be absolute http(s) URLs.
func Parse(data []byte) (*Registry, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing sources file: %w", err)
	}

	if len(f.Sources) == 0 {
		return nil, fmt.Errorf("sources file defines no sources")
	}

	byID := make(map[string]model.Source, len(f.Sources))
	for i, src := range f.Sources {
		if src.ID == "" {
			return nil, fmt.Errorf("source %d: id is required", i)
		}
		if !common.IsSlug(src.ID) {
			return nil, fmt.Errorf("source %q: id must be a lowercase slug", src.ID)
		}
		if _, dup := byID[src.ID]; dup {
			return nil, fmt.Errorf("source %q: duplicate id", src.ID)
		}
		if src.Jurisdiction == "" {
			return nil, fmt.Errorf("source %q: jurisdiction is required", src.ID)
		}
		u, err := url.Parse(src.Endpoint)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("source %q: endpoint must be an absolute http(s) URL", src.ID)
		}
		byID[src.ID] = src
	}

	return &Registry{sources: f.Sources, byID: byID}, nil
}

// Sources returns the registered sources in file order.
func (r *Registry) Sources() []model.Source {
	out := make([]model.Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Get looks up a source by ID.
func (r *Registry) Get(id string) (model.Source, bool) {
	src, ok := r.byID[id]
	return src, ok
}

func (r *Registry) Len() int {
	return len(r.sources)
}
