// Package sources loads the registry of calendar sources for the metro area.
// The registry fixes the matching order between any two sources: within a
// pair, the lower-priority source supplies the secondary (excluded) side of
// every match edge and the higher-priority source the primary.
package sources

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is one external site publishing event listings.
type Source struct {
	// Domain is the source identifier stored on event records.
	Domain string `yaml:"domain"`
	// Label is the human-readable name shown in API responses.
	Label string `yaml:"label"`
	// Priority orders sources for canonical selection: a lower number wins
	// the primary role when two sources publish the same event.
	Priority int `yaml:"priority"`
}

// Registry is the parsed source registry.
type Registry struct {
	sources []Source
	byName  map[string]Source
}

type registryFile struct {
	Sources []Source `yaml:"sources"`
}

// Load reads and validates a YAML registry file.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file %q: %w", path, err)
	}
	return Parse(raw)
}

// Parse builds a registry from YAML bytes.
func Parse(raw []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse sources YAML: %w", err)
	}
	if len(file.Sources) < 2 {
		return nil, fmt.Errorf("sources registry needs at least two sources, got %d", len(file.Sources))
	}

	byName := make(map[string]Source, len(file.Sources))
	cleaned := make([]Source, 0, len(file.Sources))
	for i, src := range file.Sources {
		domain := strings.ToLower(strings.TrimSpace(src.Domain))
		if domain == "" {
			return nil, fmt.Errorf("sources[%d] is missing a domain", i)
		}
		if _, exists := byName[domain]; exists {
			return nil, fmt.Errorf("duplicate source domain %q", domain)
		}
		if src.Priority <= 0 {
			return nil, fmt.Errorf("source %q needs a positive priority", domain)
		}
		src.Domain = domain
		if strings.TrimSpace(src.Label) == "" {
			src.Label = domain
		}
		byName[domain] = src
		cleaned = append(cleaned, src)
	}

	sort.SliceStable(cleaned, func(i, j int) bool {
		if cleaned[i].Priority != cleaned[j].Priority {
			return cleaned[i].Priority < cleaned[j].Priority
		}
		return cleaned[i].Domain < cleaned[j].Domain
	})

	return &Registry{sources: cleaned, byName: byName}, nil
}

// All returns the sources ordered by priority (most authoritative first).
func (r *Registry) All() []Source {
	if r == nil {
		return nil
	}
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Lookup returns the source for a domain.
func (r *Registry) Lookup(domain string) (Source, bool) {
	if r == nil {
		return Source{}, false
	}
	src, ok := r.byName[strings.ToLower(strings.TrimSpace(domain))]
	return src, ok
}

// Pairs enumerates every unordered source pair as an ordered
// (secondary, primary) tuple: the higher-priority source of the pair is
// always the primary.
func (r *Registry) Pairs() [][2]Source {
	if r == nil {
		return nil
	}
	var pairs [][2]Source
	for i := 0; i < len(r.sources); i++ {
		for j := i + 1; j < len(r.sources); j++ {
			// r.sources is priority-ordered, so index i is the primary.
			pairs = append(pairs, [2]Source{r.sources[j], r.sources[i]})
		}
	}
	return pairs
}
