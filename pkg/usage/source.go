package usage

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source defines how feature limits are loaded into the tracker.
type Source interface {
	Load(ctx context.Context) (map[string]FeatureLimits, error)
}

// inMemSource implements Source over a static map.
type inMemSource struct {
	mu     sync.RWMutex
	limits map[string]FeatureLimits
}

// NewInMemSource returns a Source backed by a deep copy of the given map.
func NewInMemSource(limits map[string]FeatureLimits) Source {
	return &inMemSource{limits: cloneLimits(limits)}
}

func (s *inMemSource) Load(ctx context.Context) (map[string]FeatureLimits, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLimits(s.limits), nil
}

func cloneLimits(limits map[string]FeatureLimits) map[string]FeatureLimits {
	out := make(map[string]FeatureLimits, len(limits))
	for id, entry := range limits {
		if entry.Free != nil {
			free := *entry.Free
			entry.Free = &free
		}
		if entry.Pro != nil {
			pro := *entry.Pro
			entry.Pro = &pro
		}
		out[id] = entry
	}
	return out
}

// yamlSource loads limits from a YAML file on every Load call, so a
// restarted engine picks up edited limits without a rebuild.
type yamlSource struct {
	path string
}

// NewYAMLSource returns a Source reading a YAML document of the shape:
//
//	features:
//	  cookie_profiles:
//	    free: {limit: 2, period: total}
//	    pro:  {limit: -1, period: total}
func NewYAMLSource(path string) Source {
	return &yamlSource{path: path}
}

type yamlLimitsFile struct {
	Features map[string]FeatureLimits `yaml:"features"`
}

func (s *yamlSource) Load(ctx context.Context) (map[string]FeatureLimits, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read limits file %q: %w", s.path, err)
	}

	var file yamlLimitsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse limits file %q: %w", s.path, err)
	}

	if file.Features == nil {
		file.Features = make(map[string]FeatureLimits)
	}
	return file.Features, nil
}
