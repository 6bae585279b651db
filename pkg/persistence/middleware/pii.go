package middleware

import (
	"context"
	"regexp"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/ports"
)

// Mask replaces sensitive values before they reach the store.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks player metadata values, and keys of map-shaped
// game state, whose key matches any of the patterns. Masking is one-way:
// loads return the masked values.
func NewPIIMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, domain.ConfigError("pii pattern %q: %v", p, err)
		}
		compiled = append(compiled, re)
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &piiMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	// Work on a copy; the engine keeps using the original.
	masked := snap.Clone()
	for i, p := range masked.Players {
		if len(p.Metadata) == 0 {
			continue
		}
		meta := make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			if m.sensitive(k) {
				v = Mask
			}
			meta[k] = v
		}
		masked.Players[i].Metadata = meta
	}
	if fields, ok := masked.State.(map[string]any); ok {
		masked.State = m.maskMap(fields)
	}
	return m.next.Save(ctx, sessionID, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) sensitive(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

// maskMap returns a masked deep copy of nested maps.
func (m *piiMiddleware) maskMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch {
		case m.sensitive(k):
			out[k] = Mask
		default:
			if sub, ok := v.(map[string]any); ok {
				v = m.maskMap(sub)
			}
			out[k] = v
		}
	}
	return out
}
