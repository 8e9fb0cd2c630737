package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/DoyleJ11/cooking-backend/internal/recipe"
)

var ErrUnknownDish = errors.New("unknown dish")

// Catalog resolves dish names to recipes. Implementations are read-only from
// the point of view of sessions.
type Catalog interface {
	Lookup(ctx context.Context, name string) (recipe.Recipe, error)
	Names(ctx context.Context) ([]string, error)
}

// Resolve looks up every name in order. Duplicates are allowed and resolve to
// the same recipe.
func Resolve(ctx context.Context, c Catalog, names []string) ([]recipe.Recipe, error) {
	out := make([]recipe.Recipe, 0, len(names))
	for _, name := range names {
		r, err := c.Lookup(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

type Memory struct {
	recipes map[string]recipe.Recipe
}

// NewMemory normalizes and validates recipes before indexing them by name.
func NewMemory(recipes []recipe.Recipe) (*Memory, error) {
	normalized := make([]recipe.Recipe, len(recipes))
	for i, r := range recipes {
		normalized[i] = recipe.Normalize(r)
	}
	if err := recipe.ValidateAll(normalized); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	m := &Memory{recipes: make(map[string]recipe.Recipe, len(normalized))}
	for _, r := range normalized {
		m.recipes[r.Name] = r
	}
	return m, nil
}

func (m *Memory) Lookup(_ context.Context, name string) (recipe.Recipe, error) {
	r, ok := m.recipes[name]
	if !ok {
		return recipe.Recipe{}, fmt.Errorf("%w: %q", ErrUnknownDish, name)
	}
	return r, nil
}

func (m *Memory) Names(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(m.recipes))
	for name := range m.recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// All returns the recipes sorted by name.
func (m *Memory) All() []recipe.Recipe {
	names, _ := m.Names(context.Background())
	out := make([]recipe.Recipe, 0, len(names))
	for _, n := range names {
		out = append(out, m.recipes[n])
	}
	return out
}

var (
	_ Catalog = (*Memory)(nil)
	_ Catalog = (*Store)(nil)
)
