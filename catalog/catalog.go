// Package catalog holds the reference foods users can log by name.
package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"nutripal/nutrition"
)

const defaultSearchLimit = 10

// Catalog is an immutable, indexed set of foods.
type Catalog struct {
	foods  []nutrition.Food
	byID   map[string]int
	byName map[string]int
}

// Load reads the foods from src and indexes them.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	foods, err := src.ReadFoods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return New(foods)
}

// New indexes foods. IDs and names must be unique (names case-insensitively).
func New(foods []nutrition.Food) (*Catalog, error) {
	c := &Catalog{
		foods:  make([]nutrition.Food, 0, len(foods)),
		byID:   make(map[string]int, len(foods)),
		byName: make(map[string]int, len(foods)),
	}
	for _, f := range foods {
		name := strings.ToLower(strings.TrimSpace(f.Name))
		if f.ID == "" || name == "" {
			return nil, fmt.Errorf("catalog food needs id and name: %+v", f)
		}
		if _, dup := c.byID[f.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog id %q", f.ID)
		}
		if _, dup := c.byName[name]; dup {
			return nil, fmt.Errorf("duplicate catalog name %q", f.Name)
		}
		c.byID[f.ID] = len(c.foods)
		c.byName[name] = len(c.foods)
		c.foods = append(c.foods, f)
	}
	slices.SortStableFunc(c.foods, func(a, b nutrition.Food) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	for i, f := range c.foods {
		c.byID[f.ID] = i
		c.byName[strings.ToLower(strings.TrimSpace(f.Name))] = i
	}
	return c, nil
}

func (c *Catalog) Len() int { return len(c.foods) }

// Resolve finds a food by id.
func (c *Catalog) Resolve(ref string) (nutrition.Food, bool) {
	i, ok := c.byID[ref]
	if !ok {
		return nutrition.Food{}, false
	}
	return c.foods[i], true
}

// Lookup finds a food by exact name, ignoring case and surrounding space.
func (c *Catalog) Lookup(name string) (nutrition.Food, bool) {
	i, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nutrition.Food{}, false
	}
	return c.foods[i], true
}

// All returns every food sorted by name.
func (c *Catalog) All() []nutrition.Food {
	return slices.Clone(c.foods)
}

// Search returns up to limit foods whose name or category contains query.
// A blank query matches nothing; limit <= 0 uses the default of 10.
func (c *Catalog) Search(query string, limit int) []nutrition.Food {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []nutrition.Food{}
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	out := make([]nutrition.Food, 0, limit)
	for _, f := range c.foods {
		if strings.Contains(strings.ToLower(f.Name), q) || strings.Contains(strings.ToLower(f.Category), q) {
			out = append(out, f)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
