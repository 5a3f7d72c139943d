package plots

import "github.com/shamba-dev/shamba/internal/model"

// Index provides in-memory lookup over a plot list.
type Index struct {
	plots []model.Plot
	byID  map[string]model.Plot
}

// NewIndex creates an Index from a slice of plots.
func NewIndex(plots []model.Plot) *Index {
	byID := make(map[string]model.Plot, len(plots))
	for _, p := range plots {
		byID[p.ID] = p
	}
	return &Index{plots: plots, byID: byID}
}

// All returns all plots in their original order.
func (x *Index) All() []model.Plot {
	return x.plots
}

// Get returns a plot by ID.
func (x *Index) Get(id string) (model.Plot, bool) {
	p, ok := x.byID[id]
	return p, ok
}

// Exists reports whether a plot ID exists.
func (x *Index) Exists(id string) bool {
	_, ok := x.byID[id]
	return ok
}

// Name returns the plot name for id, or id itself when unknown.
func (x *Index) Name(id string) string {
	if p, ok := x.byID[id]; ok {
		return p.Name
	}
	return id
}
