package pipeline

import (
	"context"

	"github.com/couchcryptid/storm-swath-service/internal/domain"
)

// SetStep replaces the per-timestep computation.
func (a *Assembler) SetStep(fn func(ctx context.Context, grid domain.RegionGrid, obs domain.Observation) ([]float64, error)) {
	a.step = fn
}
