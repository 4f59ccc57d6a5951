package projection

import (
	"context"

	"github.com/roach88/seamline/internal/engine"
)

// Projector loads and projects orders with a fixed resolver and policy.
type Projector struct {
	loader   *Loader
	resolver NodeResolver
	policy   engine.Policy
}

// NewProjector creates a Projector. resolver may be nil.
func NewProjector(src Source, resolver NodeResolver, policy engine.Policy, pageSize int) *Projector {
	return &Projector{
		loader:   NewLoader(src, pageSize),
		resolver: resolver,
		policy:   policy,
	}
}

// Compute loads one consistent snapshot of the order and projects it.
func (p *Projector) Compute(ctx context.Context, orderID string) (Progress, error) {
	snap, err := p.loader.Load(ctx, orderID)
	if err != nil {
		return Progress{}, err
	}
	return Project(snap, p.resolver, p.policy), nil
}

// Policy returns the policy the projector applies.
func (p *Projector) Policy() engine.Policy {
	return p.policy
}
