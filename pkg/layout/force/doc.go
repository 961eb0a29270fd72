// Package force computes 2-D node positions with a velocity-Verlet force
// simulation.
//
// The simulation follows the classic many-body model used by browser graph
// libraries: every tick the temperature (alpha) decays toward zero, four
// forces adjust node velocities, velocities are damped, and positions
// integrate. The forces run in a fixed order:
//
//   - Charge: exact pairwise repulsion, strength/d² scaled by alpha.
//   - Link: springs pulling connected nodes toward a rest distance, split
//     between endpoints by degree.
//   - Collide: pushes apart nodes whose padded radii overlap, weighted by
//     the other node's squared radius.
//   - Center: translates the centroid toward a fixed point.
//
// The simulation always runs [Options.Iterations] ticks. It has no
// convergence exit, so the work per layout is predictable. A bounded settle
// pass afterwards separates any pair that still overlaps.
//
// # Determinism
//
// Initial placement and jitter draw from a seeded PCG generator, so equal
// seeds and equal graphs give equal layouts. Callers that need to share a
// source can inject one through [Options.Rand].
//
// # Usage
//
//	opts := force.DefaultOptions()
//	opts.Seed = 42
//	laidOut, err := force.Layout(ctx, g, opts)
//
// For stepwise control:
//
//	sim, _ := force.NewSimulation(g, opts)
//	for sim.Ticks() < 10 {
//	    sim.Tick()
//	}
package force
