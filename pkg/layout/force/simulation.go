package force

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/matzehuels/papergraph/pkg/graph"
)

// ctxCheckInterval is how many ticks run between context polls.
const ctxCheckInterval = 16

// jiggleScale is the magnitude of the random nudge applied to coincident
// points so forces always have a direction.
const jiggleScale = 1e-6

// overlapTolerance absorbs rounding when comparing center distances.
const overlapTolerance = 1e-6

type body struct {
	x, y   float64
	vx, vy float64
	radius float64 // collision radius: size/2 + margin
	size   float64
}

type spring struct {
	source, target int
	bias           float64 // share of the correction applied to the target
}

// Stats describes a finished simulation.
type Stats struct {
	Ticks        int     `json:"ticks"`
	SettleSweeps int     `json:"settle_sweeps"`
	Overlaps     int     `json:"overlaps"` // Pairs still overlapping after settling
	FinalAlpha   float64 `json:"final_alpha"`
	Springs      int     `json:"springs"`
	OrphanEdges  int     `json:"orphan_edges"` // Edges excluded from the link force
}

// Simulation is a stepwise force simulation over a graph's nodes.
// It is not safe for concurrent use.
type Simulation struct {
	opts    Options
	rng     *rand.Rand
	bodies  []body
	springs []spring
	orphans int

	alpha      float64
	alphaDecay float64
	damping    float64
	ticks      int
	sweeps     int
	settled    bool
}

// NewSimulation places every node of g uniformly at random inside
// [0, Width) × [0, Height) and prepares the link springs. Edges whose
// endpoints are not nodes of g are ignored.
func NewSimulation(g graph.Graph, opts Options) (*Simulation, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		opts:       opts,
		rng:        opts.newRand(),
		bodies:     make([]body, len(g.Nodes)),
		alpha:      1,
		alphaDecay: 1 - math.Pow(opts.AlphaMin, 1.0/300),
		damping:    1 - opts.VelocityDecay,
	}

	for i, n := range g.Nodes {
		s.bodies[i] = body{
			x:      s.rng.Float64() * opts.Width,
			y:      s.rng.Float64() * opts.Height,
			size:   n.Size,
			radius: n.Size/2 + opts.CollideMargin,
		}
	}

	idx := g.Index()
	degree := make([]int, len(g.Nodes))
	for _, e := range g.Edges {
		si, okS := idx[e.Source]
		ti, okT := idx[e.Target]
		if !okS || !okT || si == ti {
			s.orphans++
			continue
		}
		s.springs = append(s.springs, spring{source: si, target: ti})
		degree[si]++
		degree[ti]++
	}
	for i := range s.springs {
		sp := &s.springs[i]
		sp.bias = float64(degree[sp.source]) / float64(degree[sp.source]+degree[sp.target])
	}
	return s, nil
}

// Alpha returns the current temperature.
func (s *Simulation) Alpha() float64 { return s.alpha }

// Ticks returns the number of ticks run so far.
func (s *Simulation) Ticks() int { return s.ticks }

// Done reports whether the configured number of ticks has run.
func (s *Simulation) Done() bool { return s.ticks >= s.opts.Iterations }

// Tick advances the simulation by one step.
func (s *Simulation) Tick() {
	s.alpha += (0 - s.alpha) * s.alphaDecay

	s.applyCharge()
	s.applyLinks()
	s.applyCollide()
	s.applyCenter()

	for i := range s.bodies {
		b := &s.bodies[i]
		b.vx *= s.damping
		b.vy *= s.damping
		b.x += b.vx
		b.y += b.vy
	}
	s.ticks++
}

// Run ticks until Done, then settles. The context is polled every 16 ticks;
// on cancellation Run returns ctx.Err() and positions reflect the last tick.
func (s *Simulation) Run(ctx context.Context) error {
	for !s.Done() {
		if s.ticks%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		s.Tick()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Settle()
	return nil
}

// Settle separates overlapping pairs by moving each half the overlap apart
// along their center line. It sweeps at most SettlePasses times and stops
// early once a sweep finds no overlap. It returns the sweeps used.
func (s *Simulation) Settle() int {
	if s.settled {
		return s.sweeps
	}
	s.settled = true
	for s.sweeps < s.opts.SettlePasses {
		if s.separate() == 0 {
			break
		}
		s.sweeps++
	}
	return s.sweeps
}

// Stats reports counters for the simulation so far.
func (s *Simulation) Stats() Stats {
	return Stats{
		Ticks:        s.ticks,
		SettleSweeps: s.sweeps,
		Overlaps:     s.Overlaps(),
		FinalAlpha:   s.alpha,
		Springs:      len(s.springs),
		OrphanEdges:  s.orphans,
	}
}

// Overlaps counts node pairs whose drawn circles (diameter = size) intersect.
func (s *Simulation) Overlaps() int {
	n := 0
	for i := range s.bodies {
		for j := i + 1; j < len(s.bodies); j++ {
			a, b := s.bodies[i], s.bodies[j]
			minDist := a.size/2 + b.size/2 - overlapTolerance
			dx, dy := b.x-a.x, b.y-a.y
			if dx*dx+dy*dy < minDist*minDist {
				n++
			}
		}
	}
	return n
}

// Positions returns a copy of the current positions in node order.
func (s *Simulation) Positions() []graph.Position {
	out := make([]graph.Position, len(s.bodies))
	for i, b := range s.bodies {
		out[i] = graph.Position{X: b.x, Y: b.y}
	}
	return out
}

// Apply returns a copy of g with positions from the simulation. g must be
// the graph the simulation was created from.
func (s *Simulation) Apply(g graph.Graph) graph.Graph {
	out := g.Clone()
	for i := range out.Nodes {
		if i < len(s.bodies) {
			out.Nodes[i].Position = graph.Position{X: s.bodies[i].x, Y: s.bodies[i].y}
		}
	}
	return out
}

// Layout runs a full simulation over g and returns a copy with positions
// filled in. Edges pass through unchanged.
func Layout(ctx context.Context, g graph.Graph, opts Options) (graph.Graph, error) {
	sim, err := NewSimulation(g, opts)
	if err != nil {
		return graph.Graph{}, err
	}
	if err := sim.Run(ctx); err != nil {
		return graph.Graph{}, err
	}
	return sim.Apply(g), nil
}

// =============================================================================
// Forces
// =============================================================================

func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * jiggleScale
}

// applyCharge is an exact O(n²) many-body pass. Negative strength repels.
func (s *Simulation) applyCharge() {
	k := s.opts.ChargeStrength * s.alpha
	for i := range s.bodies {
		bi := &s.bodies[i]
		for j := range s.bodies {
			if i == j {
				continue
			}
			bj := &s.bodies[j]
			dx, dy := bj.x-bi.x, bj.y-bi.y
			l := dx*dx + dy*dy
			if dx == 0 {
				dx = s.jiggle()
				l += dx * dx
			}
			if dy == 0 {
				dy = s.jiggle()
				l += dy * dy
			}
			if l < 1 {
				l = math.Sqrt(l)
			}
			w := k / l
			bi.vx += dx * w
			bi.vy += dy * w
		}
	}
}

func (s *Simulation) applyLinks() {
	for _, sp := range s.springs {
		src, tgt := &s.bodies[sp.source], &s.bodies[sp.target]
		dx := tgt.x + tgt.vx - src.x - src.vx
		dy := tgt.y + tgt.vy - src.y - src.vy
		if dx == 0 {
			dx = s.jiggle()
		}
		if dy == 0 {
			dy = s.jiggle()
		}
		l := math.Sqrt(dx*dx + dy*dy)
		l = (l - s.opts.LinkDistance) / l * s.alpha * s.opts.LinkStrength
		dx *= l
		dy *= l
		tgt.vx -= dx * sp.bias
		tgt.vy -= dy * sp.bias
		src.vx += dx * (1 - sp.bias)
		src.vy += dy * (1 - sp.bias)
	}
}

// applyCollide resolves overlaps between padded radii using predicted
// positions (x + v). Each side moves in proportion to the other's r².
func (s *Simulation) applyCollide() {
	for i := range s.bodies {
		bi := &s.bodies[i]
		xi, yi := bi.x+bi.vx, bi.y+bi.vy
		ri := bi.radius
		ri2 := ri * ri
		for j := i + 1; j < len(s.bodies); j++ {
			bj := &s.bodies[j]
			rj := bj.radius
			r := ri + rj
			dx := xi - (bj.x + bj.vx)
			dy := yi - (bj.y + bj.vy)
			l := dx*dx + dy*dy
			if l >= r*r {
				continue
			}
			if dx == 0 {
				dx = s.jiggle()
				l += dx * dx
			}
			if dy == 0 {
				dy = s.jiggle()
				l += dy * dy
			}
			l = math.Sqrt(l)
			l = (r - l) / l * s.opts.CollideStrength
			dx *= l
			dy *= l
			rj2 := rj * rj
			share := rj2 / (ri2 + rj2)
			bi.vx += dx * share
			bi.vy += dy * share
			bj.vx -= dx * (1 - share)
			bj.vy -= dy * (1 - share)
		}
	}
}

func (s *Simulation) applyCenter() {
	n := len(s.bodies)
	if n == 0 {
		return
	}
	var sx, sy float64
	for _, b := range s.bodies {
		sx += b.x
		sy += b.y
	}
	sx = (sx/float64(n) - s.opts.CenterX) * s.opts.CenterStrength
	sy = (sy/float64(n) - s.opts.CenterY) * s.opts.CenterStrength
	for i := range s.bodies {
		s.bodies[i].x -= sx
		s.bodies[i].y -= sy
	}
}

// separate runs one overlap sweep over padded radii and returns how many
// pairs it moved.
func (s *Simulation) separate() int {
	moved := 0
	for i := range s.bodies {
		for j := i + 1; j < len(s.bodies); j++ {
			a, b := &s.bodies[i], &s.bodies[j]
			minDist := a.radius + b.radius
			dx, dy := b.x-a.x, b.y-a.y
			d2 := dx*dx + dy*dy
			if d2 >= (minDist-overlapTolerance)*(minDist-overlapTolerance) {
				continue
			}
			d := math.Sqrt(d2)
			var ux, uy float64
			if d == 0 {
				theta := s.rng.Float64() * 2 * math.Pi
				ux, uy = math.Cos(theta), math.Sin(theta)
			} else {
				ux, uy = dx/d, dy/d
			}
			push := (minDist - d) / 2
			a.x -= ux * push
			a.y -= uy * push
			b.x += ux * push
			b.y += uy * push
			moved++
		}
	}
	return moved
}
