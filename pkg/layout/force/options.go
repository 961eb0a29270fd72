package force

import (
	"math/rand/v2"

	"github.com/matzehuels/papergraph/pkg/errors"
)

// Default simulation parameters.
const (
	DefaultWidth           = 800
	DefaultHeight          = 500
	DefaultIterations      = 180
	DefaultChargeStrength  = -160
	DefaultLinkDistance    = 110
	DefaultLinkStrength    = 0.25
	DefaultCollideMargin   = 6
	DefaultCollideStrength = 1
	DefaultCenterX         = 400
	DefaultCenterY         = 240
	DefaultCenterStrength  = 1
	DefaultAlphaMin        = 0.001
	DefaultVelocityDecay   = 0.4
	DefaultSettlePasses    = 32
)

// Options configures the force simulation.
type Options struct {
	// Width and Height bound the random initial placement.
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`

	// Iterations is the exact number of ticks to run.
	Iterations int `json:"iterations" toml:"iterations"`

	ChargeStrength  float64 `json:"charge_strength" toml:"charge_strength"`
	LinkDistance    float64 `json:"link_distance" toml:"link_distance"`
	LinkStrength    float64 `json:"link_strength" toml:"link_strength"`
	CollideMargin   float64 `json:"collide_margin" toml:"collide_margin"` // Added to size/2 for the collision radius
	CollideStrength float64 `json:"collide_strength" toml:"collide_strength"`
	CenterX         float64 `json:"center_x" toml:"center_x"`
	CenterY         float64 `json:"center_y" toml:"center_y"`
	CenterStrength  float64 `json:"center_strength" toml:"center_strength"`
	AlphaMin        float64 `json:"alpha_min" toml:"alpha_min"`
	VelocityDecay   float64 `json:"velocity_decay" toml:"velocity_decay"`

	// SettlePasses bounds the post-simulation overlap sweeps.
	// Zero means the default; a negative value disables settling.
	SettlePasses int `json:"settle_passes" toml:"settle_passes"`

	// Seed drives initial placement and jitter when Rand is nil.
	Seed uint64 `json:"seed" toml:"seed"`

	// Rand overrides Seed. A *rand.Rand is not safe for concurrent use, so
	// do not share one between simultaneous layouts.
	Rand *rand.Rand `json:"-" toml:"-"`
}

// DefaultOptions returns the standard parameters.
func DefaultOptions() Options {
	return Options{
		Width:           DefaultWidth,
		Height:          DefaultHeight,
		Iterations:      DefaultIterations,
		ChargeStrength:  DefaultChargeStrength,
		LinkDistance:    DefaultLinkDistance,
		LinkStrength:    DefaultLinkStrength,
		CollideMargin:   DefaultCollideMargin,
		CollideStrength: DefaultCollideStrength,
		CenterX:         DefaultCenterX,
		CenterY:         DefaultCenterY,
		CenterStrength:  DefaultCenterStrength,
		AlphaMin:        DefaultAlphaMin,
		VelocityDecay:   DefaultVelocityDecay,
		SettlePasses:    DefaultSettlePasses,
	}
}

// SetDefaults fills zero-valued fields with defaults. Seed and Rand are left
// alone.
func (o *Options) SetDefaults() {
	d := DefaultOptions()
	if o.Width == 0 {
		o.Width = d.Width
	}
	if o.Height == 0 {
		o.Height = d.Height
	}
	if o.Iterations == 0 {
		o.Iterations = d.Iterations
	}
	if o.ChargeStrength == 0 {
		o.ChargeStrength = d.ChargeStrength
	}
	if o.LinkDistance == 0 {
		o.LinkDistance = d.LinkDistance
	}
	if o.LinkStrength == 0 {
		o.LinkStrength = d.LinkStrength
	}
	if o.CollideMargin == 0 {
		o.CollideMargin = d.CollideMargin
	}
	if o.CollideStrength == 0 {
		o.CollideStrength = d.CollideStrength
	}
	if o.CenterX == 0 && o.CenterY == 0 {
		o.CenterX, o.CenterY = d.CenterX, d.CenterY
	}
	if o.CenterStrength == 0 {
		o.CenterStrength = d.CenterStrength
	}
	if o.AlphaMin == 0 {
		o.AlphaMin = d.AlphaMin
	}
	if o.VelocityDecay == 0 {
		o.VelocityDecay = d.VelocityDecay
	}
	if o.SettlePasses == 0 {
		o.SettlePasses = d.SettlePasses
	}
}

// Validate checks that the options describe a runnable simulation.
func (o Options) Validate() error {
	switch {
	case o.Width <= 0 || o.Height <= 0:
		return errors.New(errors.ErrCodeInvalidOptions, "layout area must be positive, got %vx%v", o.Width, o.Height)
	case o.Iterations < 0:
		return errors.New(errors.ErrCodeInvalidOptions, "iterations must be non-negative, got %d", o.Iterations)
	case o.AlphaMin <= 0 || o.AlphaMin >= 1:
		return errors.New(errors.ErrCodeInvalidOptions, "alpha_min must be in (0, 1), got %v", o.AlphaMin)
	case o.VelocityDecay < 0 || o.VelocityDecay > 1:
		return errors.New(errors.ErrCodeInvalidOptions, "velocity_decay must be in [0, 1], got %v", o.VelocityDecay)
	case o.LinkDistance < 0:
		return errors.New(errors.ErrCodeInvalidOptions, "link_distance must be non-negative, got %v", o.LinkDistance)
	case o.CollideMargin < 0:
		return errors.New(errors.ErrCodeInvalidOptions, "collide_margin must be non-negative, got %v", o.CollideMargin)
	}
	return nil
}

// Key returns the fields that affect the output, for cache keys. Rand is
// excluded, so layouts with an injected source should not be cached.
func (o Options) Key() map[string]any {
	return map[string]any{
		"w": o.Width, "h": o.Height, "it": o.Iterations,
		"charge": o.ChargeStrength, "ld": o.LinkDistance, "ls": o.LinkStrength,
		"cm": o.CollideMargin, "cs": o.CollideStrength,
		"cx": o.CenterX, "cy": o.CenterY, "cstr": o.CenterStrength,
		"amin": o.AlphaMin, "vd": o.VelocityDecay, "settle": o.SettlePasses,
		"seed": o.Seed,
	}
}

func (o Options) newRand() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	return rand.New(rand.NewPCG(o.Seed, o.Seed^0xdeadbeef))
}
