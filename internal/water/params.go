package water

// Params are the tuned constants of the simulation. None of them has an
// analytically correct value, so they are configuration.
type Params struct {
	// FlowRate scales a surface height difference into transferred volume.
	FlowRate float64 `yaml:"flow_rate"`
	// FlowDamping removes a fraction of every lateral flow to suppress oscillation.
	FlowDamping float64 `yaml:"flow_damping"`
	// MinHeightDiff is the smallest height difference that moves water sideways.
	MinHeightDiff float64 `yaml:"min_height_diff"`
	// MaxFlowFraction caps one lateral flow at this share of the source volume.
	MaxFlowFraction float64 `yaml:"max_flow_fraction"`

	// VerticalBudget is the number of queued positions processed per tick.
	VerticalBudget int `yaml:"vertical_budget"`
	// LateralBudget is the number of surface cell updates per tick across all chunks.
	LateralBudget int `yaml:"lateral_budget"`
	// MaxForcedRise bounds the upward search when a placed block displaces water.
	MaxForcedRise int `yaml:"max_forced_rise"`
	// BoundaryTolerance is the volume change that makes a boundary snapshot dirty.
	BoundaryTolerance float64 `yaml:"boundary_tolerance"`

	Sleep SleepParams `yaml:"sleep"`
}

// SleepParams control when a quiet chunk stops receiving lateral updates.
type SleepParams struct {
	Enabled bool `yaml:"enabled"`
	// Window is the number of ticks of activity history kept per chunk.
	Window int `yaml:"window"`
	// VolumeThreshold is the summed |volume delta| over the window below which a chunk is quiet.
	VolumeThreshold float64 `yaml:"volume_threshold"`
	// UpdateThreshold is the summed cell update count over the window below which a chunk is quiet.
	UpdateThreshold int `yaml:"update_threshold"`
	// MinStableTicks is how long a chunk must stay quiet before it sleeps.
	MinStableTicks int `yaml:"min_stable_ticks"`
}

// DefaultParams returns the reference tuning.
func DefaultParams() Params {
	return Params{
		FlowRate:          0.25,
		FlowDamping:       0.1,
		MinHeightDiff:     0.001,
		MaxFlowFraction:   0.25,
		VerticalBudget:    256,
		LateralBudget:     512,
		MaxForcedRise:     10,
		BoundaryTolerance: 0.001,
		Sleep: SleepParams{
			Enabled:         true,
			Window:          20,
			VolumeThreshold: 0.01,
			UpdateThreshold: 4,
			MinStableTicks:  40,
		},
	}
}

// withDefaults fills zero fields from DefaultParams so partial configs work.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.FlowRate <= 0 {
		p.FlowRate = d.FlowRate
	}
	if p.FlowDamping < 0 || p.FlowDamping >= 1 {
		p.FlowDamping = d.FlowDamping
	}
	if p.MinHeightDiff <= 0 {
		p.MinHeightDiff = d.MinHeightDiff
	}
	if p.MaxFlowFraction <= 0 || p.MaxFlowFraction > 1 {
		p.MaxFlowFraction = d.MaxFlowFraction
	}
	if p.VerticalBudget <= 0 {
		p.VerticalBudget = d.VerticalBudget
	}
	if p.LateralBudget <= 0 {
		p.LateralBudget = d.LateralBudget
	}
	if p.MaxForcedRise <= 0 {
		p.MaxForcedRise = d.MaxForcedRise
	}
	if p.BoundaryTolerance <= 0 {
		p.BoundaryTolerance = d.BoundaryTolerance
	}
	if p.Sleep.Window <= 0 {
		p.Sleep.Window = d.Sleep.Window
	}
	if p.Sleep.MinStableTicks <= 0 {
		p.Sleep.MinStableTicks = d.Sleep.MinStableTicks
	}
	return p
}
