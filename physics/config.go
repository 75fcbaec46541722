package physics

import (
	"github.com/TFMV/versegraph/models"
)

// ForceConfig holds every tunable of the simulation. The constants are
// empirical; they shape the look of the layout, not its correctness.
type ForceConfig struct {
	// Charge (pairwise repulsion)
	ChargeStrength   float64 `json:"chargeStrength" yaml:"charge_strength" toml:"charge_strength" validate:"gte=0"`
	ChargeCutoff     float64 `json:"chargeCutoff" yaml:"charge_cutoff" toml:"charge_cutoff" validate:"gt=0"`
	ChargeShortRange float64 `json:"chargeShortRange" yaml:"charge_short_range" toml:"charge_short_range" validate:"gte=0"`
	ShortRangeBoost  float64 `json:"shortRangeBoost" yaml:"short_range_boost" toml:"short_range_boost" validate:"gte=1"`
	SameTypeCharge   float64 `json:"sameTypeCharge" yaml:"same_type_charge" toml:"same_type_charge" validate:"gte=0"`
	CrossTypeCharge  float64 `json:"crossTypeCharge" yaml:"cross_type_charge" toml:"cross_type_charge" validate:"gte=0"`

	// Link (spring attraction); LinkDistance 0 derives it from the viewport
	LinkDistance     float64 `json:"linkDistance" yaml:"link_distance" toml:"link_distance" validate:"gte=0"`
	LinkStrength     float64 `json:"linkStrength" yaml:"link_strength" toml:"link_strength" validate:"gte=0,lt=1"`
	SameTypeLinkBias float64 `json:"sameTypeLinkBias" yaml:"same_type_link_bias" toml:"same_type_link_bias" validate:"gte=0"`

	// Type clustering
	ClusteringStrength float64 `json:"clusteringStrength" yaml:"clustering_strength" toml:"clustering_strength" validate:"gte=0,lt=1"`
	ClusterRadius      float64 `json:"clusterRadius" yaml:"cluster_radius" toml:"cluster_radius" validate:"gte=0"`

	// Centering; SectorOffset is a fraction of the smaller viewport dimension
	CenterStrength float64 `json:"centerStrength" yaml:"center_strength" toml:"center_strength" validate:"gte=0,lt=1"`
	SectorOffset   float64 `json:"sectorOffset" yaml:"sector_offset" toml:"sector_offset" validate:"gte=0,lte=0.5"`

	// Collision
	CollisionPadding  float64 `json:"collisionPadding" yaml:"collision_padding" toml:"collision_padding" validate:"gte=0"`
	CollisionStrength float64 `json:"collisionStrength" yaml:"collision_strength" toml:"collision_strength" validate:"gte=0,lte=1"`

	// Boundary
	BoundaryPadding  float64 `json:"boundaryPadding" yaml:"boundary_padding" toml:"boundary_padding" validate:"gte=0"`
	BoundaryStrength float64 `json:"boundaryStrength" yaml:"boundary_strength" toml:"boundary_strength" validate:"gte=0,lte=1"`

	DefaultRadius float64 `json:"defaultRadius" yaml:"default_radius" toml:"default_radius" validate:"gt=0"`
	MaxStep       float64 `json:"maxStep" yaml:"max_step" toml:"max_step" validate:"gt=0"`

	// Cooling schedule
	MaxIterations    int     `json:"maxIterations" yaml:"max_iterations" toml:"max_iterations" validate:"gt=0"`
	AlphaMin         float64 `json:"alphaMin" yaml:"alpha_min" toml:"alpha_min" validate:"gt=0,lt=1"`
	AlphaDecay       float64 `json:"alphaDecay" yaml:"alpha_decay" toml:"alpha_decay" validate:"gt=0,lt=1"`
	AlphaTarget      float64 `json:"alphaTarget" yaml:"alpha_target" toml:"alpha_target" validate:"gte=0,lte=1"`
	IncrementalAlpha float64 `json:"incrementalAlpha" yaml:"incremental_alpha" toml:"incremental_alpha" validate:"gt=0,lte=1"`
}

// DefaultForceConfig returns the tuning used by the mobile study view
func DefaultForceConfig() ForceConfig {
	return ForceConfig{
		ChargeStrength:     300,
		ChargeCutoff:       180,
		ChargeShortRange:   30,
		ShortRangeBoost:    2,
		SameTypeCharge:     0.8,
		CrossTypeCharge:    1.2,
		LinkDistance:       0,
		LinkStrength:       0.1,
		SameTypeLinkBias:   1.2,
		ClusteringStrength: 0.02,
		ClusterRadius:      200,
		CenterStrength:     0.05,
		SectorOffset:       0.2,
		CollisionPadding:   4,
		CollisionStrength:  0.7,
		BoundaryPadding:    40,
		BoundaryStrength:   0.5,
		DefaultRadius:      models.DefaultRadius,
		MaxStep:            30,
		MaxIterations:      300,
		AlphaMin:           0.001,
		AlphaDecay:         0.0228,
		AlphaTarget:        0,
		IncrementalAlpha:   0.3,
	}
}

// sanitized replaces values that would stall or break the cooling schedule
func (c ForceConfig) sanitized() ForceConfig {
	d := DefaultForceConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if !(c.AlphaMin > 0 && c.AlphaMin < 1) {
		c.AlphaMin = d.AlphaMin
	}
	if !(c.AlphaDecay > 0 && c.AlphaDecay < 1) {
		c.AlphaDecay = d.AlphaDecay
	}
	if !(c.AlphaTarget >= 0 && c.AlphaTarget <= 1) {
		c.AlphaTarget = d.AlphaTarget
	}
	if !(c.IncrementalAlpha > 0 && c.IncrementalAlpha <= 1) {
		c.IncrementalAlpha = d.IncrementalAlpha
	}
	if !validLength(c.DefaultRadius) {
		c.DefaultRadius = d.DefaultRadius
	}
	if !validLength(c.MaxStep) {
		c.MaxStep = d.MaxStep
	}
	if !validLength(c.ChargeCutoff) {
		c.ChargeCutoff = d.ChargeCutoff
	}
	if c.ShortRangeBoost < 1 {
		c.ShortRangeBoost = 1
	}
	return c
}

// linkDistance returns the spring rest length for a viewport
func (c ForceConfig) linkDistance(vp models.Viewport) float64 {
	if c.LinkDistance > 0 {
		return c.LinkDistance
	}
	return 0.15 * vp.MinDim()
}

func validLength(v float64) bool {
	return v > 0 && finite(v)
}
