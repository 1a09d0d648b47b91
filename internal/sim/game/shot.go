package game

import "tanx.game/internal/sim/terrain"

// Point is one sampled projectile position in world units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ShotResult is the immutable record of one ballistic simulation. At most one
// of HitTank, HitBuilding and HitRubble is set; HitFloor is only meaningful
// alongside HitBuilding.
type ShotResult struct {
	HitTank     *Tank
	HitBuilding *terrain.Building
	HitFloor    int
	HitRubble   *terrain.RubbleSegment

	Impacted bool
	ImpactX  float64
	ImpactY  float64

	Path []Point

	FatalHit  bool
	FatalTank *Tank
}

// Kind classifies the shot outcome for event reporting.
type ShotKind string

const (
	ShotDirectHit     ShotKind = "direct_hit"
	ShotBuildingHit   ShotKind = "building_hit"
	ShotRubbleHit     ShotKind = "rubble_hit"
	ShotTerrainImpact ShotKind = "terrain_impact"
	ShotOutOfBounds   ShotKind = "out_of_bounds"
)

func (r *ShotResult) Kind() ShotKind {
	switch {
	case r.HitTank != nil:
		return ShotDirectHit
	case r.HitBuilding != nil:
		return ShotBuildingHit
	case r.HitRubble != nil:
		return ShotRubbleHit
	case r.Impacted:
		return ShotTerrainImpact
	default:
		return ShotOutOfBounds
	}
}
