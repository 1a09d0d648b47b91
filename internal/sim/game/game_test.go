package game

import (
	"testing"

	"tanx.game/internal/sim/terrain"
	"tanx.game/internal/sim/tuning"
)

// flatSettings keeps elevation inside [12, 12.5], so floor truncation puts
// every column's surface on row 11.
func flatSettings() terrain.Settings {
	return terrain.Settings{
		Width:     24,
		Height:    24,
		MinHeight: 12,
		MaxHeight: 12.5,
		Smoothing: 0,
		Detail:    4,
		Seed:      1234,
		Style:     terrain.StyleClassic,
	}
}

func newFlatGame(t *testing.T) *Game {
	t.Helper()
	g, err := New("Player 1", "Player 2", flatSettings(), tuning.Defaults().Gameplay)
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	return g
}

func TestNew_SpawnPlacement(t *testing.T) {
	g := newFlatGame(t)
	if len(g.Tanks) != 2 {
		t.Fatalf("expected 2 tanks, got %d", len(g.Tanks))
	}
	left, right := g.Tanks[0], g.Tanks[1]
	if left.X != 2 || left.Y != 11 || left.Facing != 1 {
		t.Fatalf("left spawn: %+v", left)
	}
	if right.X != 21 || right.Y != 11 || right.Facing != -1 {
		t.Fatalf("right spawn: %+v", right)
	}
}

func TestNew_SpawnSweep(t *testing.T) {
	for _, style := range []string{terrain.StyleClassic, terrain.StyleUrban} {
		for seed := int64(1); seed <= 15; seed++ {
			s := terrain.DefaultSettings()
			s.Style = style
			s.Seed = seed
			g, err := New("Player 1", "Player 2", s, tuning.Defaults().Gameplay)
			if err != nil {
				t.Fatalf("style %s seed %d: %v", style, seed, err)
			}
			if g.Tanks[0].X >= g.Tanks[1].X {
				t.Fatalf("style %s seed %d: spawn order %d >= %d",
					style, seed, g.Tanks[0].X, g.Tanks[1].X)
			}
			for _, tank := range g.Tanks {
				if !g.World.IsInside(tank.X, tank.Y) {
					t.Fatalf("style %s seed %d: tank %s off the map at (%d,%d)",
						style, seed, tank.Name, tank.X, tank.Y)
				}
				if g.World.IsColumnBlocked(tank.X, true) {
					t.Fatalf("style %s seed %d: tank %s inside a structure", style, seed, tank.Name)
				}
				surface, ok := g.World.SurfaceY(tank.X)
				if !ok || tank.Y != surface {
					t.Fatalf("style %s seed %d: tank %s floats at %d, surface %d",
						style, seed, tank.Name, tank.Y, surface)
				}
			}
		}
	}
}

func TestNew_RejectsInvalidSettings(t *testing.T) {
	s := flatSettings()
	s.MinHeight = 20
	s.MaxHeight = 12
	if _, err := New("a", "b", s, tuning.Defaults().Gameplay); err == nil {
		t.Fatalf("expected settings validation error")
	}
}

func TestStepProjectile_DirectHit(t *testing.T) {
	g := newFlatGame(t)
	g.Gravity = 0
	shooter, target := g.Tanks[0], g.Tanks[1]
	shooter.X, shooter.Y = 4, 11
	target.X, target.Y = 8, 11
	shooter.TurretAngle = 0
	shooter.ShotPower = 0.6

	result := g.StepProjectile(shooter, true)
	if result.HitTank != target {
		t.Fatalf("expected direct hit on %s, got %+v", target.Name, result)
	}
	if result.Kind() != ShotDirectHit {
		t.Fatalf("kind = %s, want %s", result.Kind(), ShotDirectHit)
	}
	if target.HP != 75 {
		t.Fatalf("target hp = %d, want 75", target.HP)
	}
	if result.FatalHit || result.FatalTank != nil {
		t.Fatalf("unexpected fatality: %+v", result)
	}
	if len(result.Path) == 0 {
		t.Fatalf("empty projectile path")
	}
}

func TestStepProjectile_OutOfBounds(t *testing.T) {
	g := newFlatGame(t)
	g.Gravity = 0
	shooter := g.Tanks[1]
	shooter.TurretAngle = 30
	shooter.ShotPower = 1.8

	// Facing -1 with a high, fast arc: sails over the far tank and leaves
	// the left edge.
	result := g.StepProjectile(shooter, true)
	if result.Impacted {
		t.Fatalf("expected clean exit, got impact at (%f,%f)", result.ImpactX, result.ImpactY)
	}
	if result.Kind() != ShotOutOfBounds {
		t.Fatalf("kind = %s, want %s", result.Kind(), ShotOutOfBounds)
	}
	if g.Tanks[0].HP != 100 {
		t.Fatalf("out-of-bounds shot dealt damage")
	}
}

func TestStepProjectile_TerrainImpactCarves(t *testing.T) {
	g := newFlatGame(t)
	shooter := g.Tanks[0]
	shooter.TurretAngle = 75
	shooter.ShotPower = 0.4

	before := make([]float64, len(g.World.HeightMap))
	copy(before, g.World.HeightMap)

	result := g.StepProjectile(shooter, true)
	if result.Kind() != ShotTerrainImpact {
		t.Fatalf("kind = %s, want %s", result.Kind(), ShotTerrainImpact)
	}
	changed := false
	for i := range g.World.HeightMap {
		if g.World.HeightMap[i] < before[i] {
			t.Fatalf("impact restored terrain at %d", i)
		}
		if g.World.HeightMap[i] > before[i] {
			changed = true
		}
	}
	if !changed {
		t.Fatalf("terrain impact carved nothing")
	}
}

func TestStepProjectile_BuildingShieldsTank(t *testing.T) {
	g := newFlatGame(t)
	g.Gravity = 0
	shooter, target := g.Tanks[0], g.Tanks[1]
	shooter.X, shooter.Y = 2, 11
	target.X, target.Y = 12, 11
	shooter.TurretAngle = 0
	shooter.ShotPower = 0.6

	b := &terrain.Building{
		ID: 1, Left: 7, Right: 10, Base: 12,
		Floors: []*terrain.Floor{
			{Height: 1.5, MaxHP: 60, HP: 60},
			{Height: 1.5, MaxHP: 60, HP: 60},
		},
	}
	g.World.Buildings = append(g.World.Buildings, b)

	result := g.StepProjectile(shooter, true)
	if result.HitBuilding != b || result.HitTank != nil {
		t.Fatalf("expected building to shield the tank: %+v", result)
	}
	// The flight line at y=10.5 sits on the floor boundary, which belongs to
	// the upper floor.
	if result.HitFloor != 1 {
		t.Fatalf("hit floor %d, want 1", result.HitFloor)
	}
	if target.HP != 100 {
		t.Fatalf("shielded tank took damage: %d", target.HP)
	}
	if b.Floors[1].HP != 60-g.Damage {
		t.Fatalf("floor hp = %d, want %d", b.Floors[1].HP, 60-g.Damage)
	}
}

func TestStepProjectile_RubbleBeforeTank(t *testing.T) {
	g := newFlatGame(t)
	g.Gravity = 0
	shooter, target := g.Tanks[0], g.Tanks[1]
	shooter.X, shooter.Y = 2, 11
	target.X, target.Y = 12, 11
	shooter.TurretAngle = 0
	shooter.ShotPower = 0.6

	seg := &terrain.RubbleSegment{Left: 7, Right: 10, Base: 12, Height: 1.6, MaxHP: 50, HP: 50}
	g.World.Rubble = append(g.World.Rubble, seg)

	result := g.StepProjectile(shooter, true)
	if result.HitRubble != seg || result.HitTank != nil {
		t.Fatalf("expected rubble hit: %+v", result)
	}
	if seg.HP != 25 {
		t.Fatalf("rubble hp = %d, want 25", seg.HP)
	}
	if target.HP != 100 {
		t.Fatalf("shielded tank took damage: %d", target.HP)
	}
}

func TestApplyShotEffects_SplashDamage(t *testing.T) {
	g := newFlatGame(t)
	target := g.Tanks[1]
	target.X, target.Y = 12, 11

	result := &ShotResult{
		HitFloor: -1,
		Impacted: true,
		ImpactX:  13,
		ImpactY:  11,
	}
	g.ApplyShotEffects(result)

	// Distance 1.0 inside radius 1.8: int(25 * (1 - 1/1.8) * 0.6) = 6.
	if target.HP != 94 {
		t.Fatalf("target hp = %d, want 94", target.HP)
	}
	if result.FatalHit {
		t.Fatalf("unexpected fatality")
	}
}

func TestApplyShotEffects_PointBlankFullDamage(t *testing.T) {
	g := newFlatGame(t)
	target := g.Tanks[1]
	target.X, target.Y = 12, 11

	result := &ShotResult{
		HitFloor: -1,
		Impacted: true,
		ImpactX:  12.3,
		ImpactY:  11.4,
	}
	g.ApplyShotEffects(result)

	// Distance 0.5: full damage without a direct-hit record.
	if target.HP != 75 {
		t.Fatalf("target hp = %d, want 75", target.HP)
	}
	if result.HitTank != nil {
		t.Fatalf("point blank must not register as direct hit")
	}
}

func TestApplyBuildingDamage_SupportFailure(t *testing.T) {
	g := newFlatGame(t)
	b := &terrain.Building{
		ID: 1, Left: 7, Right: 10, Base: 12,
		Floors: []*terrain.Floor{
			{Height: 1.5, MaxHP: 60, HP: 60},
			{Height: 1.5, MaxHP: 20, HP: 20},
			{Height: 1.5, MaxHP: 60, HP: 60},
		},
	}
	g.World.Buildings = append(g.World.Buildings, b)

	result := &ShotResult{
		HitBuilding: b,
		HitFloor:    1,
		Impacted:    true,
		ImpactX:     8.5,
		ImpactY:     10,
	}
	g.ApplyShotEffects(result)

	if !b.Floors[1].Destroyed || !b.Floors[2].Destroyed {
		t.Fatalf("floors above the failure must come down: %+v", b.Floors)
	}
	if b.Floors[0].Destroyed {
		t.Fatalf("floor below the failure must survive")
	}
	// The intact ground floor keeps carrying the structure.
	if b.Unstable {
		t.Fatalf("building must stay stable while the ground floor stands")
	}
	if g.World.CollapsePending(b) {
		t.Fatalf("collapse must not be armed while a lower floor stands")
	}
}

func TestApplyBuildingDamage_GroundFloorCollapse(t *testing.T) {
	g := newFlatGame(t)
	b := &terrain.Building{
		ID: 1, Left: 7, Right: 10, Base: 12,
		Floors: []*terrain.Floor{
			{Height: 1.5, MaxHP: 20, HP: 20},
			{Height: 1.5, MaxHP: 60, HP: 60},
			{Height: 1.5, MaxHP: 60, HP: 60},
		},
	}
	g.World.Buildings = append(g.World.Buildings, b)

	result := &ShotResult{
		HitBuilding: b,
		HitFloor:    0,
		Impacted:    true,
		ImpactX:     8.5,
		ImpactY:     11.5,
	}
	g.ApplyShotEffects(result)

	for i, f := range b.Floors {
		if !f.Destroyed {
			t.Fatalf("floor %d survived ground floor failure", i)
		}
	}
	if !b.Unstable || !g.World.CollapsePending(b) {
		t.Fatalf("ground floor failure must arm a collapse")
	}

	// The longer fuse: still standing at 1.0s, down by 1.2s.
	if res := g.UpdateCollapses(1.0); res != nil {
		t.Fatalf("collapsed before the 1.2s fuse")
	}
	res := g.UpdateCollapses(0.25)
	if len(res) != 1 || res[0].Building != b {
		t.Fatalf("expected one collapse, got %v", res)
	}
	if !b.Collapsed {
		t.Fatalf("building not collapsed")
	}
}

func TestApplyBuildingDamage_TopFloorShortFuse(t *testing.T) {
	g := newFlatGame(t)
	b := &terrain.Building{
		ID: 1, Left: 7, Right: 10, Base: 12,
		Floors: []*terrain.Floor{
			{Height: 1.5, MaxHP: 60, HP: 0, Destroyed: true},
			{Height: 1.5, MaxHP: 20, HP: 20},
		},
	}
	g.World.Buildings = append(g.World.Buildings, b)

	result := &ShotResult{
		HitBuilding: b,
		HitFloor:    1,
		Impacted:    true,
		ImpactX:     8.5,
		ImpactY:     10,
	}
	g.ApplyShotEffects(result)

	if !g.World.CollapsePending(b) {
		t.Fatalf("losing the last intact floor must arm a collapse")
	}
	// The short fuse: down by 0.8s.
	res := g.UpdateCollapses(0.8)
	if len(res) != 1 {
		t.Fatalf("expected collapse at 0.8s, got %v", res)
	}
}

func TestHandleBuildingCollapse_DamageFalloff(t *testing.T) {
	g := newFlatGame(t)
	near, far := g.Tanks[0], g.Tanks[1]
	near.X, near.Y = 9, 11
	far.X, far.Y = 20, 11

	b := &terrain.Building{
		ID: 1, Left: 7, Right: 10, Base: 12,
		Floors: []*terrain.Floor{
			{Height: 1.5, MaxHP: 60, HP: 0, Destroyed: true},
			{Height: 1.5, MaxHP: 60, HP: 0, Destroyed: true},
		},
	}
	g.World.Buildings = append(g.World.Buildings, b)

	hits, fatalities := g.HandleBuildingCollapse(b)
	if len(fatalities) != 0 {
		t.Fatalf("unexpected fatalities: %v", fatalities)
	}
	if len(hits) != 1 || hits[0].Tank != near {
		t.Fatalf("expected only the nearby tank hit, got %v", hits)
	}
	// base 35 = int(25*1.4); center 8.5, influence 3.0, falloff 1-0.5/3.
	if hits[0].Damage != 29 {
		t.Fatalf("collapse damage = %d, want 29", hits[0].Damage)
	}
	if far.HP != 100 {
		t.Fatalf("distant tank took damage: %d", far.HP)
	}
}

func TestSettleTank_FallsIntoCrater(t *testing.T) {
	g := newFlatGame(t)
	tank := g.Tanks[0]
	x := float64(tank.X)

	// Leave headroom below max_height so the crater can swallow the tank.
	g.World.Settings.MaxHeight = 18
	g.World.CarveCircle(x, 12, 2.5)
	g.SettleTank(tank)

	surface, ok := g.World.SurfaceY(tank.X)
	if !ok {
		t.Fatalf("no surface after carve")
	}
	if tank.Y != surface {
		t.Fatalf("tank at %d, surface %d", tank.Y, surface)
	}
	if tank.Y <= 11 {
		t.Fatalf("tank did not fall into the crater: y=%d", tank.Y)
	}
}

func TestDamageMonotonic(t *testing.T) {
	tank := NewTank("t", 0, 0, 1)
	tank.TakeDamage(30)
	tank.TakeDamage(30)
	tank.TakeDamage(50)
	if tank.HP != 0 {
		t.Fatalf("hp = %d, want 0", tank.HP)
	}
	if tank.Alive() {
		t.Fatalf("tank with 0 hp must be dead")
	}
}
