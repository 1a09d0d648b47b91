package game

import (
	"fmt"
	"math"

	"tanx.game/internal/sim/terrain"
	"tanx.game/internal/sim/tuning"
)

// Game orchestrates the artillery duel: spawn placement, ballistic
// integration, collision resolution and damage application. It exclusively
// owns the world and both tanks.
type Game struct {
	World *terrain.World
	Tanks []*Tank

	Gravity            float64
	ProjectileSpeed    float64
	Damage             int
	ExplosionRadius    float64
	CraterSize         int
	ProjectileTimeStep float64
	MaxProjectileSteps int
}

// New builds a fresh match: terrain generation followed by spawn search.
// A world with no valid spawn column is a construction-time failure.
func New(playerOne, playerTwo string, settings terrain.Settings, tune tuning.Gameplay) (*Game, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	g := &Game{
		World:              terrain.New(settings),
		Gravity:            tune.Gravity,
		ProjectileSpeed:    tune.ProjectileSpeed,
		Damage:             tune.Damage,
		ExplosionRadius:    tune.ExplosionRadius,
		CraterSize:         tune.CraterSize,
		ProjectileTimeStep: tune.ProjectileTimeStep,
		MaxProjectileSteps: tune.MaxProjectileSteps,
	}
	leftX, leftY, err := g.findSpawn(2, 1)
	if err != nil {
		return nil, err
	}
	rightX, rightY, err := g.findSpawn(g.World.Width-3, -1)
	if err != nil {
		return nil, err
	}
	left := NewTank(playerOne, leftX, leftY, 1)
	right := NewTank(playerTwo, rightX, rightY, -1)
	g.Tanks = []*Tank{left, right}
	return g, nil
}

// findSpawn scans outward from a starting column until it finds an open,
// unblocked column with a valid surface.
func (g *Game) findSpawn(start, step int) (int, int, error) {
	for x := start; x >= 0 && x < g.World.Width; x += step {
		surface, ok := g.World.SurfaceY(x)
		if ok && surface >= 0 && !g.World.IsColumnBlocked(x, true) {
			return x, surface, nil
		}
	}
	return 0, 0, fmt.Errorf("game: no valid spawn column scanning from %d", start)
}

// StepProjectile integrates a shot from the tank's muzzle with a fixed
// timestep until it leaves the world or hits something. Collision precedence
// within one step is building > rubble > tank > terrain; the first match wins.
func (g *Game) StepProjectile(shooter *Tank, applyEffects bool) *ShotResult {
	angle := float64(shooter.TurretAngle) * math.Pi / 180
	speed := g.ProjectileSpeed * shooter.ShotPower
	vx := math.Cos(angle) * speed * float64(shooter.Facing)
	vy := -math.Sin(angle) * speed
	x := float64(shooter.X) + 0.5 + float64(shooter.Facing)*0.6
	y := float64(shooter.Y) - 0.5

	result := &ShotResult{HitFloor: -1}
	dt := g.ProjectileTimeStep

	for i := 0; i < g.MaxProjectileSteps; i++ {
		x += vx * dt
		y += vy * dt
		vy += g.Gravity * dt
		result.Path = append(result.Path, Point{X: x, Y: y})

		if x < 0 || x >= float64(g.World.Width) || y >= float64(g.World.Height) {
			break
		}
		if y < 0 {
			// Above the world top: keep flying, nothing to hit yet.
			continue
		}
		if b, floor, ok := g.World.BuildingHitTest(x, y); ok {
			result.HitBuilding = b
			result.HitFloor = floor
			result.Impacted = true
			result.ImpactX, result.ImpactY = x, y
			break
		}
		if seg, ok := g.World.RubbleHitTest(x, y); ok {
			result.HitRubble = seg
			result.Impacted = true
			result.ImpactX, result.ImpactY = x, y
			break
		}
		for _, tank := range g.Tanks {
			if !tank.Alive() || tank == shooter {
				continue
			}
			if math.Abs(float64(tank.X)-x) <= 0.6 && math.Abs(float64(tank.Y)-y) <= 0.6 {
				result.HitTank = tank
				result.Impacted = true
				result.ImpactX, result.ImpactY = x, y
				break
			}
		}
		if result.HitTank != nil {
			break
		}
		ix := int(math.Round(x))
		iy := int(math.Round(y))
		if g.World.IsSolid(ix, iy) {
			result.Impacted = true
			result.ImpactX, result.ImpactY = x, y
			break
		}
	}

	if applyEffects {
		g.ApplyShotEffects(result)
	}
	return result
}

// ApplyShotEffects mutates the world and tanks according to the shot outcome:
// structural damage, crater carving, direct and splash damage, then settling.
// FatalHit/FatalTank are filled in when a previously alive tank dies.
func (g *Game) ApplyShotEffects(result *ShotResult) {
	switch {
	case result.HitBuilding != nil && result.Impacted:
		g.applyBuildingDamage(result)
	case result.HitRubble != nil && result.Impacted:
		g.applyRubbleDamage(result)
	case result.Impacted && result.HitTank == nil:
		g.World.CarveCircle(result.ImpactX, result.ImpactY, g.ExplosionRadius)
	}

	var fatalTank *Tank
	if result.HitTank != nil {
		tank := result.HitTank
		wasAlive := tank.Alive()
		tank.TakeDamage(g.Damage)
		if wasAlive && !tank.Alive() {
			fatalTank = tank
		}
	} else if result.Impacted {
		fatalTank = g.applySplashDamage(result.ImpactX, result.ImpactY)
	}

	for _, tank := range g.Tanks {
		if tank.Alive() {
			g.SettleTank(tank)
		}
	}
	result.FatalHit = fatalTank != nil
	result.FatalTank = fatalTank
}

func (g *Game) applyBuildingDamage(result *ShotResult) {
	b := result.HitBuilding
	if b == nil || result.HitFloor < 0 || result.HitFloor >= len(b.Floors) {
		return
	}
	floor := b.Floors[result.HitFloor]
	if floor.Destroyed {
		return
	}
	floor.Damage(g.Damage)
	if !floor.Destroyed {
		return
	}
	// Support loss propagates upward: everything above the destroyed floor
	// comes down with it.
	for upper := result.HitFloor + 1; upper < len(b.Floors); upper++ {
		f := b.Floors[upper]
		if !f.Destroyed {
			f.HP = 0
			f.Destroyed = true
		}
	}
	intact, hasIntact := b.FirstIntactFloorIndex()
	switch {
	case result.HitFloor == 0:
		// Ground floor failure dooms the whole structure, whatever may
		// still be standing above.
		b.Unstable = true
		g.World.ScheduleBuildingCollapse(b, 1.2)
	case !hasIntact:
		g.World.ScheduleBuildingCollapse(b, 0.8)
	case result.HitFloor <= intact:
		b.Unstable = true
	}
}

func (g *Game) applyRubbleDamage(result *ShotResult) {
	if result.HitRubble == nil {
		return
	}
	g.World.DamageRubble(result.HitRubble, g.Damage)
}

// CollapseHit records damage dealt to one tank by a building collapse.
type CollapseHit struct {
	Tank   *Tank
	Damage int
}

// HandleBuildingCollapse deals area damage around a collapsed building's
// footprint, scaled up with floor count and down with distance, and settles
// the survivors. Returns the tanks hit and any fatalities.
func (g *Game) HandleBuildingCollapse(b *terrain.Building) ([]CollapseHit, []*Tank) {
	var affected []CollapseHit
	var fatalities []*Tank
	center := b.CenterX()
	influence := b.Width()*0.5 + 1.5
	baseDamage := int(float64(g.Damage) * (1.1 + 0.15*float64(len(b.Floors))))
	if baseDamage < g.Damage {
		baseDamage = g.Damage
	}
	for _, tank := range g.Tanks {
		if !tank.Alive() {
			continue
		}
		horizontal := math.Abs(float64(tank.X) - center)
		if horizontal > influence {
			continue
		}
		falloff := math.Max(0.25, 1.0-horizontal/math.Max(influence, 0.001))
		damage := int(float64(baseDamage) * falloff)
		if damage < 1 {
			damage = 1
		}
		beforeHP := tank.HP
		tank.TakeDamage(damage)
		if dealt := beforeHP - tank.HP; dealt > 0 {
			affected = append(affected, CollapseHit{Tank: tank, Damage: dealt})
		}
		if beforeHP > 0 && !tank.Alive() {
			fatalities = append(fatalities, tank)
		}
	}
	for _, tank := range g.Tanks {
		if tank.Alive() {
			g.SettleTank(tank)
		}
	}
	return affected, fatalities
}

func (g *Game) applySplashDamage(impactX, impactY float64) *Tank {
	radius := g.ExplosionRadius
	var fatalTank *Tank
	for _, tank := range g.Tanks {
		if !tank.Alive() {
			continue
		}
		distance := math.Hypot(float64(tank.X)-impactX, float64(tank.Y)-impactY)
		if distance > radius {
			continue
		}
		if distance <= 0.5 {
			// Point blank counts as a full hit even though the shot did not
			// register a direct tank collision.
			tank.TakeDamage(g.Damage)
			if !tank.Alive() {
				fatalTank = tank
			}
			continue
		}
		falloff := 1 - math.Min(distance/radius, 1)
		splash := int(float64(g.Damage) * falloff * 0.6)
		if splash < 1 {
			splash = 1
		}
		wasAlive := tank.Alive()
		tank.TakeDamage(splash)
		if wasAlive && !tank.Alive() {
			fatalTank = tank
		}
	}
	return fatalTank
}

// SettleTank drops a tank straight down to the first solid row beneath it,
// then snaps it up to the column surface if the surface sits higher. Terrain
// subsidence is instantaneous; falling animation is a presentation concern.
func (g *Game) SettleTank(tank *Tank) {
	for tank.Y+1 < g.World.Height && !g.World.IsSolid(tank.X, tank.Y+1) {
		tank.Y++
	}
	surface, ok := g.World.SurfaceY(tank.X)
	if !ok {
		return
	}
	if surface < 0 {
		tank.Y = 0
	} else if surface < tank.Y {
		tank.Y = surface
	}
}

// UpdateCollapses drives pending building collapse timers and applies their
// area damage. The whole sequence per building is atomic for callers.
func (g *Game) UpdateCollapses(dt float64) []CollapseResult {
	collapsed := g.World.UpdateCollapsingBuildings(dt)
	if len(collapsed) == 0 {
		return nil
	}
	results := make([]CollapseResult, 0, len(collapsed))
	for _, b := range collapsed {
		hits, fatalities := g.HandleBuildingCollapse(b)
		results = append(results, CollapseResult{Building: b, Hits: hits, Fatalities: fatalities})
	}
	return results
}

// CollapseResult reports one resolved building collapse.
type CollapseResult struct {
	Building   *terrain.Building
	Hits       []CollapseHit
	Fatalities []*Tank
}
