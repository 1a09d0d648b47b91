// Package planner implements the automated opponent's shot search. It treats
// the game's ballistic simulation as an oracle: candidate (angle, power)
// pairs are simulated without effects and scored by proximity to the targets.
package planner

import (
	"math"
	"math/rand"

	"tanx.game/internal/sim/game"
)

// Plan is the shot selected by the search.
type Plan struct {
	Angle      int
	Power      float64
	Confidence float64
	Prediction *game.ShotResult
}

type shotMemory struct {
	angle   float64
	power   float64
	score   float64
	impactX float64
	impactY float64
	valid   bool
}

// Planner searches around plausible shot values, remembering the previous
// attempt per shooter so consecutive shots walk onto the target.
type Planner struct {
	AngleStep int
	PowerStep float64
	Samples   int
	Humanize  bool

	rng        *rand.Rand
	memory     map[string]shotMemory
	experience map[string]int
}

func New(seed int64) *Planner {
	return &Planner{
		AngleStep:  3,
		PowerStep:  0.08,
		Samples:    24,
		Humanize:   true,
		rng:        rand.New(rand.NewSource(seed)),
		memory:     make(map[string]shotMemory),
		experience: make(map[string]int),
	}
}

// FindBestShot returns the best candidate found, or false when there is no
// target. Shooter state is restored before returning.
func (p *Planner) FindBestShot(g *game.Game, shooter *game.Tank, targets []*game.Tank) (Plan, bool) {
	if len(targets) == 0 {
		return Plan{}, false
	}
	savedAngle, savedPower, savedCmd := shooter.TurretAngle, shooter.ShotPower, shooter.LastCommand
	defer func() {
		shooter.TurretAngle, shooter.ShotPower, shooter.LastCommand = savedAngle, savedPower, savedCmd
	}()

	target := p.primaryTarget(shooter, targets)
	candidates := p.generateCandidates(g, shooter, target)

	var best Plan
	haveBest := false
	for _, c := range candidates {
		shooter.TurretAngle = c.angle
		shooter.ShotPower = c.power
		result := g.StepProjectile(shooter, false)
		score := scoreResult(result, targets)
		if !haveBest || score > best.Confidence {
			best = Plan{Angle: c.angle, Power: c.power, Confidence: score, Prediction: result}
			haveBest = true
		}
	}
	if !haveBest || !best.Prediction.Impacted {
		fallback, ok := p.fallbackScan(g, shooter, targets)
		if !ok {
			return Plan{}, false
		}
		best = fallback
	}
	final := p.applyVariance(g, shooter, best, targets, target)
	p.memory[shooter.Name] = shotMemory{
		angle:   float64(final.Angle),
		power:   final.Power,
		score:   final.Confidence,
		impactX: final.Prediction.ImpactX,
		impactY: final.Prediction.ImpactY,
		valid:   final.Prediction.Impacted,
	}
	p.experience[shooter.Name]++
	return final, true
}

func (p *Planner) primaryTarget(shooter *game.Tank, targets []*game.Tank) *game.Tank {
	best := targets[0]
	for _, t := range targets[1:] {
		if absInt(t.X-shooter.X) < absInt(best.X-shooter.X) {
			best = t
		}
	}
	return best
}

type candidate struct {
	angle int
	power float64
}

func (p *Planner) generateCandidates(g *game.Game, shooter, target *game.Tank) []candidate {
	baseAngle, basePower := p.estimateBaseline(g, shooter, target)
	var suggestions []candidate

	add := func(angle, power float64) {
		suggestions = append(suggestions, candidate{
			angle: clampAngle(shooter, angle),
			power: clampPower(shooter, power),
		})
	}

	if mem, ok := p.memory[shooter.Name]; ok {
		if refined, ok := p.refineFromHistory(shooter, target, mem); ok {
			add(refined.angle, refined.power)
		}
		add(mem.angle, mem.power)
	}
	add(float64(baseAngle), basePower)
	for _, offset := range []int{-2, -1, 0, 1, 2} {
		angle := float64(baseAngle + offset*p.AngleStep)
		for _, po := range []float64{-1, 0, 1} {
			add(angle, basePower+po*p.PowerStep)
			if len(suggestions) >= p.Samples {
				return suggestions
			}
		}
	}
	for len(suggestions) < p.Samples {
		add(float64(baseAngle)+p.rng.Float64()*24-12, basePower+p.rng.Float64()*0.7-0.35)
	}
	return suggestions
}

// estimateBaseline guesses an opening (angle, power) from range and height
// difference before the search refines it.
func (p *Planner) estimateBaseline(g *game.Game, shooter, target *game.Tank) (int, float64) {
	dx := target.X - shooter.X
	distance := math.Max(1, math.Abs(float64(dx)))
	worldSpan := math.Max(1, float64(g.World.Width-1))
	normalized := math.Min(1.1, distance/(worldSpan*0.45))
	heightDelta := float64(shooter.Y - target.Y)
	baseAngle := 18.0 + normalized*45.0 + heightDelta*0.6
	if heightDelta < 0 {
		baseAngle += 4.0
	}
	if dx*shooter.Facing < 0 {
		// Target is behind the turret; only extreme angles can reach.
		if dx > 0 {
			baseAngle = float64(shooter.MaxAngle)
		} else {
			baseAngle = float64(shooter.MinAngle)
		}
	}
	basePower := shooter.MinPower + normalized*(shooter.MaxPower-shooter.MinPower)*0.85
	basePower += heightDelta * 0.01
	return clampAngle(shooter, baseAngle), clampPower(shooter, basePower)
}

type refinement struct {
	angle float64
	power float64
}

func (p *Planner) refineFromHistory(shooter, target *game.Tank, mem shotMemory) (refinement, bool) {
	if !mem.valid {
		return refinement{}, false
	}
	dx := float64(target.X) - mem.impactX
	dy := float64(target.Y) - mem.impactY
	distance := math.Hypot(dx, dy)
	if distance < 0.5 {
		return refinement{angle: mem.angle, power: mem.power}, true
	}
	adjust := math.Min(1.5, distance/math.Max(3, math.Abs(float64(shooter.X-target.X))+0.01))
	sign := 1.0
	if dx < 0 {
		sign = -1.0
	}
	angleDelta := float64(p.AngleStep) * adjust * sign
	powerDelta := p.PowerStep * adjust * sign
	if math.Abs(dy) > 4 {
		angleDelta += dy / 20.0
	}
	return refinement{
		angle: mem.angle + angleDelta,
		power: mem.power + powerDelta*0.5,
	}, true
}

// fallbackScan sweeps the full angle/power grid when the focused search found
// nothing that even lands in the world.
func (p *Planner) fallbackScan(g *game.Game, shooter *game.Tank, targets []*game.Tank) (Plan, bool) {
	step := p.AngleStep
	if step < 2 {
		step = 2
	}
	var best Plan
	haveBest := false
	for angle := shooter.MinAngle; angle <= shooter.MaxAngle; angle += step {
		shooter.TurretAngle = angle
		for power := shooter.MinPower; power <= shooter.MaxPower+1e-9; power += p.PowerStep {
			shooter.ShotPower = clampPower(shooter, power)
			result := g.StepProjectile(shooter, false)
			if !result.Impacted {
				continue
			}
			score := scoreResult(result, targets)
			if !haveBest || score > best.Confidence {
				best = Plan{Angle: angle, Power: shooter.ShotPower, Confidence: score, Prediction: result}
				haveBest = true
			}
		}
	}
	return best, haveBest
}

// applyVariance adds experience-scaled noise so the automated opponent misses
// like a person warming up instead of sniping on the first turn.
func (p *Planner) applyVariance(g *game.Game, shooter *game.Tank, plan Plan, targets []*game.Tank, target *game.Tank) Plan {
	if !p.Humanize {
		return plan
	}
	experience := p.experience[shooter.Name]
	historyDistance := 999.0
	if mem, ok := p.memory[shooter.Name]; ok && mem.valid {
		historyDistance = math.Hypot(float64(target.X)-mem.impactX, float64(target.Y)-mem.impactY)
	}
	angleVariance := math.Max(1.5, 10.0-float64(minInt(experience, 6))*1.5)
	powerVariance := math.Max(0.05, 0.45-float64(minInt(experience, 6))*0.05)
	if historyDistance < 4.0 {
		angleVariance *= 0.4
		powerVariance *= 0.4
	}
	uncertainty := math.Max(0.25, 1.2-plan.Confidence)
	angle := clampAngle(shooter, float64(plan.Angle)+(p.rng.Float64()*2-1)*angleVariance*uncertainty)
	power := clampPower(shooter, plan.Power+(p.rng.Float64()*2-1)*powerVariance*uncertainty)

	shooter.TurretAngle = angle
	shooter.ShotPower = power
	result := g.StepProjectile(shooter, false)
	if !result.Impacted {
		return plan
	}
	return Plan{Angle: angle, Power: power, Confidence: scoreResult(result, targets), Prediction: result}
}

func scoreResult(result *game.ShotResult, targets []*game.Tank) float64 {
	var opponents []*game.Tank
	for _, t := range targets {
		if t.Alive() {
			opponents = append(opponents, t)
		}
	}
	if len(opponents) == 0 {
		return 0
	}
	if result.HitTank != nil {
		for _, t := range opponents {
			if result.HitTank == t {
				return 1.0
			}
		}
	}
	if !result.Impacted {
		return 0
	}
	minDist := math.Inf(1)
	for _, t := range opponents {
		d := math.Hypot(float64(t.X)-result.ImpactX, float64(t.Y)-result.ImpactY)
		minDist = math.Min(minDist, d)
	}
	return math.Max(0, 1.0-minDist/12.0)
}

func clampAngle(t *game.Tank, angle float64) int {
	v := int(math.Round(angle))
	if v < t.MinAngle {
		v = t.MinAngle
	}
	if v > t.MaxAngle {
		v = t.MaxAngle
	}
	return v
}

func clampPower(t *game.Tank, power float64) float64 {
	if power < t.MinPower {
		return t.MinPower
	}
	if power > t.MaxPower {
		return t.MaxPower
	}
	return math.Round(power*1000) / 1000
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
