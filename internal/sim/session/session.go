package session

import (
	"errors"
	"math"

	"tanx.game/internal/sim/game"
)

// ErrProjectileInFlight is returned when a fire command arrives while a
// previous shot is still being played back.
var ErrProjectileInFlight = errors.New("session: projectile already in flight")

// ProjectileStep is the incremental playback update for an in-flight shot.
type ProjectileStep struct {
	TrailPositions []game.Point
	Finished       bool
	Result         *game.ShotResult
}

// Session owns the mutable state of one active match: turn order, projectile
// playback, superpower accrual and victory detection. The shot itself is
// simulated eagerly on fire; playback replays the pre-computed path at the
// configured interval so presentation pacing never affects the simulation.
type Session struct {
	Game *game.Game

	ProjectileInterval float64
	WinnerDelayOnKill  float64

	CurrentPlayer int

	projectileResult   *game.ShotResult
	projectileTimer    float64
	projectileIndex    int
	ProjectilePosition *game.Point

	ActiveShooter *game.Tank

	Winner      *game.Tank
	Decided     bool
	WinnerDelay float64
}

func New(g *game.Game, projectileInterval, winnerDelay float64) *Session {
	return &Session{
		Game:               g,
		ProjectileInterval: projectileInterval,
		WinnerDelayOnKill:  winnerDelay,
	}
}

func (s *Session) Tanks() []*game.Tank { return s.Game.Tanks }

func (s *Session) CurrentTank() *game.Tank { return s.Game.Tanks[s.CurrentPlayer] }

func (s *Session) IsAnimatingProjectile() bool { return s.projectileResult != nil }

func (s *Session) AdvanceTurn() { s.CurrentPlayer = 1 - s.CurrentPlayer }

// CheckVictory re-derives match state from tank liveness. Exactly one tank
// alive decides a winner; zero alive decides a draw with no winner set.
func (s *Session) CheckVictory() []Event {
	var alive []*game.Tank
	for _, t := range s.Game.Tanks {
		if t.Alive() {
			alive = append(alive, t)
		}
	}
	switch len(alive) {
	case 1:
		if s.Decided && s.Winner == alive[0] {
			return nil
		}
		s.Winner = alive[0]
		s.Decided = true
		return []Event{{Kind: EventWinner, Tank: s.Winner}}
	case 0:
		if s.Decided && s.Winner == nil {
			return nil
		}
		s.Winner = nil
		s.Decided = true
		return []Event{{Kind: EventDraw}}
	default:
		return nil
	}
}

// AttemptMove executes a move command for the current tank. A successful
// move spends the turn.
func (s *Session) AttemptMove(direction int) (bool, []Event) {
	tank := s.CurrentTank()
	if !tank.Move(s.Game.World, direction) {
		return false, []Event{{Kind: EventMoveBlocked, Tank: tank, Direction: direction}}
	}
	s.AdvanceTurn()
	events := []Event{
		{Kind: EventMoved, Tank: tank, Direction: direction},
		{Kind: EventTurnStarted, Tank: s.CurrentTank()},
	}
	events = append(events, s.CheckVictory()...)
	return true, events
}

// BeginProjectile simulates the full shot eagerly (no effects yet) and arms
// playback. Firing while a shot is animating is rejected.
func (s *Session) BeginProjectile(tank *game.Tank) (*game.ShotResult, error) {
	if s.IsAnimatingProjectile() {
		return nil, ErrProjectileInFlight
	}
	tank.LastCommand = "fire"
	result := s.Game.StepProjectile(tank, false)
	s.projectileResult = result
	s.projectileIndex = 0
	s.projectileTimer = 0
	s.ProjectilePosition = nil
	if len(result.Path) > 0 {
		p := result.Path[0]
		s.ProjectilePosition = &p
	}
	s.ActiveShooter = tank
	return result, nil
}

// UpdateProjectile advances playback by dt, emitting the path points crossed
// this tick. Once the path is exhausted the terminal result is handed back
// and the session stops animating.
func (s *Session) UpdateProjectile(dt float64) ProjectileStep {
	var step ProjectileStep
	if s.projectileResult == nil {
		return step
	}
	s.projectileTimer += dt
	path := s.projectileResult.Path
	for s.projectileTimer >= s.ProjectileInterval {
		s.projectileTimer -= s.ProjectileInterval
		s.projectileIndex++
		if s.projectileIndex >= len(path) {
			result := s.projectileResult
			s.projectileResult = nil
			s.ProjectilePosition = nil
			step.Finished = true
			step.Result = result
			return step
		}
		p := path[s.projectileIndex]
		s.ProjectilePosition = &p
		step.TrailPositions = append(step.TrailPositions, p)
	}
	return step
}

// ResolveProjectile applies the shot's effects, accrues superpower, advances
// the turn and re-checks victory.
func (s *Session) ResolveProjectile(result *game.ShotResult) []Event {
	var events []Event
	if result != nil {
		s.Game.ApplyShotEffects(result)
		events = append(events, s.shotEvents(result)...)
	} else {
		events = append(events, Event{Kind: EventOutOfBounds})
	}

	s.ActiveShooter = nil
	shooter := s.Game.Tanks[s.CurrentPlayer]
	s.updateSuperPower(shooter, result)

	s.AdvanceTurn()
	victory := s.CheckVictory()
	events = append(events, victory...)
	if s.Decided {
		if result != nil && result.FatalHit {
			s.WinnerDelay = s.WinnerDelayOnKill
		} else {
			s.WinnerDelay = 0
		}
	} else {
		s.WinnerDelay = 0
		events = append(events, Event{Kind: EventTurnStarted, Tank: s.CurrentTank()})
	}
	return events
}

func (s *Session) shotEvents(result *game.ShotResult) []Event {
	var events []Event
	switch result.Kind() {
	case game.ShotDirectHit:
		events = append(events, Event{
			Kind:    EventDirectHit,
			Target:  result.HitTank,
			ImpactX: result.ImpactX,
			ImpactY: result.ImpactY,
			Damage:  s.Game.Damage,
		})
	case game.ShotBuildingHit:
		events = append(events, Event{
			Kind:     EventBuildingHit,
			Building: &EventBuilding{ID: result.HitBuilding.ID, Floor: result.HitFloor},
			ImpactX:  result.ImpactX,
			ImpactY:  result.ImpactY,
		})
	case game.ShotRubbleHit:
		events = append(events, Event{Kind: EventRubbleHit, ImpactX: result.ImpactX, ImpactY: result.ImpactY})
	case game.ShotTerrainImpact:
		events = append(events, Event{Kind: EventTerrainImpact, ImpactX: result.ImpactX, ImpactY: result.ImpactY})
	default:
		events = append(events, Event{Kind: EventOutOfBounds})
	}
	if result.FatalTank != nil {
		events = append(events, Event{Kind: EventTankDestroyed, Tank: result.FatalTank})
	}
	return events
}

// Tick drives time-based session state: winner grace delay and pending
// building collapses. Collapse damage feeds back into victory detection.
func (s *Session) Tick(dt float64) []Event {
	if s.Decided && s.WinnerDelay > 0 {
		s.WinnerDelay = math.Max(0, s.WinnerDelay-dt)
	}
	var events []Event
	for _, res := range s.Game.UpdateCollapses(dt) {
		events = append(events, Event{
			Kind:     EventBuildingCollapsed,
			Building: &EventBuilding{ID: res.Building.ID},
			ImpactX:  res.Building.CenterX(),
			ImpactY:  res.Building.Base,
		})
		for _, fatal := range res.Fatalities {
			events = append(events, Event{Kind: EventTankDestroyed, Tank: fatal})
		}
	}
	if len(events) > 0 {
		events = append(events, s.CheckVictory()...)
	}
	return events
}

// updateSuperPower awards the bounded superpower resource for a shot: a base
// gain, a large bonus for a direct hit on an opponent, or a squared-falloff
// partial bonus for a near miss.
func (s *Session) updateSuperPower(shooter *game.Tank, result *game.ShotResult) {
	const baseGain = 0.08
	bonus := 0.0

	var opponents []*game.Tank
	for _, t := range s.Game.Tanks {
		if t != shooter && t.Alive() {
			opponents = append(opponents, t)
		}
	}

	switch {
	case result != nil && result.HitTank != nil && result.HitTank != shooter:
		bonus = 0.75
	case result != nil && result.Impacted && len(opponents) > 0:
		minDist := math.Inf(1)
		for _, t := range opponents {
			d := math.Hypot(float64(t.X)-result.ImpactX, float64(t.Y)-result.ImpactY)
			minDist = math.Min(minDist, d)
		}
		if minDist <= 0.5 {
			bonus = 0.6
		} else {
			falloff := math.Max(0, (6.0-minDist)/6.0)
			bonus = 0.45 * falloff * falloff
		}
	}

	shooter.AddSuperPower(baseGain + bonus)
}
