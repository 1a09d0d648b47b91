package session

import (
	"math"
	"testing"

	"tanx.game/internal/sim/game"
	"tanx.game/internal/sim/terrain"
	"tanx.game/internal/sim/tuning"
)

func newFlatSession(t *testing.T) *Session {
	t.Helper()
	settings := terrain.Settings{
		Width:     24,
		Height:    24,
		MinHeight: 12,
		MaxHeight: 12.5,
		Smoothing: 0,
		Detail:    4,
		Seed:      1234,
		Style:     terrain.StyleClassic,
	}
	g, err := game.New("Player 1", "Player 2", settings, tuning.Defaults().Gameplay)
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	return New(g, 0.03, 2.0)
}

// armDirectHit positions both tanks on the flat ground so a level shot from
// the current tank lands on the opponent.
func armDirectHit(s *Session) (shooter, target *game.Tank) {
	s.Game.Gravity = 0
	shooter, target = s.Game.Tanks[0], s.Game.Tanks[1]
	shooter.X, shooter.Y = 4, 11
	target.X, target.Y = 8, 11
	shooter.TurretAngle = 0
	shooter.ShotPower = 0.6
	return shooter, target
}

func hasEvent(events []Event, kind EventKind) bool {
	for _, ev := range events {
		if ev.Kind == kind {
			return true
		}
	}
	return false
}

func TestBeginProjectile_RejectsWhileAnimating(t *testing.T) {
	s := newFlatSession(t)
	shooter, _ := armDirectHit(s)

	if _, err := s.BeginProjectile(shooter); err != nil {
		t.Fatalf("first fire: %v", err)
	}
	if !s.IsAnimatingProjectile() {
		t.Fatalf("session must be animating after fire")
	}
	if _, err := s.BeginProjectile(shooter); err != ErrProjectileInFlight {
		t.Fatalf("second fire: %v, want ErrProjectileInFlight", err)
	}
}

func TestProjectilePlayback(t *testing.T) {
	s := newFlatSession(t)
	shooter, target := armDirectHit(s)

	result, err := s.BeginProjectile(shooter)
	if err != nil {
		t.Fatalf("fire: %v", err)
	}
	if result.HitTank != target {
		t.Fatalf("expected direct hit, got %s", result.Kind())
	}
	// Effects are deferred until playback finishes.
	if target.HP != 100 {
		t.Fatalf("damage applied before playback finished: hp=%d", target.HP)
	}
	if s.ProjectilePosition == nil {
		t.Fatalf("no projectile position during playback")
	}

	step := s.UpdateProjectile(0.075)
	if step.Finished {
		t.Fatalf("playback finished after 2 of %d points", len(result.Path))
	}
	if len(step.TrailPositions) != 2 {
		t.Fatalf("trail emitted %d points, want 2", len(step.TrailPositions))
	}

	for i := 0; i < 1000 && !step.Finished; i++ {
		step = s.UpdateProjectile(0.03)
	}
	if !step.Finished || step.Result != result {
		t.Fatalf("playback did not finish with the armed result")
	}
	if s.IsAnimatingProjectile() || s.ProjectilePosition != nil {
		t.Fatalf("session still animating after playback")
	}

	events := s.ResolveProjectile(step.Result)
	if !hasEvent(events, EventDirectHit) {
		t.Fatalf("missing direct hit event: %v", events)
	}
	if !hasEvent(events, EventTurnStarted) {
		t.Fatalf("missing turn handoff event: %v", events)
	}
	if target.HP != 75 {
		t.Fatalf("target hp = %d, want 75", target.HP)
	}
	if s.CurrentPlayer != 1 {
		t.Fatalf("turn did not advance: %d", s.CurrentPlayer)
	}
	if s.ActiveShooter != nil {
		t.Fatalf("active shooter not cleared")
	}
	if math.Abs(shooter.SuperPower-0.83) > 1e-9 {
		t.Fatalf("shooter super power = %f, want 0.83", shooter.SuperPower)
	}
}

func TestResolveProjectile_FatalShotDecidesMatch(t *testing.T) {
	s := newFlatSession(t)
	shooter, target := armDirectHit(s)
	target.HP = 25

	result, err := s.BeginProjectile(shooter)
	if err != nil {
		t.Fatalf("fire: %v", err)
	}
	events := s.ResolveProjectile(result)

	if !hasEvent(events, EventTankDestroyed) || !hasEvent(events, EventWinner) {
		t.Fatalf("missing fatality events: %v", events)
	}
	if hasEvent(events, EventTurnStarted) {
		t.Fatalf("no turn handoff after the match is decided")
	}
	if !s.Decided || s.Winner != shooter {
		t.Fatalf("winner = %v decided = %v", s.Winner, s.Decided)
	}
	if s.WinnerDelay != 2.0 {
		t.Fatalf("winner delay = %f, want 2", s.WinnerDelay)
	}
	s.Tick(0.5)
	if s.WinnerDelay != 1.5 {
		t.Fatalf("winner delay after tick = %f, want 1.5", s.WinnerDelay)
	}
}

func TestResolveProjectile_NearMissSuperPower(t *testing.T) {
	s := newFlatSession(t)
	shooter, target := s.Game.Tanks[0], s.Game.Tanks[1]
	target.X, target.Y = 12, 11

	result := &game.ShotResult{
		HitFloor: -1,
		Impacted: true,
		ImpactX:  float64(target.X) + 2,
		ImpactY:  float64(target.Y),
	}
	events := s.ResolveProjectile(result)
	if !hasEvent(events, EventTerrainImpact) {
		t.Fatalf("missing terrain impact event: %v", events)
	}
	// Base 0.08 plus 0.45*((6-2)/6)^2 = 0.2 for landing two cells away.
	if math.Abs(shooter.SuperPower-0.28) > 1e-9 {
		t.Fatalf("super power = %f, want 0.28", shooter.SuperPower)
	}
}

func TestResolveProjectile_NilResult(t *testing.T) {
	s := newFlatSession(t)
	shooter := s.Game.Tanks[0]
	events := s.ResolveProjectile(nil)
	if !hasEvent(events, EventOutOfBounds) {
		t.Fatalf("missing out-of-bounds event: %v", events)
	}
	if math.Abs(shooter.SuperPower-0.08) > 1e-9 {
		t.Fatalf("super power = %f, want base gain 0.08", shooter.SuperPower)
	}
	if s.CurrentPlayer != 1 {
		t.Fatalf("turn did not advance")
	}
}

func TestAttemptMove(t *testing.T) {
	s := newFlatSession(t)
	mover := s.CurrentTank()

	ok, events := s.AttemptMove(1)
	if !ok {
		t.Fatalf("open-ground move failed: %v", events)
	}
	if !hasEvent(events, EventMoved) || !hasEvent(events, EventTurnStarted) {
		t.Fatalf("move events: %v", events)
	}
	if s.CurrentPlayer != 1 {
		t.Fatalf("successful move must spend the turn")
	}
	if mover.X != 3 {
		t.Fatalf("mover at %d, want 3", mover.X)
	}

	// A blocked move keeps the turn.
	s.CurrentPlayer = 0
	mover.X = 0
	ok, events = s.AttemptMove(-1)
	if ok {
		t.Fatalf("move off the edge must fail")
	}
	if !hasEvent(events, EventMoveBlocked) {
		t.Fatalf("blocked move events: %v", events)
	}
	if s.CurrentPlayer != 0 {
		t.Fatalf("failed move must not spend the turn")
	}
}

func TestCheckVictory_Idempotent(t *testing.T) {
	s := newFlatSession(t)
	s.Game.Tanks[1].HP = 0

	events := s.CheckVictory()
	if !hasEvent(events, EventWinner) {
		t.Fatalf("missing winner event: %v", events)
	}
	if s.Winner != s.Game.Tanks[0] {
		t.Fatalf("winner = %v", s.Winner)
	}
	if again := s.CheckVictory(); again != nil {
		t.Fatalf("repeated victory check emitted events: %v", again)
	}
}

func TestCheckVictory_Draw(t *testing.T) {
	s := newFlatSession(t)
	s.Game.Tanks[0].HP = 0
	s.Game.Tanks[1].HP = 0

	events := s.CheckVictory()
	if !hasEvent(events, EventDraw) {
		t.Fatalf("missing draw event: %v", events)
	}
	if !s.Decided || s.Winner != nil {
		t.Fatalf("draw must decide with no winner")
	}
	if again := s.CheckVictory(); again != nil {
		t.Fatalf("repeated draw check emitted events: %v", again)
	}
}

func TestTick_CollapseKillsAndDecides(t *testing.T) {
	s := newFlatSession(t)
	victim := s.Game.Tanks[1]
	victim.X, victim.Y = 21, 11
	victim.HP = 5

	b := &terrain.Building{
		ID: 1, Left: 20, Right: 22, Base: 12,
		Floors: []*terrain.Floor{{Height: 1.5, MaxHP: 50, HP: 0, Destroyed: true}},
	}
	s.Game.World.Buildings = append(s.Game.World.Buildings, b)
	s.Game.World.ScheduleBuildingCollapse(b, 1.2)

	if events := s.Tick(1.0); events != nil {
		t.Fatalf("collapse fired early: %v", events)
	}
	events := s.Tick(0.25)
	if !hasEvent(events, EventBuildingCollapsed) {
		t.Fatalf("missing collapse event: %v", events)
	}
	if !hasEvent(events, EventTankDestroyed) {
		t.Fatalf("missing fatality event: %v", events)
	}
	if !hasEvent(events, EventWinner) {
		t.Fatalf("missing winner event: %v", events)
	}
	if !s.Decided || s.Winner != s.Game.Tanks[0] {
		t.Fatalf("collapse fatality must decide the match")
	}
}
