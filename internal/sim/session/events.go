package session

import "tanx.game/internal/sim/game"

// EventKind tags a structured session event. Transports and clients format
// user-facing text from these; the simulation core never builds strings.
type EventKind string

const (
	EventTurnStarted       EventKind = "turn_started"
	EventMoved             EventKind = "moved"
	EventMoveBlocked       EventKind = "move_blocked"
	EventFired             EventKind = "fired"
	EventDirectHit         EventKind = "direct_hit"
	EventBuildingHit       EventKind = "building_hit"
	EventRubbleHit         EventKind = "rubble_hit"
	EventTerrainImpact     EventKind = "terrain_impact"
	EventOutOfBounds       EventKind = "out_of_bounds"
	EventTankDestroyed     EventKind = "tank_destroyed"
	EventBuildingCollapsed EventKind = "building_collapsed"
	EventWinner            EventKind = "winner"
	EventDraw              EventKind = "draw"
)

// Event is one state change the presentation layer may want to surface.
type Event struct {
	Kind EventKind

	Tank      *game.Tank // subject of the event, when any
	Target    *game.Tank // direct-hit victim
	Direction int        // moves: -1 or +1

	Building *EventBuilding
	ImpactX  float64
	ImpactY  float64
	Damage   int
}

// EventBuilding is the structural payload for building events.
type EventBuilding struct {
	ID    int
	Floor int
}
