package protocol

// Client commands carried by CmdMsg.
const (
	CmdMove  = "MOVE"
	CmdAim   = "AIM"
	CmdPower = "POWER"
	CmdFire  = "FIRE"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerName      string `json:"player_name"`
	Spectator       bool   `json:"spectator,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	MatchID         string    `json:"match_id"`
	PlayerID        string    `json:"player_id"`
	Slot            int       `json:"slot"` // 0 or 1; -1 for spectators
	TuningDigest    string    `json:"tuning_digest"`
	World           WorldInfo `json:"world"`
}

// WorldInfo is the terrain snapshot a client needs to draw the battlefield
// and to rebuild the match deterministically from the seed.
type WorldInfo struct {
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Detail    int       `json:"detail"`
	Seed      int64     `json:"seed"`
	Style     string    `json:"style"`
	HeightMap []float64 `json:"height_map"`
}

// CMD (client -> server)
type CmdMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Cmd             string  `json:"cmd"`
	Dir             int     `json:"dir,omitempty"`   // MOVE: -1 | +1
	Delta           float64 `json:"delta,omitempty"` // AIM: degrees; POWER: sign only
}

// STATE (server -> client), broadcast after every mutation and on a timer
// while a projectile is animating.
type StateMsg struct {
	Type       string          `json:"type"`
	Tick       uint64          `json:"tick"`
	Turn       int             `json:"turn"`
	Tanks      []TankState     `json:"tanks"`
	Projectile *PointState     `json:"projectile,omitempty"`
	Buildings  []BuildingState `json:"buildings,omitempty"`
	Rubble     []RubbleState   `json:"rubble,omitempty"`
	HeightMap  []float64       `json:"height_map,omitempty"` // present when terrain changed
	Over       bool            `json:"over"`
	WinnerSlot int             `json:"winner_slot"` // -1 while undecided or on a draw
}

type TankState struct {
	Name        string  `json:"name"`
	X           int     `json:"x"`
	Y           int     `json:"y"`
	Facing      int     `json:"facing"`
	HP          int     `json:"hp"`
	TurretAngle int     `json:"turret_angle"`
	ShotPower   float64 `json:"shot_power"`
	SuperPower  float64 `json:"super_power"`
	LastCommand string  `json:"last_command,omitempty"`
}

type PointState struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type BuildingState struct {
	ID        int          `json:"id"`
	Left      float64      `json:"left"`
	Right     float64      `json:"right"`
	Base      float64      `json:"base"`
	Unstable  bool         `json:"unstable"`
	Collapsed bool         `json:"collapsed"`
	Floors    []FloorState `json:"floors"`
}

type FloorState struct {
	Height     float64 `json:"height"`
	HPFraction float64 `json:"hp_fraction"`
	Destroyed  bool    `json:"destroyed"`
}

type RubbleState struct {
	Left       float64 `json:"left"`
	Right      float64 `json:"right"`
	Base       float64 `json:"base"`
	Height     float64 `json:"height"`
	HPFraction float64 `json:"hp_fraction"`
	Destroyed  bool    `json:"destroyed"`
}

// EVENT (server -> client)
type EventMsg struct {
	Type     string  `json:"type"`
	Tick     uint64  `json:"tick"`
	Kind     string  `json:"kind"`
	Tank     string  `json:"tank,omitempty"`
	Target   string  `json:"target,omitempty"`
	Building int     `json:"building,omitempty"`
	Floor    int     `json:"floor,omitempty"`
	ImpactX  float64 `json:"impact_x,omitempty"`
	ImpactY  float64 `json:"impact_y,omitempty"`
	Damage   int     `json:"damage,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
