package game

import (
	"fmt"

	"tanx.game/internal/sim/terrain"
)

// Tank is a player-controlled actor. Its y coordinate is always derived from
// the terrain surface of its column, never set freely.
type Tank struct {
	Name   string
	X      int
	Y      int
	Facing int // +1 right, -1 left

	HP          int
	TurretAngle int
	MinAngle    int
	MaxAngle    int

	MoveDistance int
	ShotPower    float64
	MinPower     float64
	MaxPower     float64
	PowerStep    float64

	SuperPower  float64
	LastCommand string
}

func NewTank(name string, x, y, facing int) *Tank {
	return &Tank{
		Name:         name,
		X:            x,
		Y:            y,
		Facing:       facing,
		HP:           100,
		TurretAngle:  45,
		MinAngle:     -75,
		MaxAngle:     75,
		MoveDistance: 1,
		ShotPower:    1.0,
		MinPower:     0.4,
		MaxPower:     1.8,
		PowerStep:    0.1,
	}
}

func (t *Tank) Alive() bool { return t.HP > 0 }

func (t *Tank) clampTurret() {
	if t.TurretAngle < t.MinAngle {
		t.TurretAngle = t.MinAngle
	}
	if t.TurretAngle > t.MaxAngle {
		t.TurretAngle = t.MaxAngle
	}
}

func (t *Tank) RaiseTurret(amount int) {
	t.TurretAngle += amount
	t.clampTurret()
	t.LastCommand = fmt.Sprintf("turret +%d", amount)
}

func (t *Tank) LowerTurret(amount int) {
	t.TurretAngle -= amount
	t.clampTurret()
	t.LastCommand = fmt.Sprintf("turret -%d", amount)
}

// IncreasePower nudges shot power up by the tank's step, clamped to the
// allowed range. Callers compare before/after to detect a saturated no-op.
func (t *Tank) IncreasePower() {
	t.ShotPower += t.PowerStep
	if t.ShotPower > t.MaxPower {
		t.ShotPower = t.MaxPower
	}
	t.LastCommand = fmt.Sprintf("power +%.2f", t.PowerStep)
}

func (t *Tank) DecreasePower() {
	t.ShotPower -= t.PowerStep
	if t.ShotPower < t.MinPower {
		t.ShotPower = t.MinPower
	}
	t.LastCommand = fmt.Sprintf("power -%.2f", t.PowerStep)
}

// Move walks one column in the given direction. It fails without mutating
// the tank when the destination is out of bounds, blocked by a standing
// building, has no surface, or would require climbing more than one cell.
func (t *Tank) Move(w *terrain.World, direction int) bool {
	targetX := t.X + direction*t.MoveDistance
	if targetX < 0 || targetX >= w.Width {
		return false
	}
	if w.IsColumnBlocked(targetX, false) {
		return false
	}
	surface, ok := w.SurfaceY(targetX)
	if !ok || surface < 0 {
		return false
	}
	if absInt(surface-t.Y) > 1 {
		return false
	}
	t.X = targetX
	t.Y = surface
	if direction < 0 {
		t.LastCommand = "left"
	} else {
		t.LastCommand = "right"
	}
	return true
}

// TakeDamage lowers hit points, flooring at zero.
func (t *Tank) TakeDamage(amount int) {
	t.HP -= amount
	if t.HP < 0 {
		t.HP = 0
	}
}

func (t *Tank) AddSuperPower(amount float64) {
	t.SuperPower += amount
	if t.SuperPower < 0 {
		t.SuperPower = 0
	}
	if t.SuperPower > 1 {
		t.SuperPower = 1
	}
}

func (t *Tank) ResetSuperPower() { t.SuperPower = 0 }

func (t *Tank) InfoLine() string {
	arrow := ">"
	if t.Facing < 0 {
		arrow = "<"
	}
	return fmt.Sprintf("%s HP:%3d Pos:%2d Angle:%3d%s Pow:%4.2fx",
		t.Name, t.HP, t.X, t.TurretAngle, arrow, t.ShotPower)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
