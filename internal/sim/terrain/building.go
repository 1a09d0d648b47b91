package terrain

import "math"

// Hit-test tolerance margins in world units.
const (
	hitMarginX = 0.15
	hitMarginY = 0.05
)

// Floor is one destructible horizontal slice of a building. Destruction is
// monotonic: once HP reaches zero the floor stays destroyed.
type Floor struct {
	Height    float64
	MaxHP     int
	HP        int
	Destroyed bool
}

func (f *Floor) Damage(amount int) {
	if f.Destroyed || amount <= 0 {
		return
	}
	f.HP -= amount
	if f.HP <= 0 {
		f.HP = 0
		f.Destroyed = true
	}
}

func (f *Floor) HPFraction() float64 {
	if f.MaxHP <= 0 {
		return 0
	}
	return float64(f.HP) / float64(f.MaxHP)
}

// Building is a stack of floors attached to the terrain at Base (elevation of
// the ground line; floors extend upward, i.e. toward smaller y).
type Building struct {
	ID     int
	Left   float64
	Right  float64
	Base   float64
	Floors []*Floor
	Style  string

	Unstable  bool
	Collapsed bool
}

func (b *Building) Width() float64 { return b.Right - b.Left }

func (b *Building) CenterX() float64 { return (b.Left + b.Right) * 0.5 }

func (b *Building) TotalHeight() float64 {
	total := 0.0
	for _, f := range b.Floors {
		total += f.Height
	}
	return total
}

// FirstIntactFloorIndex returns the lowest floor that still has hit points.
func (b *Building) FirstIntactFloorIndex() (int, bool) {
	for i, f := range b.Floors {
		if !f.Destroyed {
			return i, true
		}
	}
	return 0, false
}

// floorSpan returns the vertical extent of floor i: top < bottom in world y.
func (b *Building) floorSpan(i int) (top, bottom float64) {
	bottom = b.Base
	for j := 0; j < i; j++ {
		bottom -= b.Floors[j].Height
	}
	top = bottom - b.Floors[i].Height
	return top, bottom
}

// BuildingHitTest finds the floor containing the point, if any. Floors are
// tested top to bottom; collapsed buildings are skipped, but destroyed floors
// of standing buildings remain hit-testable so a shot into an already
// rubblized floor still counts as a structural impact.
func (w *World) BuildingHitTest(x, y float64) (*Building, int, bool) {
	for _, b := range w.Buildings {
		if b.Collapsed {
			continue
		}
		if x < b.Left-hitMarginX || x > b.Right+hitMarginX {
			continue
		}
		for i := len(b.Floors) - 1; i >= 0; i-- {
			top, bottom := b.floorSpan(i)
			if y >= top-hitMarginY && y <= bottom+hitMarginY {
				return b, i, true
			}
		}
	}
	return nil, 0, false
}

type pendingCollapse struct {
	building *Building
	timer    float64
}

// ScheduleBuildingCollapse arms a delayed collapse for the building. Already
// pending or collapsed buildings are left alone.
func (w *World) ScheduleBuildingCollapse(b *Building, delay float64) {
	if b == nil || b.Collapsed {
		return
	}
	for _, p := range w.pending {
		if p.building == b {
			return
		}
	}
	w.pending = append(w.pending, &pendingCollapse{building: b, timer: delay})
}

// CollapsePending reports whether a collapse is armed for the building.
func (w *World) CollapsePending(b *Building) bool {
	for _, p := range w.pending {
		if p.building == b {
			return true
		}
	}
	return false
}

// UpdateCollapsingBuildings advances collapse countdowns and returns the
// buildings that collapsed this tick. Each collapse destroys the whole
// structure, carves its footprint out of the terrain and leaves rubble.
func (w *World) UpdateCollapsingBuildings(dt float64) []*Building {
	if len(w.pending) == 0 {
		return nil
	}
	var collapsed []*Building
	remaining := w.pending[:0]
	for _, p := range w.pending {
		p.timer -= dt
		if p.timer > 0 {
			remaining = append(remaining, p)
			continue
		}
		w.collapseBuilding(p.building)
		collapsed = append(collapsed, p.building)
	}
	w.pending = remaining
	return collapsed
}

func (w *World) collapseBuilding(b *Building) {
	if b.Collapsed {
		return
	}
	for _, f := range b.Floors {
		f.HP = 0
		f.Destroyed = true
	}
	b.Collapsed = true
	b.Unstable = false

	radius := math.Max(1.2, b.Width()*0.8)
	w.CarveCircle(b.CenterX(), b.Base, radius)
	w.spawnRubble(b)
}
