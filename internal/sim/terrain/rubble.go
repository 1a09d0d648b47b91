package terrain

import "math"

// RubbleMaxHP is the hit-point pool of every freshly spawned debris mound.
const RubbleMaxHP = 50

// RubbleSegment is the debris mound left by a fully collapsed building. It
// blocks movement through its column and offers a collision surface until it
// is shot away.
type RubbleSegment struct {
	Left      float64
	Right     float64
	Base      float64
	Height    float64
	MaxHP     int
	HP        int
	Destroyed bool
}

func (s *RubbleSegment) HPFraction() float64 {
	if s.MaxHP <= 0 {
		return 0
	}
	return float64(s.HP) / float64(s.MaxHP)
}

func (w *World) spawnRubble(b *Building) {
	height := math.Max(0.8, b.TotalHeight()*0.35)
	seg := &RubbleSegment{
		Left:   b.Left,
		Right:  b.Right,
		Base:   b.Base,
		Height: height,
		MaxHP:  RubbleMaxHP,
		HP:     RubbleMaxHP,
	}
	w.Rubble = append(w.Rubble, seg)
}

// RubbleHitTest finds the rubble segment containing the point, if any.
func (w *World) RubbleHitTest(x, y float64) (*RubbleSegment, bool) {
	for _, seg := range w.Rubble {
		if seg.Destroyed {
			continue
		}
		if x < seg.Left-hitMarginX || x > seg.Right+hitMarginX {
			continue
		}
		if y >= seg.Base-seg.Height-hitMarginY && y <= seg.Base+hitMarginY {
			return seg, true
		}
	}
	return nil, false
}

// DamageRubble applies damage to a segment. Destroyed segments persist as
// terminal-state records and no longer block or collide.
func (w *World) DamageRubble(seg *RubbleSegment, amount int) {
	if seg == nil || seg.Destroyed || amount <= 0 {
		return
	}
	seg.HP -= amount
	if seg.HP <= 0 {
		seg.HP = 0
		seg.Destroyed = true
	}
}
