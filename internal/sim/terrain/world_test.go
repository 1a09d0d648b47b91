package terrain

import "testing"

// flatSettings produces a perfectly flat battlefield: with min == max every
// noise layer has zero amplitude, so all elevation samples land on 12 and
// every column's standing row is 11.
func flatSettings() Settings {
	return Settings{
		Width:     24,
		Height:    24,
		MinHeight: 12,
		MaxHeight: 12,
		Smoothing: 0,
		Detail:    4,
		Seed:      1234,
		Style:     StyleClassic,
	}
}

func TestNew_Deterministic(t *testing.T) {
	s := DefaultSettings()
	s.Seed = 42
	a := New(s)
	b := New(s)
	if len(a.HeightMap) != len(b.HeightMap) {
		t.Fatalf("grid size mismatch: %d vs %d", len(a.HeightMap), len(b.HeightMap))
	}
	for i := range a.HeightMap {
		if a.HeightMap[i] != b.HeightMap[i] {
			t.Fatalf("sample %d differs: %f vs %f", i, a.HeightMap[i], b.HeightMap[i])
		}
	}

	s.Seed = 43
	c := New(s)
	same := true
	for i := range a.HeightMap {
		if a.HeightMap[i] != c.HeightMap[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different seeds produced identical terrain")
	}
}

func TestNew_HeightBounds(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		s := DefaultSettings()
		s.Seed = seed
		w := New(s)
		if w.GridWidth != s.Width*s.Detail {
			t.Fatalf("seed %d: grid width %d, want %d", seed, w.GridWidth, s.Width*s.Detail)
		}
		for i, h := range w.HeightMap {
			if h < s.MinHeight || h > s.MaxHeight {
				t.Fatalf("seed %d: sample %d out of bounds: %f", seed, i, h)
			}
			if h > float64(s.Height-2) {
				t.Fatalf("seed %d: sample %d above sky limit: %f", seed, i, h)
			}
		}
	}
}

func TestFlatWorld_SurfaceAndSolid(t *testing.T) {
	w := New(flatSettings())
	for _, h := range w.HeightMap {
		if h != 12 {
			t.Fatalf("expected flat elevation 12, got %f", h)
		}
	}
	for x := 0; x < w.Width; x++ {
		top, ok := w.HighestSolid(x)
		if !ok || top != 12 {
			t.Fatalf("column %d: highest solid %d ok=%v, want 12", x, top, ok)
		}
		surf, ok := w.SurfaceY(x)
		if !ok || surf != 11 {
			t.Fatalf("column %d: surface %d ok=%v, want 11", x, surf, ok)
		}
		if w.IsSolid(x, 11) {
			t.Fatalf("column %d: standing row must be open", x)
		}
		if !w.IsSolid(x, 12) {
			t.Fatalf("column %d: row below surface must be solid", x)
		}
	}
	if _, ok := w.SurfaceY(-1); ok {
		t.Fatalf("surface query out of bounds must fail")
	}
	if _, ok := w.SurfaceY(w.Width); ok {
		t.Fatalf("surface query out of bounds must fail")
	}
}

func TestSampleSDF_Signs(t *testing.T) {
	w := New(flatSettings())
	if d := w.SampleSDF(5, 10); d != 2 {
		t.Fatalf("above-ground SDF = %f, want 2", d)
	}
	if d := w.SampleSDF(5, 14); d != -2 {
		t.Fatalf("buried SDF = %f, want -2", d)
	}
	// Out-of-range x clamps instead of panicking.
	if d := w.SampleSDF(-5, 10); d != 2 {
		t.Fatalf("clamped SDF = %f, want 2", d)
	}
	if d := w.SampleSDF(1e9, 10); d != 2 {
		t.Fatalf("clamped SDF = %f, want 2", d)
	}
}

func TestGroundHeight_Range(t *testing.T) {
	w := New(flatSettings())
	if h, ok := w.GroundHeight(5.5); !ok || h != 12 {
		t.Fatalf("ground height = %f ok=%v, want 12", h, ok)
	}
	if _, ok := w.GroundHeight(-0.5); ok {
		t.Fatalf("negative x must fail")
	}
	if _, ok := w.GroundHeight(float64(w.Width)); ok {
		t.Fatalf("x past right edge must fail")
	}
}

func TestIsInside(t *testing.T) {
	w := New(flatSettings())
	cases := []struct {
		x, y int
		want bool
	}{
		{0, 0, true},
		{23, 23, true},
		{-1, 5, false},
		{24, 5, false},
		{5, -1, false},
		{5, 24, false},
	}
	for _, c := range cases {
		if got := w.IsInside(c.x, c.y); got != c.want {
			t.Fatalf("IsInside(%d,%d) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestRows_FlatWorld(t *testing.T) {
	w := New(flatSettings())
	rows := w.Rows()
	if len(rows) != w.Height {
		t.Fatalf("row count %d, want %d", len(rows), w.Height)
	}
	for y, row := range rows {
		if len(row) != w.Width {
			t.Fatalf("row %d width %d, want %d", y, len(row), w.Width)
		}
		want := byte(' ')
		if y >= 12 {
			want = '#'
		}
		for x := 0; x < len(row); x++ {
			if row[x] != want {
				t.Fatalf("row %d col %d = %q, want %q", y, x, row[x], want)
			}
		}
	}
}

func TestIsColumnBlocked(t *testing.T) {
	w := New(flatSettings())
	w.Buildings = append(w.Buildings, &Building{
		ID: 1, Left: 5, Right: 8, Base: 12,
		Floors: []*Floor{{Height: 1.5, MaxHP: 50, HP: 50}},
	})
	w.Rubble = append(w.Rubble, &RubbleSegment{
		Left: 14, Right: 16, Base: 12, Height: 1, MaxHP: 50, HP: 50,
	})

	if !w.IsColumnBlocked(6, false) {
		t.Fatalf("column inside building must be blocked")
	}
	if w.IsColumnBlocked(3, false) {
		t.Fatalf("open column must not be blocked")
	}
	if w.IsColumnBlocked(15, false) {
		t.Fatalf("rubble must be ignored when includeRubble is false")
	}
	if !w.IsColumnBlocked(15, true) {
		t.Fatalf("rubble must block when includeRubble is true")
	}

	w.Buildings[0].Collapsed = true
	if w.IsColumnBlocked(6, false) {
		t.Fatalf("collapsed building must not block")
	}
	w.Rubble[0].Destroyed = true
	if w.IsColumnBlocked(15, true) {
		t.Fatalf("destroyed rubble must not block")
	}
}
