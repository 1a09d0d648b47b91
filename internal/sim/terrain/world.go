package terrain

import (
	"math"
	"math/rand"
	"strings"
)

// World is a destructible 2D battlefield described by a high-resolution
// height field. Urban worlds additionally carry buildings and rubble layered
// on top of the terrain.
type World struct {
	Settings  Settings
	Width     int
	Height    int
	Detail    int
	GridWidth int

	// One elevation sample per sub-cell column. Larger value = deeper.
	HeightMap []float64

	Buildings []*Building
	Rubble    []*RubbleSegment

	rng     *rand.Rand
	pending []*pendingCollapse
}

// New generates a world from the given settings. The RNG is owned by the
// world and seeded from Settings.Seed, so identical settings always produce
// an identical battlefield.
func New(settings Settings) *World {
	w := &World{
		Settings: settings,
		Width:    settings.Width,
		Height:   settings.Height,
		Detail:   maxInt(2, settings.Detail),
		rng:      rand.New(rand.NewSource(settings.Seed)),
	}
	w.GridWidth = w.Width * w.Detail
	w.HeightMap = make([]float64, w.GridWidth)
	w.generateHeightMap()
	if settings.Style == StyleUrban {
		w.carveStreetsAndPlazas()
		w.placeBuildings()
	}
	return w
}

func (w *World) generateHeightMap() {
	minH := w.Settings.MinHeight
	maxH := math.Min(float64(w.Height-2), w.Settings.MaxHeight)
	span := w.GridWidth

	layers := []struct {
		spacing  int
		strength float64
	}{
		{w.Detail * 18, 0.55},
		{w.Detail * 9, 0.3},
		{w.Detail * 4, 0.15},
	}
	for _, layer := range layers {
		noise := w.valueNoise(layer.spacing)
		amplitude := (maxH - minH) * layer.strength
		for i := 0; i < span; i++ {
			w.HeightMap[i] += (noise[i] - 0.5) * amplitude
		}
	}

	offset := (minH + maxH) * 0.5
	for i := 0; i < span; i++ {
		w.HeightMap[i] = clamp(offset+w.HeightMap[i], minH, maxH)
	}
	w.smoothHeights(0, span-1, 2*w.Settings.Smoothing)
}

// valueNoise returns smoothstep-interpolated value noise across the grid.
func (w *World) valueNoise(spacing int) []float64 {
	if spacing < 1 {
		spacing = 1
	}
	span := w.GridWidth
	controls := make([]float64, span/spacing+3)
	for i := range controls {
		controls[i] = w.rng.Float64()
	}
	noise := make([]float64, span)
	for hx := 0; hx < span; hx++ {
		idx := hx / spacing
		local := float64(hx%spacing) / float64(spacing)
		t := local * local * (3 - 2*local)
		noise[hx] = controls[idx]*(1-t) + controls[idx+1]*t
	}
	return noise
}

// IsInside reports whether the gameplay cell lies within world bounds.
func (w *World) IsInside(x, y int) bool {
	return x >= 0 && x < w.Width && y >= 0 && y < w.Height
}

// SampleSDF returns the signed distance to the ground surface at a point:
// positive above ground, negative when buried.
func (w *World) SampleSDF(x, y float64) float64 {
	x = clamp(x, 0, float64(w.Width)-1e-4)
	base := x * float64(w.Detail)
	ix := int(math.Floor(base))
	fx := base - float64(ix)
	h0 := w.HeightMap[ix]
	h1 := w.HeightMap[minInt(ix+1, w.GridWidth-1)]
	height := h0*(1-fx) + h1*fx
	return height - y
}

// IsSolid reports whether the center of the gameplay cell is below ground.
func (w *World) IsSolid(x, y int) bool {
	if !w.IsInside(x, y) {
		return false
	}
	centerY := float64(y) + 0.5
	hx := clampInt(int((float64(x)+0.5)*float64(w.Detail)), 0, w.GridWidth-1)
	return centerY >= w.HeightMap[hx]
}

// HighestSolid returns the smallest y whose cell is solid in the column.
func (w *World) HighestSolid(x int) (int, bool) {
	if x < 0 || x >= w.Width {
		return 0, false
	}
	hx := clampInt(x*w.Detail, 0, w.GridWidth-1)
	return int(math.Floor(w.HeightMap[hx])), true
}

// SurfaceY returns the row a tank stands on for a column: the first open cell
// above the topmost solid one.
func (w *World) SurfaceY(x int) (int, bool) {
	top, ok := w.HighestSolid(x)
	if !ok {
		return 0, false
	}
	return maxInt(0, top-1), true
}

// GroundHeight returns the interpolated elevation at a fractional column.
func (w *World) GroundHeight(x float64) (float64, bool) {
	if x < 0 || x > float64(w.Width)-1e-4 {
		return 0, false
	}
	base := x * float64(w.Detail)
	ix := int(math.Floor(base))
	fx := base - float64(ix)
	h0 := w.HeightMap[ix]
	h1 := w.HeightMap[minInt(ix+1, w.GridWidth-1)]
	return h0*(1-fx) + h1*fx, true
}

// IsColumnBlocked reports whether standing in the column is obstructed by a
// structure. Rubble can optionally be ignored (tanks may climb rubble but
// must not spawn inside it).
func (w *World) IsColumnBlocked(x int, includeRubble bool) bool {
	center := float64(x) + 0.5
	for _, b := range w.Buildings {
		if b.Collapsed {
			continue
		}
		if center >= b.Left && center <= b.Right {
			return true
		}
	}
	if includeRubble {
		for _, seg := range w.Rubble {
			if seg.Destroyed {
				continue
			}
			if center >= seg.Left && center <= seg.Right {
				return true
			}
		}
	}
	return false
}

// Rows renders the terrain as ASCII rows, one string per gameplay row.
// Debug aid only.
func (w *World) Rows() []string {
	rows := make([]string, 0, w.Height)
	for y := 0; y < w.Height; y++ {
		var sb strings.Builder
		center := float64(y) + 0.5
		for x := 0; x < w.Width; x++ {
			hx := clampInt(int((float64(x)+0.5)*float64(w.Detail)), 0, w.GridWidth-1)
			if center >= w.HeightMap[hx] {
				sb.WriteByte('#')
			} else {
				sb.WriteByte(' ')
			}
		}
		rows = append(rows, sb.String())
	}
	return rows
}

// smoothHeights applies a 4-tap kernel over the inclusive sample range,
// keeping every value within the configured height bounds.
func (w *World) smoothHeights(start, end, iterations int) {
	if start >= end {
		return
	}
	kernel := [4]float64{0.15, 0.35, 0.35, 0.15}
	half := len(kernel) / 2
	temp := make([]float64, len(w.HeightMap))
	copy(temp, w.HeightMap)
	for it := 0; it < iterations; it++ {
		for hx := start; hx <= end; hx++ {
			accum, weight := 0.0, 0.0
			for k, kw := range kernel {
				idx := clampInt(hx+k-half, start, end)
				accum += temp[idx] * kw
				weight += kw
			}
			w.HeightMap[hx] = clamp(accum/weight, w.Settings.MinHeight, w.Settings.MaxHeight)
		}
		copy(temp, w.HeightMap)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
