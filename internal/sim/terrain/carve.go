package terrain

import "math"

// CarveCircle removes terrain around an impact point. Inside the radius the
// elevation is pushed down toward a cosine-profiled crater floor, capped at
// the configured max_height. The carve profile is a pure function of
// (cx, cy, radius) combined into the height map by element-wise max, so
// carving never restores material, re-carving the same point is a no-op,
// and cells beyond the radius are untouched.
func (w *World) CarveCircle(cx, cy, radius float64) {
	if radius <= 0 {
		return
	}
	detail := float64(w.Detail)
	start := maxInt(0, int((cx-radius)*detail))
	end := minInt(w.GridWidth-1, int((cx+radius)*detail))
	if start > end {
		return
	}

	craterDepth := radius * 0.7

	// Build the target profile over the affected span, then smooth the
	// profile itself. Cells outside the bowl keep a sentinel and are never
	// raised.
	profile := make([]float64, end-start+1)
	lo, hi := -1, -1
	for hx := start; hx <= end; hx++ {
		xWorld := float64(hx) / detail
		dist := math.Abs(xWorld - cx)
		i := hx - start
		if dist > radius {
			profile[i] = math.Inf(-1)
			continue
		}
		bowl := math.Cos(dist/radius*math.Pi)*0.5 + 0.5
		profile[i] = cy + bowl*craterDepth
		if lo < 0 {
			lo = i
		}
		hi = i
	}
	if lo < 0 {
		return
	}
	smoothProfile(profile[lo:hi+1], 4)

	floor := math.Min(w.Settings.MaxHeight, float64(w.Height-1))
	for i := lo; i <= hi; i++ {
		target := math.Min(profile[i], floor)
		hx := start + i
		if target > w.HeightMap[hx] {
			w.HeightMap[hx] = target
		}
	}
}

// CarveSquare approximates a square blast by a circle of the same diagonal.
func (w *World) CarveSquare(cx, cy float64, size int) {
	radius := math.Max(1, float64(size)) / math.Sqrt2
	w.CarveCircle(cx, cy, radius)
}

func smoothProfile(p []float64, iterations int) {
	if len(p) < 2 {
		return
	}
	kernel := [4]float64{0.15, 0.35, 0.35, 0.15}
	half := len(kernel) / 2
	temp := make([]float64, len(p))
	copy(temp, p)
	for it := 0; it < iterations; it++ {
		for i := range p {
			accum, weight := 0.0, 0.0
			for k, kw := range kernel {
				idx := clampInt(i+k-half, 0, len(p)-1)
				accum += temp[idx] * kw
				weight += kw
			}
			p[i] = accum / weight
		}
		copy(temp, p)
	}
}
