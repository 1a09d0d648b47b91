package terrain

import "math"

// Urban generation parameters.
const (
	minBuildingSpan   = 3
	maxBuildingSpan   = 6
	maxFlatVariance   = 1.4
	minBuildingHeight = 1.5
	minFloorHP        = 45
	maxFloorHP        = 70
	skyClearance      = 2.0
)

// carveStreetsAndPlazas cuts shallow street depressions and raises plaza
// platforms into the generated height field. Runs before building placement
// so structures can settle onto the reshaped ground.
func (w *World) carveStreetsAndPlazas() {
	streets := 1 + w.rng.Intn(maxInt(1, w.Width/16))
	for i := 0; i < streets; i++ {
		center := w.rng.Float64() * float64(w.Width)
		halfWidth := 1.5 + w.rng.Float64()*2.0
		depth := 0.8 + w.rng.Float64()*1.2
		w.applyProfile(center, halfWidth, func(t float64) float64 {
			// Cosine bowl: deepest at the street center line.
			return depth * (math.Cos(t*math.Pi)*0.5 + 0.5)
		})
	}

	plazas := w.rng.Intn(1 + w.Width/24)
	for i := 0; i < plazas; i++ {
		center := w.rng.Float64() * float64(w.Width)
		halfWidth := 2.0 + w.rng.Float64()*2.5
		lift := 0.6 + w.rng.Float64()*0.9
		w.applyProfile(center, halfWidth, func(t float64) float64 {
			// Parabolic platform, raised (negative delta = less depth).
			return -lift * (1 - t*t)
		})
	}

	span := w.GridWidth
	for i := 0; i < span; i++ {
		w.HeightMap[i] = clamp(w.HeightMap[i], w.Settings.MinHeight, w.Settings.MaxHeight)
	}
	w.smoothHeights(0, span-1, 2)
}

// applyProfile adds delta(t) to every sample within halfWidth of center,
// where t is the normalized distance in [0,1].
func (w *World) applyProfile(center, halfWidth float64, delta func(t float64) float64) {
	detail := float64(w.Detail)
	start := maxInt(0, int((center-halfWidth)*detail))
	end := minInt(w.GridWidth-1, int((center+halfWidth)*detail))
	for hx := start; hx <= end; hx++ {
		xWorld := float64(hx) / detail
		t := math.Abs(xWorld-center) / halfWidth
		if t > 1 {
			continue
		}
		w.HeightMap[hx] += delta(t)
	}
}

// placeBuildings scans the skyline for flat-enough spans and erects 1-5 floor
// buildings on them. Floors that would poke above the sky clearance are
// popped; buildings left shorter than minBuildingHeight are rejected.
func (w *World) placeBuildings() {
	x := 1
	nextID := 1
	for x < w.Width-minBuildingSpan-1 {
		span := minBuildingSpan + w.rng.Intn(maxBuildingSpan-minBuildingSpan+1)
		if x+span >= w.Width-1 {
			break
		}
		base, flat := w.flatSpanBase(x, span)
		if !flat {
			x++
			continue
		}

		floorCount := 1 + w.rng.Intn(5)
		floors := make([]*Floor, 0, floorCount)
		for i := 0; i < floorCount; i++ {
			hp := minFloorHP + w.rng.Intn(maxFloorHP-minFloorHP+1)
			floors = append(floors, &Floor{
				Height: 1.4 + w.rng.Float64()*0.8,
				MaxHP:  hp,
				HP:     hp,
			})
		}
		// Pop floors that do not fit under the sky.
		total := 0.0
		for _, f := range floors {
			total += f.Height
		}
		for len(floors) > 0 && base-total < skyClearance {
			total -= floors[len(floors)-1].Height
			floors = floors[:len(floors)-1]
		}
		if len(floors) == 0 || total < minBuildingHeight {
			x += span
			continue
		}

		w.Buildings = append(w.Buildings, &Building{
			ID:     nextID,
			Left:   float64(x),
			Right:  float64(x + span),
			Base:   base,
			Floors: floors,
			Style:  StyleUrban,
		})
		nextID++
		// Leave a gap so streets stay passable between structures.
		x += span + 2 + w.rng.Intn(3)
	}
}

// flatSpanBase checks local height variance over [x, x+span] and returns the
// ground line buildings attach to.
func (w *World) flatSpanBase(x, span int) (float64, bool) {
	lowest, highest := math.Inf(1), math.Inf(-1)
	sum, samples := 0.0, 0
	for c := x; c <= x+span; c++ {
		h, ok := w.GroundHeight(float64(c))
		if !ok {
			return 0, false
		}
		lowest = math.Min(lowest, h)
		highest = math.Max(highest, h)
		sum += h
		samples++
	}
	if highest-lowest > maxFlatVariance {
		return 0, false
	}
	return sum / float64(samples), true
}
