package terrain

import "fmt"

// Terrain styles.
const (
	StyleClassic = "classic"
	StyleUrban   = "urban"
)

// Settings configures procedural terrain generation. Width and Height are in
// gameplay cells; Detail is the number of height samples per cell. Elevation
// values grow downward: a larger value means deeper ground.
type Settings struct {
	Width     int     `yaml:"width" json:"width"`
	Height    int     `yaml:"height" json:"height"`
	MinHeight float64 `yaml:"min_height" json:"min_height"`
	MaxHeight float64 `yaml:"max_height" json:"max_height"`
	Smoothing int     `yaml:"smoothing" json:"smoothing"`
	Detail    int     `yaml:"detail" json:"detail"`
	Seed      int64   `yaml:"seed" json:"seed"`
	Style     string  `yaml:"style" json:"style"`
}

func DefaultSettings() Settings {
	return Settings{
		Width:     48,
		Height:    36,
		MinHeight: 12,
		MaxHeight: 26,
		Smoothing: 3,
		Detail:    6,
		Style:     StyleClassic,
	}
}

func (s Settings) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("terrain: non-positive dimensions %dx%d", s.Width, s.Height)
	}
	if s.MinHeight >= s.MaxHeight {
		return fmt.Errorf("terrain: min_height %.2f must be below max_height %.2f", s.MinHeight, s.MaxHeight)
	}
	if s.MaxHeight >= float64(s.Height) {
		return fmt.Errorf("terrain: max_height %.2f must be below world height %d", s.MaxHeight, s.Height)
	}
	if s.Style != "" && s.Style != StyleClassic && s.Style != StyleUrban {
		return fmt.Errorf("terrain: unknown style %q", s.Style)
	}
	return nil
}
