package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tanx.game/internal/sim/terrain"
)

// Tuning bundles every gameplay constant the simulation consumes. Values are
// loaded once at startup; the sim never re-reads the file mid-match.
type Tuning struct {
	Gameplay Gameplay         `yaml:"gameplay"`
	Session  Session          `yaml:"session"`
	Terrain  terrain.Settings `yaml:"terrain"`
}

type Gameplay struct {
	Gravity            float64 `yaml:"gravity"`
	ProjectileSpeed    float64 `yaml:"projectile_speed"`
	Damage             int     `yaml:"damage"`
	ExplosionRadius    float64 `yaml:"explosion_radius"`
	CraterSize         int     `yaml:"crater_size"`
	ProjectileTimeStep float64 `yaml:"projectile_time_step"`
	MaxProjectileSteps int     `yaml:"max_projectile_steps"`
}

type Session struct {
	ProjectileInterval float64 `yaml:"projectile_interval"`
	TickRateHz         int     `yaml:"tick_rate_hz"`
	WinnerDelay        float64 `yaml:"winner_delay"`
}

func Defaults() Tuning {
	return Tuning{
		Gameplay: Gameplay{
			Gravity:            0.35,
			ProjectileSpeed:    6.5,
			Damage:             25,
			ExplosionRadius:    1.8,
			CraterSize:         4,
			ProjectileTimeStep: 0.1,
			MaxProjectileSteps: 360,
		},
		Session: Session{
			ProjectileInterval: 0.03,
			TickRateHz:         30,
			WinnerDelay:        2.0,
		},
		Terrain: terrain.DefaultSettings(),
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.Gameplay.ProjectileTimeStep <= 0 {
		return fmt.Errorf("tuning: projectile_time_step must be positive")
	}
	if t.Gameplay.MaxProjectileSteps <= 0 {
		return fmt.Errorf("tuning: max_projectile_steps must be positive")
	}
	if t.Session.TickRateHz <= 0 {
		return fmt.Errorf("tuning: tick_rate_hz must be positive")
	}
	if t.Session.ProjectileInterval <= 0 {
		return fmt.Errorf("tuning: projectile_interval must be positive")
	}
	return t.Terrain.Validate()
}

// Digest is a stable fingerprint of the effective tuning, advertised to
// clients so replays can detect mismatched constants.
func (t Tuning) Digest() string {
	raw, err := yaml.Marshal(t)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8])
}
