package match

import (
	"tanx.game/internal/persistence/replay"
	"tanx.game/internal/protocol"
	"tanx.game/internal/sim/game"
	"tanx.game/internal/sim/terrain"
)

// MultiRecorder fans the event stream out to several recorders.
type MultiRecorder []Recorder

func (m MultiRecorder) StartMatch(id string, s terrain.Settings, digest string) {
	for _, r := range m {
		r.StartMatch(id, s, digest)
	}
}

func (m MultiRecorder) RecordShot(id string, tick uint64, slot int, angle int, power float64, res *game.ShotResult) {
	for _, r := range m {
		r.RecordShot(id, tick, slot, angle, power, res)
	}
}

func (m MultiRecorder) RecordEvent(id string, tick uint64, ev protocol.EventMsg) {
	for _, r := range m {
		r.RecordEvent(id, tick, ev)
	}
}

func (m MultiRecorder) FinishMatch(id string, winnerSlot int) {
	for _, r := range m {
		r.FinishMatch(id, winnerSlot)
	}
}

// ReplayRecorder writes the stream to a compressed replay log.
type ReplayRecorder struct {
	W *replay.Writer
}

type replayHeader struct {
	Record       string           `json:"record"`
	MatchID      string           `json:"match_id"`
	Settings     terrain.Settings `json:"settings"`
	TuningDigest string           `json:"tuning_digest"`
}

type replayShot struct {
	Record  string  `json:"record"`
	Tick    uint64  `json:"tick"`
	Slot    int     `json:"slot"`
	Angle   int     `json:"angle"`
	Power   float64 `json:"power"`
	Kind    string  `json:"kind"`
	ImpactX float64 `json:"impact_x"`
	ImpactY float64 `json:"impact_y"`
	Fatal   bool    `json:"fatal"`
}

type replayFinish struct {
	Record     string `json:"record"`
	WinnerSlot int    `json:"winner_slot"`
}

func (r ReplayRecorder) StartMatch(id string, s terrain.Settings, digest string) {
	_ = r.W.Write(replayHeader{Record: "match", MatchID: id, Settings: s, TuningDigest: digest})
}

func (r ReplayRecorder) RecordShot(_ string, tick uint64, slot int, angle int, power float64, res *game.ShotResult) {
	_ = r.W.Write(replayShot{
		Record:  "shot",
		Tick:    tick,
		Slot:    slot,
		Angle:   angle,
		Power:   power,
		Kind:    string(res.Kind()),
		ImpactX: res.ImpactX,
		ImpactY: res.ImpactY,
		Fatal:   res.FatalHit,
	})
}

func (r ReplayRecorder) RecordEvent(_ string, _ uint64, ev protocol.EventMsg) {
	_ = r.W.Write(ev)
}

func (r ReplayRecorder) FinishMatch(_ string, winnerSlot int) {
	_ = r.W.Write(replayFinish{Record: "finish", WinnerSlot: winnerSlot})
}
