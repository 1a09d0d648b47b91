// Package match hosts one artillery duel behind a channel inbox. All
// simulation state is owned by the runtime goroutine; transports only ever
// talk to it through Join/Leave/Do, so the sim itself stays single-threaded.
package match

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"tanx.game/internal/protocol"
	"tanx.game/internal/sim/game"
	"tanx.game/internal/sim/session"
	"tanx.game/internal/sim/terrain"
	"tanx.game/internal/sim/tuning"
)

// Recorder observes the match event stream. Implementations must not feed
// anything back into the simulation; they are a read-model only.
type Recorder interface {
	StartMatch(matchID string, settings terrain.Settings, tuningDigest string)
	RecordShot(matchID string, tick uint64, slot int, angle int, power float64, result *game.ShotResult)
	RecordEvent(matchID string, tick uint64, ev protocol.EventMsg)
	FinishMatch(matchID string, winnerSlot int)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) StartMatch(string, terrain.Settings, string)                          {}
func (NopRecorder) RecordShot(string, uint64, int, int, float64, *game.ShotResult)       {}
func (NopRecorder) RecordEvent(string, uint64, protocol.EventMsg)                        {}
func (NopRecorder) FinishMatch(string, int)                                              {}

type Config struct {
	ID          string // optional; a fresh uuid when empty
	Tuning      tuning.Tuning
	Seed        int64
	PlayerNames [2]string
	Recorder    Recorder
	Logger      *log.Logger
}

type Runtime struct {
	ID string

	cfg     Config
	sess    *session.Session
	log     *log.Logger
	rec     Recorder
	tick    uint64
	dirtyHM bool

	players  [2]*player
	watchers map[string]*player

	joinCh  chan joinRequest
	leaveCh chan string
	cmdCh   chan cmdEnvelope
	done    chan struct{}
}

type player struct {
	id   string
	name string
	slot int // -1 for spectators
	out  chan []byte
}

type joinRequest struct {
	name      string
	spectator bool
	out       chan []byte
	resp      chan JoinResponse
}

// JoinResponse carries everything a transport needs to greet a client.
type JoinResponse struct {
	OK       bool
	Code     string // protocol error code when !OK
	PlayerID string
	Slot     int
	Welcome  protocol.WelcomeMsg
}

type cmdEnvelope struct {
	playerID string
	cmd      protocol.CmdMsg
}

// New constructs the match. Spawn failure surfaces here, before any client
// can join.
func New(cfg Config) (*Runtime, error) {
	settings := cfg.Tuning.Terrain
	settings.Seed = cfg.Seed
	g, err := game.New(cfg.PlayerNames[0], cfg.PlayerNames[1], settings, cfg.Tuning.Gameplay)
	if err != nil {
		return nil, err
	}
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	r := &Runtime{
		ID:       id,
		cfg:      cfg,
		sess:     session.New(g, cfg.Tuning.Session.ProjectileInterval, cfg.Tuning.Session.WinnerDelay),
		log:      cfg.Logger,
		rec:      cfg.Recorder,
		watchers: make(map[string]*player),
		joinCh:   make(chan joinRequest),
		leaveCh:  make(chan string, 8),
		cmdCh:    make(chan cmdEnvelope, 64),
		done:     make(chan struct{}),
	}
	if r.log == nil {
		r.log = log.Default()
	}
	if r.rec == nil {
		r.rec = NopRecorder{}
	}
	r.rec.StartMatch(r.ID, settings, cfg.Tuning.Digest())
	return r, nil
}

// Session exposes the underlying session for in-process (headless) drivers
// and tests. Not safe to touch while Run is active.
func (r *Runtime) Session() *session.Session { return r.sess }

// Join registers a connection. The first two non-spectator joins get the
// player slots in order; later ones are rejected with E_MATCH_FULL.
func (r *Runtime) Join(name string, spectator bool, out chan []byte) JoinResponse {
	req := joinRequest{name: name, spectator: spectator, out: out, resp: make(chan JoinResponse, 1)}
	select {
	case r.joinCh <- req:
		return <-req.resp
	case <-r.done:
		return JoinResponse{OK: false, Code: protocol.ErrMatchOver}
	}
}

func (r *Runtime) Leave(playerID string) {
	select {
	case r.leaveCh <- playerID:
	case <-r.done:
	}
}

func (r *Runtime) Do(playerID string, cmd protocol.CmdMsg) {
	select {
	case r.cmdCh <- cmdEnvelope{playerID: playerID, cmd: cmd}:
	case <-r.done:
	}
}

// Run owns the simulation until the context ends. One fixed-rate ticker
// drives projectile playback, collapse timers and state broadcast.
func (r *Runtime) Run(ctx context.Context) {
	defer close(r.done)
	dt := 1.0 / float64(r.cfg.Tuning.Session.TickRateHz)
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	r.broadcastState()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-r.joinCh:
			req.resp <- r.handleJoin(req)
		case id := <-r.leaveCh:
			r.handleLeave(id)
		case env := <-r.cmdCh:
			r.handleCmd(env)
		case <-ticker.C:
			r.step(dt)
		}
	}
}

func (r *Runtime) handleJoin(req joinRequest) JoinResponse {
	p := &player{id: uuid.NewString(), name: req.name, slot: -1, out: req.out}
	if !req.spectator {
		slot := -1
		for i := range r.players {
			if r.players[i] == nil {
				slot = i
				break
			}
		}
		if slot < 0 {
			return JoinResponse{OK: false, Code: protocol.ErrMatchFull}
		}
		p.slot = slot
		r.players[slot] = p
	} else {
		r.watchers[p.id] = p
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		MatchID:         r.ID,
		PlayerID:        p.id,
		Slot:            p.slot,
		TuningDigest:    r.cfg.Tuning.Digest(),
		World:           r.worldInfo(),
	}
	r.log.Printf("join: %s slot=%d id=%s", p.name, p.slot, p.id)
	// Late joiners need the current state immediately.
	r.sendTo(p, r.stateMsg(true))
	return JoinResponse{OK: true, PlayerID: p.id, Slot: p.slot, Welcome: welcome}
}

func (r *Runtime) handleLeave(playerID string) {
	for i := range r.players {
		if r.players[i] != nil && r.players[i].id == playerID {
			r.log.Printf("leave: slot=%d id=%s", i, playerID)
			r.players[i] = nil
			return
		}
	}
	delete(r.watchers, playerID)
}

func (r *Runtime) worldInfo() protocol.WorldInfo {
	w := r.sess.Game.World
	hm := make([]float64, len(w.HeightMap))
	copy(hm, w.HeightMap)
	return protocol.WorldInfo{
		Width:     w.Width,
		Height:    w.Height,
		Detail:    w.Detail,
		Seed:      w.Settings.Seed,
		Style:     w.Settings.Style,
		HeightMap: hm,
	}
}
