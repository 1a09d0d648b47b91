// Command bot joins a match over websocket and plays its turns with the shot
// planner. It mirrors the server's terrain from STATE height-map snapshots,
// so its local simulation stays a faithful oracle for shot search.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"tanx.game/internal/protocol"
	"tanx.game/internal/sim/game"
	"tanx.game/internal/sim/planner"
	"tanx.game/internal/sim/terrain"
	"tanx.game/internal/sim/tuning"
)

func main() {
	var (
		url         = flag.String("url", "ws://127.0.0.1:8080/v1/ws", "match websocket url")
		name        = flag.String("name", "bot", "player name")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (must match the server's)")
		plannerSeed = flag.Int64("planner_seed", 1337, "shot planner rng seed")
		dumpTerrain = flag.Bool("dump_terrain", false, "log an ascii render of the mirrored terrain")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags)

	tune := tuning.Defaults()
	if tp := strings.TrimSpace(*tuningPath); tp != "" {
		loaded, err := tuning.Load(tp)
		if err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = loaded
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial %s: %v", *url, err)
	}
	defer conn.Close()

	send := func(v any) {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(v); err != nil {
			logger.Fatalf("write: %v", err)
		}
	}

	send(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, PlayerName: *name})

	var welcome protocol.WelcomeMsg
	if err := readMsg(conn, protocol.TypeWelcome, &welcome); err != nil {
		logger.Fatalf("handshake: %v", err)
	}
	if welcome.TuningDigest != tune.Digest() {
		logger.Printf("warning: tuning digest mismatch (server %s, local %s)", welcome.TuningDigest, tune.Digest())
	}
	logger.Printf("joined match %s as slot %d", welcome.MatchID, welcome.Slot)

	settings := tune.Terrain
	settings.Seed = welcome.World.Seed
	settings.Width = welcome.World.Width
	settings.Height = welcome.World.Height
	settings.Detail = welcome.World.Detail
	if welcome.World.Style != "" {
		settings.Style = welcome.World.Style
	}
	local, err := game.New("left", "right", settings, tune.Gameplay)
	if err != nil {
		logger.Fatalf("mirror match: %v", err)
	}
	p := planner.New(*plannerSeed)

	b := &bot{
		logger: logger,
		slot:   welcome.Slot,
		local:  local,
		plan:   p,
		send:   send,
	}
	b.syncHeightMap(welcome.World.HeightMap)
	if *dumpTerrain {
		for _, row := range local.World.Rows() {
			logger.Printf("|%s|", row)
		}
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			logger.Fatalf("read: %v", err)
		}
		base, err := protocol.DecodeBase(raw)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(raw, &st); err != nil {
				continue
			}
			b.onState(st)
		case protocol.TypeEvent:
			var ev protocol.EventMsg
			if err := json.Unmarshal(raw, &ev); err != nil {
				continue
			}
			if ev.Kind == "winner" || ev.Kind == "draw" {
				logger.Printf("match over: %s %s", ev.Kind, ev.Tank)
				return
			}
		}
	}
}

type bot struct {
	logger *log.Logger
	slot   int
	local  *game.Game
	plan   *planner.Planner
	send   func(v any)

	firedThisTurn bool
}

func (b *bot) syncHeightMap(hm []float64) {
	if len(hm) == len(b.local.World.HeightMap) {
		copy(b.local.World.HeightMap, hm)
	}
}

// syncStructures mirrors building damage and rubble mounds onto the local
// world, so the planner does not aim through structures the server has
// already shot away.
func (b *bot) syncStructures(buildings []protocol.BuildingState, rubble []protocol.RubbleState) {
	w := b.local.World
	byID := make(map[int]*terrain.Building, len(w.Buildings))
	for _, lb := range w.Buildings {
		byID[lb.ID] = lb
	}
	for _, bs := range buildings {
		lb := byID[bs.ID]
		if lb == nil {
			continue
		}
		lb.Unstable = bs.Unstable
		lb.Collapsed = bs.Collapsed
		for i, fs := range bs.Floors {
			if i >= len(lb.Floors) {
				break
			}
			f := lb.Floors[i]
			f.Destroyed = fs.Destroyed
			f.HP = int(fs.HPFraction*float64(f.MaxHP) + 0.5)
			if f.Destroyed {
				f.HP = 0
			}
		}
	}
	w.Rubble = w.Rubble[:0]
	for _, rs := range rubble {
		w.Rubble = append(w.Rubble, &terrain.RubbleSegment{
			Left:      rs.Left,
			Right:     rs.Right,
			Base:      rs.Base,
			Height:    rs.Height,
			MaxHP:     terrain.RubbleMaxHP,
			HP:        int(rs.HPFraction*float64(terrain.RubbleMaxHP) + 0.5),
			Destroyed: rs.Destroyed,
		})
	}
}

// onState mirrors server state onto the local game, then takes the turn when
// it is ours and no projectile is in the air.
func (b *bot) onState(st protocol.StateMsg) {
	if len(st.HeightMap) > 0 {
		b.syncHeightMap(st.HeightMap)
	}
	b.syncStructures(st.Buildings, st.Rubble)
	if len(st.Tanks) == len(b.local.Tanks) {
		for i, ts := range st.Tanks {
			t := b.local.Tanks[i]
			t.X, t.Y, t.Facing = ts.X, ts.Y, ts.Facing
			t.HP = ts.HP
			t.TurretAngle = ts.TurretAngle
			t.ShotPower = ts.ShotPower
		}
	}
	if st.Over || st.Turn != b.slot || st.Projectile != nil {
		b.firedThisTurn = false
		return
	}
	if b.firedThisTurn {
		return
	}
	b.takeTurn()
	b.firedThisTurn = true
}

func (b *bot) takeTurn() {
	shooter := b.local.Tanks[b.slot]
	var targets []*game.Tank
	for i, t := range b.local.Tanks {
		if i != b.slot && t.Alive() {
			targets = append(targets, t)
		}
	}
	plan, ok := b.plan.FindBestShot(b.local, shooter, targets)
	if !ok {
		b.logger.Printf("no shot found, firing as aimed")
		b.fire()
		return
	}
	b.logger.Printf("plan: angle=%d power=%.2f confidence=%.2f", plan.Angle, plan.Power, plan.Confidence)

	// The protocol only carries relative adjustments, mirroring the input
	// commands a human has; walk the turret and power onto the plan.
	cmd := func(kind string, dir int, delta float64) {
		b.send(protocol.CmdMsg{
			Type:            protocol.TypeCmd,
			ProtocolVersion: protocol.Version,
			Cmd:             kind,
			Dir:             dir,
			Delta:           delta,
		})
	}
	if diff := plan.Angle - shooter.TurretAngle; diff != 0 {
		cmd(protocol.CmdAim, 0, float64(diff))
	}
	steps := int((plan.Power - shooter.ShotPower) / shooter.PowerStep)
	for i := 0; i < steps; i++ {
		cmd(protocol.CmdPower, 0, 1)
	}
	for i := 0; i > steps; i-- {
		cmd(protocol.CmdPower, 0, -1)
	}
	b.fire()
}

func (b *bot) fire() {
	b.send(protocol.CmdMsg{Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, Cmd: protocol.CmdFire})
}

func readMsg(conn *websocket.Conn, wantType string, v any) error {
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		base, err := protocol.DecodeBase(raw)
		if err != nil {
			continue
		}
		if base.Type != wantType {
			continue
		}
		return json.Unmarshal(raw, v)
	}
}
