package match

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"

	"tanx.game/internal/protocol"
	"tanx.game/internal/sim/session"
)

func (r *Runtime) step(dt float64) {
	r.tick++

	if r.sess.IsAnimatingProjectile() {
		step := r.sess.UpdateProjectile(dt)
		if step.Finished {
			events := r.sess.ResolveProjectile(step.Result)
			r.dirtyHM = true
			r.publishEvents(events)
		}
		r.broadcastState()
	}

	if events := r.sess.Tick(dt); len(events) > 0 {
		r.dirtyHM = true
		r.publishEvents(events)
		r.broadcastState()
	}
}

func (r *Runtime) publishEvents(events []session.Event) {
	for _, ev := range events {
		msg := r.eventMsg(ev)
		r.rec.RecordEvent(r.ID, r.tick, msg)
		r.broadcast(msg)
		if ev.Kind == session.EventWinner || ev.Kind == session.EventDraw {
			r.rec.FinishMatch(r.ID, r.winnerSlot())
		}
	}
}

func (r *Runtime) eventMsg(ev session.Event) protocol.EventMsg {
	msg := protocol.EventMsg{
		Type:    protocol.TypeEvent,
		Tick:    r.tick,
		Kind:    string(ev.Kind),
		ImpactX: ev.ImpactX,
		ImpactY: ev.ImpactY,
		Damage:  ev.Damage,
	}
	if ev.Tank != nil {
		msg.Tank = ev.Tank.Name
	}
	if ev.Target != nil {
		msg.Target = ev.Target.Name
	}
	if ev.Building != nil {
		msg.Building = ev.Building.ID
		msg.Floor = ev.Building.Floor
	}
	return msg
}

func (r *Runtime) winnerSlot() int {
	if r.sess.Winner == nil {
		return -1
	}
	for i, t := range r.sess.Game.Tanks {
		if t == r.sess.Winner {
			return i
		}
	}
	return -1
}

func (r *Runtime) stateMsg(includeHeightMap bool) protocol.StateMsg {
	g := r.sess.Game
	msg := protocol.StateMsg{
		Type:       protocol.TypeState,
		Tick:       r.tick,
		Turn:       r.sess.CurrentPlayer,
		Over:       r.sess.Decided,
		WinnerSlot: r.winnerSlot(),
	}
	for _, t := range g.Tanks {
		msg.Tanks = append(msg.Tanks, protocol.TankState{
			Name:        t.Name,
			X:           t.X,
			Y:           t.Y,
			Facing:      t.Facing,
			HP:          t.HP,
			TurretAngle: t.TurretAngle,
			ShotPower:   t.ShotPower,
			SuperPower:  t.SuperPower,
			LastCommand: t.LastCommand,
		})
	}
	if p := r.sess.ProjectilePosition; p != nil {
		msg.Projectile = &protocol.PointState{X: p.X, Y: p.Y}
	}
	for _, b := range g.World.Buildings {
		bs := protocol.BuildingState{
			ID:        b.ID,
			Left:      b.Left,
			Right:     b.Right,
			Base:      b.Base,
			Unstable:  b.Unstable,
			Collapsed: b.Collapsed,
		}
		for _, f := range b.Floors {
			bs.Floors = append(bs.Floors, protocol.FloorState{
				Height:     f.Height,
				HPFraction: f.HPFraction(),
				Destroyed:  f.Destroyed,
			})
		}
		msg.Buildings = append(msg.Buildings, bs)
	}
	for _, seg := range g.World.Rubble {
		msg.Rubble = append(msg.Rubble, protocol.RubbleState{
			Left:       seg.Left,
			Right:      seg.Right,
			Base:       seg.Base,
			Height:     seg.Height,
			HPFraction: seg.HPFraction(),
			Destroyed:  seg.Destroyed,
		})
	}
	if includeHeightMap {
		hm := make([]float64, len(g.World.HeightMap))
		copy(hm, g.World.HeightMap)
		msg.HeightMap = hm
	}
	return msg
}

func (r *Runtime) broadcastState() {
	msg := r.stateMsg(r.dirtyHM)
	r.dirtyHM = false
	r.broadcast(msg)
}

func (r *Runtime) broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		r.log.Printf("broadcast marshal: %v", err)
		return
	}
	for i := range r.players {
		if r.players[i] != nil {
			r.sendBytes(r.players[i], b)
		}
	}
	for _, p := range r.watchers {
		r.sendBytes(p, b)
	}
}

func (r *Runtime) sendTo(p *player, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	r.sendBytes(p, b)
}

func (r *Runtime) sendBytes(p *player, b []byte) {
	// Slow consumers drop frames rather than stalling the sim.
	select {
	case p.out <- b:
	default:
	}
}

func (r *Runtime) sendError(p *player, code, message string) {
	r.sendTo(p, protocol.ErrorMsg{Type: protocol.TypeError, Code: code, Message: message})
}

// StateDigest is a stable hash of the full simulation state, used by
// determinism tests to compare identically seeded matches.
func (r *Runtime) StateDigest() string {
	h := sha256.New()
	g := r.sess.Game
	buf := make([]byte, 8)
	writeF := func(v float64) {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}
	writeI := func(v int) {
		binary.LittleEndian.PutUint64(buf, uint64(int64(v)))
		h.Write(buf)
	}
	for _, v := range g.World.HeightMap {
		writeF(v)
	}
	for _, t := range g.Tanks {
		writeI(t.X)
		writeI(t.Y)
		writeI(t.HP)
		writeI(t.TurretAngle)
		writeF(t.ShotPower)
		writeF(t.SuperPower)
	}
	for _, b := range g.World.Buildings {
		writeI(b.ID)
		for _, f := range b.Floors {
			writeI(f.HP)
		}
		if b.Collapsed {
			writeI(1)
		} else {
			writeI(0)
		}
	}
	for _, seg := range g.World.Rubble {
		writeI(seg.HP)
	}
	writeI(r.sess.CurrentPlayer)
	return hex.EncodeToString(h.Sum(nil)[:16])
}
