package match

import (
	"errors"
	"math"

	"tanx.game/internal/protocol"
	"tanx.game/internal/sim/session"
)

func (r *Runtime) handleCmd(env cmdEnvelope) {
	p := r.playerByID(env.playerID)
	if p == nil || p.slot < 0 {
		return
	}
	if r.sess.Decided {
		r.sendError(p, protocol.ErrMatchOver, "match is over")
		return
	}
	if p.slot != r.sess.CurrentPlayer {
		r.sendError(p, protocol.ErrNotYourTurn, "wait for your turn")
		return
	}
	if r.sess.IsAnimatingProjectile() {
		r.sendError(p, protocol.ErrBusy, "projectile in flight")
		return
	}

	tank := r.sess.CurrentTank()
	switch env.cmd.Cmd {
	case protocol.CmdMove:
		dir := env.cmd.Dir
		if dir != -1 && dir != 1 {
			r.sendError(p, protocol.ErrProtoBadRequest, "dir must be -1 or +1")
			return
		}
		ok, events := r.sess.AttemptMove(dir)
		if !ok {
			r.sendError(p, protocol.ErrBlocked, "cannot move that way")
		}
		r.publishEvents(events)
		r.broadcastState()

	case protocol.CmdAim:
		delta := int(math.Round(env.cmd.Delta))
		if delta == 0 {
			delta = 5
		}
		before := tank.TurretAngle
		if delta > 0 {
			tank.RaiseTurret(delta)
		} else {
			tank.LowerTurret(-delta)
		}
		if tank.TurretAngle == before {
			r.sendError(p, protocol.ErrAtLimit, "turret angle at limit")
		}
		r.broadcastState()

	case protocol.CmdPower:
		before := tank.ShotPower
		if env.cmd.Delta >= 0 {
			tank.IncreasePower()
		} else {
			tank.DecreasePower()
		}
		if tank.ShotPower == before {
			r.sendError(p, protocol.ErrAtLimit, "shot power at limit")
		}
		r.broadcastState()

	case protocol.CmdFire:
		result, err := r.sess.BeginProjectile(tank)
		if err != nil {
			if errors.Is(err, session.ErrProjectileInFlight) {
				r.sendError(p, protocol.ErrBusy, "projectile in flight")
			} else {
				r.sendError(p, protocol.ErrInternal, err.Error())
			}
			return
		}
		r.rec.RecordShot(r.ID, r.tick, p.slot, tank.TurretAngle, tank.ShotPower, result)
		r.publishEvents([]session.Event{{Kind: session.EventFired, Tank: tank}})
		r.broadcastState()

	default:
		r.sendError(p, protocol.ErrBadCommand, "unknown command")
	}
}

func (r *Runtime) playerByID(id string) *player {
	for i := range r.players {
		if r.players[i] != nil && r.players[i].id == id {
			return r.players[i]
		}
	}
	return r.watchers[id]
}
