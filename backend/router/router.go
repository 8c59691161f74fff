package router

import (
	"context"
	"sync"
	"time"

	"github.com/metaestate/showroom/backend/model"
	"github.com/rs/zerolog"
)

const defaultSendTimeout = time.Second

// Router fans out server events to connected wires. Audiences are "all",
// "all but one" (movement echo suppression) and "exactly one" (private
// chat, certificates, error events). Delivery is fire and forget: a wire
// that cannot accept a frame within the send timeout is skipped.
type Router struct {
	logger zerolog.Logger
	mx     *sync.RWMutex
	wires  map[string]model.Wire
}

func New(logger *zerolog.Logger) *Router {
	return &Router{
		logger: logger.With().Str("component", "router").Logger(),
		mx:     &sync.RWMutex{},
		wires:  make(map[string]model.Wire),
	}
}

func (rt *Router) Connect(id string, wire model.Wire) {
	rt.mx.Lock()
	rt.wires[id] = wire
	rt.mx.Unlock()
	rt.logger.Debug().Str("id", id).Msg("wire connected")
}

func (rt *Router) Disconnect(id string) {
	rt.mx.Lock()
	delete(rt.wires, id)
	rt.mx.Unlock()
	rt.logger.Debug().Str("id", id).Msg("wire disconnected")
}

// BroadcastAll delivers env to every connected wire, sender included.
func (rt *Router) BroadcastAll(ctx context.Context, env model.Envelope) {
	for id, wire := range rt.snapshot() {
		if canceled := rt.send(ctx, env, id, wire.TX); canceled {
			return
		}
	}
}

// BroadcastOthers delivers env to every connected wire except excludeID.
// Used for movement updates: the mover's client already holds the
// authoritative value, so the self-echo is suppressed.
func (rt *Router) BroadcastOthers(ctx context.Context, env model.Envelope, excludeID string) {
	for id, wire := range rt.snapshot() {
		if id == excludeID {
			continue
		}
		if canceled := rt.send(ctx, env, id, wire.TX); canceled {
			return
		}
	}
}

// DeliverPrivate delivers env to exactly one wire. A missing recipient is a
// soft failure: false is returned and nothing else happens.
func (rt *Router) DeliverPrivate(ctx context.Context, env model.Envelope, recipientID string) bool {
	rt.mx.RLock()
	wire, ok := rt.wires[recipientID]
	rt.mx.RUnlock()
	if !ok {
		rt.logger.Debug().
			Str("dst", recipientID).
			Str("type", env.Type).
			Msg("cannot deliver, recipient not connected")
		return false
	}
	return !rt.send(ctx, env, recipientID, wire.TX)
}

func (rt *Router) snapshot() map[string]model.Wire {
	rt.mx.RLock()
	defer rt.mx.RUnlock()

	out := make(map[string]model.Wire, len(rt.wires))
	for id, wire := range rt.wires {
		out[id] = wire
	}
	return out
}

// send pushes env onto tx, giving up after the send timeout so one stuck
// connection cannot stall a broadcast. Returns true if ctx was canceled.
func (rt *Router) send(ctx context.Context, env model.Envelope, dst string, tx chan<- model.Envelope) bool {
	select {
	case <-ctx.Done():
		return true
	default:
	}

	t := time.NewTimer(defaultSendTimeout)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return true
	case <-t.C:
		rt.logger.Error().Str("dst", dst).Str("type", env.Type).Msg("dead wire, frame dropped")
	case tx <- env:
	}
	return false
}
