package signal

import (
	"encoding/json"
	"fmt"
)

// Router classifies every inbound frame and forwards it to exactly one
// consumer. Responses are resolved synchronously so pending calls unblock
// in socket-delivery order; message and reaction consumers run on their
// own goroutine, because a consumer may itself issue a correlated call
// and the read loop must stay free to deliver that call's response.
type Router struct {
	correlator *Correlator
	account    string // the bot's own account, for self-message exclusion

	onMessage  func(*Envelope)
	onReaction func(*Envelope)
}

// NewRouter creates a router feeding responses into correlator
func NewRouter(correlator *Correlator, account string) *Router {
	return &Router{correlator: correlator, account: account}
}

// OnMessage sets the consumer for inbound data messages
func (r *Router) OnMessage(fn func(*Envelope)) {
	r.onMessage = fn
}

// OnReaction sets the consumer for inbound reactions
func (r *Router) OnReaction(fn func(*Envelope)) {
	r.onReaction = fn
}

// Route dispatches one parsed frame
func (r *Router) Route(frame *Frame) {
	// RPC response for a pending call
	if frame.ID != "" {
		if r.correlator.Resolve(frame) {
			return
		}
	}

	if frame.Method == "receive" {
		r.routeReceive(frame)
		return
	}

	// Unmatched error frames are asynchronous daemon warnings unrelated
	// to any specific call. Log and move on.
	if frame.Error != nil {
		fmt.Printf("[Router] Daemon error: %s\n", frame.Error.Message)
		return
	}

	// Anything else is ignored
}

func (r *Router) routeReceive(frame *Frame) {
	var params ReceiveParams
	if err := json.Unmarshal(frame.Params, &params); err != nil {
		fmt.Printf("[Router] Bad receive params: %v\n", err)
		return
	}
	env := params.Envelope
	if env == nil {
		return
	}

	if env.Reaction != nil {
		if r.onReaction != nil {
			go r.onReaction(env)
		}
		return
	}

	if env.DataMessage != nil {
		// Drop our own messages before they can loop back into dispatch
		if r.isSelf(env) {
			return
		}
		if r.onMessage != nil {
			go r.onMessage(env)
		}
	}
}

func (r *Router) isSelf(env *Envelope) bool {
	return env.Source == r.account || env.SourceNumber == r.account
}
