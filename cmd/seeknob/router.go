package main

import (
	"context"
	"log/slog"
)

// ============================================================================
// Router Loop - single owner of RouterState
// ============================================================================
//
// Device listeners, the UI and the control socket only send Events. This
// goroutine is the only one that reads or writes RouterState, so seek step
// and marker updates never race.
//
//   - The playback-active flag is read from the player for every action and
//     stamped into the event before reduction; it is never cached.
//   - Reduce -> Commands -> runEffect -> observation Events -> Reduce, through
//     explicit queues (no re-entrant execution).
//   - A command in progress always completes; cancellation is checked between events.
//   - Marker loads hash the whole media file, so they run on their own goroutine
//     and report back through loadResults; actions keep flowing meanwhile.
//
// ============================================================================

// runRouter consumes events until ctx is canceled or events is closed.
// broadcasts may be nil when nobody listens for state changes.
func runRouter(
	ctx context.Context,
	events <-chan Event,
	deps effectDeps,
	cfg RouterConfig,
	state *RouterState,
	broadcasts chan<- StateBroadcast,
	logger *slog.Logger,
) {
	if state == nil {
		state = NewRouterState(defaultSeekStep)
	}

	var eventQueue []Event
	var cmdQueue []Command

	loadResults := make(chan Event, 4)
	stopped := make(chan struct{})
	defer close(stopped)

	// loadInBackground runs a marker load off the router goroutine.
	loadInBackground := func(cmd CmdLoadMarkers) {
		go runEffect(deps, cmd, logger, func(ev Event) {
			select {
			case loadResults <- ev:
			case <-stopped:
			}
		})
	}

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}

	publish := func(bcs []StateBroadcast) {
		if broadcasts == nil {
			return
		}
		for _, b := range bcs {
			// Never block the router on websocket fan-out.
			select {
			case broadcasts <- b:
			default:
				logger.Warn("state broadcast channel full; dropping broadcast")
			}
		}
	}

	// Reduce all queued events, enqueuing any resulting commands.
	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, stampPlayback(ev, deps.player), cfg)
			if rr.State != nil {
				state = rr.State
			}
			cmdQueue = append(cmdQueue, rr.Commands...)
			publish(rr.Broadcasts)
		}
	}

	// Execute all queued commands, enqueuing observation events.
	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]

			if load, ok := cmd.(CmdLoadMarkers); ok && deps.markers != nil {
				logger.Debug("starting marker load", "path", load.Path)
				loadInBackground(load)
				continue
			}

			logger.Debug("executing command", "command", cmd.String())
			runEffect(deps, cmd, logger, enqueueEvent)

			// Observations are reduced promptly so follow-up commands run in order.
			flushEvents()
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("router stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("router stopping (events channel closed)")
				return
			}
			if ae, isAction := ev.(ActionEvent); isAction {
				logger.Debug("action", "device", ae.Device, "action", ae.Action.String())
			}
			enqueueEvent(ev)
			flushEvents()
			flushCommands()

		case ev := <-loadResults:
			enqueueEvent(ev)
			flushEvents()
			flushCommands()
		}
	}
}

// stampPlayback fills the live playback flag on events whose reduction depends on it.
func stampPlayback(ev Event, player PlayerClient) Event {
	active := player != nil && player.IsActive()
	switch e := ev.(type) {
	case ActionEvent:
		e.PlaybackActive = active
		return e
	case RequestStateSnapshot:
		e.PlaybackActive = active
		return e
	}
	return ev
}
