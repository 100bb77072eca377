package input

import (
	"context"
	"log/slog"

	hook "github.com/robotn/gohook"
	"github.com/screenagent/screenagent/internal/agent"
)

// Source turns global hotkey presses into the agent's named signals.
type Source struct {
	toggleKey  string
	captureKey string
	exitKey    string
}

// New returns a source for the three configured hotkeys.
func New(toggleKey, captureKey, exitKey string) *Source {
	return &Source{
		toggleKey:  toggleKey,
		captureKey: captureKey,
		exitKey:    exitKey,
	}
}

// Signals registers the hotkeys and starts the OS keyboard hook. The
// returned channel is buffered: keys pressed while the orchestrator
// is blocked in a delivery call are queued for its next poll, not
// dropped. The channel closes when ctx is cancelled and the hook has
// drained.
func (s *Source) Signals(ctx context.Context) <-chan agent.Signal {
	signals := make(chan agent.Signal, 64)

	emit := func(sig agent.Signal) func(hook.Event) {
		return func(hook.Event) {
			select {
			case signals <- sig:
			default:
				slog.Warn("Signal queue full, key press dropped")
			}
		}
	}

	hook.Register(hook.KeyDown, []string{s.toggleKey}, emit(agent.SignalToggle))
	hook.Register(hook.KeyDown, []string{s.captureKey}, emit(agent.SignalCapture))
	hook.Register(hook.KeyDown, []string{s.exitKey}, emit(agent.SignalExit))

	events := hook.Start()
	go func() {
		<-ctx.Done()
		hook.End()
	}()
	go func() {
		<-hook.Process(events)
		close(signals)
	}()

	slog.Info("Hotkeys registered", "toggle", s.toggleKey, "capture", s.captureKey, "exit", s.exitKey)
	return signals
}
