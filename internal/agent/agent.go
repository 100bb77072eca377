package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/screenagent/screenagent/internal/capture"
	"github.com/screenagent/screenagent/internal/chunk"
	"github.com/screenagent/screenagent/internal/delivery"
	"github.com/screenagent/screenagent/internal/ledger"
	"github.com/screenagent/screenagent/internal/session"
)

// Signal is a discrete input event from the hotkey source.
type Signal int

const (
	// SignalToggle starts collection when idle and submits it when
	// collecting.
	SignalToggle Signal = iota
	// SignalCapture grabs an extra frame while collecting; a no-op
	// otherwise.
	SignalCapture
	// SignalExit terminates the loop, discarding any active session.
	SignalExit
)

// Phase tracks where the orchestrator is in the session lifecycle,
// for log observability.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCollecting
	PhaseDeliveringArchive
	PhaseDeliveringAnalysis
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCollecting:
		return "collecting"
	case PhaseDeliveringArchive:
		return "delivering-archive"
	case PhaseDeliveringAnalysis:
		return "delivering-analysis"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Archival records images and report chunks for human review. Calls
// are independent; one failure never prevents the next attempt.
type Archival interface {
	SendImage(ctx context.Context, payload capture.Payload, caption string) error
	SendText(ctx context.Context, text string) error
}

// Analyzer produces the report from the full encoded batch in one
// call.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string, payloads []capture.Payload) (string, error)
}

// Saver keeps a local copy of each frame.
type Saver interface {
	SaveImage(sessionID string, payload capture.Payload) (string, error)
}

// Recorder appends the per-session delivery record.
type Recorder interface {
	Append(rec ledger.Record) error
}

// Orchestrator owns the single capture session and drives the
// delivery pipeline. All state transitions happen on the one
// goroutine running Run, so the session needs no locking.
type Orchestrator struct {
	capturer   capture.Capturer
	archival   Archival
	analyzer   Analyzer
	saver      Saver
	recorder   Recorder
	prompt     string
	chunkLimit int

	sess            *session.Session
	batch           []capture.Payload
	archiveFailures int
	phase           Phase
	now             func() time.Time
}

// New wires an orchestrator. Saver and Recorder may be nil when local
// copies are not wanted.
func New(capturer capture.Capturer, archival Archival, analyzer Analyzer, saver Saver, recorder Recorder, prompt string, chunkLimit int) *Orchestrator {
	return &Orchestrator{
		capturer:   capturer,
		archival:   archival,
		analyzer:   analyzer,
		saver:      saver,
		recorder:   recorder,
		prompt:     prompt,
		chunkLimit: chunkLimit,
		sess:       session.New(),
		now:        time.Now,
	}
}

// Phase returns the current pipeline phase.
func (o *Orchestrator) Phase() Phase { return o.phase }

// Run consumes signals until the exit signal, channel close, or
// context cancellation. Delivery blocks the loop; the signal channel
// is buffered by the input source, so capture signals arriving during
// a delivery are queued, not lost.
func (o *Orchestrator) Run(ctx context.Context, signals <-chan Signal) error {
	slog.Info("Agent ready", "toggle", "start/stop collection", "capture", "extra frame")

	for {
		select {
		case <-ctx.Done():
			o.logDiscard()
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				o.logDiscard()
				return nil
			}
			switch sig {
			case SignalToggle:
				o.handleToggle(ctx)
			case SignalCapture:
				o.handleCapture(ctx)
			case SignalExit:
				o.logDiscard()
				return nil
			}
		}
	}
}

// handleToggle starts a session when idle and submits it when
// collecting.
func (o *Orchestrator) handleToggle(ctx context.Context) {
	switch o.sess.State() {
	case session.Idle:
		o.startSession(ctx)
	case session.Collecting:
		o.deliver(ctx)
	default:
		slog.Warn("Toggle signal ignored", "state", o.sess.State())
	}
}

func (o *Orchestrator) startSession(ctx context.Context) {
	raw, err := o.capturer.Capture()
	if err != nil {
		// Per-capture failure: the session does not start, because a
		// collecting session must always hold at least one frame.
		slog.Warn("Capture failed, session not started", "err", err)
		return
	}

	img, err := o.sess.Start(raw, o.now())
	if err != nil {
		slog.Warn("Stray start signal ignored", "err", err)
		return
	}

	o.setPhase(PhaseCollecting)
	slog.Info("Started collecting screenshots", "session_id", o.sess.ID())
	o.archiveFrame(ctx, img)
}

// handleCapture grabs an extra frame. Outside a session it is a
// silent no-op, not an error surfaced to the operator.
func (o *Orchestrator) handleCapture(ctx context.Context) {
	if o.sess.State() != session.Collecting {
		slog.Debug("Capture signal outside a session ignored")
		return
	}

	raw, err := o.capturer.Capture()
	if err != nil {
		slog.Warn("Capture failed, frame skipped", "session_id", o.sess.ID(), "err", err)
		return
	}

	img, err := o.sess.AddCapture(raw, o.now())
	if err != nil {
		slog.Warn("Stray capture signal ignored", "err", err)
		return
	}
	o.archiveFrame(ctx, img)
}

// archiveFrame encodes one frame, keeps the payload for the analysis
// batch, saves a local copy and sends it to the archival channel.
// Every step past encoding is best-effort.
func (o *Orchestrator) archiveFrame(ctx context.Context, img session.CapturedImage) {
	payload, err := capture.Encode(img.Raw, img.Sequence)
	if err != nil {
		slog.Warn("Frame skipped", "session_id", o.sess.ID(), "sequence", img.Sequence, "err", err)
		return
	}
	o.batch = append(o.batch, payload)

	if o.saver != nil {
		if path, err := o.saver.SaveImage(o.sess.ID(), payload); err != nil {
			slog.Warn("Failed to save frame locally", "sequence", img.Sequence, "err", err)
		} else {
			slog.Info("Screenshot saved", "path", path, "size", fmt.Sprintf("%dx%d", payload.Width, payload.Height))
		}
	}

	caption := fmt.Sprintf("screenshot %d", img.Sequence)
	err = delivery.Retry(func() error {
		return o.archival.SendImage(ctx, payload, caption)
	})
	if err != nil {
		o.archiveFailures++
		slog.Warn("Failed to archive frame", "sequence", img.Sequence, "err", err)
		return
	}
	slog.Info("Screenshot archived", "session_id", o.sess.ID(), "sequence", img.Sequence)
}

// deliver runs the stop-side pipeline: analysis of the retained
// batch, then chunked report delivery, then a ledger record. The
// session is discarded afterwards regardless of outcome; recapture
// is the only retry.
func (o *Orchestrator) deliver(ctx context.Context) {
	frames, err := o.sess.Stop()
	if err != nil {
		slog.Warn("Stray stop signal ignored", "err", err)
		return
	}

	// Frames were archived as they were captured; nothing to re-send.
	o.setPhase(PhaseDeliveringArchive)
	slog.Info("Submitting session", "session_id", o.sess.ID(), "frames", len(frames), "archive_failures", o.archiveFailures)

	rec := ledger.Record{
		SessionID:       o.sess.ID(),
		Frames:          int32(len(frames)),
		StartedAt:       frames[0].CreatedAt.Unix(),
		ArchiveFailures: int32(o.archiveFailures),
	}

	o.setPhase(PhaseDeliveringAnalysis)
	rec.Outcome, rec.ReportChars, rec.Chunks = o.analyzeAndReport(ctx, len(frames))

	rec.FinishedAt = o.now().Unix()
	if o.recorder != nil {
		if err := o.recorder.Append(rec); err != nil {
			slog.Warn("Failed to write session record", "session_id", o.sess.ID(), "err", err)
		}
	}

	o.setPhase(PhaseDone)
	slog.Info("Session complete", "session_id", o.sess.ID(), "outcome", rec.Outcome)
	o.reset()
}

// analyzeAndReport invokes the analysis channel and relays the result
// through the archival channel. On analysis failure the operator
// still gets exactly one explanatory message.
func (o *Orchestrator) analyzeAndReport(ctx context.Context, frameCount int) (outcome string, reportChars, chunks int32) {
	if len(o.batch) == 0 {
		o.sendNotice(ctx, fmt.Sprintf("No screenshots could be encoded from %d captured frames; nothing to analyze.", frameCount))
		return "no frames encoded", 0, 0
	}

	report, err := o.analyzer.Analyze(ctx, o.prompt, o.batch)
	if err != nil && delivery.Classify(err).Retryable() {
		report, err = o.analyzer.Analyze(ctx, o.prompt, o.batch)
	}
	if err != nil {
		f := delivery.Classify(err)
		slog.Error("Analysis failed", "session_id", o.sess.ID(), "kind", f.Kind.String(), "err", err)
		o.sendNotice(ctx, fmt.Sprintf("Analysis of %d screenshots failed (%s). The images above are archived; recapture to retry.", frameCount, f.Kind))
		return f.Kind.String(), 0, 0
	}

	parts := chunk.Split(report, o.chunkLimit)
	slog.Info("Analysis complete", "session_id", o.sess.ID(), "report_chars", len(report), "chunks", len(parts))

	for i, part := range parts {
		err := delivery.Retry(func() error {
			return o.archival.SendText(ctx, part)
		})
		if err != nil {
			slog.Warn("Failed to send report chunk", "chunk", i+1, "chunks", len(parts), "err", err)
		}
	}
	return "delivered", int32(len(report)), int32(len(parts))
}

// sendNotice delivers a single failure/status message, best-effort.
func (o *Orchestrator) sendNotice(ctx context.Context, text string) {
	err := delivery.Retry(func() error {
		return o.archival.SendText(ctx, text)
	})
	if err != nil {
		slog.Error("Failed to deliver notice", "err", err)
	}
}

// reset discards the finished session. The next toggle starts fresh.
func (o *Orchestrator) reset() {
	o.sess = session.New()
	o.batch = nil
	o.archiveFailures = 0
	o.setPhase(PhaseIdle)
}

func (o *Orchestrator) setPhase(p Phase) {
	o.phase = p
	slog.Debug("Phase change", "phase", p.String())
}

func (o *Orchestrator) logDiscard() {
	if o.sess.State() == session.Collecting {
		slog.Warn("Exiting with an active session; collected frames are discarded", "session_id", o.sess.ID(), "frames", o.sess.Len())
	}
}
