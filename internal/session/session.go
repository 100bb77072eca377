package session

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// ErrInvalidTransition is returned when an operation is attempted in
// a state that does not allow it, e.g. a stray stop signal while
// idle. Callers absorb it: signal-ordering glitches are logged, never
// surfaced to the operator.
var ErrInvalidTransition = errors.New("invalid session transition")

// State is the lifecycle state of a capture session.
type State int

const (
	// Idle means no collection is in progress.
	Idle State = iota
	// Collecting means frames are being accumulated.
	Collecting
	// Finalizing means collection has stopped and the frames have
	// been handed off for delivery.
	Finalizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case Finalizing:
		return "finalizing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CapturedImage is one frame grabbed during a session. Immutable
// after creation; the raw pixel data is owned exclusively by the
// frame.
type CapturedImage struct {
	Raw       image.Image
	Sequence  int // 1-based position within the session
	CreatedAt time.Time
}

// Session accumulates captured frames between a start and a stop
// signal. The orchestrator owns exactly one Session for the whole
// process and applies every transition on its single signal loop, so
// no locking is needed here.
type Session struct {
	id     string
	state  State
	images []CapturedImage
}

// New returns an idle session.
func New() *Session {
	return &Session{state: Idle}
}

// ID returns the session identifier, empty until the session has
// started. Ids are derived from the start time, so later sessions
// always compare greater.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Len returns the number of frames collected so far.
func (s *Session) Len() int { return len(s.images) }

// Start begins collecting. The start signal itself always yields the
// first frame, which is passed in here: a session can never be
// collecting with zero frames, so the frame set is guaranteed
// non-empty by the time Stop hands it off.
func (s *Session) Start(raw image.Image, now time.Time) (CapturedImage, error) {
	if s.state != Idle {
		return CapturedImage{}, fmt.Errorf("start while %s: %w", s.state, ErrInvalidTransition)
	}
	s.id = fmt.Sprintf("%d", now.Unix())
	s.state = Collecting
	return s.append(raw, now), nil
}

// AddCapture appends a frame with the next sequence number. Valid
// only while collecting.
func (s *Session) AddCapture(raw image.Image, now time.Time) (CapturedImage, error) {
	if s.state != Collecting {
		return CapturedImage{}, fmt.Errorf("capture while %s: %w", s.state, ErrInvalidTransition)
	}
	return s.append(raw, now), nil
}

// Stop ends collection and returns the full ordered frame sequence
// for delivery. Valid only while collecting.
func (s *Session) Stop() ([]CapturedImage, error) {
	if s.state != Collecting {
		return nil, fmt.Errorf("stop while %s: %w", s.state, ErrInvalidTransition)
	}
	s.state = Finalizing
	return s.images, nil
}

func (s *Session) append(raw image.Image, now time.Time) CapturedImage {
	img := CapturedImage{
		Raw:       raw,
		Sequence:  len(s.images) + 1,
		CreatedAt: now,
	}
	s.images = append(s.images, img)
	return img
}
