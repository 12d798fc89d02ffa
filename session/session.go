/*
DESCRIPTION
  session.go provides the capture session orchestrator: a builder for
  wiring a capture source, processor chain and streams together, and the
  run loop that moves frames from the source through the chain to the
  stream fan-out until shutdown is signalled.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Alan Noble <alan@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package session provides orchestration of a screen capture pipeline:
// a capture source feeding a chain of frame processors whose output is
// fanned out to one or more streams.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/cap/frame"
	"github.com/ausocean/cap/gundam"
	"github.com/ausocean/cap/scale"
)

// Used to indicate package in logging.
const pkg = "session: "

// Builder validation errors.
var (
	ErrNoCaptureSource = errors.New("no capture source specified")
	ErrNoStreams       = errors.New("at least one stream must be configured")
)

// CaptureSource yields raw BGRA frames. Implementations wrap platform
// capture APIs; the session only requires this contract.
type CaptureSource interface {
	// InputSize returns the source's frame dimensions, stable for the
	// session's lifetime.
	InputSize() frame.Size

	// Initialize is called once before any capture.
	Initialize() error

	// CaptureFrame blocks until a frame is available. The returned
	// frame's stride must be set consistently; PTS may be frame.NoPTS.
	CaptureFrame() (frame.BGRA, error)

	// Shutdown stops capture. It must be idempotent.
	Shutdown() error
}

// FrameProcessor transforms frames flowing through the session.
type FrameProcessor interface {
	// Initialize is called exactly once per session before frames flow.
	// The returned size is the processor's output size and becomes the
	// next processor's input.
	Initialize(input frame.Size) (frame.Size, error)

	// Process transforms a frame. The emitted frame's pixels belong to
	// the processor and remain valid until its next Process call;
	// emitted false means the frame was deliberately dropped.
	Process(f frame.BGRA) (out frame.BGRA, emitted bool, err error)
}

// Session owns a configured pipeline. Construct with a Builder; run
// with Run; stop with Shutdown.
type Session struct {
	source CaptureSource
	chain  *Chain
	fanout *FanOut
	log    logging.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// Builder accumulates pipeline components. The configuration is
// immutable once Build has been called.
type Builder struct {
	processors []FrameProcessor
	streams    []Stream
	source     CaptureSource
	log        logging.Logger
}

// NewBuilder returns a Builder logging through l.
func NewBuilder(l logging.Logger) *Builder {
	return &Builder{log: l}
}

// WithScaling appends a scaling processor using the given token preset.
func (b *Builder) WithScaling(p scale.TokenPreset) *Builder {
	return b.WithProcessor(NewScalingProcessor(p))
}

// WithGundam appends a Gundam tiling processor.
func (b *Builder) WithGundam(cfg gundam.Config) *Builder {
	return b.WithProcessor(NewGundamProcessor(cfg))
}

// WithProcessor appends a processor to the chain.
func (b *Builder) WithProcessor(p FrameProcessor) *Builder {
	b.processors = append(b.processors, p)
	return b
}

// WithStream appends a stream to the fan-out.
func (b *Builder) WithStream(s Stream) *Builder {
	b.streams = append(b.streams, s)
	return b
}

// WithSource sets the capture source.
func (b *Builder) WithSource(s CaptureSource) *Builder {
	b.source = s
	return b
}

// Build validates the accumulated configuration and returns the
// session. A source and at least one stream are required.
func (b *Builder) Build() (*Session, error) {
	if b.source == nil {
		return nil, ErrNoCaptureSource
	}
	if len(b.streams) == 0 {
		return nil, ErrNoStreams
	}
	return &Session{
		source: b.source,
		chain:  NewChain(b.processors...),
		fanout: NewFanOut(b.log, b.streams...),
		log:    b.log,
		stop:   make(chan struct{}),
	}, nil
}

// Run initialises the pipeline and enters the capture loop, moving one
// frame at a time from the source through the processor chain to every
// stream. Run returns when Shutdown is asserted, or on the first fatal
// error; shutdown of the source and streams always runs, streams in
// insertion order.
func (s *Session) Run() error {
	var fatal error
	in := s.source.InputSize()
	out, err := s.chain.Initialize(in)
	if err != nil {
		fatal = fmt.Errorf("processor failed to initialise: %w", err)
		goto shutdown
	}

	err = s.fanout.Initialize()
	if err != nil {
		fatal = fmt.Errorf("sink failed to initialise: %w", err)
		goto shutdown
	}

	err = s.source.Initialize()
	if err != nil {
		fatal = fmt.Errorf("source failed to initialise: %w", err)
		goto shutdown
	}

	s.log.Info(pkg+"capture session started", "input", in.String(), "output", out.String(), "streams", s.fanout.StreamCount())

loop:
	for {
		// Cancellation is cooperative: checked between frames, never
		// mid-frame.
		select {
		case <-s.stop:
			s.log.Info(pkg + "shutdown signal asserted")
			break loop
		default:
		}

		f, err := s.source.CaptureFrame()
		if err != nil {
			fatal = fmt.Errorf("source failed: %w", err)
			break
		}

		pf, emitted, err := s.chain.Process(f)
		if err != nil {
			fatal = fmt.Errorf("processor failed: %w", err)
			break
		}
		if !emitted {
			continue
		}

		err = s.fanout.Send(pf)
		if err != nil {
			fatal = fmt.Errorf("sink failed: %w", err)
			break
		}
	}

shutdown:
	s.log.Debug(pkg + "shutting down source")
	err = s.source.Shutdown()
	if err != nil {
		s.log.Error(pkg+"could not shut down source", "error", err.Error())
		if fatal == nil {
			fatal = fmt.Errorf("source failed to shut down: %w", err)
		}
	}

	s.log.Debug(pkg + "shutting down streams")
	err = s.fanout.Shutdown()
	if err != nil {
		s.log.Error(pkg+"could not shut down streams", "error", err.Error())
		if fatal == nil {
			fatal = fmt.Errorf("sink failed to shut down: %w", err)
		}
	}

	s.log.Info(pkg + "capture session finished")
	return fatal
}

// Shutdown asserts the session's shutdown signal. The signal is
// monotonic; calling Shutdown more than once is a no-op. The run loop
// drains its current frame before honouring the signal.
func (s *Session) Shutdown() {
	s.stopOnce.Do(func() { close(s.stop) })
}
