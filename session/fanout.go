/*
DESCRIPTION
  fanout.go provides the Stream contract and the fan-out that
  broadcasts each processed frame to every configured stream
  concurrently.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package session

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/cap/frame"
)

// Stream output formats.
const (
	FormatRTSP = iota
	FormatFile
)

// StreamConfig describes a stream's output. Configuration is immutable
// after session construction. Port and Mount apply to FormatRTSP; Path
// to FormatFile.
type StreamConfig struct {
	Width     uint
	Height    uint
	FrameRate uint
	Format    int
	Port      uint16
	Mount     string
	Path      string
}

// Stream is an output destination for processed frames.
type Stream interface {
	// Initialize is called once before any send.
	Initialize() error

	// Send delivers a frame. The frame's pixels are shared; the stream
	// must not mutate them, and must copy if it queues the frame beyond
	// the call.
	Send(f frame.BGRA) error

	// Shutdown stops the stream. It must be idempotent.
	Shutdown() error

	// Config returns the stream's immutable configuration.
	Config() StreamConfig
}

// MultiError collects errors from operations attempted across several
// streams.
type MultiError []error

func (me MultiError) Error() string {
	if len(me) == 0 {
		panic("session: invalid use of MultiError")
	}
	return fmt.Sprintf("%v", []error(me))
}

// FanOut broadcasts frames to an ordered list of streams. Every stream
// receives the same frame handle; pixel bytes are never copied by the
// fan-out itself.
type FanOut struct {
	streams []Stream
	cfg     StreamConfig // Multiplex config, derived from the first stream.
	log     logging.Logger
}

// NewFanOut returns a fan-out over the given streams. The multiplex
// configuration is taken from the first stream.
func NewFanOut(l logging.Logger, streams ...Stream) *FanOut {
	f := &FanOut{streams: streams, log: l}
	if len(streams) != 0 {
		f.cfg = streams[0].Config()
	}
	return f
}

// Initialize initialises every stream in order.
func (f *FanOut) Initialize() error {
	for _, s := range f.streams {
		err := s.Initialize()
		if err != nil {
			return err
		}
	}
	return nil
}

// Config returns the multiplex configuration.
func (f *FanOut) Config() StreamConfig { return f.cfg }

// StreamCount returns the number of streams.
func (f *FanOut) StreamCount() int { return len(f.streams) }

// Send dispatches the frame to every stream concurrently and waits for
// all sends to complete before returning. Every stream is attempted;
// the first error observed is returned.
func (f *FanOut) Send(fr frame.BGRA) error {
	var g errgroup.Group
	for _, s := range f.streams {
		s := s
		g.Go(func() error { return s.Send(fr) })
	}
	return g.Wait()
}

// Shutdown shuts every stream down in insertion order. All shutdowns
// are attempted; collected errors are reported together.
func (f *FanOut) Shutdown() error {
	var errs MultiError
	for _, s := range f.streams {
		err := s.Shutdown()
		if err != nil {
			f.log.Error(pkg+"stream failed to shut down", "error", err.Error())
			errs = append(errs, err)
		}
	}
	if len(errs) != 0 {
		return errs
	}
	return nil
}
