/*
DESCRIPTION
  file.go provides a session stream that feeds completed BGRA frames to
  an external file encoder. Sends are decoupled from encoder writes by
  an SPSC frame ring drained by a background output routine, which
  stages reads through a buffer pool.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Alan Noble <alan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package stream provides the session stream implementations: file
// encoder output and RTSP publishing.
package stream

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/cap/frame"
	"github.com/ausocean/cap/pool"
	"github.com/ausocean/cap/ring"
	"github.com/ausocean/cap/session"
)

// Used to indicate package in logging.
const pkg = "stream: "

// File stream tuning.
const (
	fileRingFrames  = 8
	filePoolBuffers = 3
	fileReadRetry   = time.Millisecond
)

var errWrongFrameSize = errors.New("frame does not match configured stream size")

// File is a session stream that hands frames to an external encoder
// consuming raw BGRA. The encoder is opaque to the stream; anything
// implementing io.WriteCloser serves. Frames are copied once, into the
// ring, on send; the output routine reuses pooled buffers for encoder
// writes, so the steady state allocates nothing.
type File struct {
	cfg  session.StreamConfig
	enc  io.WriteCloser
	log  logging.Logger
	ring *ring.Buffer
	pool *pool.Pool

	done     chan struct{}
	wg       sync.WaitGroup
	shutdown bool
	mu       sync.Mutex
}

// NewFile returns a file stream writing frames of the configured size
// to enc.
func NewFile(cfg session.StreamConfig, enc io.WriteCloser, l logging.Logger) *File {
	return &File{cfg: cfg, enc: enc, log: l}
}

// Config implements session.Stream.
func (s *File) Config() session.StreamConfig { return s.cfg }

// Initialize allocates the frame ring and buffer pool and starts the
// output routine.
func (s *File) Initialize() error {
	size := int(s.cfg.Width) * int(s.cfg.Height) * frame.BytesPerPixel
	if size == 0 {
		return errors.New("stream dimensions must be set")
	}
	s.ring = ring.NewBuffer(size, fileRingFrames)
	s.pool = pool.New(size, filePoolBuffers)
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.output()
	return nil
}

// Send copies the frame into the ring for the output routine. A full
// ring is back-pressure, not failure: the frame is dropped with a
// warning and the session continues.
func (s *File) Send(f frame.BGRA) error {
	if f.Size() != (frame.Size{W: s.cfg.Width, H: s.cfg.Height}) {
		return fmt.Errorf("%w: got %v, want %dx%d", errWrongFrameSize, f.Size(), s.cfg.Width, s.cfg.Height)
	}

	if !f.Tight() {
		return fmt.Errorf("%w: rows must be tightly packed", errWrongFrameSize)
	}

	size := int(s.cfg.Width) * int(s.cfg.Height) * frame.BytesPerPixel
	err := s.ring.WriteFrame(f.Data[:size])
	if err == ring.ErrFull {
		s.log.Warning(pkg + "file ring full, dropping frame")
		return nil
	}
	return err
}

// output drains the ring and writes frames to the encoder until
// Shutdown closes done.
func (s *File) output() {
	defer s.wg.Done()
	buf := s.pool.Acquire()
	defer s.pool.Release(buf)

	for {
		select {
		case <-s.done:
			// Drain whatever the producer managed to queue before the
			// shutdown signal.
			for s.write(buf) {
			}
			s.log.Info(pkg + "terminating file output routine")
			return
		default:
			if !s.write(buf) {
				time.Sleep(fileReadRetry)
			}
		}
	}
}

// write moves one frame from the ring to the encoder, reporting whether
// a frame was available.
func (s *File) write(buf []byte) bool {
	err := s.ring.ReadFrame(buf)
	if err == ring.ErrEmpty {
		return false
	}
	if err != nil {
		s.log.Error(pkg+"unexpected ring read error", "error", err.Error())
		return false
	}

	_, err = s.enc.Write(buf)
	if err != nil {
		s.log.Warning(pkg+"encoder write failed", "error", err.Error())
	}
	return true
}

// Shutdown stops the output routine and closes the encoder. The second
// and subsequent calls are no-ops.
func (s *File) Shutdown() error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	s.mu.Unlock()

	if s.done != nil {
		close(s.done)
		s.wg.Wait()
	}
	s.log.Info(pkg + "file stream shut down")
	return s.enc.Close()
}
