/*
DESCRIPTION
  file.go provides a capture source replaying raw BGRA frames from a
  file at a configured rate, used for offline processing and testing
  without a live capture backend.

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

package source

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/cap/frame"
)

// Used to indicate package in logging.
const pkg = "source: "

// File replays tightly packed BGRA frames from a file. Frames are read
// whole; pacing between frames follows the configured rate, with a zero
// rate meaning read as fast as the session consumes. With a non-zero
// rate, presentation timestamps are stamped from the frame index; with
// a zero rate frames carry frame.NoPTS.
type File struct {
	path string
	size frame.Size
	fps  uint
	log  logging.Logger

	f     *os.File
	idx   uint64
	delay time.Duration

	mu      sync.Mutex
	stopped bool
}

// NewFile returns a file source replaying frames of the given size.
func NewFile(path string, size frame.Size, fps uint, l logging.Logger) *File {
	return &File{path: path, size: size, fps: fps, log: l}
}

// InputSize implements the capture source contract.
func (s *File) InputSize() frame.Size { return s.size }

// Initialize opens the file.
func (s *File) Initialize() error {
	err := s.size.Validate()
	if err != nil {
		return fmt.Errorf("bad frame size: %w", err)
	}

	s.f, err = os.Open(s.path)
	if err != nil {
		return fmt.Errorf("could not open frame file: %w", err)
	}
	if s.fps != 0 {
		s.delay = time.Second / time.Duration(s.fps)
	}
	s.log.Info(pkg+"file source opened", "path", s.path, "size", s.size.String(), "fps", s.fps)
	return nil
}

// CaptureFrame reads the next frame. The end of the file surfaces as
// io.EOF wrapped in the returned error.
func (s *File) CaptureFrame() (frame.BGRA, error) {
	if s.f == nil {
		return frame.BGRA{}, errNotRunning
	}
	if s.delay != 0 {
		time.Sleep(s.delay)
	}

	n := int(s.size.W) * int(s.size.H) * frame.BytesPerPixel
	buf := make([]byte, n)
	_, err := io.ReadFull(s.f, buf)
	if err != nil {
		return frame.BGRA{}, fmt.Errorf("could not read frame %d: %w", s.idx, err)
	}

	f := frame.BGRA{
		Data:   buf,
		Width:  s.size.W,
		Height: s.size.H,
		Stride: int(s.size.W) * frame.BytesPerPixel,
		PTS:    frame.NoPTS,
	}
	if s.fps != 0 {
		f.PTS = int64(s.idx * (1e9 / uint64(s.fps)))
	}
	s.idx++
	return f, nil
}

// Shutdown closes the file. It is idempotent.
func (s *File) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}
