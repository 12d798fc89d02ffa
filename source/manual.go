/*
DESCRIPTION
  manual.go provides a capture source fed manually through software,
  for embedding and testing. Frames written to the source are handed to
  the session's capture loop.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package source provides capture source implementations presented to
// the session core: a manual push source and a raw BGRA file replay
// source. Platform capture backends satisfy the same contract outside
// this module.
package source

import (
	"errors"
	"sync"

	"github.com/ausocean/cap/frame"
)

var (
	errNotRunning = errors.New("source has not been initialised")
	errStopped    = errors.New("source has been shut down")
)

// Manual is a capture source fed by software. Every Write hands one
// frame to a pending CaptureFrame; Write blocks until the capture loop
// takes the frame, so a writer observes the session's pace.
type Manual struct {
	size   frame.Size
	frames chan frame.BGRA
	stop   chan struct{}

	mu      sync.Mutex
	running bool
	stopped bool
}

// NewManual returns a manual source of the given frame size.
func NewManual(size frame.Size) *Manual {
	return &Manual{size: size}
}

// InputSize implements the capture source contract.
func (m *Manual) InputSize() frame.Size { return m.size }

// Initialize readies the source for writes.
func (m *Manual) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = make(chan frame.BGRA)
	m.stop = make(chan struct{})
	m.running = true
	return nil
}

// CaptureFrame blocks until a frame is written or the source is shut
// down.
func (m *Manual) CaptureFrame() (frame.BGRA, error) {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	if !running {
		return frame.BGRA{}, errNotRunning
	}

	select {
	case f := <-m.frames:
		return f, nil
	case <-m.stop:
		return frame.BGRA{}, errStopped
	}
}

// Write hands a frame to the capture loop, blocking until it is taken.
func (m *Manual) Write(f frame.BGRA) error {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	if !running {
		return errNotRunning
	}

	err := f.Validate()
	if err != nil {
		return err
	}

	select {
	case m.frames <- f:
		return nil
	case <-m.stop:
		return errStopped
	}
}

// Shutdown releases any blocked writer or reader. It is idempotent.
func (m *Manual) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return nil
	}
	m.stopped = true
	m.running = false
	if m.stop != nil {
		close(m.stop)
	}
	return nil
}
