/*
DESCRIPTION
  rtsp.go provides a session stream adapting the RTSP publisher, so
  processed frames can be broadcast to RTSP clients through an external
  media pipeline.

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

package stream

import (
	"sync"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/cap/frame"
	"github.com/ausocean/cap/rtsp"
	"github.com/ausocean/cap/session"
)

// RTSP is a session stream publishing frames through the RTSP
// publisher. The external media pipeline is supplied by the caller and
// started when the session initialises the stream.
type RTSP struct {
	cfg      session.StreamConfig
	pipeline rtsp.MediaPipeline
	pub      *rtsp.Publisher
	done     <-chan struct{}
	log      logging.Logger

	shutdown bool
	mu       sync.Mutex
}

// NewRTSP returns an RTSP stream serving at the configured port and
// mount through the given media pipeline.
func NewRTSP(cfg session.StreamConfig, mp rtsp.MediaPipeline, l logging.Logger) *RTSP {
	return &RTSP{cfg: cfg, pipeline: mp, log: l}
}

// Config implements session.Stream.
func (s *RTSP) Config() session.StreamConfig { return s.cfg }

// Initialize starts the publisher and its pipeline worker.
func (s *RTSP) Initialize() error {
	pub, done, err := rtsp.StartServer(rtsp.Config{
		Port:      s.cfg.Port,
		Mount:     s.cfg.Mount,
		Width:     s.cfg.Width,
		Height:    s.cfg.Height,
		FrameRate: s.cfg.FrameRate,
	}, s.pipeline, s.log)
	if err != nil {
		return err
	}
	s.pub = pub
	s.done = done
	return nil
}

// Send publishes the frame. An overflowing handoff queue is
// back-pressure, not failure: the frame is dropped with a warning and
// the session continues.
func (s *RTSP) Send(f frame.BGRA) error {
	err := s.pub.Send(f)
	if err == rtsp.ErrQueueFull {
		s.log.Warning(pkg + "rtsp handoff full, dropping frame")
		return nil
	}
	return err
}

// Shutdown closes the publisher and waits for the worker to stop the
// media pipeline. The second and subsequent calls are no-ops.
func (s *RTSP) Shutdown() error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	s.mu.Unlock()

	if s.pub != nil {
		s.pub.Close()
		<-s.done
	}
	s.log.Info(pkg + "rtsp stream shut down")
	return nil
}
