/*
DESCRIPTION
  publisher.go provides the push publisher bridging pipeline frames to
  an external RTSP media pipeline. Frames are handed to a worker through
  a small bounded channel; the worker owns the media pipeline and polls
  the channel on a short cadence, applying presentation timestamps.

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

// Package rtsp provides a publisher for pushing raw BGRA frames into an
// external RTSP media pipeline. The pipeline itself (encoder, payloader
// and server) is outside this package; it is driven through the
// MediaPipeline interface.
package rtsp

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/cap/frame"
)

// Used to indicate package in logging.
const pkg = "rtsp: "

// PixelFormat is the only pixel format the publisher accepts.
const PixelFormat = "BGRA"

// Handoff tuning. The channel is kept small to bound latency; a full
// channel means the pipeline is not keeping up and the newest frame is
// the one sacrificed.
const (
	handoffCapacity = 3
	retryBackoff    = 2 * time.Millisecond
	pollInterval    = time.Millisecond
)

// Configuration defaults.
const (
	defaultPort      = 8554
	defaultMount     = "/cap"
	defaultFrameRate = 30
)

// Errors returned by Publisher.Send. ErrQueueFull is expected
// back-pressure; the caller decides whether to drop or retry.
var (
	ErrQueueFull  = errors.New("rtsp handoff queue full; frame dropped")
	ErrWorkerGone = errors.New("rtsp worker has stopped")
)

// MediaPipeline is the boundary to the external encoder and RTSP
// server. Push may block to apply the pipeline's own back-pressure.
// Stop must be idempotent.
type MediaPipeline interface {
	Push(data []byte, pts, dur time.Duration) error
	Stop() error
}

// Config holds the wire-level parameters the external pipeline must be
// told at construction.
type Config struct {
	Port      uint16
	Mount     string
	Width     uint
	Height    uint
	FrameRate uint
}

// Validate fills zero-valued fields with defaults and checks the frame
// dimensions are set.
func (c *Config) Validate() error {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Mount == "" {
		c.Mount = defaultMount
	}
	if c.FrameRate == 0 {
		c.FrameRate = defaultFrameRate
	}
	if c.Width == 0 || c.Height == 0 {
		return errors.New("frame dimensions must be set")
	}
	return nil
}

// Publisher hands frames to the worker servicing the media pipeline.
// Send never blocks the caller for more than the short retry window.
type Publisher struct {
	frames    chan frame.BGRA
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	log       logging.Logger
}

// StartServer starts the worker goroutine that owns the media pipeline
// and returns the publisher plus a channel that is closed once the
// worker has stopped the pipeline and exited. The publisher should be
// Closed when no more frames will be sent; the worker then observes the
// channel closure, stops the pipeline and exits.
func StartServer(cfg Config, mp MediaPipeline, log logging.Logger) (*Publisher, <-chan struct{}, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "invalid publisher config")
	}

	p := &Publisher{
		frames: make(chan frame.BGRA, handoffCapacity),
		done:   make(chan struct{}),
		log:    log,
	}

	w := &worker{
		frames:   p.frames,
		done:     p.done,
		pipeline: mp,
		frameDur: time.Second / time.Duration(cfg.FrameRate),
		log:      log,
	}
	go w.run()

	log.Info(pkg+"publisher ready", "port", cfg.Port, "mount", cfg.Mount, "size", frame.Size{W: cfg.Width, H: cfg.Height}.String(), "fps", cfg.FrameRate, "format", PixelFormat)
	return p, p.done, nil
}

// Send hands a frame to the worker. If the handoff channel is full the
// send is retried once after a short back-off; if still full the frame
// is dropped and ErrQueueFull returned. The frame dropped on overflow
// is the new one, not the oldest queued, keeping the queued latency
// bounded and the path predictable.
func (p *Publisher) Send(f frame.BGRA) error {
	if p.closed.Load() {
		return ErrWorkerGone
	}
	select {
	case <-p.done:
		return ErrWorkerGone
	default:
	}

	select {
	case p.frames <- f:
		return nil
	default:
	}

	time.Sleep(retryBackoff)
	select {
	case p.frames <- f:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close signals the worker that no more frames will arrive. It is safe
// to call more than once. The done channel returned by StartServer
// closes once the worker has stopped the pipeline.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.frames)
	})
	return nil
}

// worker drains the handoff channel and feeds the media pipeline.
type worker struct {
	frames   <-chan frame.BGRA
	done     chan struct{}
	pipeline MediaPipeline
	frameDur time.Duration
	nextPTS  time.Duration
	log      logging.Logger
}

// run polls the handoff channel on a short cadence, pushing each frame
// with its timestamp. The pipeline may block a push to apply its own
// back-pressure; that pressure is felt here, not by the caller.
func (w *worker) run() {
	defer close(w.done)

	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	for range tick.C {
		select {
		case f, ok := <-w.frames:
			if !ok {
				w.log.Debug(pkg + "handoff closed, stopping pipeline")
				err := w.pipeline.Stop()
				if err != nil {
					w.log.Error(pkg+"could not stop media pipeline", "error", err.Error())
				}
				return
			}
			w.push(f)
		default:
		}
	}
}

// push stamps and forwards one frame. Frames without a producer PTS are
// clocked monotonically from zero at the configured frame rate.
func (w *worker) push(f frame.BGRA) {
	pts := time.Duration(f.PTS)
	if f.PTS == frame.NoPTS {
		pts = w.nextPTS
		w.nextPTS += w.frameDur
	}

	err := w.pipeline.Push(f.Data, pts, w.frameDur)
	if err != nil {
		w.log.Warning(pkg+"media pipeline rejected frame", "error", err.Error())
	}
}

// FrameFromBGRA builds a frame from a tightly packed BGRA buffer,
// stamping a PTS from the frame index at the given rate.
func FrameFromBGRA(data []byte, w, h uint, fps uint, idx uint64) frame.BGRA {
	if fps == 0 {
		fps = 1
	}
	return frame.BGRA{
		Data:   data,
		Width:  w,
		Height: h,
		Stride: int(w) * frame.BytesPerPixel,
		PTS:    int64(idx * (1e9 / uint64(fps))),
	}
}
