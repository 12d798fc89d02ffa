/*
DESCRIPTION
  ffmpeg.go provides the external media pipelines used by capd: an
  ffmpeg process encoding raw BGRA into an RTSP publish, and an ffmpeg
  process muxing raw BGRA into a video file. The session core only sees
  these through the rtsp.MediaPipeline and io.WriteCloser boundaries.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/cap/session"
)

// ffmpegProc wraps an ffmpeg process consuming raw BGRA on stdin. The
// process is started lazily on the first write so that building a
// session does not spawn encoders.
type ffmpegProc struct {
	args []string
	log  logging.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	in      io.WriteCloser
	stopped bool
}

func rawVideoArgs(w, h, fps uint) []string {
	return []string{
		"-f", "rawvideo",
		"-pix_fmt", "bgra",
		"-s", fmt.Sprintf("%dx%d", w, h),
		"-r", fmt.Sprint(fps),
		"-i", "-",
	}
}

// newRTSPPipeline returns a media pipeline encoding to low-latency
// H.264 and publishing at the configured port and mount.
func newRTSPPipeline(cfg session.StreamConfig, l logging.Logger) *ffmpegProc {
	args := rawVideoArgs(cfg.Width, cfg.Height, cfg.FrameRate)
	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-tune", "zerolatency",
		"-f", "rtsp",
		fmt.Sprintf("rtsp://0.0.0.0:%d%s", cfg.Port, cfg.Mount),
	)
	return &ffmpegProc{args: args, log: l}
}

// newFileEncoder returns a write closer muxing frames into the
// configured output path.
func newFileEncoder(cfg session.StreamConfig, l logging.Logger) (io.WriteCloser, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("output path must be set for file output")
	}
	args := rawVideoArgs(cfg.Width, cfg.Height, cfg.FrameRate)
	args = append(args, "-c:v", "libx264", "-y", cfg.Path)
	return &ffmpegProc{args: args, log: l}, nil
}

// start spawns the ffmpeg process.
func (p *ffmpegProc) start() error {
	p.log.Info(pkg+"ffmpeg args", "args", strings.Join(p.args, " "))
	p.cmd = exec.Command("ffmpeg", p.args...)

	var err error
	p.in, err = p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create pipe: %w", err)
	}

	err = p.cmd.Start()
	if err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	return nil
}

// Write implements io.Writer, feeding one frame to the encoder.
func (p *ffmpegProc) Write(d []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return 0, fmt.Errorf("encoder has been stopped")
	}
	if p.cmd == nil {
		err := p.start()
		if err != nil {
			return 0, err
		}
	}
	return p.in.Write(d)
}

// Push implements rtsp.MediaPipeline. The encoder re-times frames at
// the configured rate, so the timestamps are not forwarded.
func (p *ffmpegProc) Push(data []byte, pts, dur time.Duration) error {
	_, err := p.Write(data)
	return err
}

// Close implements io.Closer.
func (p *ffmpegProc) Close() error { return p.Stop() }

// Stop implements rtsp.MediaPipeline. It closes the encoder's input
// and waits for the process to drain. Stop is idempotent.
func (p *ffmpegProc) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil
	}
	p.stopped = true
	if p.cmd == nil {
		return nil
	}

	err := p.in.Close()
	if err != nil {
		return fmt.Errorf("could not close ffmpeg input: %w", err)
	}
	err = p.cmd.Wait()
	if err != nil {
		return fmt.Errorf("ffmpeg exited with error: %w", err)
	}
	return nil
}
