/*
DESCRIPTION
  publisher_test.go provides testing for the RTSP publisher handoff:
  overflow policy, timestamp stepping, and shutdown behaviour.

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

package rtsp

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/cap/frame"
)

type push struct {
	data []byte
	pts  time.Duration
	dur  time.Duration
}

// testPipeline records pushes. If gate is non-nil each Push blocks
// until the gate is released, simulating encoder back-pressure.
type testPipeline struct {
	mu      sync.Mutex
	pushes  []push
	stopped int
	gate    chan struct{}
	entered chan struct{}
}

func (p *testPipeline) Push(data []byte, pts, dur time.Duration) error {
	if p.entered != nil {
		p.entered <- struct{}{}
	}
	if p.gate != nil {
		<-p.gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, push{data: data, pts: pts, dur: dur})
	return nil
}

func (p *testPipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped++
	return nil
}

func testLog() logging.Logger {
	return logging.New(logging.Debug, &bytes.Buffer{}, true)
}

func testConfig() Config {
	return Config{Width: 64, Height: 48, FrameRate: 25}
}

func tightFrame(fill byte) frame.BGRA {
	data := make([]byte, 64*48*frame.BytesPerPixel)
	for i := range data {
		data[i] = fill
	}
	return frame.BGRA{Data: data, Width: 64, Height: 48, Stride: 64 * frame.BytesPerPixel, PTS: frame.NoPTS}
}

func TestSendOverflow(t *testing.T) {
	mp := &testPipeline{gate: make(chan struct{}), entered: make(chan struct{}, 16)}
	p, done, err := StartServer(testConfig(), mp, testLog())
	if err != nil {
		t.Fatalf("could not start server: %v", err)
	}

	// First frame is taken by the worker, which then blocks in Push.
	err = p.Send(tightFrame(0))
	if err != nil {
		t.Fatalf("could not send first frame: %v", err)
	}
	<-mp.entered

	// Three more fill the handoff channel.
	for i := 1; i <= 3; i++ {
		err = p.Send(tightFrame(byte(i)))
		if err != nil {
			t.Fatalf("could not send frame %d: %v", i, err)
		}
	}

	// The next send must fail with ErrQueueFull after the retry window.
	start := time.Now()
	err = p.Send(tightFrame(4))
	if err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got: %v", err)
	}
	if time.Since(start) < retryBackoff {
		t.Errorf("send failed before the retry back-off elapsed")
	}

	close(mp.gate)
	p.Close()
	<-done
}

func TestPTSStepping(t *testing.T) {
	mp := &testPipeline{}
	cfg := testConfig()
	p, done, err := StartServer(cfg, mp, testLog())
	if err != nil {
		t.Fatalf("could not start server: %v", err)
	}

	for i := 0; i < 3; i++ {
		err = p.Send(tightFrame(byte(i)))
		if err != nil {
			t.Fatalf("could not send frame %d: %v", i, err)
		}
		time.Sleep(5 * pollInterval) // Leave the worker room to drain.
	}

	p.Close()
	<-done

	mp.mu.Lock()
	defer mp.mu.Unlock()
	if len(mp.pushes) != 3 {
		t.Fatalf("unexpected push count: got %d, want 3", len(mp.pushes))
	}
	dur := time.Second / time.Duration(cfg.FrameRate)
	for i, got := range mp.pushes {
		if got.pts != time.Duration(i)*dur {
			t.Errorf("unexpected stepped pts for frame %d: got %v, want %v", i, got.pts, time.Duration(i)*dur)
		}
		if got.dur != dur {
			t.Errorf("unexpected duration for frame %d: got %v, want %v", i, got.dur, dur)
		}
	}
}

func TestPTSPassthrough(t *testing.T) {
	mp := &testPipeline{}
	p, done, err := StartServer(testConfig(), mp, testLog())
	if err != nil {
		t.Fatalf("could not start server: %v", err)
	}

	f := tightFrame(1)
	f.PTS = 123456789
	err = p.Send(f)
	if err != nil {
		t.Fatalf("could not send frame: %v", err)
	}

	p.Close()
	<-done

	mp.mu.Lock()
	defer mp.mu.Unlock()
	if len(mp.pushes) != 1 {
		t.Fatalf("unexpected push count: got %d, want 1", len(mp.pushes))
	}
	if mp.pushes[0].pts != 123456789*time.Nanosecond {
		t.Errorf("pts not passed through: got %v", mp.pushes[0].pts)
	}
}

func TestCloseStopsPipeline(t *testing.T) {
	mp := &testPipeline{}
	p, done, err := StartServer(testConfig(), mp, testLog())
	if err != nil {
		t.Fatalf("could not start server: %v", err)
	}

	p.Close()
	p.Close() // Second close is a no-op.
	<-done

	mp.mu.Lock()
	stopped := mp.stopped
	mp.mu.Unlock()
	if stopped != 1 {
		t.Errorf("pipeline stopped %d times, want 1", stopped)
	}

	err = p.Send(tightFrame(0))
	if err != ErrWorkerGone {
		t.Errorf("expected ErrWorkerGone after close, got: %v", err)
	}
}

func TestFrameFromBGRA(t *testing.T) {
	data := make([]byte, 64*48*frame.BytesPerPixel)
	f := FrameFromBGRA(data, 64, 48, 25, 10)
	if f.Stride != 64*frame.BytesPerPixel {
		t.Errorf("unexpected stride: %d", f.Stride)
	}
	if f.PTS != 10*(1e9/25) {
		t.Errorf("unexpected pts: %d", f.PTS)
	}
	err := f.Validate()
	if err != nil {
		t.Errorf("frame does not validate: %v", err)
	}
}
