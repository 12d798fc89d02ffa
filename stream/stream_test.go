/*
DESCRIPTION
  stream_test.go provides testing for the file and RTSP stream
  implementations, covering delivery, back-pressure handling and
  idempotent shutdown.

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
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/cap/frame"
	"github.com/ausocean/cap/session"
)

func testLog() logging.Logger {
	return logging.New(logging.Debug, &bytes.Buffer{}, true)
}

// testEncoder records writes and closes.
type testEncoder struct {
	mu     sync.Mutex
	writes [][]byte
	closed int
}

func (e *testEncoder) Write(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := make([]byte, len(p))
	copy(b, p)
	e.writes = append(e.writes, b)
	return len(p), nil
}

func (e *testEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed++
	return nil
}

func (e *testEncoder) writeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.writes)
}

func testFrame(w, h uint, fill byte) frame.BGRA {
	data := make([]byte, int(w)*int(h)*frame.BytesPerPixel)
	for i := range data {
		data[i] = fill
	}
	return frame.BGRA{Data: data, Width: w, Height: h, Stride: int(w) * frame.BytesPerPixel, PTS: frame.NoPTS}
}

func TestFileStreamDelivery(t *testing.T) {
	enc := &testEncoder{}
	cfg := session.StreamConfig{Width: 8, Height: 8, FrameRate: 25, Format: session.FormatFile, Path: "out.raw"}
	s := NewFile(cfg, enc, testLog())

	err := s.Initialize()
	if err != nil {
		t.Fatalf("could not initialise: %v", err)
	}

	err = s.Send(testFrame(8, 8, 0x5a))
	if err != nil {
		t.Fatalf("could not send: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for enc.writeCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("encoder never received frame")
		}
		time.Sleep(time.Millisecond)
	}

	enc.mu.Lock()
	got := enc.writes[0]
	enc.mu.Unlock()
	if len(got) != 8*8*frame.BytesPerPixel || got[0] != 0x5a {
		t.Errorf("unexpected encoder payload: len %d first %x", len(got), got[0])
	}

	err = s.Shutdown()
	if err != nil {
		t.Fatalf("could not shut down: %v", err)
	}
	err = s.Shutdown() // Idempotent.
	if err != nil {
		t.Fatalf("second shutdown errored: %v", err)
	}
	if enc.closed != 1 {
		t.Errorf("encoder closed %d times, want 1", enc.closed)
	}
}

func TestFileStreamDrainsOnShutdown(t *testing.T) {
	enc := &testEncoder{}
	cfg := session.StreamConfig{Width: 4, Height: 4, Format: session.FormatFile}
	s := NewFile(cfg, enc, testLog())

	err := s.Initialize()
	if err != nil {
		t.Fatalf("could not initialise: %v", err)
	}

	for i := 0; i < 3; i++ {
		err = s.Send(testFrame(4, 4, byte(i)))
		if err != nil {
			t.Fatalf("could not send frame %d: %v", i, err)
		}
	}

	err = s.Shutdown()
	if err != nil {
		t.Fatalf("could not shut down: %v", err)
	}
	if enc.writeCount() != 3 {
		t.Errorf("frames lost on shutdown: got %d writes, want 3", enc.writeCount())
	}
}

func TestFileStreamWrongSize(t *testing.T) {
	cfg := session.StreamConfig{Width: 8, Height: 8, Format: session.FormatFile}
	s := NewFile(cfg, &testEncoder{}, testLog())
	err := s.Initialize()
	if err != nil {
		t.Fatalf("could not initialise: %v", err)
	}
	defer s.Shutdown()

	err = s.Send(testFrame(4, 4, 0))
	if err == nil {
		t.Errorf("expected error for wrong frame size")
	}
}

// testPipeline is a no-op media pipeline recording stops.
type testPipeline struct {
	mu      sync.Mutex
	pushes  int
	stopped int
}

func (p *testPipeline) Push(data []byte, pts, dur time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes++
	return nil
}

func (p *testPipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped++
	return nil
}

func TestRTSPStream(t *testing.T) {
	mp := &testPipeline{}
	cfg := session.StreamConfig{Width: 8, Height: 8, FrameRate: 25, Format: session.FormatRTSP, Port: 8554, Mount: "/cap"}
	s := NewRTSP(cfg, mp, testLog())

	err := s.Initialize()
	if err != nil {
		t.Fatalf("could not initialise: %v", err)
	}

	err = s.Send(testFrame(8, 8, 1))
	if err != nil {
		t.Fatalf("could not send: %v", err)
	}

	err = s.Shutdown()
	if err != nil {
		t.Fatalf("could not shut down: %v", err)
	}
	err = s.Shutdown() // Idempotent.
	if err != nil {
		t.Fatalf("second shutdown errored: %v", err)
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.stopped != 1 {
		t.Errorf("pipeline stopped %d times, want 1", mp.stopped)
	}
	if mp.pushes != 1 {
		t.Errorf("pipeline received %d pushes, want 1", mp.pushes)
	}
}
