/*
DESCRIPTION
  session_test.go provides testing for the session builder, run loop,
  shutdown ordering and stream fan-out.

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
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/cap/frame"
)

func testLog() logging.Logger {
	return logging.New(logging.Debug, &bytes.Buffer{}, true)
}

// testSource emits tight frames of its size until shut down.
type testSource struct {
	size frame.Size

	mu        sync.Mutex
	captured  int
	initCount int
	downCount int
	stop      chan struct{}
	emitted   chan struct{} // Signalled once per captured frame.
}

func newTestSource(size frame.Size) *testSource {
	return &testSource{
		size:    size,
		stop:    make(chan struct{}),
		emitted: make(chan struct{}, 64),
	}
}

func (s *testSource) InputSize() frame.Size { return s.size }

func (s *testSource) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initCount++
	return nil
}

func (s *testSource) CaptureFrame() (frame.BGRA, error) {
	select {
	case <-s.stop:
		return frame.BGRA{}, errors.New("source stopped")
	default:
	}

	s.mu.Lock()
	s.captured++
	n := s.captured
	s.mu.Unlock()

	f := frame.BGRA{
		Data:   make([]byte, int(s.size.W)*int(s.size.H)*frame.BytesPerPixel),
		Width:  s.size.W,
		Height: s.size.H,
		Stride: int(s.size.W) * frame.BytesPerPixel,
		PTS:    int64(n),
	}
	select {
	case s.emitted <- struct{}{}:
	default:
	}
	return f, nil
}

func (s *testSource) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.downCount == 0 {
		close(s.stop)
	}
	s.downCount++
	return nil
}

// testStream records sends and shutdowns; order records shutdown
// sequence across streams sharing it.
type testStream struct {
	name  string
	cfg   StreamConfig
	order *[]string

	mu        sync.Mutex
	sent      []frame.BGRA
	downCount int
	sendErr   error
}

func (s *testStream) Initialize() error { return nil }

func (s *testStream) Send(f frame.BGRA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, f)
	return nil
}

func (s *testStream) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.downCount == 0 && s.order != nil {
		*s.order = append(*s.order, s.name)
	}
	s.downCount++
	return nil
}

func (s *testStream) Config() StreamConfig { return s.cfg }

func TestBuildValidation(t *testing.T) {
	_, err := NewBuilder(testLog()).WithStream(&testStream{}).Build()
	if err != ErrNoCaptureSource {
		t.Errorf("expected ErrNoCaptureSource, got: %v", err)
	}

	_, err = NewBuilder(testLog()).WithSource(newTestSource(frame.Size{W: 4, H: 4})).Build()
	if err != ErrNoStreams {
		t.Errorf("expected ErrNoStreams, got: %v", err)
	}

	_, err = NewBuilder(testLog()).
		WithSource(newTestSource(frame.Size{W: 4, H: 4})).
		WithStream(&testStream{}).
		Build()
	if err != nil {
		t.Errorf("could not build valid session: %v", err)
	}
}

// TestShutdownOrdering checks that asserting shutdown after at least
// one frame causes each stream to be shut down exactly once, in
// insertion order, with the run loop returning no error.
func TestShutdownOrdering(t *testing.T) {
	src := newTestSource(frame.Size{W: 8, H: 8})
	var order []string
	a := &testStream{name: "A", order: &order}
	b := &testStream{name: "B", order: &order}

	s, err := NewBuilder(testLog()).WithSource(src).WithStream(a).WithStream(b).Build()
	if err != nil {
		t.Fatalf("could not build session: %v", err)
	}

	result := make(chan error, 1)
	go func() { result <- s.Run() }()

	<-src.emitted // At least one successful frame.
	s.Shutdown()
	s.Shutdown() // Signal is monotonic; the second assert is a no-op.

	select {
	case err = <-result:
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not stop")
	}
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	if len(order) != 2 || order[0] != "A" || order[1] != "B" {
		t.Errorf("unexpected shutdown order: %v", order)
	}
	if a.downCount != 1 || b.downCount != 1 {
		t.Errorf("streams not shut down exactly once: A=%d B=%d", a.downCount, b.downCount)
	}
	if src.downCount != 1 {
		t.Errorf("source not shut down exactly once: %d", src.downCount)
	}
}

// TestFanOutSharesHandle checks that every stream observes the same
// pixel buffer, not a copy.
func TestFanOutSharesHandle(t *testing.T) {
	a := &testStream{name: "A"}
	b := &testStream{name: "B"}
	f := NewFanOut(testLog(), a, b)

	fr := frame.BGRA{
		Data:   make([]byte, 4*4*frame.BytesPerPixel),
		Width:  4, Height: 4,
		Stride: 4 * frame.BytesPerPixel,
		PTS:    frame.NoPTS,
	}
	err := f.Send(fr)
	if err != nil {
		t.Fatalf("could not send: %v", err)
	}

	if len(a.sent) != 1 || len(b.sent) != 1 {
		t.Fatalf("streams did not each receive one frame")
	}
	if &a.sent[0].Data[0] != &fr.Data[0] || &b.sent[0].Data[0] != &fr.Data[0] {
		t.Errorf("fan-out copied pixel bytes")
	}
}

// TestFanOutSinkError checks that one failing sink does not starve the
// others of the frame, and that the error surfaces.
func TestFanOutSinkError(t *testing.T) {
	bad := &testStream{name: "bad", sendErr: errors.New("sink broken")}
	good := &testStream{name: "good"}
	f := NewFanOut(testLog(), bad, good)

	fr := frame.BGRA{
		Data:   make([]byte, frame.BytesPerPixel),
		Width:  1, Height: 1,
		Stride: frame.BytesPerPixel,
		PTS:    frame.NoPTS,
	}
	err := f.Send(fr)
	if err == nil {
		t.Fatalf("expected error from failing sink")
	}
	if len(good.sent) != 1 {
		t.Errorf("healthy sink starved of frame")
	}
}

func TestSessionSourceErrorFatal(t *testing.T) {
	src := newTestSource(frame.Size{W: 4, H: 4})
	st := &testStream{name: "A"}
	s, err := NewBuilder(testLog()).WithSource(src).WithStream(st).Build()
	if err != nil {
		t.Fatalf("could not build session: %v", err)
	}

	// Shutting the source down underneath the session makes the next
	// capture fail; the run loop must surface that and still shut the
	// stream down.
	src.Shutdown()
	err = s.Run()
	if err == nil {
		t.Fatalf("expected fatal error from failed source")
	}
	if st.downCount != 1 {
		t.Errorf("stream not shut down after fatal error: %d", st.downCount)
	}
}

func TestChainFoldsSizes(t *testing.T) {
	src := frame.Size{W: 1920, H: 1080}
	c := NewChain(NewScalingProcessor(0), &identityProcessor{})
	out, err := c.Initialize(src)
	if err != nil {
		t.Fatalf("could not initialise chain: %v", err)
	}
	if out != (frame.Size{W: 640, H: 360}) {
		t.Errorf("unexpected chain output size: %v", out)
	}
}

// identityProcessor passes frames through untouched.
type identityProcessor struct{}

func (p *identityProcessor) Initialize(in frame.Size) (frame.Size, error) { return in, nil }

func (p *identityProcessor) Process(f frame.BGRA) (frame.BGRA, bool, error) { return f, true, nil }
