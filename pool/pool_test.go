/*
DESCRIPTION
  pool_test.go provides testing for buffer pool acquire/release
  semantics, bounding and zeroing.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pool

import (
	"sync"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	const size, max = 64, 2
	p := New(size, max)

	buf := p.Acquire()
	if len(buf) != size {
		t.Fatalf("unexpected buffer size: got %d, want %d", len(buf), size)
	}

	buf[0] = 0xff
	p.Release(buf)

	got := p.Acquire()
	if got[0] != 0 {
		t.Errorf("buffer not zeroed on release")
	}
}

func TestBound(t *testing.T) {
	const size, max = 16, 2
	p := New(size, max)

	bufs := [][]byte{p.Acquire(), p.Acquire(), p.Acquire()}
	for _, b := range bufs {
		p.Release(b)
	}

	idle, bound := p.Stats()
	if bound != max {
		t.Errorf("unexpected bound: got %d, want %d", bound, max)
	}
	if idle != max {
		t.Errorf("pool exceeded bound: got %d idle, want %d", idle, max)
	}
}

func TestWrongSizeDropped(t *testing.T) {
	p := New(16, 2)
	p.Release(make([]byte, 8))
	idle, _ := p.Stats()
	if idle != 0 {
		t.Errorf("wrong-sized buffer retained")
	}
}

func TestConcurrent(t *testing.T) {
	const size = 1024
	p := New(size, 4)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				buf := p.Acquire()
				buf[n%size] = byte(n)
				p.Release(buf)
			}
		}()
	}
	wg.Wait()

	idle, max := p.Stats()
	if idle > max {
		t.Errorf("pool exceeded bound after concurrent use: %d > %d", idle, max)
	}
}

func BenchmarkAcquireRelease(b *testing.B) {
	p := New(1920*1080*4, 3)
	for n := 0; n < b.N; n++ {
		p.Release(p.Acquire())
	}
}
