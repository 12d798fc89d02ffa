/*
DESCRIPTION
  pool.go provides a bounded pool of reusable fixed-size byte buffers
  for the frame hot path, avoiding per-frame allocation churn.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pool provides bounded reuse of fixed-size byte buffers keyed
// only by capacity. Producers and consumers share one pool; neither
// owns it.
package pool

import (
	"sync"
)

// Pool is a bounded store of idle fixed-size buffers. Acquire pops an
// idle buffer or allocates a fresh zeroed one; Release zeroes a buffer
// and returns it unless the pool is at capacity. All operations are
// safe for concurrent use.
type Pool struct {
	mu         sync.Mutex
	idle       [][]byte
	bufferSize int
	maxBuffers int
}

// New returns a pool of buffers of bufferSize bytes keeping at most
// maxBuffers idle. No buffers are allocated up front.
func New(bufferSize, maxBuffers int) *Pool {
	return &Pool{
		idle:       make([][]byte, 0, maxBuffers),
		bufferSize: bufferSize,
		maxBuffers: maxBuffers,
	}
}

// Acquire returns a zeroed buffer of the pool's buffer size, reusing an
// idle buffer when one is available.
func (p *Pool) Acquire() []byte {
	p.mu.Lock()
	n := len(p.idle)
	if n != 0 {
		buf := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return buf
	}
	p.mu.Unlock()
	return make([]byte, p.bufferSize)
}

// Release zeroes buf and returns it to the pool. Buffers of the wrong
// size, and buffers beyond the pool's bound, are dropped. Zeroing means
// a buffer never carries one frame's pixels into its next use.
func (p *Pool) Release(buf []byte) {
	if len(buf) != p.bufferSize {
		return
	}
	for i := range buf {
		buf[i] = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) >= p.maxBuffers {
		return
	}
	p.idle = append(p.idle, buf)
}

// Stats returns the number of idle buffers and the pool's bound.
func (p *Pool) Stats() (idle, max int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle), p.maxBuffers
}
