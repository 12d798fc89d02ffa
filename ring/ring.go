/*
DESCRIPTION
  ring.go provides a fixed-capacity single-producer single-consumer
  ring buffer of whole frames, used to hand frames between a capture
  thread and an encoding thread without locks.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Alan Noble <alan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package ring provides a lock-free single-producer single-consumer
// ring buffer of fixed-size frames. Exactly one goroutine may write and
// exactly one may read; positions are published with atomic
// store-release and observed with load-acquire, so a frame's bytes are
// visible to the reader before the position that exposes them.
package ring

import (
	"errors"
	"sync/atomic"
)

// Errors returned by Buffer operations. ErrFull and ErrEmpty are
// expected back-pressure conditions, not failures.
var (
	ErrFull              = errors.New("ring buffer full")
	ErrEmpty             = errors.New("ring buffer empty")
	ErrFrameSizeMismatch = errors.New("data length does not match frame size")
)

// Buffer is an SPSC ring of frameCapacity slots of frameSize bytes.
// One slot is always kept free to distinguish a full ring from an empty
// one, so the usable capacity is frameCapacity-1 frames.
//
// The backing store is a plain heap allocation; the atomic position
// protocol does not depend on the buffer being memory-mapped.
type Buffer struct {
	buf       []byte
	size      int // Total bytes.
	frameSize int

	writePos atomic.Uint64 // Byte offset, frame aligned, owned by the producer.
	readPos  atomic.Uint64 // Byte offset, frame aligned, owned by the consumer.
}

// NewBuffer returns a ring of frameCapacity frames of frameSize bytes.
func NewBuffer(frameSize, frameCapacity int) *Buffer {
	size := frameSize * frameCapacity
	return &Buffer{
		buf:       make([]byte, size),
		size:      size,
		frameSize: frameSize,
	}
}

// WriteFrame copies data into the next free slot. It returns
// ErrFrameSizeMismatch if data is not exactly one frame, and ErrFull if
// accepting the frame would make the write position catch the read
// position.
func (b *Buffer) WriteFrame(data []byte) error {
	if len(data) != b.frameSize {
		return ErrFrameSizeMismatch
	}

	w := b.writePos.Load()
	next := (w + uint64(b.frameSize)) % uint64(b.size)
	if next == b.readPos.Load() {
		return ErrFull
	}

	copy(b.buf[w:w+uint64(b.frameSize)], data)
	b.writePos.Store(next)
	return nil
}

// ReadFrame copies the oldest frame into out. It returns
// ErrFrameSizeMismatch if out is not exactly one frame, and ErrEmpty,
// leaving out untouched, if no frame is available.
func (b *Buffer) ReadFrame(out []byte) error {
	if len(out) != b.frameSize {
		return ErrFrameSizeMismatch
	}

	r := b.readPos.Load()
	if r == b.writePos.Load() {
		return ErrEmpty
	}

	copy(out, b.buf[r:r+uint64(b.frameSize)])
	b.readPos.Store((r + uint64(b.frameSize)) % uint64(b.size))
	return nil
}

// Status returns the number of frames currently buffered and the total
// number of slots.
func (b *Buffer) Status() (filled, total int) {
	w := b.writePos.Load()
	r := b.readPos.Load()
	filled = int(((w + uint64(b.size) - r) % uint64(b.size))) / b.frameSize
	return filled, b.size / b.frameSize
}
