/*
DESCRIPTION
  frame.go provides the BGRA frame type carried between capture sources,
  frame processors and streams, along with the Size type used for
  dimension negotiation.

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

// Package frame provides the types used to pass raw BGRA video frames
// between the components of a capture pipeline.
package frame

import (
	"errors"
	"fmt"
)

// NoPTS indicates a frame that carries no presentation timestamp; sinks
// receiving such a frame stamp it on arrival.
const NoPTS int64 = -1

// BytesPerPixel is the size of one BGRA pixel.
const BytesPerPixel = 4

var errZeroDimension = errors.New("frame dimensions must be non-zero")

// Size represents pixel dimensions of an image or frame. Both dimensions
// are at least 1 for any size produced by this package's validation.
type Size struct {
	W, H uint
}

// Long returns the longer of the two dimensions.
func (s Size) Long() uint {
	if s.W >= s.H {
		return s.W
	}
	return s.H
}

// Validate checks that both dimensions are non-zero.
func (s Size) Validate() error {
	if s.W == 0 || s.H == 0 {
		return errZeroDimension
	}
	return nil
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.W, s.H) }

// BGRA is a raw frame in BGRA memory order (B, G, R, A per pixel,
// row-major). Data is shared between all holders of the frame and must
// not be mutated once the frame has been emitted by its producer; a
// component needing different pixels allocates or acquires its own
// buffer and emits a new frame. Alpha is informational only.
//
// Invariants: len(Data) >= Stride*H and Stride >= 4*W. Stride may exceed
// 4*W when the producer supplies padded rows.
type BGRA struct {
	// Data holds the pixel bytes. Read-only once emitted.
	Data []byte

	// Width and Height are the pixel dimensions.
	Width, Height uint

	// Stride is the number of bytes per row, including any padding.
	Stride int

	// PTS is the presentation timestamp in nanoseconds, or NoPTS if the
	// producer did not stamp the frame.
	PTS int64
}

// Size returns the frame's pixel dimensions.
func (f *BGRA) Size() Size { return Size{W: f.Width, H: f.Height} }

// Tight reports whether the frame's rows are tightly packed, i.e. the
// stride carries no end-of-row padding.
func (f *BGRA) Tight() bool { return f.Stride == int(f.Width)*BytesPerPixel }

// Validate checks the frame invariants.
func (f *BGRA) Validate() error {
	err := f.Size().Validate()
	if err != nil {
		return err
	}
	if f.Stride < int(f.Width)*BytesPerPixel {
		return fmt.Errorf("stride %d shorter than row of %d pixels", f.Stride, f.Width)
	}
	if len(f.Data) < f.Stride*int(f.Height) {
		return fmt.Errorf("frame data length %d less than stride*height (%d)", len(f.Data), f.Stride*int(f.Height))
	}
	return nil
}
