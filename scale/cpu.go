/*
DESCRIPTION
  cpu.go provides the CPU execution of scale plans on raw BGRA buffers,
  including compaction of strided input rows into a staging buffer and
  background fill for padded canvases.

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

package scale

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/ausocean/cap/frame"
)

// Errors returned by Scaler.Scale.
var (
	// ErrBufferTooSmall indicates the destination buffer is smaller than
	// the plan's output canvas requires.
	ErrBufferTooSmall = errors.New("output buffer too small for plan")

	// ErrNoStaging indicates the input rows are strided but no staging
	// buffer was provided to compact them.
	ErrNoStaging = errors.New("strided input and no staging buffer provided")
)

// Staging is a reusable scratch buffer into which strided or cropped
// source rows are compacted before resampling. A staging buffer retains
// its capacity across frames.
type Staging struct {
	buf []byte
}

// NewStaging returns a staging buffer with the given initial capacity.
// For strided input the capacity should be at least w*h*4 of the source.
func NewStaging(capacity int) *Staging {
	return &Staging{buf: make([]byte, 0, capacity)}
}

// ensure grows the buffer to at least n bytes and returns the first n
// bytes.
func (s *Staging) ensure(n int) []byte {
	if cap(s.buf) < n {
		s.buf = make([]byte, n)
	}
	s.buf = s.buf[:n]
	return s.buf
}

// Bytes returns the staged data.
func (s *Staging) Bytes() []byte { return s.buf }

// Compact copies h rows of rowBytes pixel bytes out of a strided source
// into the staging buffer, producing a tightly packed image. The offset
// of row r in src is r*pitch.
func (s *Staging) Compact(src []byte, pitch, rowBytes, h int) {
	dst := s.ensure(rowBytes * h)
	for r := 0; r < h; r++ {
		copy(dst[r*rowBytes:(r+1)*rowBytes], src[r*pitch:r*pitch+rowBytes])
	}
}

// CompactRect copies the rows of rectangle (x,y,w,h) out of a strided
// source into the staging buffer, producing a tightly packed w*h image.
func (s *Staging) CompactRect(src []byte, pitch, x, y, w, h int) {
	rowBytes := w * frame.BytesPerPixel
	dst := s.ensure(rowBytes * h)
	for r := 0; r < h; r++ {
		off := (y+r)*pitch + x*frame.BytesPerPixel
		copy(dst[r*rowBytes:(r+1)*rowBytes], src[off:off+rowBytes])
	}
}

// Scaler executes scale plans on BGRA buffers using a convolution
// resampler (Catmull-Rom). The kernel operates on each channel
// independently and frames are treated as opaque, so BGRA data is
// resampled in place of RGBA without conversion.
//
// A Scaler is not safe for concurrent use; a single instance must not be
// invoked for two frames at once.
type Scaler struct {
	interp draw.Interpolator
}

// NewScaler returns a Scaler using the Catmull-Rom kernel.
func NewScaler() *Scaler {
	return &Scaler{interp: draw.CatmullRom}
}

// Scale resizes the BGRA image in src according to the plan, writing the
// result to dst. srcStride gives the bytes per source row; zero means
// tightly packed. If the source is strided, staging must be non-nil; its
// contents are overwritten. dst must hold exactly plan.Out.W*plan.Out.H*4
// bytes of canvas; in Pad mode the whole canvas is filled with the
// background before the resampled content is written into plan.ROI.
func (s *Scaler) Scale(src []byte, srcSize frame.Size, srcStride int, plan Plan, dst []byte, staging *Staging) error {
	need := int(plan.Out.W) * int(plan.Out.H) * frame.BytesPerPixel
	if len(dst) < need {
		return ErrBufferTooSmall
	}

	tightRow := int(srcSize.W) * frame.BytesPerPixel
	if srcStride == 0 {
		srcStride = tightRow
	}
	if srcStride < tightRow {
		return fmt.Errorf("stride %d shorter than row of %d pixels", srcStride, srcSize.W)
	}
	if len(src) < srcStride*int(srcSize.H) {
		return fmt.Errorf("source buffer length %d less than stride*height (%d)", len(src), srcStride*int(srcSize.H))
	}

	// Resolve the source to a tight row layout, compacting through the
	// staging buffer when the input carries row padding.
	pix := src
	if srcStride != tightRow {
		if staging == nil {
			return ErrNoStaging
		}
		staging.Compact(src, srcStride, tightRow, int(srcSize.H))
		pix = staging.Bytes()
	}

	// Padding is applied before the resample so the resample can write
	// directly into the ROI without re-padding afterwards.
	dst = dst[:need]
	if plan.Padded() {
		fillBGRA(dst, plan.Aspect.Bg)
	}

	srcImg := &image.RGBA{
		Pix:    pix,
		Stride: tightRow,
		Rect:   image.Rect(0, 0, int(srcSize.W), int(srcSize.H)),
	}
	dstImg := &image.RGBA{
		Pix:    dst,
		Stride: int(plan.Out.W) * frame.BytesPerPixel,
		Rect:   image.Rect(0, 0, int(plan.Out.W), int(plan.Out.H)),
	}

	dr := dstImg.Rect
	if plan.Padded() {
		dr = plan.ROI
	}
	s.interp.Scale(dstImg, dr, srcImg, srcImg.Rect, draw.Src, nil)
	return nil
}

// fillBGRA stamps the four byte background over every pixel of dst.
func fillBGRA(dst []byte, bg [4]byte) {
	for i := 0; i+frame.BytesPerPixel <= len(dst); i += frame.BytesPerPixel {
		copy(dst[i:i+frame.BytesPerPixel], bg[:])
	}
}
