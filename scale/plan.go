/*
DESCRIPTION
  plan.go provides scale targets, aspect modes and the computation of
  scale plans, which describe the output canvas and placement for a
  single resize operation.

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

// Package scale provides planning and CPU execution of BGRA resize
// operations for the capture pipeline. A plan is computed once from the
// input dimensions and reused for every frame of a session.
package scale

import (
	"image"
	"math"

	"github.com/ausocean/cap/frame"
)

// Target kinds.
const (
	// TargetMaxLongSide clamps the longer dimension and derives the other
	// proportionally. Never upscales.
	TargetMaxLongSide = iota

	// TargetExact pins the output canvas to an exact size.
	TargetExact
)

// Target constrains the output size of a scale operation. Construct with
// MaxLongSide or Exact.
type Target struct {
	Kind int
	Long uint       // Long is the side clamp for TargetMaxLongSide.
	Size frame.Size // Size is the canvas for TargetExact.
}

// MaxLongSide returns a Target clamping the longer dimension to n.
func MaxLongSide(n uint) Target { return Target{Kind: TargetMaxLongSide, Long: n} }

// Exact returns a Target pinning the output canvas to s.
func Exact(s frame.Size) Target { return Target{Kind: TargetExact, Size: s} }

// Aspect modes.
const (
	// Preserve fits within the target bounds keeping aspect ratio, with
	// no padding; the canvas shrinks to the fitted size.
	Preserve = iota

	// Distort stretches to the exact canvas.
	Distort

	// Pad centres the aspect-preserved image on the exact canvas and
	// fills the remainder with a background colour.
	Pad
)

// Aspect selects aspect ratio handling for a scale operation. Bg is the
// BGRA background colour and is consulted only when Mode is Pad.
type Aspect struct {
	Mode int
	Bg   [4]byte
}

// PadWith returns a Pad aspect with the given BGRA background.
func PadWith(bg [4]byte) Aspect { return Aspect{Mode: Pad, Bg: bg} }

// Plan describes a resize fully: the input size it was built for, the
// constraint and aspect handling requested, the resulting output canvas,
// and, in Pad mode only, the sub-rectangle of the canvas that receives
// resized content. Pixels outside ROI hold the background colour.
type Plan struct {
	Input  frame.Size
	Target Target
	Aspect Aspect
	Out    frame.Size
	ROI    image.Rectangle // Empty unless Aspect.Mode is Pad.
}

// Padded reports whether the plan places content in a sub-rectangle of a
// background-filled canvas.
func (p Plan) Padded() bool { return p.Aspect.Mode == Pad }

// BuildPlan computes the plan for scaling an image of the given input
// size under the given target and aspect mode.
func BuildPlan(input frame.Size, target Target, aspect Aspect) Plan {
	p := Plan{Input: input, Target: target, Aspect: aspect}

	switch target.Kind {
	case TargetMaxLongSide:
		switch aspect.Mode {
		case Preserve:
			p.Out = fitPreserve(input, target.Long)
		case Distort:
			p.Out = frame.Size{W: target.Long, H: target.Long}
		case Pad:
			p.Out = frame.Size{W: target.Long, H: target.Long}
			p.ROI = centre(fitPreserve(input, target.Long), p.Out)
		}
	case TargetExact:
		switch aspect.Mode {
		case Preserve:
			p.Out = fitWithin(input, target.Size)
		case Distort:
			p.Out = target.Size
		case Pad:
			p.Out = target.Size
			p.ROI = centre(fitWithin(input, target.Size), p.Out)
		}
	}
	return p
}

// fitPreserve clamps the longer dimension to maxLong and derives the
// other proportionally, rounding to nearest and clamping to >= 1. The
// scaling ratio never exceeds 1, so images already within bounds pass
// through at their original size.
func fitPreserve(input frame.Size, maxLong uint) frame.Size {
	w, h := float64(input.W), float64(input.H)
	s := math.Min(float64(maxLong)/math.Max(w, h), 1.0)
	return rounded(w*s, h*s)
}

// fitWithin fits input inside box preserving aspect ratio, without
// upscaling.
func fitWithin(input, box frame.Size) frame.Size {
	w, h := float64(input.W), float64(input.H)
	s := math.Min(math.Min(float64(box.W)/w, float64(box.H)/h), 1.0)
	return rounded(w*s, h*s)
}

func rounded(w, h float64) frame.Size {
	return frame.Size{W: max1(math.Round(w)), H: max1(math.Round(h))}
}

func max1(v float64) uint {
	if v < 1 {
		return 1
	}
	return uint(v)
}

// centre returns the rectangle placing an image of size in at the centre
// of a canvas of size out.
func centre(in, out frame.Size) image.Rectangle {
	x := int(out.W-in.W) / 2
	y := int(out.H-in.H) / 2
	return image.Rect(x, y, x+int(in.W), y+int(in.H))
}
