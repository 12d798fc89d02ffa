/*
DESCRIPTION
  chain.go provides the sequential frame processor chain. Sizes are
  negotiated once at initialisation by folding each processor's output
  size into the next processor's input.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package session

import "github.com/ausocean/cap/frame"

// Chain is an ordered list of frame processors. The chain owns its
// processors for its lifetime.
type Chain struct {
	processors []FrameProcessor
}

// NewChain returns a chain of the given processors in order.
func NewChain(ps ...FrameProcessor) *Chain {
	return &Chain{processors: ps}
}

// Initialize negotiates sizes left to right and returns the chain's
// output size, which for an empty chain is the input size unchanged.
func (c *Chain) Initialize(input frame.Size) (frame.Size, error) {
	size := input
	for _, p := range c.processors {
		var err error
		size, err = p.Initialize(size)
		if err != nil {
			return frame.Size{}, err
		}
	}
	return size, nil
}

// Process passes a frame through every processor in order. A processor
// electing not to emit ends the pass; emitted is false and the frame is
// dropped.
func (c *Chain) Process(f frame.BGRA) (frame.BGRA, bool, error) {
	for _, p := range c.processors {
		var (
			emitted bool
			err     error
		)
		f, emitted, err = p.Process(f)
		if err != nil {
			return frame.BGRA{}, false, err
		}
		if !emitted {
			return frame.BGRA{}, false, nil
		}
	}
	return f, true, nil
}
