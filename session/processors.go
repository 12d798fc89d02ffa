/*
DESCRIPTION
  processors.go provides the frame processors usable in a session
  chain: a token-preset scaling processor and a Gundam tiling processor
  emitting composite frames.

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
	"fmt"

	"github.com/ausocean/cap/frame"
	"github.com/ausocean/cap/gundam"
	"github.com/ausocean/cap/scale"
)

// ScalingProcessor downscales every frame according to a token preset,
// preserving aspect ratio. The output buffer is pre-allocated at
// initialisation and reused across frames.
type ScalingProcessor struct {
	preset  scale.TokenPreset
	scaler  *scale.Scaler
	staging *scale.Staging
	plan    scale.Plan
	out     []byte
}

// NewScalingProcessor returns a scaling processor for the preset.
func NewScalingProcessor(p scale.TokenPreset) *ScalingProcessor {
	return &ScalingProcessor{preset: p, scaler: scale.NewScaler()}
}

// Initialize builds the scale plan for the session's input size and
// pre-allocates the output and staging buffers.
func (p *ScalingProcessor) Initialize(input frame.Size) (frame.Size, error) {
	err := input.Validate()
	if err != nil {
		return frame.Size{}, fmt.Errorf("bad input size: %w", err)
	}
	p.plan = scale.BuildPlan(input, p.preset.Target(), scale.Aspect{Mode: scale.Preserve})
	p.out = make([]byte, int(p.plan.Out.W)*int(p.plan.Out.H)*frame.BytesPerPixel)
	p.staging = scale.NewStaging(int(input.W) * int(input.H) * frame.BytesPerPixel)
	return p.plan.Out, nil
}

// Process scales the frame into the processor's output buffer and
// emits it with the presentation timestamp carried through.
func (p *ScalingProcessor) Process(f frame.BGRA) (frame.BGRA, bool, error) {
	err := p.scaler.Scale(f.Data, f.Size(), f.Stride, p.plan, p.out, p.staging)
	if err != nil {
		return frame.BGRA{}, false, fmt.Errorf("could not scale frame: %w", err)
	}
	return frame.BGRA{
		Data:   p.out,
		Width:  p.plan.Out.W,
		Height: p.plan.Out.H,
		Stride: int(p.plan.Out.W) * frame.BytesPerPixel,
		PTS:    f.PTS,
	}, true, nil
}

// GundamProcessor packs every frame into tiles plus a global view and
// emits the assembled composite. Tile, global and composite buffers are
// pre-allocated at initialisation and reused across frames.
type GundamProcessor struct {
	cfg       gundam.Config
	packer    *gundam.Packer
	out       *gundam.Output
	composite []byte
	size      frame.Size
}

// NewGundamProcessor returns a Gundam processor with the given tiling
// configuration.
func NewGundamProcessor(cfg gundam.Config) *GundamProcessor {
	return &GundamProcessor{cfg: cfg}
}

// Initialize derives the tile grid from the input size, pre-allocates
// the tile, global and composite buffers, and returns the composite
// dimensions.
func (p *GundamProcessor) Initialize(input frame.Size) (frame.Size, error) {
	err := input.Validate()
	if err != nil {
		return frame.Size{}, fmt.Errorf("bad input size: %w", err)
	}

	cols, rows := gundam.ChooseGrid(input.W, input.H)
	n := cols * rows
	if n > p.cfg.MaxTiles {
		n = p.cfg.MaxTiles
	}

	p.packer = gundam.NewPacker(int(input.W) * int(input.H) * frame.BytesPerPixel)
	p.out = &gundam.Output{Global: make([]byte, p.cfg.GlobalBytes())}
	for i := 0; i < n; i++ {
		p.out.Tiles = append(p.out.Tiles, make([]byte, p.cfg.TileBytes()))
	}
	p.composite = make([]byte, gundam.CompositeBytes(n, p.cfg.TileSide))
	_, _, p.size = gundam.CompositeLayout(n, p.cfg.TileSide)
	return p.size, nil
}

// Process packs the frame and emits the composite with the
// presentation timestamp carried through.
func (p *GundamProcessor) Process(f frame.BGRA) (frame.BGRA, bool, error) {
	err := p.packer.Pack(f.Data, f.Size(), f.Stride, p.cfg, p.out)
	if err != nil {
		return frame.BGRA{}, false, fmt.Errorf("could not pack frame: %w", err)
	}

	size, err := p.packer.Composite(p.out.Tiles, p.out.Global, p.cfg, p.composite)
	if err != nil {
		return frame.BGRA{}, false, fmt.Errorf("could not assemble composite: %w", err)
	}
	if size != p.size {
		return frame.BGRA{}, false, fmt.Errorf("composite size changed: got %v, want %v", size, p.size)
	}

	return frame.BGRA{
		Data:   p.composite,
		Width:  size.W,
		Height: size.H,
		Stride: int(size.W) * frame.BytesPerPixel,
		PTS:    f.PTS,
	}, true, nil
}
