/*
DESCRIPTION
  composite.go provides assembly of packed tiles and the global view
  into a single BGRA composite frame for transport through the pipeline.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package gundam

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ausocean/cap/frame"
	"github.com/ausocean/cap/scale"
)

// CompositeLayout returns the cell grid and canvas size for a composite
// of n tiles plus the global view. Cells are TileSide square, laid out
// row-major over ceil(sqrt(n+1)) columns with the global view last.
func CompositeLayout(n int, tileSide uint) (cols, rows int, size frame.Size) {
	cols = int(math.Ceil(math.Sqrt(float64(n + 1))))
	rows = (n + cols) / cols // ceil((n+1)/cols)
	size = frame.Size{W: uint(cols) * tileSide, H: uint(rows) * tileSide}
	return cols, rows, size
}

// CompositeBytes returns the length of the composite canvas for n tiles
// plus the global view.
func CompositeBytes(n int, tileSide uint) int {
	_, _, size := CompositeLayout(n, tileSide)
	return int(size.W) * int(size.H) * frame.BytesPerPixel
}

// Composite assembles the packed tiles and global view into dst as one
// BGRA image and returns its dimensions. The global view is fitted into
// a tile cell; cells beyond the global hold the pad background.
func (p *Packer) Composite(tiles [][]byte, global []byte, cfg Config, dst []byte) (frame.Size, error) {
	n := len(tiles)
	cols, _, size := CompositeLayout(n, cfg.TileSide)
	need := int(size.W) * int(size.H) * frame.BytesPerPixel
	if len(dst) < need {
		return frame.Size{}, errors.Wrap(ErrTileBufferUndersized, "composite buffer")
	}

	// Background across the whole canvas covers any unused trailing cells.
	dst = dst[:need]
	for i := 0; i+frame.BytesPerPixel <= len(dst); i += frame.BytesPerPixel {
		copy(dst[i:i+frame.BytesPerPixel], cfg.PadBg[:])
	}

	for i, tile := range tiles {
		if len(tile) < cfg.TileBytes() {
			return frame.Size{}, errors.Wrapf(ErrTileBufferUndersized, "tile %d", i)
		}
		p.blitCell(dst, size, i%cols, i/cols, tile, cfg.TileSide)
	}

	// The global view is larger than a cell; fit it down before placing
	// it in the final cell.
	if p.cell == nil {
		p.cell = make([]byte, cfg.TileBytes())
	}
	globalSize := frame.Size{W: cfg.GlobalSide, H: cfg.GlobalSide}
	plan := scale.BuildPlan(globalSize, scale.Exact(frame.Size{W: cfg.TileSide, H: cfg.TileSide}), scale.PadWith(cfg.PadBg))
	err := p.scaler.Scale(global, globalSize, 0, plan, p.cell, nil)
	if err != nil {
		return frame.Size{}, errors.Wrap(err, "could not fit global view to composite cell")
	}
	p.blitCell(dst, size, n%cols, n/cols, p.cell, cfg.TileSide)

	return size, nil
}

// blitCell copies a tight side*side BGRA cell into the canvas at cell
// coordinates (cx, cy).
func (p *Packer) blitCell(canvas []byte, canvasSize frame.Size, cx, cy int, cell []byte, side uint) {
	canvasRow := int(canvasSize.W) * frame.BytesPerPixel
	cellRow := int(side) * frame.BytesPerPixel
	x0 := cx * cellRow
	y0 := cy * int(side)
	for r := 0; r < int(side); r++ {
		off := (y0+r)*canvasRow + x0
		copy(canvas[off:off+cellRow], cell[r*cellRow:(r+1)*cellRow])
	}
}
