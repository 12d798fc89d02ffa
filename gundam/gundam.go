/*
DESCRIPTION
  gundam.go provides packing of a BGRA frame into the DeepSeek-OCR
  "Gundam" input layout: a grid of square tiles plus a single square
  global view, each produced by padding-preserving downscale.

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

// Package gundam provides tiling of BGRA frames into a multi-tile plus
// global-view layout for vision language model consumption.
package gundam

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ausocean/cap/frame"
	"github.com/ausocean/cap/scale"
)

// Defaults matching the public DeepSeek-OCR examples.
const (
	defaultTileSide   = 640
	defaultGlobalSide = 1024
	defaultMinTiles   = 2
	defaultMaxTiles   = 9
)

// The grid axis bound; at most gridMax x gridMax tiles are produced.
const gridMax = 3

// Errors returned by the packer.
var (
	// ErrGridUnderflow indicates fewer tiles than the configured minimum;
	// unreachable for grids produced by ChooseGrid.
	ErrGridUnderflow = errors.New("grid produced fewer tiles than minimum")

	// ErrTileBufferUndersized indicates an output buffer smaller than a
	// tile or global canvas requires.
	ErrTileBufferUndersized = errors.New("output buffer undersized")
)

// Config holds the tiling parameters.
type Config struct {
	TileSide    uint    // Side of each square tile.
	GlobalSide  uint    // Side of the square global view.
	MinTiles    int     // Minimum tiles produced.
	MaxTiles    int     // Maximum tiles produced.
	AutoGrid    bool    // Choose the grid from the input dimensions.
	OverlapFrac float64 // Fraction of a tile step shared with neighbours.
	PadBg       [4]byte // BGRA background for padded canvas areas.
}

// DefaultConfig returns the DeepSeek-OCR defaults: 640px tiles, 1024px
// global view, 2-9 tiles, no overlap, opaque white padding.
func DefaultConfig() Config {
	return Config{
		TileSide:    defaultTileSide,
		GlobalSide:  defaultGlobalSide,
		MinTiles:    defaultMinTiles,
		MaxTiles:    defaultMaxTiles,
		AutoGrid:    true,
		OverlapFrac: 0,
		PadBg:       [4]byte{255, 255, 255, 255},
	}
}

// TileBytes returns the size of one tile output buffer.
func (c Config) TileBytes() int {
	return int(c.TileSide) * int(c.TileSide) * frame.BytesPerPixel
}

// GlobalBytes returns the size of the global output buffer.
func (c Config) GlobalBytes() int {
	return int(c.GlobalSide) * int(c.GlobalSide) * frame.BytesPerPixel
}

// Rect is a rectangle in source pixel coordinates.
type Rect struct {
	X, Y, W, H int
}

// ChooseGrid returns the tile grid (cols, rows) for an input of the
// given dimensions. Each axis spans its dimension in 1024px cells
// rounded to nearest and clamped to [1,3], so an extra row or column is
// only added once the overhang exceeds half a cell (1080p stays a
// single row rather than gaining a sliver). A one-tile result expands
// the longer axis (columns on a tie), and an overflow past nine tiles
// pins both axes to 3.
func ChooseGrid(w, h uint) (cols, rows int) {
	cols = clampAxis(int(math.Round(float64(w) / 1024)))
	rows = clampAxis(int(math.Round(float64(h) / 1024)))

	if cols*rows < 2 {
		if w >= h {
			cols = clampAxis(cols + 1)
		} else {
			rows = clampAxis(rows + 1)
		}
	}
	if cols*rows > 9 {
		cols, rows = gridMax, gridMax
	}
	return cols, rows
}

func clampAxis(v int) int {
	if v < 1 {
		return 1
	}
	if v > gridMax {
		return gridMax
	}
	return v
}

// mkGrid returns the source rectangle for each tile of a cols x rows
// grid over a w x h image, widened on each axis by OverlapFrac of the
// tile step and clamped to the image bounds.
func mkGrid(w, h uint, cols, rows int, overlapFrac float64) []Rect {
	rects := make([]Rect, 0, cols*rows)
	stepW := int(math.Ceil(float64(w) / float64(cols)))
	stepH := int(math.Ceil(float64(h) / float64(rows)))
	ovW := int(float64(stepW) * overlapFrac)
	ovH := int(float64(stepH) * overlapFrac)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x0 := clamp(c*stepW-ovW, 0, int(w))
			y0 := clamp(r*stepH-ovH, 0, int(h))
			x1 := clamp((c+1)*stepW+ovW, 0, int(w))
			y1 := clamp((r+1)*stepH+ovH, 0, int(h))
			rects = append(rects, Rect{
				X: x0,
				Y: y0,
				W: maxInt(x1-x0, 1),
				H: maxInt(y1-y0, 1),
			})
		}
	}
	return rects
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Output holds the caller-provided destination buffers for a pack. Tiles
// must provide at least as many slots as the grid produces, each of
// Config.TileBytes length; Global must be Config.GlobalBytes long.
type Output struct {
	Tiles  [][]byte
	Global []byte
}

// Packer crops, scales and pads frames into the Gundam layout. A Packer
// owns its scratch buffers and must not be used for two frames
// concurrently.
type Packer struct {
	scaler  *scale.Scaler
	staging *scale.Staging
	cell    []byte // Scratch for fitting the global view into a composite cell.
}

// NewPacker returns a Packer with staging sized for sources up to the
// given byte length. The staging buffer grows if a larger source
// arrives.
func NewPacker(stagingBytes int) *Packer {
	return &Packer{
		scaler:  scale.NewScaler(),
		staging: scale.NewStaging(stagingBytes),
	}
}

// Pack tiles the source image into out. Each grid rectangle is cropped
// through the staging buffer, scaled onto a padded square tile canvas,
// and the whole source is scaled onto the padded square global canvas.
// srcStride of zero means tightly packed rows.
func (p *Packer) Pack(src []byte, srcSize frame.Size, srcStride int, cfg Config, out *Output) error {
	if srcStride == 0 {
		srcStride = int(srcSize.W) * frame.BytesPerPixel
	}

	cols, rows := ChooseGrid(srcSize.W, srcSize.H)
	rects := mkGrid(srcSize.W, srcSize.H, cols, rows, cfg.OverlapFrac)
	if len(rects) > cfg.MaxTiles {
		rects = rects[:cfg.MaxTiles]
	}
	if len(rects) < cfg.MinTiles {
		return ErrGridUnderflow
	}
	if len(out.Tiles) < len(rects) {
		return errors.Wrapf(ErrTileBufferUndersized, "need %d tile buffers, have %d", len(rects), len(out.Tiles))
	}
	if len(out.Global) < cfg.GlobalBytes() {
		return errors.Wrap(ErrTileBufferUndersized, "global buffer")
	}

	tileCanvas := frame.Size{W: cfg.TileSide, H: cfg.TileSide}
	for i, r := range rects {
		if len(out.Tiles[i]) < cfg.TileBytes() {
			return errors.Wrapf(ErrTileBufferUndersized, "tile %d", i)
		}

		p.staging.CompactRect(src, srcStride, r.X, r.Y, r.W, r.H)
		tileSize := frame.Size{W: uint(r.W), H: uint(r.H)}
		plan := scale.BuildPlan(tileSize, scale.Exact(tileCanvas), scale.PadWith(cfg.PadBg))

		// Staging already holds a tight crop, so no second staging pass is
		// needed inside the scaler.
		err := p.scaler.Scale(p.staging.Bytes(), tileSize, 0, plan, out.Tiles[i], nil)
		if err != nil {
			return errors.Wrapf(err, "could not scale tile %d", i)
		}
	}

	globalPlan := scale.BuildPlan(srcSize, scale.Exact(frame.Size{W: cfg.GlobalSide, H: cfg.GlobalSide}), scale.PadWith(cfg.PadBg))
	err := p.scaler.Scale(src, srcSize, srcStride, globalPlan, out.Global, p.staging)
	if err != nil {
		return errors.Wrap(err, "could not scale global view")
	}
	return nil
}
