/*
DESCRIPTION
  presets.go provides the named token presets used to reduce vision
  language model input tokens by clamping a frame's longer side.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package scale

import "fmt"

// TokenPreset names a long-side clamp tuned for a particular token
// reduction factor. The numeric part of each name is the approximate
// reduction relative to common capture resolutions, e.g. P9 takes
// 1920px down to 640px.
type TokenPreset int

// The closed set of presets. All combine with Preserve unless the caller
// requires an exact canvas.
const (
	P2_56 TokenPreset = iota // 1024px -> 640px long side.
	P4                       // 1280px -> 640px.
	P6_9                     // 1344px -> 512px; higher compression for dense text.
	P9                       // 1920px -> 640px.
	P10_24                   // 2048px -> 640px.
)

var presetNames = map[TokenPreset]string{
	P2_56:  "p2_56",
	P4:     "p4",
	P6_9:   "p6_9",
	P9:     "p9",
	P10_24: "p10_24",
}

// Target returns the scale target for the preset.
func (p TokenPreset) Target() Target {
	if p == P6_9 {
		return MaxLongSide(512)
	}
	return MaxLongSide(640)
}

func (p TokenPreset) String() string {
	if n, ok := presetNames[p]; ok {
		return n
	}
	return fmt.Sprintf("TokenPreset(%d)", int(p))
}

// ParsePreset returns the preset named by s, e.g. "p9".
func ParsePreset(s string) (TokenPreset, error) {
	for p, n := range presetNames {
		if n == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown token preset: %q", s)
}
