package colorfix

import (
	"encoding/json"
	"fmt"
)

// Space is the color space a Range lives in.
type Space uint8

const (
	SpaceRGB Space = iota
	SpaceHSV
)

func (s Space) String() string {
	switch s {
	case SpaceRGB:
		return "rgb"
	case SpaceHSV:
		return "hsv"
	}
	return fmt.Sprintf("space(%d)", s)
}

// Range is an input interval for a stretch: RGBRange or HSVRange.
type Range interface {
	Space() Space
	String() string
}

// RGBRange holds per-channel bounds in sample units.
type RGBRange struct {
	Min [3]uint8 `json:"min"`
	Max [3]uint8 `json:"max"`
}

// Space implements Range.
func (RGBRange) Space() Space { return SpaceRGB }

func (r RGBRange) String() string {
	return fmt.Sprintf("rgb[%v..%v]", r.Min, r.Max)
}

// linked returns the union of the channel intervals.
func (r RGBRange) linked() (lo, hi uint8) {
	lo = min(r.Min[0], r.Min[1], r.Min[2])
	hi = max(r.Max[0], r.Max[1], r.Max[2])
	return lo, hi
}

// HSVRange holds saturation and value bounds in [0, 1].
type HSVRange struct {
	MinS float64 `json:"min_s"`
	MaxS float64 `json:"max_s"`
	MinV float64 `json:"min_v"`
	MaxV float64 `json:"max_v"`
}

// Space implements Range.
func (HSVRange) Space() Space { return SpaceHSV }

func (r HSVRange) String() string {
	return fmt.Sprintf("hsv[s %.3f..%.3f v %.3f..%.3f]", r.MinS, r.MaxS, r.MinV, r.MaxV)
}

// ContractError reports a stretch op fed a Range of the wrong space. It is
// raised as a panic: the chain was assembled incorrectly.
type ContractError struct {
	Op   Op
	Want Space
	Got  Space
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("colorfix: %s needs a %s range, got %s", e.Op, e.Want, e.Got)
}

type rangeJSON struct {
	Space string    `json:"space"`
	RGB   *RGBRange `json:"rgb,omitempty"`
	HSV   *HSVRange `json:"hsv,omitempty"`
}

type chainJSON struct {
	Ops    []Op       `json:"ops"`
	Custom *rangeJSON `json:"custom,omitempty"`
	Clip   float64    `json:"clip,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c Chain) MarshalJSON() ([]byte, error) {
	v := chainJSON{Ops: c.Ops, Clip: c.Clip}
	if v.Ops == nil {
		v.Ops = []Op{}
	}
	switch rg := c.Custom.(type) {
	case nil:
	case RGBRange:
		v.Custom = &rangeJSON{Space: "rgb", RGB: &rg}
	case HSVRange:
		v.Custom = &rangeJSON{Space: "hsv", HSV: &rg}
	default:
		return nil, fmt.Errorf("colorfix: cannot encode range %T", c.Custom)
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Chain) UnmarshalJSON(b []byte) error {
	var v chainJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	out := Chain{Ops: v.Ops, Clip: v.Clip}
	if v.Custom != nil {
		switch {
		case v.Custom.Space == "rgb" && v.Custom.RGB != nil:
			out.Custom = *v.Custom.RGB
		case v.Custom.Space == "hsv" && v.Custom.HSV != nil:
			out.Custom = *v.Custom.HSV
		default:
			return fmt.Errorf("colorfix: invalid custom range %q", v.Custom.Space)
		}
	}
	*c = out
	return nil
}
