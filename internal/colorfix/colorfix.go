// Package colorfix implements the color-correction chain: histogram
// statistics and RGB/HSV contrast stretching.
//
// A Chain is an ordered list of operations. Two of them are distinguished:
// OpStats derives a Range from the viewport histogram and OpCustomRange
// takes Chain.Custom. Under CommandRender they set the current range used
// by the stretch operations that follow; under CommandExtract the chain
// stops at the first of them and reports its Range instead of rendering.
package colorfix

import (
	"fmt"
	"image"
	"slices"

	"github.com/gogpu/stereo/internal/logx"
	"github.com/gogpu/stereo/internal/parallel"
	"github.com/gogpu/stereo/internal/raster"
)

// Op is one step of a Chain.
type Op uint8

const (
	// OpStats computes a range from the viewport histogram.
	OpStats Op = iota
	// OpCustomRange makes Chain.Custom the current range.
	OpCustomRange
	// OpStretchRGB stretches each channel independently. Needs an RGBRange.
	OpStretchRGB
	// OpStretchLinked stretches all channels by one common interval. Needs an RGBRange.
	OpStretchLinked
	// OpStretchValue stretches HSV value. Needs an HSVRange.
	OpStretchValue
	// OpStretchSaturation stretches HSV saturation. Needs an HSVRange.
	OpStretchSaturation
	// OpInvert replaces every sample v with 255-v.
	OpInvert
)

var opNames = [...]string{"stats", "custom-range", "stretch-rgb", "stretch-linked", "stretch-value", "stretch-saturation", "invert"}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", o)
}

// ParseOp parses the names produced by Op.String.
func ParseOp(s string) (Op, error) {
	for i, n := range opNames {
		if n == s {
			return Op(i), nil
		}
	}
	return 0, fmt.Errorf("colorfix: unknown op %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Op) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Op) UnmarshalText(b []byte) error {
	v, err := ParseOp(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// distinguished reports whether o produces a range rather than pixels.
func (o Op) distinguished() bool {
	return o == OpStats || o == OpCustomRange
}

// space is the color space a stretch op consumes.
func (o Op) space() (Space, bool) {
	switch o {
	case OpStretchRGB, OpStretchLinked:
		return SpaceRGB, true
	case OpStretchValue, OpStretchSaturation:
		return SpaceHSV, true
	}
	return 0, false
}

// Command selects what a chain run is for.
type Command uint8

const (
	// CommandRender applies the whole chain.
	CommandRender Command = iota
	// CommandExtract stops at the first distinguished op and reports its range.
	CommandExtract
)

func (c Command) String() string {
	switch c {
	case CommandRender:
		return "render"
	case CommandExtract:
		return "extract"
	}
	return fmt.Sprintf("command(%d)", c)
}

// Chain is an ordered list of color operations.
type Chain struct {
	Ops []Op

	// Custom is consumed by OpCustomRange.
	Custom Range

	// Clip is the fraction of samples ignored at each end of a histogram
	// when computing a range, in [0, 0.5).
	Clip float64
}

// Clone returns a copy of c that shares no slice with it.
func (c Chain) Clone() Chain {
	c.Ops = slices.Clone(c.Ops)
	return c
}

// Empty reports whether the chain has no operations.
func (c Chain) Empty() bool {
	return len(c.Ops) == 0
}

// Params is the input of Run.
type Params struct {
	Chain Chain

	// Viewport limits statistics to a region; empty means the whole raster.
	Viewport image.Rectangle
}

// Apply renders the chain. It is Run with CommandRender, discarding the range.
func Apply(r *parallel.Runner, src *raster.Raster, p Params) *raster.Raster {
	out, _ := Run(r, src, p, CommandRender)
	return out
}

// Extract returns the range reported by the first distinguished op of the
// chain, or nil when the chain has none.
func Extract(r *parallel.Runner, src *raster.Raster, p Params) Range {
	_, rg := Run(r, src, p, CommandExtract)
	return rg
}

// Run executes the chain on src.
//
// It returns the resulting raster and the last current range. With
// CommandExtract the raster is the input of the distinguished op that
// stopped the chain.
//
// A stretch op whose current range has the wrong Space panics with a
// *ContractError.
func Run(r *parallel.Runner, src *raster.Raster, p Params, cmd Command) (*raster.Raster, Range) {
	if raster.IsSentinel(src) {
		return src, nil
	}
	clip := p.Chain.Clip
	if !(clip >= 0 && clip < 0.5) {
		logx.L().Warn("colorfix: clip out of range, using 0", "clip", clip)
		clip = 0
	}

	cur := src
	var current Range
	for i, op := range p.Chain.Ops {
		switch {
		case op == OpStats:
			sp := nextSpace(p.Chain.Ops[i+1:])
			current = Measure(r, cur, p.Viewport, sp, clip)
			if cmd == CommandExtract {
				return cur, current
			}
		case op == OpCustomRange:
			if p.Chain.Custom == nil {
				logx.L().Warn("colorfix: custom-range without a range, op skipped")
				if cmd == CommandExtract {
					return cur, nil
				}
				continue
			}
			current = p.Chain.Custom
			if cmd == CommandExtract {
				return cur, current
			}
		case op == OpInvert:
			cur = invert(r, cur)
		default:
			sp, ok := op.space()
			if !ok {
				logx.L().Warn("colorfix: unknown op skipped", "op", op)
				continue
			}
			rg := current
			if rg == nil {
				rg = Measure(r, cur, p.Viewport, sp, clip)
			}
			cur = stretch(r, cur, op, rg)
		}
	}
	return cur, current
}

// nextSpace is the space of the first stretch op in ops, RGB if none.
func nextSpace(ops []Op) Space {
	for _, op := range ops {
		if op.distinguished() {
			break
		}
		if sp, ok := op.space(); ok {
			return sp
		}
	}
	return SpaceRGB
}
