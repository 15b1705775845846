// Package stereo renders a synchronized stereo pair of raster images.
//
// # Overview
//
// Each side of the pair runs through a fixed chain of corrections:
//
//	demosaic → pixel repair → fisheye → color chain → [marks] → rotate
//
// Both chains run concurrently on a shared worker pool. Once both sides are
// rotated their sizes are reconciled: centering deltas are computed so that
// both panes, each zoomed by its own factor, share one canvas and one
// scroll model. Then each side is zoomed onto that canvas.
//
// # Quick Start
//
//	left, _ := stereo.Load("left.png")
//	right, _ := stereo.Load("right.png")
//
//	p := stereo.DefaultParams().
//		WithLeft(stereo.SideParams{}.WithAngle(1.5)).
//		WithRight(stereo.SideParams{}.WithZoom(0.2))
//
//	res, err := stereo.Render(ctx, stereo.Inputs{Left: left, Right: right}, p, stereo.Marks{}, stereo.CommandRender)
//
// # Parameters
//
// SideParams and Params are immutable values. Every WithX method returns a
// modified copy, so a render always sees one consistent snapshot even while
// a UI keeps editing.
//
// # Concurrency
//
// The engine is configured process-wide with Configure. A render takes a
// snapshot of the engine when it starts and keeps it to the end; a
// concurrent Configure only affects later renders. With zero workers the
// whole pipeline runs synchronously on the caller.
//
// # Failures
//
// Placeholder (sentinel) rasters pass through every stage unchanged.
// Numerically degenerate parameters are logged and the stage is skipped.
// A panicking stage fails only its own side: Render returns the best-effort
// result (the failed side holds its last good raster) together with an
// error naming the side.
//
// # Logging
//
// The package is silent by default. Call SetLogger to receive structured
// logs through log/slog.
package stereo
