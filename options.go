package stereo

import (
	"github.com/gogpu/stereo/internal/geom"
	"github.com/gogpu/stereo/internal/parallel"
)

// Option configures a Renderer during creation.
//
// Example:
//
//	// Renderer on the process-wide engine
//	r := stereo.NewRenderer()
//
//	// Renderer with its own single-threaded engine
//	e, _ := stereo.NewEngine(stereo.EngineSettings{})
//	r := stereo.NewRenderer(stereo.WithEngine(e))
type Option func(*rendererOptions)

type rendererOptions struct {
	engine *parallel.Engine
	filter *geom.Filter
}

func defaultOptions() rendererOptions {
	return rendererOptions{
		engine: nil, // process-wide engine
	}
}

// WithEngine runs the renderer on e instead of the process-wide engine.
func WithEngine(e *Engine) Option {
	return func(o *rendererOptions) {
		o.engine = e
	}
}

// WithFilter overrides Global.Filter for every render of the renderer.
func WithFilter(f Filter) Option {
	return func(o *rendererOptions) {
		o.filter = &f
	}
}
