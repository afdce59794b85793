package sink

import (
	"gifcam/video/clip"
)

// Sink is a destination for finished clip artifacts. The sink owns the
// artifact once Put returns nil.
type Sink interface {
	Put(a *clip.Artifact) error

	// Close should be called to finalize the sink.
	Close()
}

// Func adapts a function to the Sink interface, for callers that just want
// the artifact-ready callback.
type Func func(a *clip.Artifact) error

func (f Func) Put(a *clip.Artifact) error { return f(a) }

func (f Func) Close() {}
