// Package platformimage defines the collaborator interfaces design §6.3
// reserves for codecs and host services this module does not implement
// itself: opaque JPEG-family (non-lossless) decoding, logging, progress,
// and cancellation. This module ships no concrete Decoder — JPEG 2000,
// JPEG Baseline/Extended, and JPEG-LS all report Unsupported from
// pkg/dcm/decoder, matching design's Non-goal that generic image
// compression is "treated as an opaque decoder the core may delegate to".
// A host application installs its own Decoder to cover those transfer
// syntaxes; this package only names the seam.
package platformimage

import (
	"context"
	"io"
)

// Frame is a decoded single-component grayscale frame, the common
// denominator this module's pixel pipeline understands.
type Frame struct {
	Pixels    []uint16
	Width     int
	Height    int
	Precision int
}

// Cancellation is the host-supplied cancellation signal design §6.3
// reserves as its own collaborator; this module has no reason to invent
// a bespoke cancellation type when context.Context already is one.
type Cancellation = context.Context

// Decoder is the seam design §6.3 names for "opaque JPEG-family decode":
// a platform or vendor SDK that can turn a compressed codestream into
// pixels without this module knowing its internals. This module ships no
// implementation; pkg/dcm/decoder reports Unsupported for every
// compressed transfer syntax that would otherwise need one.
type Decoder interface {
	Decode(ctx context.Context, r io.Reader) (*Frame, error)
}

// Logger is the minimal structured-logging seam a host application can
// implement to route this module's diagnostics into its own logging
// stack, mirroring design §6.3's Logger collaborator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warning(msg string, args ...any)
	Error(msg string, args ...any)
}

// ProgressSink receives (current, total) updates during a long-running
// operation (e.g. series.Load), mirroring design §6.3's ProgressSink.
type ProgressSink interface {
	Progress(current, total int)
}
