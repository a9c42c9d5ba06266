// Package dcmerr defines the typed error taxonomy shared across the DICOM
// decoding stack, patterned on the teacher's ValidationError
// (pkg/dicos/validate.go): a small struct per failure kind with a Kind tag
// for programmatic handling and an Error() string for humans.
package dcmerr

import "fmt"

// Kind identifies one error taxonomy row from the design spec.
type Kind int

const (
	// KindFileNotFound means the requested path does not exist.
	KindFileNotFound Kind = iota + 1
	// KindIO means a read from disk or an in-memory buffer failed.
	KindIO
	// KindNotDICOM means neither the DICM magic nor the legacy fallback
	// heuristic recognized the input as DICOM.
	KindNotDICOM
	// KindInvalidFormat means a structural violation was found while
	// parsing (offsets out of range, bad dimensions, and similar).
	KindInvalidFormat
	// KindUnsupported means a transfer syntax, bit depth, or predictor
	// selection value is not implemented.
	KindUnsupported
	// KindInvalidPixelData means pixel bounds, alignment, or VR mismatch.
	KindInvalidPixelData
	// KindInvalidWindowLevel means a WindowSettings has width <= 0.
	KindInvalidWindowLevel
	// KindInvalidJpegLossless means the JPEG Lossless codestream is
	// malformed (missing markers, bad Huffman table, bad predictor).
	KindInvalidJpegLossless
	// KindInvalidHuffmanCode means a Huffman code had no match in the
	// table; always bubbled up wrapped in an InvalidJpegLossless error.
	KindInvalidHuffmanCode
	// KindInconsistentGeometry means a series slice's geometry does not
	// match the reference slice established by the first file loaded.
	KindInconsistentGeometry
	// KindBackendUnavailable means a windowing backend was explicitly
	// requested but is not usable in this process.
	KindBackendUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindFileNotFound:
		return "FileNotFound"
	case KindIO:
		return "IO"
	case KindNotDICOM:
		return "NotDICOM"
	case KindInvalidFormat:
		return "InvalidFormat"
	case KindUnsupported:
		return "Unsupported"
	case KindInvalidPixelData:
		return "InvalidPixelData"
	case KindInvalidWindowLevel:
		return "InvalidWindowLevel"
	case KindInvalidJpegLossless:
		return "InvalidJpegLossless"
	case KindInvalidHuffmanCode:
		return "InvalidHuffmanCode"
	case KindInconsistentGeometry:
		return "InconsistentGeometry"
	case KindBackendUnavailable:
		return "BackendUnavailable"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by every fallible operation in
// this module. Reason carries the human-readable detail; Path is
// populated when relevant to the Kind (NotFound/InconsistentGeometry carry
// Path, format errors may carry nothing extra).
type Error struct {
	Kind   Kind
	Reason string
	Path   string
	Err    error // wrapped cause, if any
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Reason != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Reason)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports true for any *Error target with the same Kind, so
// errors.Is(err, &dcmerr.Error{Kind: dcmerr.KindX}) tests an error's kind;
// use errors.As and inspect the fields for anything beyond a quick check.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New creates an *Error of the given kind with a formatted reason.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error of the given kind that wraps cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: cause}
}

// WithPath creates an *Error carrying a file path, used for FileNotFound,
// Io, and InconsistentGeometry{path}.
func WithPath(kind Kind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Err: cause}
}

// Underflow describes a ByteReader read past the end of the buffer.
// ByteReader builds its own KindInvalidFormat errors carrying the byte
// counts; since Is compares Kind only, errors.Is matches them against
// Underflow (and equally against OutOfBounds or any other InvalidFormat).
var Underflow = &Error{Kind: KindInvalidFormat, Reason: "underflow: read past end of buffer"}

// OutOfBounds describes a ByteReader.Seek to an out-of-range offset; see
// Underflow for how it relates to the errors ByteReader returns.
var OutOfBounds = &Error{Kind: KindInvalidFormat, Reason: "seek offset out of bounds"}
