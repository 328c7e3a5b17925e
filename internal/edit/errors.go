package edit

import "errors"

// Kind classifies a failed edit for the caller-facing message.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindInput
	KindUpstream
	KindCredential
	KindNoImage
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindInput:
		return "input"
	case KindUpstream:
		return "upstream"
	case KindCredential:
		return "credential"
	case KindNoImage:
		return "no_image"
	default:
		return "unknown"
	}
}

// Error is the failure half of an edit result. Message holds upstream text
// that may be shown to the caller as-is; it is empty for every other kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// KindOf reports the kind of err; errors not produced by this package are unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns the upstream message carried by err, if any.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
