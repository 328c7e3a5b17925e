package edit

import (
	"context"
	"errors"
)

// InputMIMEType is the type declared for every uploaded image.
const InputMIMEType = "image/jpeg"

type Params struct {
	Prompt   string
	Image    string
	MIMEType string
}

func (p Params) Validate() error {
	if p.Prompt == "" || p.Image == "" {
		return newError(KindInput, errors.New("prompt and image are required"))
	}
	return nil
}

type Result struct {
	Data     string
	MIMEType string
}

type Editor interface {
	Edit(ctx context.Context, key string, params Params) (Result, error)
}

// ErrMissingKey is returned when no API key is available for an invocation.
var ErrMissingKey = &Error{Kind: KindConfig, Err: errors.New("api key not configured")}
