package param

import "context"

// Fetcher resolves a secret by name. Implementations read the backing store
// on every call so a rotated key takes effect on the next invocation.
// A missing secret is reported as an empty value, not an error.
type Fetcher interface {
	Fetch(context.Context, string) (string, error)
}
