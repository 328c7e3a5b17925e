package param

import (
	"context"
	"os"
	"strings"
)

type EnvFetcher struct{}

func (EnvFetcher) Fetch(_ context.Context, name string) (string, error) {
	return strings.TrimSpace(os.Getenv(name)), nil
}
