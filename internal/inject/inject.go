package inject

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/dmorgan81/editproxy/internal/config"
	"github.com/dmorgan81/editproxy/internal/edit"
	"github.com/dmorgan81/editproxy/internal/handler"
	"github.com/dmorgan81/editproxy/internal/log"
	"github.com/dmorgan81/editproxy/internal/message"
	"github.com/dmorgan81/editproxy/internal/param"
	"github.com/dmorgan81/editproxy/internal/store"
	"github.com/samber/do"
)

func Setup(ctx context.Context, cfg config.Config) *do.Injector {
	log := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		},
	})
	// aws clients are lazy; nothing touches AWS unless a parameter or bucket is configured
	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*s3.Client](injector, func(i *do.Injector) (*s3.Client, error) {
		return s3.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.ProvideValue[*http.Client](injector, http.DefaultClient)

	do.Provide[param.Fetcher](injector, func(i *do.Injector) (param.Fetcher, error) {
		if cfg.KeyParam != "" {
			return param.NewParameterStoreFetcher(i)
		}
		return param.EnvFetcher{}, nil
	})
	do.Provide[edit.Editor](injector, func(i *do.Injector) (edit.Editor, error) {
		return &edit.GeminiEditor{
			Client:  do.MustInvoke[*http.Client](i),
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}, nil
	})
	do.Provide[store.Uploader](injector, func(i *do.Injector) (store.Uploader, error) {
		switch {
		case cfg.Bucket != "":
			return &store.S3Uploader{Client: do.MustInvoke[*s3.Client](i), Bucket: cfg.Bucket}, nil
		case cfg.ArchiveDir != "":
			return &store.FileUploader{Dir: cfg.ArchiveDir}, nil
		default:
			return store.Discard{}, nil
		}
	})
	do.Provide[*message.Catalog](injector, func(i *do.Injector) (*message.Catalog, error) {
		return message.NewCatalog(cfg.Language), nil
	})

	do.ProvideNamedValue[string](injector, "key_name", cfg.KeyName())
	do.ProvideNamedValue[string](injector, "model", cfg.Model)

	do.Provide[*handler.Handler](injector, handler.NewHandler)

	return injector
}
