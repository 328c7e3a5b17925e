package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/dmorgan81/editproxy/internal/edit"
	"github.com/dmorgan81/editproxy/internal/log"
	"github.com/dmorgan81/editproxy/internal/message"
	"github.com/dmorgan81/editproxy/internal/param"
	"github.com/dmorgan81/editproxy/internal/store"
	"github.com/google/uuid"
	"github.com/samber/do"
)

type Input struct {
	Prompt string `json:"prompt"`
	Image  string `json:"image"`
}

type successBody struct {
	Base64 string `json:"base64"`
}

type errorBody struct {
	Error string `json:"error"`
}

type Handler struct {
	fetcher  param.Fetcher
	keyName  string
	model    string
	editor   edit.Editor
	uploader store.Uploader
	catalog  *message.Catalog
	now      func() time.Time
}

func NewHandler(i *do.Injector) (*Handler, error) {
	return &Handler{
		fetcher:  do.MustInvoke[param.Fetcher](i),
		keyName:  do.MustInvokeNamed[string](i, "key_name"),
		model:    do.MustInvokeNamed[string](i, "model"),
		editor:   do.MustInvoke[edit.Editor](i),
		uploader: do.MustInvoke[store.Uploader](i),
		catalog:  do.MustInvoke[*message.Catalog](i),
		now:      time.Now,
	}, nil
}

// Handle never returns an error: every failure becomes a JSON error envelope.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id := requestID(ctx, req)
	ctx, logger := log.WithRequest(ctx, id)
	logger = logger.WithGroup("Handler")
	logger.Info("handling lambda invocation", "method", req.HTTPMethod)

	switch req.HTTPMethod {
	case http.MethodOptions:
		return respond(http.StatusNoContent, nil), nil
	case http.MethodPost:
	default:
		return respond(http.StatusMethodNotAllowed, errorBody{message.MethodNotAllowed}), nil
	}

	params, result, err := h.process(ctx, req)
	if err != nil {
		logger.Error("image edit failed", "kind", edit.KindOf(err).String(), log.Err(err))
		msgs := h.catalog.For(header(req.Headers, "Accept-Language"))
		return respond(http.StatusInternalServerError, errorBody{msgs.Text(err)}), nil
	}

	h.archive(ctx, id, params, result)
	return respond(http.StatusOK, successBody{result.Data}), nil
}

func (h *Handler) process(ctx context.Context, req events.APIGatewayProxyRequest) (edit.Params, edit.Result, error) {
	key, err := h.fetcher.Fetch(ctx, h.keyName)
	if err != nil {
		return edit.Params{}, edit.Result{}, fmt.Errorf("fetching api key: %w", err)
	}
	if key == "" {
		return edit.Params{}, edit.Result{}, edit.ErrMissingKey
	}

	input, err := decodeInput(req)
	if err != nil {
		return edit.Params{}, edit.Result{}, err
	}

	params := edit.Params{Prompt: input.Prompt, Image: input.Image, MIMEType: edit.InputMIMEType}
	if err := params.Validate(); err != nil {
		return edit.Params{}, edit.Result{}, err
	}

	result, err := h.editor.Edit(ctx, key, params)
	return params, result, err
}

func (h *Handler) archive(ctx context.Context, id string, params edit.Params, result edit.Result) {
	if _, ok := h.uploader.(store.Discard); ok {
		return
	}
	err := store.Archive(ctx, h.uploader, store.Edit{
		RequestID: id,
		Prompt:    params.Prompt,
		Model:     h.model,
		Source:    store.Image{Data: params.Image, MIMEType: params.MIMEType},
		Result:    store.Image{Data: result.Data, MIMEType: result.MIMEType},
		Time:      h.now(),
	})
	if err != nil {
		log.FromContextOrDiscard(ctx).Error("archiving edit failed", log.Err(err))
	}
}

func decodeInput(req events.APIGatewayProxyRequest) (Input, error) {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return Input{}, fmt.Errorf("decoding request body: %w", err)
		}
		body = decoded
	}

	var input Input
	if err := json.Unmarshal(body, &input); err != nil {
		// well-formed JSON with a non-string prompt or image is missing input
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Input{}, &edit.Error{Kind: edit.KindInput, Err: fmt.Errorf("parsing request body: %w", err)}
		}
		return Input{}, fmt.Errorf("parsing request body: %w", err)
	}
	return input, nil
}

func requestID(ctx context.Context, req events.APIGatewayProxyRequest) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	if req.RequestContext.RequestID != "" {
		return req.RequestContext.RequestID
	}
	return uuid.NewString()
}

// header looks up name case-insensitively; API Gateway passes headers through
// with whatever casing the client used.
func header(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func corsHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
	}
}

func respond(status int, body any) events.APIGatewayProxyResponse {
	resp := events.APIGatewayProxyResponse{StatusCode: status, Headers: corsHeaders()}
	if body == nil {
		return resp
	}

	// bodies are string-only structs and always marshal
	data, _ := json.Marshal(body)
	resp.Headers["Content-Type"] = "application/json"
	resp.Body = string(data)
	return resp
}
