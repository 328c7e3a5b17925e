package edit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmorgan81/editproxy/internal/log"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash-image-preview"

	invalidKeyMarker = "API key not valid"
)

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type GeminiEditor struct {
	Client  *http.Client
	BaseURL string
	Model   string
}

func (e *GeminiEditor) Edit(ctx context.Context, key string, params Params) (Result, error) {
	logger := log.FromContextOrDiscard(ctx).WithGroup("gemini").With("model", e.model())

	if key == "" {
		return Result{}, ErrMissingKey
	}
	if err := params.Validate(); err != nil {
		return Result{}, err
	}

	body, err := json.Marshal(buildRequest(params))
	if err != nil {
		return Result{}, newError(KindUnknown, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint(), bytes.NewReader(body))
	if err != nil {
		return Result{}, newError(KindUnknown, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", key)

	logger.Info("requesting image edit", "prompt_len", len(params.Prompt), "image_len", len(params.Image))
	resp, err := e.client().Do(req)
	if err != nil {
		return Result{}, newError(KindUnknown, fmt.Errorf("calling %s: %w", e.model(), err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, newError(KindUnknown, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error("upstream rejected request", "status", resp.StatusCode, "body", string(data))
		return Result{}, upstreamError(resp.StatusCode, data)
	}

	var out geminiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return Result{}, newError(KindUnknown, fmt.Errorf("decoding response: %w", err))
	}

	part, ok := firstImagePart(out)
	if !ok {
		logger.Error("no image parts in response", "body", string(data))
		return Result{}, newError(KindNoImage, fmt.Errorf("%d candidates without inline data", len(out.Candidates)))
	}

	logger.Info("received edited image", "mime_type", part.MIMEType, "data_len", len(part.Data))
	return Result{Data: part.Data, MIMEType: part.MIMEType}, nil
}

func (e *GeminiEditor) client() *http.Client {
	return lo.Ternary(e.Client != nil, e.Client, http.DefaultClient)
}

func (e *GeminiEditor) model() string {
	return lo.Ternary(e.Model != "", e.Model, DefaultModel)
}

func (e *GeminiEditor) endpoint() string {
	base := strings.TrimSuffix(lo.Ternary(e.BaseURL != "", e.BaseURL, DefaultBaseURL), "/")
	return fmt.Sprintf("%s/models/%s:generateContent", base, e.model())
}

func buildRequest(params Params) geminiRequest {
	return geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: params.Prompt},
				{InlineData: &geminiInlineData{
					MIMEType: lo.Ternary(params.MIMEType != "", params.MIMEType, InputMIMEType),
					Data:     params.Image,
				}},
			},
		}},
	}
}

// firstImagePart only looks at the first candidate.
func firstImagePart(resp geminiResponse) (geminiInlineData, bool) {
	if len(resp.Candidates) == 0 {
		return geminiInlineData{}, false
	}
	part, ok := lo.Find(resp.Candidates[0].Content.Parts, func(p geminiPart) bool {
		return p.InlineData != nil
	})
	if !ok {
		return geminiInlineData{}, false
	}
	return *part.InlineData, true
}

// upstreamError reads error.message from a Google API error body. Bodies that
// are not JSON leave the message empty.
func upstreamError(status int, body []byte) error {
	message := gjson.GetBytes(body, "error.message").String()
	err := fmt.Errorf("status %d", status)
	if strings.Contains(message, invalidKeyMarker) {
		return &Error{Kind: KindCredential, Err: fmt.Errorf("%w: %s", err, message)}
	}
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}
