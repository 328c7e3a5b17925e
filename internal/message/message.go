package message

import (
	"github.com/dmorgan81/editproxy/internal/edit"
	"golang.org/x/text/language"
)

// MethodNotAllowed is never localized.
const MethodNotAllowed = "Method Not Allowed"

type Messages map[edit.Kind]string

var japanese = Messages{
	edit.KindUnknown:    "サーバーで不明なエラーが発生しました。",
	edit.KindConfig:     "APIキーがサーバーに設定されていません。",
	edit.KindInput:      "プロンプトまたは画像データがありません。",
	edit.KindUpstream:   "Google APIでエラーが発生しました。",
	edit.KindCredential: "Google APIからエラーが返されました。APIキーまたは請求設定をご確認ください。",
	edit.KindNoImage:    "AIが画像の切り抜きに失敗しました。",
}

var english = Messages{
	edit.KindUnknown:    "An unknown error occurred on the server.",
	edit.KindConfig:     "The API key is not configured on the server.",
	edit.KindInput:      "The prompt or image data is missing.",
	edit.KindUpstream:   "The Google API returned an error.",
	edit.KindCredential: "The Google API returned an error. Please check the API key or billing settings.",
	edit.KindNoImage:    "The AI failed to cut out the image.",
}

type Catalog struct {
	tags    []language.Tag
	matcher language.Matcher
	byTag   map[language.Tag]Messages
}

// NewCatalog returns a catalog that falls back to def when Accept-Language
// matches nothing. Unknown defaults fall back to Japanese.
func NewCatalog(def string) *Catalog {
	byTag := map[language.Tag]Messages{
		language.Japanese: japanese,
		language.English:  english,
	}

	first := language.Japanese
	if tag, err := language.Parse(def); err == nil {
		base, _ := tag.Base()
		for t := range byTag {
			if b, _ := t.Base(); b == base {
				first = t
			}
		}
	}

	tags := []language.Tag{first}
	for _, t := range []language.Tag{language.Japanese, language.English} {
		if t != first {
			tags = append(tags, t)
		}
	}

	return &Catalog{
		tags:    tags,
		matcher: language.NewMatcher(tags),
		byTag:   byTag,
	}
}

// For picks messages for an Accept-Language header value.
func (c *Catalog) For(acceptLanguage string) Messages {
	_, idx := language.MatchStrings(c.matcher, acceptLanguage)
	return c.byTag[c.tags[idx]]
}

// Text returns the caller-facing text for err. Upstream messages pass
// through untouched; credential failures never expose the upstream text.
func (m Messages) Text(err error) string {
	kind := edit.KindOf(err)
	if kind == edit.KindUpstream {
		if msg := edit.MessageOf(err); msg != "" {
			return msg
		}
	}
	if text, ok := m[kind]; ok {
		return text
	}
	return m[edit.KindUnknown]
}
