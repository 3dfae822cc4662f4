// Package tracking personalizes campaign HTML per recipient: an open beacon,
// click-tracked links and an unsubscribe footer, all keyed by a signed token.
package tracking

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrMalformedToken = errors.New("malformed tracking token")
	ErrBadSignature   = errors.New("tracking token signature mismatch")
)

// hrefRe matches double- or single-quoted href attributes. The leading
// whitespace keeps data-href and similar attributes out. RE2 has no
// backreferences, so each quote style is its own alternative.
var hrefRe = regexp.MustCompile(`(?i)(\shref\s*=\s*)(?:"([^"]*)"|'([^']*)')`)

type Rewriter struct {
	baseURL    string
	signingKey []byte
}

func New(baseURL, signingKey string) *Rewriter {
	return &Rewriter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		signingKey: []byte(signingKey),
	}
}

// Configured reports whether both the base URL and signing key are set.
func (r *Rewriter) Configured() bool {
	return r != nil && r.baseURL != "" && len(r.signingKey) > 0
}

// Token returns the signed, URL-safe identifier for a recipient.
func (r *Rewriter) Token(recipientID uuid.UUID) string {
	id := recipientID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(id)) + "." + r.sign(id)
}

// Verify decodes a token produced by Token.
func (r *Rewriter) Verify(token string) (uuid.UUID, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || sig == "" {
		return uuid.Nil, ErrMalformedToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return uuid.Nil, ErrMalformedToken
	}
	if !hmac.Equal([]byte(r.sign(string(raw))), []byte(sig)) {
		return uuid.Nil, ErrBadSignature
	}
	id, err := uuid.Parse(string(raw))
	if err != nil {
		return uuid.Nil, ErrMalformedToken
	}
	return id, nil
}

func (r *Rewriter) OpenURL(token string) string {
	return fmt.Sprintf("%s/track/open/%s", r.baseURL, token)
}

func (r *Rewriter) ClickURL(token, original string) string {
	return fmt.Sprintf("%s/track/click/%s?url=%s", r.baseURL, token, url.QueryEscape(original))
}

func (r *Rewriter) UnsubscribeURL(token string) string {
	return fmt.Sprintf("%s/unsubscribe/%s", r.baseURL, token)
}

// Personalize rewrites html for one recipient. The result depends only on
// the inputs and the signing key.
func (r *Rewriter) Personalize(recipientID uuid.UUID, html string) string {
	token := r.Token(recipientID)

	pixel := fmt.Sprintf(`<img src="%s" width="1" height="1" alt="" style="display:none" />`, r.OpenURL(token))
	html = insertBeforeBody(html, pixel)

	html = r.rewriteLinks(html, token)

	footer := fmt.Sprintf(
		`<div style="text-align:center;font-size:12px;color:#888888;margin-top:24px">`+
			`<a href="%s" style="color:#888888">Unsubscribe</a></div>`,
		r.UnsubscribeURL(token))
	return insertBeforeBody(html, footer)
}

func (r *Rewriter) rewriteLinks(html, token string) string {
	clickPrefix := r.baseURL + "/track/click/"

	return hrefRe.ReplaceAllStringFunc(html, func(match string) string {
		m := hrefRe.FindStringSubmatch(match)
		prefix, quote, target := m[1], `"`, m[2]
		if strings.HasPrefix(match[len(prefix):], "'") {
			quote, target = "'", m[3]
		}
		if skipLink(target) || strings.HasPrefix(target, clickPrefix) {
			return match
		}
		return prefix + quote + r.ClickURL(token, target) + quote
	})
}

func skipLink(target string) bool {
	t := strings.ToLower(strings.TrimSpace(target))
	return t == "" ||
		strings.HasPrefix(t, "#") ||
		strings.HasPrefix(t, "mailto:") ||
		strings.HasPrefix(t, "tel:")
}

// insertBeforeBody places fragment before the last closing body tag, or
// appends it when the document has none.
func insertBeforeBody(html, fragment string) string {
	if idx := lastBodyClose(html); idx >= 0 {
		return html[:idx] + fragment + html[idx:]
	}
	return html + fragment
}

func lastBodyClose(html string) int {
	const tag = "</body>"
	for end := len(html); end > 0; {
		i := strings.LastIndex(html[:end], "</")
		if i < 0 {
			return -1
		}
		if i+len(tag) <= len(html) && strings.EqualFold(html[i:i+len(tag)], tag) {
			return i
		}
		end = i
	}
	return -1
}

func (r *Rewriter) sign(data string) string {
	h := hmac.New(sha256.New, r.signingKey)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
