// Package validator classifies candidate recipient addresses before they are
// handed to the mail transport. Nothing here returns an error: every outcome
// is a classification the dispatcher records against the recipient.
package validator

import (
	"net/mail"
	"strings"
	"unicode"
)

// MaxAddressLength is the RFC 5321 path limit.
const MaxAddressLength = 254

type Reason string

const (
	ReasonNone          Reason = ""
	ReasonEmpty         Reason = "empty"
	ReasonTooLong       Reason = "too_long"
	ReasonAngleBrackets Reason = "angle_brackets"
	ReasonFormat        Reason = "format"
	ReasonDisposable    Reason = "disposable"
)

type Result struct {
	Valid        bool   `json:"valid"`
	Normalized   string `json:"normalized"`
	IsDisposable bool   `json:"isDisposable"`
	Reason       Reason `json:"reason,omitempty"`
}

type Invalid struct {
	Address string `json:"address"`
	Reason  Reason `json:"reason"`
}

type BatchResult struct {
	Valid   []string  `json:"valid"`
	Invalid []Invalid `json:"invalid"`
}

// Normalize lowercases and trims an address.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Validate classifies a single address.
func Validate(address string) Result {
	email := Normalize(address)
	res := Result{Normalized: email}

	switch {
	case email == "":
		res.Reason = ReasonEmpty
		return res
	case len(email) > MaxAddressLength:
		res.Reason = ReasonTooLong
		return res
	case strings.ContainsAny(email, "<>"):
		res.Reason = ReasonAngleBrackets
		return res
	}

	domain, ok := splitDomain(email)
	if !ok {
		res.Reason = ReasonFormat
		return res
	}

	if IsDisposableDomain(domain) {
		res.IsDisposable = true
		res.Reason = ReasonDisposable
		return res
	}

	res.Valid = true
	return res
}

// ValidateBatch applies Validate to each address, keeping input order in
// both partitions. Valid addresses are returned normalized.
func ValidateBatch(addresses []string) BatchResult {
	out := BatchResult{
		Valid:   make([]string, 0, len(addresses)),
		Invalid: []Invalid{},
	}
	for _, a := range addresses {
		r := Validate(a)
		if r.Valid {
			out.Valid = append(out.Valid, r.Normalized)
			continue
		}
		out.Invalid = append(out.Invalid, Invalid{Address: a, Reason: r.Reason})
	}
	return out
}

// splitDomain checks the local@domain.tld shape and returns the domain.
func splitDomain(email string) (string, bool) {
	if strings.Count(email, "@") != 1 {
		return "", false
	}
	if strings.IndexFunc(email, unicode.IsSpace) >= 0 {
		return "", false
	}

	at := strings.IndexByte(email, '@')
	local, domain := email[:at], email[at+1:]
	if local == "" || domain == "" {
		return "", false
	}
	if !strings.Contains(domain, ".") ||
		strings.HasPrefix(domain, ".") ||
		strings.HasSuffix(domain, ".") ||
		strings.Contains(domain, "..") {
		return "", false
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return domain, true
}

// Domain returns the part after the last "@", or "" when there is none.
func Domain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}
