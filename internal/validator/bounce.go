package validator

import "strings"

// Risk is the outcome of a bounce-risk pre-filter. A risky address is
// rejected before transport submission; passing is not a deliverability
// guarantee.
type Risk struct {
	Risky  bool   `json:"risky"`
	Reason string `json:"reason,omitempty"`
}

// BounceRiskChecker decides whether an address is likely to bounce.
type BounceRiskChecker interface {
	Check(address string) Risk
}

var systemLocalPrefixes = []string{
	"test",
	"noreply",
	"no-reply",
	"donotreply",
	"postmaster",
	"abuse",
	"mailer-daemon",
}

var placeholderDomains = []string{
	"example.com",
	"example.org",
	"example.net",
	"test.com",
	"localhost",
	"invalid",
}

var placeholderSuffixes = []string{".test", ".example", ".invalid", ".localhost"}

// PatternChecker flags system mailboxes and placeholder domains.
type PatternChecker struct{}

func (PatternChecker) Check(address string) Risk {
	return DetectBounceRisk(address)
}

// DetectBounceRisk is the default heuristic behind PatternChecker.
func DetectBounceRisk(address string) Risk {
	email := Normalize(address)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return Risk{}
	}
	local, domain := email[:at], email[at+1:]

	for _, p := range systemLocalPrefixes {
		if strings.HasPrefix(local, p) {
			return Risk{Risky: true, Reason: "system mailbox: " + p}
		}
	}

	for _, d := range placeholderDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return Risk{Risky: true, Reason: "placeholder domain: " + d}
		}
	}
	for _, s := range placeholderSuffixes {
		if strings.HasSuffix(domain, s) {
			return Risk{Risky: true, Reason: "placeholder domain: " + domain}
		}
	}
	return Risk{}
}
