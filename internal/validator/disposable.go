package validator

import "strings"

// disposableDomains are throwaway-inbox providers. A domain matches when it
// equals an entry or is a subdomain of one.
var disposableDomains = map[string]struct{}{
	"mailinator.com":    {},
	"guerrillamail.com": {},
	"guerrillamail.net": {},
	"guerrillamail.org": {},
	"sharklasers.com":   {},
	"10minutemail.com":  {},
	"10minutemail.net":  {},
	"tempmail.com":      {},
	"temp-mail.org":     {},
	"tempmailo.com":     {},
	"throwawaymail.com": {},
	"yopmail.com":       {},
	"yopmail.net":       {},
	"trashmail.com":     {},
	"trashmail.de":      {},
	"getnada.com":       {},
	"dispostable.com":   {},
	"maildrop.cc":       {},
	"fakeinbox.com":     {},
	"mailnesia.com":     {},
	"mintemail.com":     {},
	"mohmal.com":        {},
	"emailondeck.com":   {},
	"spamgourmet.com":   {},
	"burnermail.io":     {},
	"mytemp.email":      {},
	"tempinbox.com":     {},
	"discard.email":     {},
	"getairmail.com":    {},
	"moakt.com":         {},
	"mailcatch.com":     {},
	"inboxkitten.com":   {},
	"tempr.email":       {},
	"spambox.us":        {},
	"33mail.com":        {},
	"harakirimail.com":  {},
	"mailpoof.com":      {},
	"jetable.org":       {},
	"emailfake.com":     {},
	"fakemail.net":      {},
}

// IsDisposableDomain reports whether domain is, or is a subdomain of, a
// known throwaway provider.
func IsDisposableDomain(domain string) bool {
	d := strings.ToLower(strings.TrimSuffix(domain, "."))
	for {
		if _, ok := disposableDomains[d]; ok {
			return true
		}
		dot := strings.IndexByte(d, '.')
		if dot < 0 {
			return false
		}
		d = d[dot+1:]
	}
}
