package app

import (
	"errors"
	"net/mail"
	"strings"
)

var (
	ErrMalformedRecipient = errors.New("recipient has no local-part/domain structure")
	ErrWrongDomain        = errors.New("recipient domain is not the inbound domain")
)

type Recipient struct {
	Address string // full address that was selected
	Local   string // raw local part
	Domain  string
	Alias   string // normalized candidate token
}

// RecipientParser validates the serving domain and pulls the alias candidate
// out of the local part. It never touches the store.
type RecipientParser struct {
	domain string
}

func NewRecipientParser(inboundDomain string) *RecipientParser {
	return &RecipientParser{domain: strings.ToLower(strings.TrimSpace(inboundDomain))}
}

// Parse accepts a single address, a display-name form or a comma list. The
// first address on the inbound domain wins.
func (p *RecipientParser) Parse(raw string) (Recipient, error) {
	addrs := splitAddresses(raw)
	if len(addrs) == 0 {
		return Recipient{}, ErrMalformedRecipient
	}
	var wrong bool
	for _, a := range addrs {
		at := strings.LastIndexByte(a, '@')
		if at <= 0 || at == len(a)-1 {
			continue
		}
		local, dom := a[:at], strings.ToLower(a[at+1:])
		if dom != p.domain {
			wrong = true
			continue
		}
		return Recipient{
			Address: a,
			Local:   local,
			Domain:  dom,
			Alias:   NormalizeAlias(local),
		}, nil
	}
	if wrong {
		return Recipient{}, ErrWrongDomain
	}
	return Recipient{}, ErrMalformedRecipient
}

func splitAddresses(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if list, err := mail.ParseAddressList(raw); err == nil {
		out := make([]string, 0, len(list))
		for _, a := range list {
			out = append(out, strings.TrimSpace(a.Address))
		}
		return out
	}
	// Providers sometimes hand over bare, slightly off-RFC lists.
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if i := strings.LastIndexByte(part, '<'); i >= 0 {
			part = strings.TrimSuffix(part[i+1:], ">")
		}
		if part != "" {
			out = append(out, strings.TrimSpace(part))
		}
	}
	return out
}
