package httpserver

import (
	"strings"

	"review_inbox/internal/domain"
)

/********** alias registry for envelope fields (single source of truth) **********/

var envelopeAliases = map[string][]string{
	"recipient":  {"to", "recipient", "envelope.to", "To"},
	"sender":     {"from", "sender", "envelope.from", "From"},
	"subject":    {"subject", "Subject", "headers.subject"},
	"text":       {"text", "body-plain", "plain", "textBody", "body.text", "body"},
	"html":       {"html", "body-html", "htmlBody", "body.html"},
	"message_id": {"messageId", "message_id", "Message-Id", "MessageID", "headers.message-id"},
}

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// addressString flattens "a@b", ["a@b", ...] and [{"email": "a@b"}, ...].
func addressString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		for _, k := range []string{"email", "address", "Email"} {
			if s, ok := t[k].(string); ok && s != "" {
				return strings.TrimSpace(s)
			}
		}
	case []any:
		parts := make([]string, 0, len(t))
		for _, it := range t {
			if s := addressString(it); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// firstAlias: first non-empty value for a named alias set.
func firstAlias(m map[string]any, key string, asAddress bool) string {
	for _, p := range envelopeAliases[key] {
		v := lookupAny(m, p)
		if v == nil {
			continue
		}
		var s string
		if asAddress {
			s = addressString(v)
		} else if str, ok := v.(string); ok {
			s = str
		}
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func mapEnvelope(m map[string]any) domain.Envelope {
	return domain.Envelope{
		Recipient: firstAlias(m, "recipient", true),
		Sender:    firstAlias(m, "sender", true),
		Subject:   firstAlias(m, "subject", false),
		Text:      firstAlias(m, "text", false),
		HTML:      firstAlias(m, "html", false),
		MessageID: strings.TrimSpace(firstAlias(m, "message_id", false)),
	}
}
