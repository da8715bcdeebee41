// Package mailparse turns raw message payloads into plain text.
package mailparse

import (
	"encoding/base64"
	"strings"

	"billsync/core/port/out"
)

// Decode flattens a MIME part tree into a single plain-text body. Leaf data
// arrives in the provider's URL-safe base64 transport encoding; children are
// decoded in document order and joined with a newline. Decode is total:
// malformed leaf data degrades to whatever prefix decodes cleanly, or to an
// empty string, so one broken body cannot abort a run.
func Decode(part *out.MessagePart) string {
	if part == nil {
		return ""
	}
	if part.Data != "" {
		return decodeBase64URL(part.Data)
	}
	if len(part.Parts) > 0 {
		chunks := make([]string, len(part.Parts))
		for i, child := range part.Parts {
			chunks[i] = Decode(child)
		}
		return strings.Join(chunks, "\n")
	}
	return ""
}

// decodeBase64URL decodes Gmail-style base64url: '-' and '_' instead of
// '+' and '/', with padding often stripped.
func decodeBase64URL(data string) string {
	s := strings.ReplaceAll(data, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}

	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Salvage the longest cleanly decodable prefix.
		decoded, _ = base64.StdEncoding.WithPadding(base64.NoPadding).DecodeString(trimToQuantum(s))
	}
	return string(decoded)
}

// trimToQuantum drops padding and any trailing partial base64 quantum.
func trimToQuantum(s string) string {
	s = strings.TrimRight(s, "=")
	return s[:len(s)-len(s)%4]
}
