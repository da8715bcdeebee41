package mailparse

import (
	"encoding/base64"
	"testing"

	"billsync/core/port/out"
)

func b64url(s string) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(s))
}

func TestDecodeLeaf(t *testing.T) {
	part := &out.MessagePart{MimeType: "text/plain", Data: b64url("Amount due: £83.50")}
	if got := Decode(part); got != "Amount due: £83.50" {
		t.Errorf("Decode() = %q, want %q", got, "Amount due: £83.50")
	}
}

func TestDecodeMultipart(t *testing.T) {
	part := &out.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*out.MessagePart{
			{MimeType: "text/plain", Data: b64url("first")},
			{MimeType: "text/html", Data: b64url("second")},
		},
	}
	if got := Decode(part); got != "first\nsecond" {
		t.Errorf("Decode() = %q, want %q", got, "first\nsecond")
	}
}

func TestDecodeNested(t *testing.T) {
	part := &out.MessagePart{
		Parts: []*out.MessagePart{
			{
				Parts: []*out.MessagePart{
					{Data: b64url("inner")},
				},
			},
			{Data: b64url("outer")},
		},
	}
	if got := Decode(part); got != "inner\nouter" {
		t.Errorf("Decode() = %q, want %q", got, "inner\nouter")
	}
}

func TestDecodeTotality(t *testing.T) {
	tests := []struct {
		name string
		part *out.MessagePart
	}{
		{"nil tree", nil},
		{"empty node", &out.MessagePart{}},
		{"garbage data", &out.MessagePart{Data: "!!!not base64!!!"}},
		{"truncated data", &out.MessagePart{Data: b64url("hello")[:3]}},
		{"empty children", &out.MessagePart{Parts: []*out.MessagePart{nil, {}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Must not panic; result just has to be a string.
			_ = Decode(tt.part)
		})
	}
}

func TestDecodeDeterminism(t *testing.T) {
	part := &out.MessagePart{
		Parts: []*out.MessagePart{
			{Data: b64url("a")},
			{Data: "%%%"},
			{Data: b64url("b")},
		},
	}
	first := Decode(part)
	second := Decode(part)
	if first != second {
		t.Errorf("Decode() not deterministic: %q vs %q", first, second)
	}
}

func TestEnvelopeHeaderLookup(t *testing.T) {
	env := &out.MessageEnvelope{
		Headers: []out.Header{
			{Name: "Subject", Value: "Direct Debit paid to Acme"},
			{Name: "From", Value: "noreply@wise.com"},
		},
	}
	if got := env.Header("subject"); got != "Direct Debit paid to Acme" {
		t.Errorf("Header(subject) = %q", got)
	}
	if got := env.Header("FROM"); got != "noreply@wise.com" {
		t.Errorf("Header(FROM) = %q", got)
	}
	if got := env.Header("Date"); got != "" {
		t.Errorf("Header(Date) = %q, want empty", got)
	}
}
