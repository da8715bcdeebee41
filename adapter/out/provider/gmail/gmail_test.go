package gmail

import (
	"errors"
	"testing"

	"billsync/core/port/out"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want out.ProviderErrorCode
	}{
		{"unauthorized", &googleapi.Error{Code: 401}, out.ProviderErrUnauthorized},
		{"forbidden", &googleapi.Error{Code: 403, Message: "insufficient scope"}, out.ProviderErrUnauthorized},
		{"rate limit via 403", &googleapi.Error{Code: 403, Message: "User Rate Limit Exceeded"}, out.ProviderErrRateLimited},
		{"rate limit via 429", &googleapi.Error{Code: 429}, out.ProviderErrRateLimited},
		{"not found", &googleapi.Error{Code: 404}, out.ProviderErrNotFound},
		{"server error", &googleapi.Error{Code: 503}, out.ProviderErrServer},
		{"opaque error", errors.New("dial tcp: timeout"), out.ProviderErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapError(tt.err, "call failed")
			var perr *out.ProviderError
			if !errors.As(err, &perr) {
				t.Fatalf("wrapError() = %T, want *out.ProviderError", err)
			}
			if perr.Code != tt.want {
				t.Errorf("Code = %q, want %q", perr.Code, tt.want)
			}
			if perr.Provider != "gmail" {
				t.Errorf("Provider = %q", perr.Provider)
			}
			if !errors.Is(err, tt.err) {
				t.Error("wrapped error lost the cause chain")
			}
		})
	}

	if wrapError(nil, "x") != nil {
		t.Error("wrapError(nil) != nil")
	}
}

func TestConvertMessage(t *testing.T) {
	msg := &gmail.Message{
		Id:      "m1",
		Snippet: "Your Direct Debit payment",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "Direct Debit paid to Acme"},
				{Name: "From", Value: "noreply@wise.com"},
				{Name: "Date", Value: "Mon, 05 Jan 2026 10:00:00 +0000"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: "cGxhaW4"}},
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: "aHRtbA"}},
			},
		},
	}

	env := convertMessage(msg)

	if env.ID != "m1" || env.Snippet != "Your Direct Debit payment" {
		t.Errorf("envelope = %+v", env)
	}
	if got := env.Header("subject"); got != "Direct Debit paid to Acme" {
		t.Errorf("Header(subject) = %q", got)
	}
	if env.Body == nil || len(env.Body.Parts) != 2 {
		t.Fatalf("Body = %+v, want 2 parts", env.Body)
	}
	if env.Body.Parts[0].Data != "cGxhaW4" || env.Body.Parts[1].MimeType != "text/html" {
		t.Errorf("parts = %+v", env.Body.Parts)
	}
}

func TestConvertMessageNoPayload(t *testing.T) {
	env := convertMessage(&gmail.Message{Id: "m1"})
	if env.Body != nil {
		t.Errorf("Body = %+v, want nil", env.Body)
	}
	if got := env.Header("Subject"); got != "" {
		t.Errorf("Header on empty envelope = %q", got)
	}
}
