// Package out defines outbound ports (driven ports) for the application.
package out

import (
	"context"
	"strings"
)

// MailProvider is the outbound port for the external mailbox. Every call is a
// fresh remote round trip; the adapter performs no caching.
type MailProvider interface {
	// Search runs the provider's query syntax and returns lightweight
	// references, newest first, bounded by the provider's page cap.
	Search(ctx context.Context, query string, max int) ([]MessageRef, error)

	// Fetch retrieves the full envelope for one message id.
	Fetch(ctx context.Context, id string) (*MessageEnvelope, error)
}

// MessageRef identifies one message in a search result.
type MessageRef struct {
	ID       string
	ThreadID string
}

// MessageEnvelope is the normalized representation of one fetched message.
// It is immutable after the fetch and never persisted directly.
type MessageEnvelope struct {
	ID      string
	Headers []Header
	Snippet string
	Body    *MessagePart
}

// Header is one name/value pair. Order is preserved; lookups are
// case-insensitive.
type Header struct {
	Name  string
	Value string
}

// Header returns the first header with the given name, case-insensitively,
// or "" when absent.
func (e *MessageEnvelope) Header(name string) string {
	for _, h := range e.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// MessagePart is one node of the MIME part tree. A node either carries
// transport-encoded leaf data or child parts; a node with neither decodes to
// an empty string.
type MessagePart struct {
	MimeType string
	Data     string // URL-safe base64, as delivered by the provider
	Parts    []*MessagePart
}

// ProviderErrorCode classifies mailbox provider failures.
type ProviderErrorCode string

const (
	ProviderErrUnauthorized ProviderErrorCode = "unauthorized"
	ProviderErrRateLimited  ProviderErrorCode = "rate_limited"
	ProviderErrNotFound     ProviderErrorCode = "not_found"
	ProviderErrServer       ProviderErrorCode = "server_error"
)

// ProviderError represents a mailbox provider error. None of these are
// retried at this layer; classification is for the caller's accounting.
type ProviderError struct {
	Provider string
	Code     ProviderErrorCode
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new provider error.
func NewProviderError(provider string, code ProviderErrorCode, message string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Code:     code,
		Message:  message,
		Err:      err,
	}
}
