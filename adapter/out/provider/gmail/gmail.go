// Package gmail implements the mailbox provider port against the Gmail API.
package gmail

import (
	"context"
	"net/http"
	"strings"
	"time"

	"billsync/core/port/out"
	"billsync/pkg/httputil"
	"billsync/pkg/logger"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Config holds the OAuth credentials for a single mailbox. The refresh token
// is long-lived; access tokens are minted on demand by the token source.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Adapter implements out.MailProvider for Gmail.
type Adapter struct {
	service *gmail.Service
	cb      *gobreaker.CircuitBreaker
}

// NewAdapter creates a Gmail adapter authenticated with a stored refresh
// token. No interactive OAuth flow is involved.
func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}

	base := httputil.NewClient(httputil.GmailClientConfig())
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := oauthCfg.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	service, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, wrapError(err, "failed to create gmail service")
	}

	cbSettings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	}

	return &Adapter{
		service: service,
		cb:      gobreaker.NewCircuitBreaker(cbSettings),
	}, nil
}

// Search lists message references matching the Gmail query, newest first.
func (a *Adapter) Search(ctx context.Context, query string, max int) ([]out.MessageRef, error) {
	var resp *gmail.ListMessagesResponse
	err := a.execute("list", func() error {
		req := a.service.Users.Messages.List("me").Q(query)
		if max > 0 {
			req = req.MaxResults(int64(max))
		}
		var err error
		resp, err = req.Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, wrapError(err, "failed to list messages")
	}

	refs := make([]out.MessageRef, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		refs = append(refs, out.MessageRef{ID: m.Id, ThreadID: m.ThreadId})
	}
	return refs, nil
}

// Fetch retrieves the full message and converts it to the normalized
// envelope. Part data stays transport-encoded; decoding belongs to the
// caller.
func (a *Adapter) Fetch(ctx context.Context, id string) (*out.MessageEnvelope, error) {
	var msg *gmail.Message
	err := a.execute("get", func() error {
		var err error
		msg, err = a.service.Users.Messages.Get("me", id).
			Format("full").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, wrapError(err, "failed to get message")
	}
	return convertMessage(msg), nil
}

// IsCircuitOpen reports whether calls are currently failing fast.
func (a *Adapter) IsCircuitOpen() bool {
	return a.cb.State() == gobreaker.StateOpen
}

// execute runs one API call under the circuit breaker. Client errors
// (4xx other than 429) must not trip the breaker.
func (a *Adapter) execute(operation string, fn func() error) error {
	_, err := a.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			if apiErr, ok := err.(*googleapi.Error); ok {
				switch apiErr.Code {
				case 429, 500, 502, 503:
					return nil, err
				case 400, 401, 403, 404:
					return nil, &nonCircuitError{err: err}
				}
			}
			return nil, err
		}
		return nil, nil
	})

	if nce, ok := err.(*nonCircuitError); ok {
		return nce.err
	}
	if err != nil {
		logger.WithFields(map[string]any{
			"operation": operation,
			"state":     a.cb.State().String(),
		}).WithError(err).Error("gmail api call failed")
	}
	return err
}

// nonCircuitError wraps errors that should not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}

func convertMessage(msg *gmail.Message) *out.MessageEnvelope {
	env := &out.MessageEnvelope{
		ID:      msg.Id,
		Snippet: msg.Snippet,
	}
	if msg.Payload != nil {
		env.Headers = make([]out.Header, 0, len(msg.Payload.Headers))
		for _, h := range msg.Payload.Headers {
			env.Headers = append(env.Headers, out.Header{Name: h.Name, Value: h.Value})
		}
		env.Body = convertPart(msg.Payload)
	}
	return env
}

func convertPart(part *gmail.MessagePart) *out.MessagePart {
	if part == nil {
		return nil
	}
	p := &out.MessagePart{MimeType: part.MimeType}
	if part.Body != nil {
		p.Data = part.Body.Data
	}
	for _, child := range part.Parts {
		if converted := convertPart(child); converted != nil {
			p.Parts = append(p.Parts, converted)
		}
	}
	return p
}

func wrapError(err error, defaultMsg string) error {
	if err == nil {
		return nil
	}

	if apiErr, ok := err.(*googleapi.Error); ok {
		switch apiErr.Code {
		case 401:
			return out.NewProviderError("gmail", out.ProviderErrUnauthorized, "token expired or revoked", err)
		case 403:
			if strings.Contains(apiErr.Message, "Rate Limit") {
				return out.NewProviderError("gmail", out.ProviderErrRateLimited, "rate limit exceeded", err)
			}
			return out.NewProviderError("gmail", out.ProviderErrUnauthorized, "access denied", err)
		case 404:
			return out.NewProviderError("gmail", out.ProviderErrNotFound, "message not found", err)
		case http.StatusTooManyRequests:
			return out.NewProviderError("gmail", out.ProviderErrRateLimited, "too many requests", err)
		case 500, 502, 503:
			return out.NewProviderError("gmail", out.ProviderErrServer, "server error", err)
		}
	}

	return out.NewProviderError("gmail", out.ProviderErrServer, defaultMsg, err)
}

var _ out.MailProvider = (*Adapter)(nil)
