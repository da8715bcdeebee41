package extract

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"

	"billsync/core/domain"
	"billsync/core/port/out"
	"billsync/pkg/apperr"
	"billsync/pkg/httputil"
)

const (
	// DefaultMaxBodyChars bounds how much of the body is sent to the
	// service. Truncation happens at a fixed byte offset, not at a token
	// or sentence boundary.
	DefaultMaxBodyChars = 4000

	DefaultModel = "llama-3.1-8b-instant"
)

// LLMExtractor extracts records through a hosted OpenAI-compatible
// completion endpoint with a strict JSON contract per record kind.
type LLMExtractor struct {
	client       *openai.Client
	model        string
	temperature  float32
	maxBodyChars int
}

// LLMConfig holds extractor configuration.
type LLMConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Temperature  float64
	MaxBodyChars int
	TimeoutSec   int
}

// httpConfig returns the client preset with the configured response timeout
// applied. Zero keeps the preset's default.
func httpConfig(timeoutSec int) *httputil.ClientConfig {
	cfg := httputil.LLMClientConfig()
	if timeoutSec > 0 {
		cfg.ResponseTimeout = time.Duration(timeoutSec) * time.Second
	}
	return cfg
}

// NewLLMExtractor creates an extractor from cfg. BaseURL points the client
// at any OpenAI-compatible endpoint (Groq in production).
func NewLLMExtractor(cfg LLMConfig) *LLMExtractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = httputil.NewClient(httpConfig(cfg.TimeoutSec))

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxChars := cfg.MaxBodyChars
	if maxChars <= 0 {
		maxChars = DefaultMaxBodyChars
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.1
	}

	return &LLMExtractor{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        model,
		temperature:  float32(temperature),
		maxBodyChars: maxChars,
	}
}

// ExtractBill extracts a bill record from the decoded body.
func (e *LLMExtractor) ExtractBill(ctx context.Context, body string, env *out.MessageEnvelope) (*domain.BillRecord, error) {
	content, err := e.completeJSON(ctx, billPrompt(e.truncate(body)))
	if err != nil {
		return nil, err
	}

	fields, err := parseRecordJSON(content, billFields)
	if err != nil {
		return nil, err
	}

	rec := &domain.BillRecord{
		EmailID:         env.ID,
		Provider:        fields.str("provider"),
		BillPeriodStart: fields.str("bill_period_start"),
		BillPeriodEnd:   fields.str("bill_period_end"),
		Amount:          fields.num("amount"),
		Currency:        fields.str("currency"),
		DueDate:         fields.str("due_date"),
		UsageKWH:        fields.num("usage_kwh"),
		Provenance:      provenanceFrom(env),
	}
	return rec, nil
}

// ExtractPayment extracts a payment record from the decoded body. The rule
// extractor is the default for payments; this path exists so the backend can
// be swapped without touching the engine.
func (e *LLMExtractor) ExtractPayment(ctx context.Context, body string, env *out.MessageEnvelope) (*domain.PaymentRecord, error) {
	content, err := e.completeJSON(ctx, paymentPrompt(e.truncate(body)))
	if err != nil {
		return nil, err
	}

	fields, err := parseRecordJSON(content, paymentFields)
	if err != nil {
		return nil, err
	}

	rec := &domain.PaymentRecord{
		EmailID:      env.ID,
		MerchantName: fields.str("merchant_name"),
		PaymentDate:  fields.str("payment_date"),
		AmountGBP:    fields.num("amount_gbp"),
		Provenance:   provenanceFrom(env),
	}
	return rec, nil
}

func (e *LLMExtractor) truncate(body string) string {
	if len(body) > e.maxBodyChars {
		return body[:e.maxBodyChars]
	}
	return body
}

func (e *LLMExtractor) completeJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: e.temperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", apperr.ExtractionUnavailable(apiErr.HTTPStatusCode, apiErr.Message, err)
		}
		return "", apperr.ExtractionUnavailable(0, "", err)
	}

	if len(resp.Choices) == 0 {
		return "", apperr.ExtractionMalformed("no choices in response", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// Expected field sets per record kind. The response must be a JSON object;
// any listed key that is absent maps to null, and unknown keys are ignored.
var (
	billFields    = []string{"provider", "bill_period_start", "bill_period_end", "amount", "currency", "due_date", "usage_kwh"}
	paymentFields = []string{"merchant_name", "payment_date", "amount_gbp"}
)

// recordFields holds the validated response payload.
type recordFields map[string]json.RawMessage

// parseRecordJSON validates untrusted service output against the expected
// field set. Any shape mismatch maps to an ExtractionMalformed error rather
// than a raw parse failure.
func parseRecordJSON(content string, expected []string) (recordFields, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, apperr.ExtractionMalformed("content is not a JSON object", err)
	}

	fields := make(recordFields, len(expected))
	for _, key := range expected {
		if v, ok := raw[key]; ok {
			fields[key] = v
		}
	}
	return fields, nil
}

// str returns the string value for key, or nil when the key is absent, null,
// or empty.
func (f recordFields) str(key string) *string {
	v, ok := f[key]
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil || s == "" {
		return nil
	}
	return &s
}

// num returns the numeric value for key. Models occasionally quote numbers,
// so a string holding a parseable number is accepted too.
func (f recordFields) num(key string) *float64 {
	v, ok := f[key]
	if !ok {
		return nil
	}
	var n float64
	if err := json.Unmarshal(v, &n); err == nil {
		return &n
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil && s != "" {
		if parsed, err := strconv.ParseFloat(s, 64); err == nil {
			return &parsed
		}
	}
	return nil
}

func provenanceFrom(env *out.MessageEnvelope) domain.Provenance {
	return domain.Provenance{
		Subject: env.Header("Subject"),
		From:    env.Header("From"),
		Date:    env.Header("Date"),
		Snippet: env.Snippet,
	}
}
