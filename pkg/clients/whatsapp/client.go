package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// MaxBodyLength is the longest text body the Cloud API accepts.
const MaxBodyLength = 4096

// ErrInvalidMessage is returned before any request is made when the recipient or the
// body cannot be sent.
var ErrInvalidMessage = errors.New("invalid whatsapp message")

// Sender delivers text notifications to operators.
type Sender interface {
	SendText(ctx context.Context, msg Message) (string, error)
}

// Options configures the API client.
type Options struct {
	BaseURL       string
	APIVersion    string
	AccessToken   string
	PhoneNumberID string
	Timeout       time.Duration
	// Retries is how many times a throttled or failed delivery is retried.
	Retries   int
	RetryWait time.Duration
}

// APIClient is a resty-backed implementation of Sender.
type APIClient struct {
	httpClient    *resty.Client
	phoneNumberID string
}

var _ Sender = (*APIClient)(nil)

// NewClient builds a WhatsApp Cloud API client. Deliveries answered with 429 or a 5xx
// status are retried with backoff.
func NewClient(opts Options) *APIClient {
	base := strings.TrimSuffix(opts.BaseURL, "/")
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	wait := opts.RetryWait
	if wait <= 0 {
		wait = 500 * time.Millisecond
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(fmt.Sprintf("%s/%s", base, opts.APIVersion)).
		SetAuthToken(opts.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(4 * wait).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err == nil && resp != nil && retryable(resp.StatusCode())
		})

	return &APIClient{
		httpClient:    restyClient,
		phoneNumberID: opts.PhoneNumberID,
	}
}

// Message is a plain text notification. To is an international phone number; spaces,
// dashes, dots, parentheses and a leading plus are ignored.
type Message struct {
	To         string
	Body       string
	PreviewURL bool
}

// APIError is a non-2xx answer of the Cloud API.
type APIError struct {
	Status  int
	Code    int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d, code=%d, message=%s", e.Status, e.Code, e.Message)
}

// Temporary reports whether a later attempt may succeed.
func (e *APIError) Temporary() bool {
	return retryable(e.Status)
}

type messagesResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText sends msg to a single recipient and returns the message id assigned by Meta.
func (c *APIClient) SendText(ctx context.Context, msg Message) (string, error) {
	to, err := NormalizeRecipient(msg.To)
	if err != nil {
		return "", err
	}
	body := strings.TrimSpace(msg.Body)
	switch {
	case body == "":
		return "", fmt.Errorf("%w: body is empty", ErrInvalidMessage)
	case len([]rune(body)) > MaxBodyLength:
		return "", fmt.Errorf("%w: body exceeds %d characters", ErrInvalidMessage, MaxBodyLength)
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text": map[string]any{
			"body":        body,
			"preview_url": msg.PreviewURL,
		},
	}

	result := new(messagesResponse)
	failure := new(errorResponse)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(failure).
		Post(fmt.Sprintf("%s/messages", c.phoneNumberID))
	if err != nil {
		return "", fmt.Errorf("send whatsapp message: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return "", &APIError{
			Status:  resp.StatusCode(),
			Code:    failure.Error.Code,
			Type:    failure.Error.Type,
			Message: failure.Error.Message,
		}
	}
	if len(result.Messages) == 0 {
		return "", nil
	}
	return result.Messages[0].ID, nil
}

// NormalizeRecipient strips the formatting of a phone number and checks that only
// digits are left.
func NormalizeRecipient(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0, r == ' ', r == '-', r == '.', r == '(', r == ')':
		default:
			return "", fmt.Errorf("%w: recipient %q is not a phone number", ErrInvalidMessage, raw)
		}
	}
	n := b.Len()
	if n < 8 || n > 15 {
		return "", fmt.Errorf("%w: recipient %q is not a phone number", ErrInvalidMessage, raw)
	}
	return b.String(), nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
