package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ROR44/firebase-admin-go/pkg/apierror"
	"github.com/ROR44/firebase-admin-go/pkg/batch"
	"github.com/ROR44/firebase-admin-go/pkg/metric"
	"github.com/ROR44/firebase-admin-go/pkg/transport"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultEndpoint      = "https://fcm.googleapis.com/v1"
	defaultBatchEndpoint = "https://fcm.googleapis.com/batch"

	// upper bound for one batch call, from
	// https://firebase.google.com/docs/cloud-messaging/send-message#send-a-batch-of-messages
	maxBatchMessages = 500

	// opts the backend into returning structured error payloads
	apiFormatVersionHeader = "X-GOOG-API-FORMAT-VERSION"
	apiFormatVersion       = "2"
)

var ErrMessageNil = errors.New("message must not be nil")

// Client sends messages through the FCM v1 REST API.
// Safe for concurrent use.
type Client struct {
	transport *transport.Client
	endpoint  string
	batchURL  string
	sendURL   string
	logger    *zap.Logger
	metric    *metric.Client
}

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithMetrics(m *metric.Client) Option {
	return func(c *Client) { c.metric = m }
}

// WithEndpoints overrides the send and batch endpoints. For tests.
func WithEndpoints(endpoint, batchEndpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
		c.batchURL = batchEndpoint
	}
}

func NewClient(tr *transport.Client, projectID string, opts ...Option) (*Client, error) {

	if tr == nil {
		return nil, errors.New("transport must not be nil")
	}
	if projectID == "" {
		return nil, errors.New("project id is required")
	}

	c := &Client{
		transport: tr,
		endpoint:  defaultEndpoint,
		batchURL:  defaultBatchEndpoint,
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	// send message endpoint:
	// https://firebase.google.com/docs/reference/fcm/rest/v1/projects.messages/send
	c.sendURL = c.endpoint + "/projects/" + url.PathEscape(projectID) + "/messages:send"

	return c, nil
}

// sendRequest is the envelope around one message:
// https://firebase.google.com/docs/reference/fcm/rest/v1/projects.messages/send#request-body
type sendRequest struct {
	ValidateOnly bool     `json:"validate_only,omitempty"`
	Message      *Message `json:"message"`
}

// sendResponse is the success payload; Name is the opaque message ID
// ("projects/<project-id>/messages/<id>").
type sendResponse struct {
	Name string `json:"name"`
}

// Send delivers one message and returns its message ID. Any failure is
// the whole call's failure: a *SendError for a classified backend
// answer, a transport error otherwise.
func (c *Client) Send(ctx context.Context, message *Message) (string, error) {
	return c.send(ctx, message, false)
}

// SendDryRun validates the message against the backend without
// delivering it.
func (c *Client) SendDryRun(ctx context.Context, message *Message) (string, error) {
	return c.send(ctx, message, true)
}

func (c *Client) send(ctx context.Context, message *Message, dryRun bool) (string, error) {

	if message == nil {
		return "", ErrMessageNil
	}

	req := transport.NewJSONRequest(http.MethodPost, c.sendURL, &sendRequest{
		ValidateOnly: dryRun,
		Message:      message,
	})
	req.Header.Set(apiFormatVersionHeader, apiFormatVersion)

	timerStop := c.metric.NewIOTimer()
	res, err := c.transport.Do(ctx, req)
	timerStop()

	if err != nil {
		c.metric.FailsAdd(1)
		return "", err
	}

	if res.StatusCode/100 != 2 {
		serr := newSendError(apierror.FromResponse(res.StatusCode, res.Body))
		c.metric.FailsAdd(1)
		c.logger.Error("send message",
			zap.Int("status", res.StatusCode),
			zap.Error(serr))
		return "", serr
	}

	var out sendResponse
	if err := json.Unmarshal(res.Body, &out); err != nil {
		c.metric.FailsAdd(1)
		return "", errors.Wrap(err, "decode send response")
	}

	c.metric.SuccessAdd(1)

	return out.Name, nil
}

// SendAll delivers up to 500 messages in one physical batch call and
// returns one outcome per message, in input order. A single message's
// failure is data in the response, never an error; the call errors only
// when the batch itself cannot be completed, and then no partial result
// is returned.
func (c *Client) SendAll(ctx context.Context, messages []*Message) (*BatchResponse, error) {
	return c.sendAll(ctx, messages, false)
}

// SendAllDryRun validates the whole batch without delivering anything.
func (c *Client) SendAllDryRun(ctx context.Context, messages []*Message) (*BatchResponse, error) {
	return c.sendAll(ctx, messages, true)
}

func (c *Client) sendAll(ctx context.Context, messages []*Message, dryRun bool) (*BatchResponse, error) {

	if len(messages) > maxBatchMessages {
		return nil, newSendError(&apierror.Error{
			Kind: apierror.InvalidArgument,
			Message: fmt.Sprintf("batch must not contain more than %d messages",
				maxBatchMessages),
		})
	}

	if len(messages) == 0 {
		return &BatchResponse{Responses: []*SendResponse{}}, nil
	}

	subs := make([]*batch.SubRequest, 0, len(messages))
	for _, message := range messages {
		if message == nil {
			return nil, ErrMessageNil
		}

		subs = append(subs, &batch.SubRequest{
			Method: http.MethodPost,
			URL:    c.sendURL,
			Body: &sendRequest{
				ValidateOnly: dryRun,
				Message:      message,
			},
		})
	}

	contentType, payload, err := batch.Marshal(subs)
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	header.Set("Content-Type", contentType)
	header.Set(apiFormatVersionHeader, apiFormatVersion)

	timerStop := c.metric.NewIOTimer()
	res, err := c.transport.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		URL:    c.batchURL,
		Body:   bytes.NewReader(payload),
		Header: header,
	})
	timerStop()

	if err != nil {
		c.metric.FailsAdd(len(messages))
		return nil, err
	}

	if res.StatusCode/100 != 2 {
		serr := newSendError(apierror.FromResponse(res.StatusCode, res.Body))
		c.metric.FailsAdd(len(messages))
		c.logger.Error("send batch",
			zap.Int("status", res.StatusCode),
			zap.Int("messages", len(messages)),
			zap.Error(serr))
		return nil, serr
	}

	slots, err := batch.Unmarshal(res.Header.Get("Content-Type"), bytes.NewReader(res.Body), len(messages))
	if err != nil {
		c.metric.FailsAdd(len(messages))
		return nil, errors.Wrap(err, "batch response")
	}

	retval := &BatchResponse{
		Responses: make([]*SendResponse, len(messages)),
	}

	for i, slot := range slots {
		outcome := newSendResult(slot)
		retval.Responses[i] = outcome

		if outcome.Success {
			retval.SuccessCount++
		} else {
			retval.FailureCount++
		}
	}

	c.metric.SuccessAdd(retval.SuccessCount)
	c.metric.FailsAdd(retval.FailureCount)

	if retval.FailureCount > 0 {
		c.logger.Warn("batch partially failed",
			zap.Int("success", retval.SuccessCount),
			zap.Int("failure", retval.FailureCount))
	}

	return retval, nil
}

// newSendResult classifies one batch slot. The split is three-way:
// a clean success with a message ID, a classified failure for any
// non-2xx sub-response, or a generic internal failure for a slot the
// server answered with something unusable (missing part, unparsable
// embedded response, 2xx without a message ID).
func newSendResult(slot *batch.SubResponse) *SendResponse {

	if slot == nil {
		return &SendResponse{
			Error: newSendError(&apierror.Error{
				Kind:    apierror.Internal,
				Message: "missing or unreadable response for batched message",
			}),
		}
	}

	if slot.StatusCode/100 != 2 {
		return &SendResponse{
			Error: newSendError(apierror.FromResponse(slot.StatusCode, slot.Body)),
		}
	}

	var out sendResponse
	if err := json.Unmarshal(slot.Body, &out); err != nil || out.Name == "" {
		return &SendResponse{
			Error: newSendError(&apierror.Error{
				Kind: apierror.Internal,
				Message: fmt.Sprintf(
					"unexpected batched message response with status: %d (%s)",
					slot.StatusCode, http.StatusText(slot.StatusCode)),
			}),
		}
	}

	return &SendResponse{
		Success:   true,
		MessageID: out.Name,
	}
}
