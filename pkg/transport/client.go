package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// maxResponseBody caps how much of a response is buffered.
// FCM batch responses for 500 messages stay well below this.
const maxResponseBody = 10 << 20

// Request is one outgoing API call.
type Request struct {
	Method string
	URL    string
	Body   io.Reader

	// Extra headers (Content-Type included). Authorization is always
	// set by the client and must not appear here.
	Header http.Header
}

// NewJSONRequest builds a request whose body is the streamed JSON
// encoding of obj.
func NewJSONRequest(method, url string, obj interface{}) *Request {

	header := make(http.Header)
	header.Set("Content-Type", "application/json; charset=UTF-8")

	return &Request{
		Method: method,
		URL:    url,
		Body:   NewJSONPipe(obj),
		Header: header,
	}
}

// Response is a fully buffered API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client is an authorized HTTP transport shared by the per-API clients.
// It attaches credentials and buffers responses; it never classifies
// errors and never retries. Safe for concurrent use.
type Client struct {
	client *http.Client
	tokens TokenSource
}

func NewClient(hc *http.Client, tokens TokenSource) *Client {

	if hc == nil {
		hc = http.DefaultClient
	}

	return &Client{
		client: hc,
		tokens: tokens,
	}
}

// Do performs one HTTP round-trip. A returned error always means the
// call itself could not be completed (network failure, cancellation,
// credentials); any HTTP status, success or not, comes back as a
// *Response for the caller to classify.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {

	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, req.Body)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}

	for key, values := range req.Header {
		hreq.Header[key] = values
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		hreq.Header.Set("Authorization", token.Type()+" "+token.AccessToken)
	}

	res, err := c.client.Do(hreq)
	if err != nil {
		return nil, errors.Wrap(err, "http call")
	}
	defer res.Body.Close()

	body := bytes.NewBuffer(nil)
	if _, err := io.Copy(body, io.LimitReader(res.Body, maxResponseBody)); err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       body.Bytes(),
	}, nil
}
