// Package batch implements the multipart batch protocol used by Google
// APIs: N independent HTTP sub-requests packed into one multipart/mixed
// POST, answered by one multipart/mixed response with one embedded HTTP
// response per part.
//
// Protocol reference:
// https://cloud.google.com/compute/docs/api/how-tos/batch
package batch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// SubRequest is one logical request inside a batch call.
type SubRequest struct {
	Method string
	URL    string

	// Body is JSON-encoded into the embedded request.
	Body interface{}
}

// SubResponse is the embedded HTTP response for one sub-request.
type SubResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Marshal packs the sub-requests into a multipart/mixed body. The part
// at position i carries Content-ID <item-i>; the server echoes the ID
// back, which is the only correlation between parts and inputs; part
// order carries no meaning.
func Marshal(reqs []*SubRequest) (contentType string, body []byte, err error) {

	buf := bytes.NewBuffer(nil)
	mw := multipart.NewWriter(buf)

	for i, req := range reqs {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Type", "application/http")
		header.Set("Content-ID", fmt.Sprintf("<item-%d>", i))
		header.Set("Content-Transfer-Encoding", "binary")

		part, err := mw.CreatePart(header)
		if err != nil {
			return "", nil, errors.Wrap(err, "create part")
		}

		if err := writeSubRequest(part, req); err != nil {
			return "", nil, errors.Wrapf(err, "sub-request %d", i)
		}
	}

	if err := mw.Close(); err != nil {
		return "", nil, errors.Wrap(err, "close multipart")
	}

	return "multipart/mixed; boundary=" + mw.Boundary(), buf.Bytes(), nil
}

func writeSubRequest(w io.Writer, req *SubRequest) error {

	u, err := url.Parse(req.URL)
	if err != nil {
		return errors.Wrap(err, "url")
	}

	payload, err := json.Marshal(req.Body)
	if err != nil {
		return errors.Wrap(err, "payload")
	}

	// the embedded request line addresses the target path, not the
	// batch endpoint
	_, err = fmt.Fprintf(w,
		"%s %s HTTP/1.1\r\nContent-Type: application/json; charset=UTF-8\r\nContent-Length: %d\r\n\r\n%s",
		req.Method, u.RequestURI(), len(payload), payload)

	return err
}

// Unmarshal parses a multipart batch response into n slots. Each part's
// Content-ID selects the slot it fills. Slots without a well-formed
// matching part are left nil for the caller to classify; a response
// that is not parseable as multipart at all is an error for the whole
// call.
func Unmarshal(contentType string, body io.Reader, n int) ([]*SubResponse, error) {

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, errors.Wrap(err, "content type")
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, errors.Errorf("unexpected content type: %s", mediaType)
	}

	slots := make([]*SubResponse, n)

	mr := multipart.NewReader(body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "read part")
		}

		idx, ok := partIndex(part.Header.Get("Content-ID"))
		if !ok || idx < 0 || idx >= n {
			continue
		}

		slots[idx] = readSubResponse(part)
	}

	return slots, nil
}

// readSubResponse parses the embedded HTTP response.
// Returns nil for garbage the caller cannot correlate with an outcome.
func readSubResponse(r io.Reader) *SubResponse {

	res, err := http.ReadResponse(bufio.NewReader(r), nil)
	if err != nil {
		return nil
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil
	}

	return &SubResponse{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       body,
	}
}

// partIndex extracts the slot index from a Content-ID header.
// Requests carry <item-N>, responses <response-item-N>.
func partIndex(contentID string) (int, bool) {

	id := strings.Trim(contentID, "<>")
	id = strings.TrimPrefix(id, "response-")

	if !strings.HasPrefix(id, "item-") {
		return 0, false
	}

	idx, err := strconv.Atoi(strings.TrimPrefix(id, "item-"))
	if err != nil {
		return 0, false
	}

	return idx, true
}
