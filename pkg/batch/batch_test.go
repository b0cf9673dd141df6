package batch

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {

	contentType, body, err := Marshal([]*SubRequest{
		{
			Method: http.MethodPost,
			URL:    "https://fcm.googleapis.com/v1/projects/p/messages:send",
			Body:   map[string]string{"k1": "v1"},
		},
		{
			Method: http.MethodPost,
			URL:    "https://fcm.googleapis.com/v1/projects/p/messages:send",
			Body:   map[string]string{"k2": "v2"},
		},
	})
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])

	for i := 0; i < 2; i++ {
		part, err := mr.NextPart()
		require.NoError(t, err)

		require.Equal(t, "application/http", part.Header.Get("Content-Type"))
		require.Equal(t, fmt.Sprintf("<item-%d>", i), part.Header.Get("Content-ID"))

		req, err := http.ReadRequest(bufio.NewReader(part))
		require.NoError(t, err)
		require.Equal(t, http.MethodPost, req.Method)
		require.Equal(t, "/v1/projects/p/messages:send", req.URL.String())

		payload, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.JSONEq(t, fmt.Sprintf(`{"k%d":"v%d"}`, i+1, i+1), string(payload))
	}

	_, err = mr.NextPart()
	require.Equal(t, io.EOF, err)
}

func TestMarshalEmpty(t *testing.T) {

	contentType, body, err := Marshal(nil)
	require.NoError(t, err)
	require.Contains(t, contentType, "multipart/mixed")
	require.NotEmpty(t, body)
}

func TestUnmarshalOutOfOrder(t *testing.T) {

	// parts arrive in reverse order: correlation must come from the
	// Content-ID, not the part position
	contentType, body := buildResponse(t, []responsePart{
		{id: "<response-item-1>", status: 400, body: `{"error":{"status":"INVALID_ARGUMENT"}}`},
		{id: "<response-item-0>", status: 200, body: `{"name":"projects/p/messages/1"}`},
	})

	slots, err := Unmarshal(contentType, strings.NewReader(body), 2)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	require.Equal(t, 200, slots[0].StatusCode)
	require.JSONEq(t, `{"name":"projects/p/messages/1"}`, string(slots[0].Body))

	require.Equal(t, 400, slots[1].StatusCode)
}

func TestUnmarshalMissingAndForeignParts(t *testing.T) {

	contentType, body := buildResponse(t, []responsePart{
		{id: "<response-item-0>", status: 200, body: `{"name":"n"}`},
		{id: "<unrelated>", status: 200, body: `{}`},
		{id: "<response-item-9>", status: 200, body: `{}`}, // out of range
	})

	slots, err := Unmarshal(contentType, strings.NewReader(body), 3)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	require.NotNil(t, slots[0])
	require.Nil(t, slots[1])
	require.Nil(t, slots[2])
}

func TestUnmarshalGarbagePart(t *testing.T) {

	buf := bytes.NewBuffer(nil)
	mw := multipart.NewWriter(buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Type", "application/http")
	header.Set("Content-ID", "<response-item-0>")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("this is not an http response"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	slots, err := Unmarshal("multipart/mixed; boundary="+mw.Boundary(), buf, 1)
	require.NoError(t, err)
	require.Nil(t, slots[0])
}

func TestUnmarshalNotMultipart(t *testing.T) {

	_, err := Unmarshal("application/json", strings.NewReader(`{}`), 1)
	require.Error(t, err)

	_, err = Unmarshal("", strings.NewReader(""), 1)
	require.Error(t, err)
}

func TestPartIndex(t *testing.T) {

	for contentID, want := range map[string]int{
		"<item-0>":           0,
		"<item-12>":          12,
		"<response-item-3>":  3,
		"response-item-4":    4,
		"<response-item-00>": 0,
	} {
		idx, ok := partIndex(contentID)
		require.True(t, ok, contentID)
		require.Equal(t, want, idx, contentID)
	}

	for _, contentID := range []string{"", "<foo>", "<item->", "<item-x>", "<response-5>"} {
		_, ok := partIndex(contentID)
		require.False(t, ok, contentID)
	}
}

type responsePart struct {
	id     string
	status int
	body   string
}

func buildResponse(t *testing.T, parts []responsePart) (contentType, body string) {
	t.Helper()

	buf := bytes.NewBuffer(nil)
	mw := multipart.NewWriter(buf)

	for _, p := range parts {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Type", "application/http")
		header.Set("Content-ID", p.id)

		part, err := mw.CreatePart(header)
		require.NoError(t, err)

		_, err = fmt.Fprintf(part,
			"HTTP/1.1 %d %s\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n%s",
			p.status, http.StatusText(p.status), len(p.body), p.body)
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	return "multipart/mixed; boundary=" + mw.Boundary(), buf.String()
}
