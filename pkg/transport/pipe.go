package transport

import (
	"encoding/json"
	"io"
)

// Pipe streams the output of a write callback as an io.ReadCloser,
// so request payloads are encoded directly into the outgoing request
// body instead of an intermediate buffer. An error from the callback
// surfaces on the reading side.
type Pipe struct {
	r *io.PipeReader
}

func NewPipe(write func(io.Writer) error) *Pipe {

	pr, pw := io.Pipe()

	go func() {
		pw.CloseWithError(write(pw))
	}()

	return &Pipe{r: pr}
}

// NewJSONPipe streams the JSON encoding of obj.
func NewJSONPipe(obj interface{}) *Pipe {
	return NewPipe(func(w io.Writer) error {
		return json.NewEncoder(w).Encode(obj)
	})
}

func (p *Pipe) Read(out []byte) (int, error) {
	return p.r.Read(out)
}

func (p *Pipe) Close() error {
	return p.r.Close()
}
