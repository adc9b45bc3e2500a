package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
)

// ContentTypeJSON is sent with every non-multipart request.
const ContentTypeJSON = "application/json"

// Body is a request payload. The variant decides the Content-Type header;
// nothing else in the client writes it.
type Body interface {
	encode() (io.Reader, string, error)
}

// Multipart is a multipart/form-data upload with one file part. The body is
// streamed: Content is read while the request is being sent, so memory use
// does not grow with the size of the file.
type Multipart struct {
	Field    string // form field holding the file
	FileName string
	Content  io.Reader
	Fields   map[string]string // extra plain form values, optional
}

// errEncodeBody marks a failure to produce the request body, as opposed to a
// failure to deliver it.
var errEncodeBody = errors.New("encode request body")

func (m Multipart) encode() (io.Reader, string, error) {
	if m.Content == nil {
		return nil, "", fmt.Errorf("multipart %q: nil content", m.Field)
	}

	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	go func() {
		// A reader that stops early closes pr, which fails the next write here.
		pw.CloseWithError(m.write(w))
	}()

	// The boundary-bearing type comes from the writer that produces the body.
	return pr, w.FormDataContentType(), nil
}

func (m Multipart) write(w *multipart.Writer) error {
	part, err := w.CreateFormFile(m.Field, m.FileName)
	if err != nil {
		return fmt.Errorf("%w: create form file: %w", errEncodeBody, err)
	}
	if _, err := io.Copy(part, m.Content); err != nil {
		return fmt.Errorf("%w: copy file data: %w", errEncodeBody, err)
	}
	for k, v := range m.Fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("%w: write field %s: %w", errEncodeBody, k, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: close multipart writer: %w", errEncodeBody, err)
	}
	return nil
}

// JSON is a JSON-encoded payload.
type JSON struct {
	Value any
}

func (j JSON) encode() (io.Reader, string, error) {
	b, err := json.Marshal(j.Value)
	if err != nil {
		return nil, "", fmt.Errorf("encode json body: %w", err)
	}
	return bytes.NewReader(b), ContentTypeJSON, nil
}

// encodeBody resolves a body variant to its reader and Content-Type.
// A nil body is treated as an empty JSON request.
func encodeBody(b Body) (io.Reader, string, error) {
	if b == nil {
		return nil, ContentTypeJSON, nil
	}
	return b.encode()
}
