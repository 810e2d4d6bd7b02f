package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/pepe-http/pepe/internal/request"
)

// RequestBuilder turns a Descriptor into fresh *http.Request values. It is
// safe for concurrent use because the descriptor is never mutated.
type RequestBuilder struct {
	desc    *request.Descriptor
	headers http.Header
	host    string
}

func NewRequestBuilder(desc *request.Descriptor) (*RequestBuilder, error) {
	if desc == nil {
		return nil, errors.New("descriptor cannot be nil")
	}

	headers := http.Header{}
	var host string
	for _, h := range desc.Headers() {
		if http.CanonicalHeaderKey(h.Name) == "Host" {
			host = h.Value
			continue
		}
		headers.Add(h.Name, h.Value)
	}
	if headers.Get("User-Agent") == "" && desc.Settings().UserAgent != "" {
		headers.Set("User-Agent", desc.Settings().UserAgent)
	}

	return &RequestBuilder{desc: desc, headers: headers, host: host}, nil
}

func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, b.desc.Method(), b.desc.URL(), nil)
	if err != nil {
		return nil, err
	}
	req.Header = b.headers.Clone()
	if b.host != "" {
		req.Host = b.host
	}

	if !b.desc.SendsBody() {
		return req, nil
	}
	src, _ := b.desc.Body()
	if src.ContentLength() == 0 {
		req.Body = http.NoBody
		req.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return req, nil
	}
	body, err := src.NewReader()
	if err != nil {
		return nil, err
	}
	req.Body = body
	req.ContentLength = src.ContentLength()
	req.GetBody = src.NewReader
	return req, nil
}
