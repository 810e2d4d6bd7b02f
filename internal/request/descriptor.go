// Package request defines the immutable description of the HTTP request a run
// replays, together with the transport settings its client is built from.
package request

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var (
	// ErrInvalidMethod is returned when the method is not a valid HTTP token.
	ErrInvalidMethod = errors.New("invalid method")
	// ErrInvalidHeader is returned for header lines that cannot be sent on the wire.
	ErrInvalidHeader = errors.New("invalid header")
	// ErrInvalidURL is returned when the target is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url")
)

// Header is a single request header. Descriptors keep headers as an ordered
// list so duplicates and caller ordering survive.
type Header struct {
	Name  string
	Value string
}

// Descriptor describes the request every unit of a run sends.
// It is built once and shared read-only between goroutines.
type Descriptor struct {
	url      string
	method   string
	body     BodySource
	headers  []Header
	settings TransportSettings
}

// New validates its inputs and returns a Descriptor. A nil body means "no body".
func New(rawURL, method string, body BodySource, headers []Header, settings TransportSettings) (*Descriptor, error) {
	target := strings.TrimSpace(rawURL)
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, target)
	}

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	if !httpguts.ValidHeaderFieldName(method) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	hdrs := make([]Header, 0, len(headers))
	for _, h := range headers {
		name := strings.TrimSpace(h.Name)
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, fmt.Errorf("%w: name %q", ErrInvalidHeader, h.Name)
		}
		value := strings.TrimSpace(h.Value)
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, fmt.Errorf("%w: value for %s", ErrInvalidHeader, name)
		}
		hdrs = append(hdrs, Header{Name: name, Value: value})
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return &Descriptor{
		url:      target,
		method:   method,
		body:     body,
		headers:  hdrs,
		settings: settings,
	}, nil
}

// ParseHeader splits a "Name: Value" line. Lines without a colon are rejected.
func ParseHeader(line string) (Header, error) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return Header{}, fmt.Errorf("%w: %q is not in 'Name: Value' form", ErrInvalidHeader, line)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Header{}, fmt.Errorf("%w: empty name in %q", ErrInvalidHeader, line)
	}
	return Header{Name: name, Value: strings.TrimSpace(value)}, nil
}

// ParseHeaders parses a list of "Name: Value" lines, preserving order.
func ParseHeaders(lines []string) ([]Header, error) {
	headers := make([]Header, 0, len(lines))
	for _, line := range lines {
		h, err := ParseHeader(line)
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	return headers, nil
}

func (d *Descriptor) URL() string                 { return d.url }
func (d *Descriptor) Method() string              { return d.method }
func (d *Descriptor) Settings() TransportSettings { return d.settings }

// Body returns the body source and whether one was provided.
func (d *Descriptor) Body() (BodySource, bool) { return d.body, d.body != nil }

// Headers returns a copy of the ordered header list.
func (d *Descriptor) Headers() []Header {
	return append([]Header(nil), d.headers...)
}

// Host returns the hostname of the target URL, without port.
func (d *Descriptor) Host() string {
	u, err := url.Parse(d.url)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// SendsBody reports whether units attach the body. Only POST/PUT-class
// methods carry one; every other method omits it even when provided.
func (d *Descriptor) SendsBody() bool {
	if d.body == nil {
		return false
	}
	switch d.method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}
