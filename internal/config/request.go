package config

import (
	"encoding/base64"
	"net/http"

	"github.com/pepe-http/pepe/internal/request"
)

// Settings converts the transport flags into request settings.
func (c Config) Settings() (request.TransportSettings, error) {
	proxy, err := request.ParseProxy(c.Proxy)
	if err != nil {
		return request.TransportSettings{}, err
	}
	s := request.TransportSettings{
		TimeoutSeconds:     uint(max(c.TimeoutSeconds, 0)),
		UserAgent:          c.UserAgent,
		Proxy:              proxy,
		DisableCompression: c.DisableCompression,
		DisableKeepAlive:   c.DisableKeepAlive,
		DisableRedirects:   c.DisableRedirects,
		HTTP3:              c.HTTP3,
	}
	if err := s.Validate(); err != nil {
		return request.TransportSettings{}, err
	}
	return s, nil
}

// Descriptor builds the request every unit of a run sends. The shortcut
// flags are appended after the -H headers, in a fixed order.
func (c Config) Descriptor() (*request.Descriptor, error) {
	settings, err := c.Settings()
	if err != nil {
		return nil, err
	}

	headers, err := request.ParseHeaders(c.Headers)
	if err != nil {
		return nil, err
	}
	if c.ContentType != "" {
		headers = append(headers, request.Header{Name: "Content-Type", Value: c.ContentType})
	}
	if c.Accept != "" {
		headers = append(headers, request.Header{Name: "Accept", Value: c.Accept})
	}
	if c.BasicAuth != "" {
		token := base64.StdEncoding.EncodeToString([]byte(c.BasicAuth))
		headers = append(headers, request.Header{Name: "Authorization", Value: "Basic " + token})
	}
	if c.Host != "" {
		headers = append(headers, request.Header{Name: "Host", Value: c.Host})
	}

	body, err := request.NewBodySource(c.Body, c.BodyFile)
	if err != nil {
		return nil, err
	}
	return request.New(c.TargetURL, c.Method, body, headers, settings)
}

// Canonical returns the header name as it will appear on the wire.
func canonical(name string) string { return http.CanonicalHeaderKey(name) }
