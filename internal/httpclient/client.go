package httpclient

import (
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/quic-go/quic-go/http3"

	"github.com/pepe-http/pepe/internal/request"
)

// NewClient builds the client shared by every unit of a run. maxConns sizes
// the idle pool and is normally the run's concurrency.
func NewClient(settings request.TransportSettings, maxConns int) (*http.Client, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if maxConns < 1 {
		maxConns = 1
	}

	var transport http.RoundTripper
	if settings.HTTP3 {
		transport = &http3.Transport{
			TLSClientConfig:    &tls.Config{MinVersion: tls.VersionTLS13},
			DisableCompression: settings.DisableCompression,
		}
	} else {
		dialer := &net.Dialer{
			Timeout:   settings.Timeout(),
			KeepAlive: 30 * time.Second,
		}
		proxy := http.ProxyFromEnvironment
		if settings.Proxy != nil {
			proxy = http.ProxyURL(settings.Proxy)
		}
		transport = &http.Transport{
			Proxy:                 proxy,
			DialContext:           dialer.DialContext,
			ForceAttemptHTTP2:     true,
			DisableCompression:    settings.DisableCompression,
			DisableKeepAlives:     settings.DisableKeepAlive,
			MaxIdleConns:          maxConns * 2,
			MaxIdleConnsPerHost:   maxConns,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}

	client := &http.Client{
		Timeout:   settings.Timeout(),
		Transport: transport,
	}
	if settings.DisableRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client, nil
}

// Close releases the client's pooled connections. HTTP/3 transports also
// close their UDP sockets.
func Close(client *http.Client) error {
	if client == nil {
		return nil
	}
	if t, ok := client.Transport.(*http3.Transport); ok {
		return t.Close()
	}
	client.CloseIdleConnections()
	return nil
}

// IsTimeout reports whether err came from a client or context deadline.
func IsTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
