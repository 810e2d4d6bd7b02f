package httpclient

import (
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

const (
	// PreviewWindow is how many body bytes are buffered for the preview.
	PreviewWindow = 4096
	// PreviewRunes caps the stored preview.
	PreviewRunes = 100
)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Outcome is what one exchange produced. StatusCode is 0 when no response
// arrived. ContentLength is -1 when unknown.
type Outcome struct {
	StatusCode    int
	Header        http.Header
	ContentLength int64
	Preview       string
	HasPreview    bool
	Proto         string
	ConnReused    bool
	TTFB          time.Duration
	Err           error
}

// Execute sends req, reads a bounded preview and drains the remaining body
// so the connection can be reused. The response body is always closed.
func Execute(client Doer, req *http.Request) Outcome {
	out := Outcome{ContentLength: -1}

	// Trace hooks may fire on transport goroutines, even after Do returns
	// for a cancelled request.
	var (
		reused atomic.Bool
		ttfb   atomic.Int64
	)
	start := time.Now()
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			reused.Store(info.Reused)
		},
		GotFirstResponseByte: func() {
			ttfb.Store(int64(time.Since(start)))
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	resp, err := client.Do(req)
	if err != nil {
		out.Err = err
		return out
	}
	defer resp.Body.Close()

	out.ConnReused = reused.Load()
	out.TTFB = time.Duration(ttfb.Load())
	out.StatusCode = resp.StatusCode
	out.Header = resp.Header
	out.Proto = resp.Proto

	head, readErr := io.ReadAll(io.LimitReader(resp.Body, PreviewWindow))
	total := int64(len(head))
	if readErr == nil {
		n, err := io.Copy(io.Discard, resp.Body)
		total += n
		readErr = err
	}
	if readErr != nil {
		out.Err = readErr
	}

	if resp.ContentLength >= 0 {
		out.ContentLength = resp.ContentLength
	} else {
		out.ContentLength = total
	}
	out.Preview = Preview(head)
	out.HasPreview = true
	return out
}

// Preview trims body text, turns CR and LF into spaces and keeps at most
// PreviewRunes runes.
func Preview(body []byte) string {
	text := strings.ToValidUTF8(string(body), "")
	text = strings.TrimSpace(text)
	text = strings.NewReplacer("\r", " ", "\n", " ").Replace(text)
	if utf8.RuneCountInString(text) <= PreviewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:PreviewRunes])
}
