// Package httpclient builds the shared HTTP client for a run and executes
// individual exchanges against it.
//
// # Client
//
// [NewClient] creates a client from [request.TransportSettings]. The default
// transport is net/http (HTTP/1.1 and HTTP/2); setting HTTP3 switches to a
// quic-go transport:
//
//	client, err := httpclient.NewClient(desc.Settings(), concurrency)
//	if err != nil {
//		return err
//	}
//	defer httpclient.Close(client)
//
// # Requests
//
// [NewRequestBuilder] prepares headers once; [RequestBuilder.Build] returns a
// new request per unit. A "Host" header in the descriptor overrides the
// request host instead of being sent as a regular header.
//
// # Exchanges
//
// [Execute] sends a request with httptrace instrumentation and returns an
// [Outcome] with status, size, a short body preview, the negotiated protocol,
// connection reuse and time to first byte.
package httpclient
