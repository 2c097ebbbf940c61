// Package httpclient builds the HTTP clients used to dispatch synthetic
// traffic.
//
// [NewClient] creates a client tuned for sustained request streams against a
// single target: pooled keep-alive connections, HTTP/2 when the target
// supports it, and a connect timeout derived from the overall request
// timeout:
//
//	client := httpclient.NewClient(10 * time.Second)
//	resp, err := client.Do(req)
//
// Endpoints declare their own timeouts, so callers typically hold one client
// per distinct timeout and reuse it across requests to keep connection
// pooling effective.
package httpclient
