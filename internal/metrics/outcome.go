package metrics

import (
	"context"
	"errors"
	"net"
	"net/url"
	"syscall"
	"time"
)

// Class buckets a dispatched request by how it concluded.
type Class string

const (
	// ClassTransport covers timeouts and connection-level failures where no
	// HTTP response was observed.
	ClassTransport Class = "transport"
	// ClassSuccess covers 2xx responses.
	ClassSuccess Class = "success"
	// ClassClientError covers 4xx responses.
	ClassClientError Class = "client-error"
	// ClassServerError covers 5xx responses.
	ClassServerError Class = "server-error"
	// ClassUnexpected covers any other observed status. These are recorded
	// and counted as failures rather than dropped.
	ClassUnexpected Class = "unexpected"
)

// Outcome is the classified result of one dispatched request.
// Status is zero exactly when Class is ClassTransport.
type Outcome struct {
	Endpoint string
	Class    Class
	Status   int
	Latency  time.Duration
	Reason   string
}

// Success reports whether the outcome counts toward the succeeded total.
func (o Outcome) Success() bool {
	return o.Class == ClassSuccess
}

// ClassifyStatus maps an observed HTTP status code onto an outcome class.
func ClassifyStatus(status int) Class {
	switch {
	case status >= 200 && status < 300:
		return ClassSuccess
	case status >= 400 && status < 500:
		return ClassClientError
	case status >= 500 && status < 600:
		return ClassServerError
	default:
		return ClassUnexpected
	}
}

// TransportReason returns a short human-friendly label for a transport-level
// failure, used in report breakdowns.
func TransportReason(err error) string {
	if err == nil {
		return ""
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "connection reset"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns failure"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection error"
	}

	return "transport error"
}
