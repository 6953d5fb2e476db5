package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// ConnectError marks a transport failure that happened before a connection was established.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string { return "connect, " + e.Err.Error() }

func (e *ConnectError) Unwrap() error { return e.Err }

// RequestError marks a failed request. Response is set when the server answered.
type RequestError struct {
	Err      error
	Response *http.Response
}

func (e *RequestError) Error() string { return "request, " + e.Err.Error() }

func (e *RequestError) Unwrap() error { return e.Err }

// Class is the retry-relevant category of a transport error.
type Class int

const (
	// Unrecognized errors are never retried.
	Unrecognized Class = iota
	// Connect errors are retried only when RetryConnect is set.
	Connect
	// Request errors are retried, or judged on their response status if they carry one.
	Request
)

// Classify sorts a transport error into a Class and returns the response attached to it, if any.
func Classify(err error) (Class, *http.Response) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Unrecognized, nil
	}

	var ce *ConnectError
	if errors.As(err, &ce) {
		return Connect, nil
	}

	var re *RequestError
	if errors.As(err, &re) {
		return Request, re.Response
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return Request, respErr.RawResponse
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return Connect, nil
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Connect, nil
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return Request, nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Request, nil
	}

	return Unrecognized, nil
}
