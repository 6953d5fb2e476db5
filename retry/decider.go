package retry

import "net/http"

// StatusDecider decides from a response status whether an attempt should be retried.
type StatusDecider func(statusCode int, isSecondary bool) bool

// GeneralStatus retries request timeouts, server errors other than 501 and 505,
// and 404s served by the secondary endpoint, which may lag behind the primary.
func GeneralStatus(statusCode int, isSecondary bool) bool {
	switch {
	case statusCode == http.StatusRequestTimeout:
		return true
	case statusCode >= http.StatusInternalServerError:
		return statusCode != http.StatusNotImplemented && statusCode != http.StatusHTTPVersionNotSupported
	case isSecondary && statusCode == http.StatusNotFound:
		return true
	default:
		return false
	}
}

// AppendBlobStatus is the decider for append blob writes. It currently behaves
// like GeneralStatus.
//
// TODO: retry a 412 only when the previous attempt of the same request failed
// with a server error, since the earlier append may have been committed.
func AppendBlobStatus(statusCode int, isSecondary bool) bool {
	return GeneralStatus(statusCode, isSecondary)
}

// Decider decides whether an attempt should be retried.
type Decider interface {
	// ShouldRetry is called with the number of retries already performed and the
	// outcome of the latest attempt: either resp or err is set.
	ShouldRetry(retries int, req *http.Request, resp *http.Response, err error, isSecondary bool) bool
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(retries int, req *http.Request, resp *http.Response, err error, isSecondary bool) bool

// ShouldRetry calls f.
func (f DeciderFunc) ShouldRetry(retries int, req *http.Request, resp *http.Response, err error, isSecondary bool) bool {
	return f(retries, req, resp, err, isSecondary)
}

type decider struct {
	maxRetries   int
	retryConnect bool
	status       StatusDecider
}

// NewDecider builds the decider for the given type.
func NewDecider(t Type, maxRetries int, retryConnect bool) Decider {
	d := decider{maxRetries: maxRetries, retryConnect: retryConnect, status: GeneralStatus}
	if t == AppendBlob {
		d.status = AppendBlobStatus
	}

	return d
}

func (d decider) ShouldRetry(retries int, _ *http.Request, resp *http.Response, err error, isSecondary bool) bool {
	if retries >= d.maxRetries {
		return false
	}

	if resp == nil {
		class, errResp := Classify(err)

		switch class {
		case Connect:
			return d.retryConnect
		case Request:
			if errResp == nil {
				return true
			}
			resp = errResp
		default:
			return false
		}
	}

	return d.status(resp.StatusCode, isSecondary)
}
