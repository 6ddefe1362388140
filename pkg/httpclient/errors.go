package httpclient

import (
	"fmt"
	"io"
	"net/http"
)

const maxErrorBody = 4 << 10

// UpstreamError describes a non-2xx answer from a remote service.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, e.Body)
}

// Temporary reports whether retrying later might succeed.
func (e *UpstreamError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// CheckResponse returns nil for 2xx responses. Otherwise it drains up to 4KiB
// of the body into an *UpstreamError and closes it.
func CheckResponse(resp *http.Response, service string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &UpstreamError{Service: service, Status: resp.StatusCode, Body: string(body)}
}
