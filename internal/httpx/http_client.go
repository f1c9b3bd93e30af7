package httpx

import (
	"net/http"
	"time"
)

const defaultExternalHTTPTimeout = 90 * time.Second

var externalHTTPClient = &http.Client{
	Timeout: defaultExternalHTTPTimeout,
}

// ExternalHTTPClient returns the shared client used for all outbound
// classifier calls.
func ExternalHTTPClient() *http.Client {
	return externalHTTPClient
}

// ConfigureExternalHTTPClient applies the configured timeout (in seconds)
// to the shared client and returns the effective value. Non-positive
// values keep the default.
func ConfigureExternalHTTPClient(seconds int) time.Duration {
	timeout := defaultExternalHTTPTimeout
	if seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}
	externalHTTPClient.Timeout = timeout
	return timeout
}
