package source

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"resty.dev/v3"

	"github.com/R-Vicente/signal-and-noise/internal/config"
)

// FilenameFromURL exports filenameFromURL for testing.
//
//nolint:gochecknoglobals // Test-only exports
var FilenameFromURL = filenameFromURL

// TestableURLSource creates a urlSource and returns it as a Source + a setter for the client.
func TestableURLSource(t *testing.T, name string, cfg config.Source) (Source, func(*resty.Client)) {
	t.Helper()

	src, err := NewURL(name, cfg, "")
	if err != nil {
		t.Fatalf("NewURL() error = %v", err)
	}

	u := src.(*urlSource)

	return u, func(client *resty.Client) {
		u.client = client
	}
}

// TestableURLSourceWithToken keeps the configured client and returns a
// setter for its transport.
func TestableURLSourceWithToken(
	t *testing.T,
	name string,
	cfg config.Source,
	token string,
) (Source, func(http.RoundTripper)) {
	t.Helper()

	src, err := NewURL(name, cfg, token)
	if err != nil {
		t.Fatalf("NewURL() error = %v", err)
	}

	u := src.(*urlSource)

	return u, func(transport http.RoundTripper) {
		u.client.SetTransport(transport)
	}
}

// RoundTripFunc is an exported version of roundTripFunc for URL test mocking.
type RoundTripFunc func(*http.Request) *http.Response

// RoundTrip implements http.RoundTripper.
func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

// NewMockRestyClient creates a resty client with a custom round-trip handler.
func NewMockRestyClient(handler RoundTripFunc) *resty.Client {
	client := resty.New()
	client.SetTransport(handler)

	return client
}

// NewHTTPResponse creates a mock HTTP response for tests.
func NewHTTPResponse(
	req *http.Request,
	status int,
	body string,
	header http.Header,
) *http.Response {
	if header == nil {
		header = make(http.Header)
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
