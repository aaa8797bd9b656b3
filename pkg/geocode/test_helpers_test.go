package geocode

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

func unlimited() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// googleStub serves h in place of the Google Geocoding endpoint. The
// returned client fails any request aimed elsewhere so tests never leave
// the machine.
func googleStub(t *testing.T, h http.HandlerFunc) *http.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &http.Client{Transport: &stubTransport{endpoint: googleGeocodeURL, stub: srv.URL}}
}

type stubTransport struct {
	endpoint string
	stub     string
}

func (t *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rest, ok := strings.CutPrefix(req.URL.String(), t.endpoint)
	if !ok {
		return nil, eris.Errorf("geocode test: unexpected request to %s", req.URL.Host)
	}
	target, err := req.URL.Parse(t.stub + rest)
	if err != nil {
		return nil, eris.Wrap(err, "geocode test: parse stub url")
	}
	out := req.Clone(req.Context())
	out.URL = target
	out.Host = target.Host
	return http.DefaultTransport.RoundTrip(out)
}
