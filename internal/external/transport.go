package external

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
)

// maxRedirects caps how many redirects the police client follows.
const maxRedirects = 3

// ErrRedirectRejected is returned when the police API redirects off-host or
// too many times.
var ErrRedirectRejected = errors.New("police api: redirect rejected")

// NewHTTPClient builds the *http.Client used for the police API. With gzip
// enabled the transport advertises compression and decodes responses
// transparently.
func NewHTTPClient(timeout time.Duration, gzip bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 16

	var rt http.RoundTripper = transport
	if gzip {
		rt = gzhttp.Transport(transport)
	}

	return &http.Client{
		Timeout:       timeout,
		Transport:     rt,
		CheckRedirect: sameHostRedirect,
	}
}

// sameHostRedirect follows redirects only to the original host. Boundary
// polygons are sent in the request body and must not leave the API host.
func sameHostRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: more than %d redirects", ErrRedirectRejected, maxRedirects)
	}
	if origin := via[0].URL.Host; req.URL.Host != origin {
		return fmt.Errorf("%w: %s redirected to %s", ErrRedirectRejected, origin, req.URL.Host)
	}
	return nil
}
