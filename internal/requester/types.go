package requester

import (
	"context"
	"errors"
	"net/http"

	"github.com/civicmatch/civic-match/internal/models"
)

// ErrHostNotAllowed is returned for cross-origin requests to hosts outside
// network.passthrough_hosts.
var ErrHostNotAllowed = errors.New("host not allowed for passthrough")

// Fetcher performs a request against the network.
type Fetcher interface {
	Fetch(ctx context.Context, req *models.Request) (*models.Response, error)
}

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func removeHopHeaders(h http.Header) {
	for _, f := range h.Values("Connection") {
		for _, name := range splitTokens(f) {
			h.Del(name)
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}
