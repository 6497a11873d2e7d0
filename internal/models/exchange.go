package models

import (
	"maps"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/civicmatch/civic-match/internal/auth/constants"
)

// RequestMode mirrors the Fetch "mode" of a request.
type RequestMode string

const (
	RequestModeNavigate   RequestMode = "navigate"
	RequestModeCORS       RequestMode = "cors"
	RequestModeNoCORS     RequestMode = "no-cors"
	RequestModeSameOrigin RequestMode = "same-origin"
)

// Request is a fully read client request as seen by the caching worker.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Mode   RequestMode
	Body   []byte
}

// NewRequest builds a Request from an incoming server request. origin supplies
// the scheme when the incoming URL is relative, which is always the case for
// server-side requests.
func NewRequest(r *http.Request, origin *url.URL, body []byte) *Request {
	u := *r.URL
	if u.Host == "" {
		u.Host = r.Host
	}
	if u.Scheme == "" {
		u.Scheme = "http"
		if r.TLS != nil {
			u.Scheme = "https"
		}
		if origin != nil && strings.EqualFold(u.Host, origin.Host) {
			u.Scheme = origin.Scheme
		}
	}
	return &Request{
		Method: r.Method,
		URL:    &u,
		Header: r.Header.Clone(),
		Mode:   DetectMode(r.Method, r.Header),
		Body:   body,
	}
}

// DetectMode derives the request mode from fetch metadata. Clients that do not
// send Sec-Fetch-Mode are treated as navigating when they ask for HTML.
func DetectMode(method string, h http.Header) RequestMode {
	if m := h.Get("Sec-Fetch-Mode"); m != "" {
		return RequestMode(strings.ToLower(m))
	}
	if method != http.MethodGet {
		return RequestModeCORS
	}
	if prefersHTML(h.Get("Accept")) {
		return RequestModeNavigate
	}
	return RequestModeNoCORS
}

func prefersHTML(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		// first parseable entry wins; browsers list the document type first
		return mediaType == "text/html" || mediaType == "application/xhtml+xml"
	}
	return false
}

// IsNavigation reports whether the request loads a top-level document.
func (r *Request) IsNavigation() bool {
	return r.Mode == RequestModeNavigate
}

// HasCredentials reports whether the request identifies a user through the
// Authorization header or the access token cookie.
func (r *Request) HasCredentials() bool {
	if r.Header.Get(constants.AuthHeaderName) != "" {
		return true
	}
	_, err := (&http.Request{Header: r.Header}).Cookie(constants.AccessTokenCookie)
	return err == nil
}

// validatorHeaders make a fetch conditional on the client's own HTTP cache.
var validatorHeaders = []string{
	"If-None-Match",
	"If-Modified-Since",
	"If-Match",
	"If-Unmodified-Since",
	"If-Range",
}

// WithoutValidators returns a copy of the request that is not conditional on
// any client cache.
func (r *Request) WithoutValidators() *Request {
	c := *r
	c.Header = r.Header.Clone()
	for _, h := range validatorHeaders {
		c.Header.Del(h)
	}
	return &c
}

// CacheKey is the request URL without its fragment.
func (r *Request) CacheKey() string {
	u := *r.URL
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// Response is a buffered response. Cloning copies the body so a stored
// response and the one handed back to a client never share memory.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Clone returns a deep copy of the response.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	c := &Response{
		StatusCode: r.StatusCode,
		Header:     make(http.Header, len(r.Header)),
	}
	for k, v := range r.Header {
		c.Header[k] = append([]string(nil), v...)
	}
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return c
}

// Write copies the response to w.
func (r *Response) Write(w http.ResponseWriter) error {
	maps.Copy(w.Header(), r.Header.Clone())
	w.WriteHeader(r.StatusCode)
	_, err := w.Write(r.Body)
	return err
}
