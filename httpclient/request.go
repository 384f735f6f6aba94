package httpclient

// Request describes an outbound HTTP request.
type Request struct {
	// Method is the HTTP method. Empty means GET.
	Method string
	// URL is the absolute target URL.
	URL string
	// Headers are request-specific headers (merged over client defaults).
	Headers map[string]string
}

// Response is the result of an HTTP request.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// Body is the raw response body.
	Body []byte
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
