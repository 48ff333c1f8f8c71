package gateway

import (
	"net/http"
	"net/url"
)

// Request is the normalized shape of an outbound call
type Request struct {
	Method   string `validate:"required,oneof=GET POST PUT DELETE"`
	Endpoint string `validate:"required,startswith=/"`
	Body     any
	Query    url.Values
	Header   http.Header

	// CredentialsIncluded is always true; the cookie jar rides along with every call
	CredentialsIncluded bool

	// AntiForgeryToken is set only for mutating methods when a token resolved
	AntiForgeryToken string
}

// Mutating reports whether the method changes server state
func (r Request) Mutating() bool {
	return IsMutating(r.Method)
}

// IsMutating reports whether method requires the anti-forgery header
func IsMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// CallOption customizes a single call
type CallOption func(*Request)

// WithBody sets the JSON payload
func WithBody(body any) CallOption {
	return func(r *Request) {
		r.Body = body
	}
}

// WithQuery appends query parameters to the endpoint
func WithQuery(query url.Values) CallOption {
	return func(r *Request) {
		r.Query = query
	}
}

// WithHeader adds a request header
func WithHeader(key, value string) CallOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = make(http.Header)
		}
		r.Header.Add(key, value)
	}
}
