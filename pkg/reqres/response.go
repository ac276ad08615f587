package reqres

import "strconv"

// StatusText maps recognized status codes to their canonical reason phrase.
// Extending the table to support a new code is mechanical and does not
// touch the rule engine or codec.
var StatusText = map[int]string{
	200: "OK",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	413: "Payload Too Large",
	431: "Request Header Fields Too Large",
	500: "Internal Server Error",
}

// KnownStatus reports whether code has a canonical reason phrase.
func KnownStatus(code int) bool {
	_, ok := StatusText[code]
	return ok
}

// Response is the mutable representation of an outgoing HTTP/1.1 response.
type Response struct {
	Status  int
	Headers *Headers
	Body    []byte
}

// NewResponse returns a Response with the given status and an empty header
// list.
func NewResponse(status int) *Response {
	return &Response{Status: status, Headers: NewHeaders()}
}

// Reason returns the canonical reason phrase for r.Status, or "Unknown"
// if not in the table.
func (r *Response) Reason() string {
	if text, ok := StatusText[r.Status]; ok {
		return text
	}
	return "Unknown"
}

// SetBody installs body and, when non-empty, sets Content-Length to match
// it so a non-empty body always carries a correct Content-Length header
// before the response is serialized.
func (r *Response) SetBody(body []byte) {
	r.Body = body
	if len(body) > 0 {
		r.Headers.Set("Content-Length", strconv.Itoa(len(body)))
	}
}
