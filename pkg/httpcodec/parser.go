// Package httpcodec implements the incremental HTTP/1.1 request parser and
// response serializer. The parser consumes a single contiguous buffer per
// call and reports either a parsed Request plus a completeness flag, or a
// parse error; the connection FSM re-invokes it as more bytes arrive.
package httpcodec

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/shoresys/httpd/pkg/constants"
	"github.com/shoresys/httpd/pkg/errors"
	"github.com/shoresys/httpd/pkg/reqres"
)

const headerTerminator = "\r\n\r\n"

// Parse attempts to parse one HTTP/1.1 request out of buf. When the header
// section is not yet fully present it reports (nil, false, nil) — the FSM
// is expected not to call Parse until its UntilDoubleCRLF read strategy has
// already observed the terminator, so this path is a defensive fallback.
// When the request line or headers are malformed, it returns a
// *errors.Error of type ErrorTypeProtocol (surfaced as 400 Bad Request).
func Parse(buf []byte) (*reqres.Request, bool, error) {
	idx := bytes.Index(buf, []byte(headerTerminator))
	if idx < 0 {
		if len(buf) > constants.MaxHeaderBytes {
			return nil, false, errors.NewLimitError("parse_headers", "header section exceeds maximum size")
		}
		return nil, false, nil
	}
	if idx > constants.MaxHeaderBytes {
		return nil, false, errors.NewLimitError("parse_headers", "header section exceeds maximum size")
	}

	headerSection := string(buf[:idx])
	rest := buf[idx+len(headerTerminator):]

	lines := strings.Split(headerSection, "\r\n")
	if len(lines) == 0 {
		return nil, false, errors.NewProtocolError("empty request", nil)
	}

	req := reqres.NewRequest()

	method, url, version, err := parseRequestLine(lines[0])
	if err != nil {
		return nil, false, err
	}
	req.Method = method
	req.URL = url
	req.Version = version

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		name, value, err := parseHeaderLine(line)
		if err != nil {
			return nil, false, err
		}
		req.Headers.Set(name, value)
	}

	if clRaw, present := req.Headers.Get("Content-Length"); present {
		n, err := strconv.ParseInt(strings.TrimSpace(clRaw), 10, 64)
		if err != nil || n < 0 {
			return nil, false, errors.NewProtocolError("invalid Content-Length", err)
		}
		if n > constants.MaxContentLength {
			return nil, false, errors.NewLimitError("parse_body", "content length exceeds maximum")
		}
	}

	return completeBody(req, rest)
}

// completeBody applies Content-Length/chunked body framing to the bytes
// that followed the header terminator.
func completeBody(req *reqres.Request, rest []byte) (*reqres.Request, bool, error) {
	switch {
	case req.Headers.Has("Content-Length"):
		n, _ := req.ContentLength()
		if int64(len(rest)) > n {
			return nil, false, errors.NewProtocolError("body exceeds declared Content-Length", nil)
		}
		req.Body = rest
		return req, int64(len(rest)) == n, nil

	case req.IsChunked():
		body, complete, err := decodeChunked(rest)
		if err != nil {
			return nil, false, err
		}
		req.Body = body
		return req, complete, nil

	default:
		req.Body = nil
		return req, true, nil
	}
}

func parseRequestLine(line string) (reqres.Method, string, string, error) {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return "", "", "", errors.NewProtocolError("malformed request line", nil)
	}

	method := reqres.Method(parts[0])
	if !method.Valid() {
		return "", "", "", errors.NewProtocolError("unsupported method: "+parts[0], nil)
	}

	target := parts[1]
	if target == "" {
		return "", "", "", errors.NewProtocolError("empty request target", nil)
	}

	version := parts[2]
	if version != reqres.Version {
		return "", "", "", errors.NewProtocolError("unsupported version: "+version, nil)
	}

	return method, target, version, nil
}

func parseHeaderLine(line string) (string, string, error) {
	colon := strings.IndexByte(line, ':')
	if colon <= 0 {
		return "", "", errors.NewProtocolError("malformed header line", nil)
	}

	name := line[:colon]
	if !httpguts.ValidHeaderFieldName(name) {
		return "", "", errors.NewProtocolError("invalid header token: "+name, nil)
	}

	// OWS after the colon is consumed; trailing whitespace in the value is
	// not specially trimmed.
	value := strings.TrimLeft(line[colon+1:], " \t")
	if !httpguts.ValidHeaderFieldValue(value) {
		return "", "", errors.NewProtocolError("invalid header value for "+name, nil)
	}

	return name, value, nil
}

// decodeChunked decodes a sequence of `size-hex CRLF payload CRLF` chunks
// terminating in a zero-length chunk followed by CRLF CRLF. Each chunk's
// payload is bounded by its declared length, and the trailing CRLF
// position is verified exactly.
func decodeChunked(buf []byte) ([]byte, bool, error) {
	var body []byte
	for {
		lineEnd := bytes.Index(buf, []byte("\r\n"))
		if lineEnd < 0 {
			return body, false, nil
		}

		sizeLine := string(buf[:lineEnd])
		if semi := strings.IndexByte(sizeLine, ';'); semi >= 0 {
			sizeLine = sizeLine[:semi]
		}
		size, err := strconv.ParseInt(strings.TrimSpace(sizeLine), 16, 64)
		if err != nil || size < 0 {
			return nil, false, errors.NewProtocolError("invalid chunk size", err)
		}

		buf = buf[lineEnd+2:]

		if size == 0 {
			// Expect the terminating CRLF for the zero chunk, with no trailers.
			if len(buf) < 2 {
				return body, false, nil
			}
			if string(buf[:2]) != "\r\n" {
				return nil, false, errors.NewProtocolError("chunk size mismatch at terminator", nil)
			}
			return body, true, nil
		}

		need := int(size) + 2 // payload plus its trailing CRLF
		if len(buf) < need {
			return body, false, nil
		}
		if string(buf[size:size+2]) != "\r\n" {
			return nil, false, errors.NewProtocolError("chunk size mismatch", nil)
		}

		body = append(body, buf[:size]...)
		buf = buf[need:]
	}
}
