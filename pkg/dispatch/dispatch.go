// Package dispatch maps a fully-parsed request to a response: serving
// static files rooted under the configured directory, handling OPTIONS
// and method-not-allowed responses, falling through to a user-supplied
// handler, and building error responses.
package dispatch

import (
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/shoresys/httpd/pkg/buffer"
	"github.com/shoresys/httpd/pkg/config"
	"github.com/shoresys/httpd/pkg/constants"
	"github.com/shoresys/httpd/pkg/reqres"
)

// Fallback is the user-supplied request handler invoked when no static
// file resolves. It returns (response, true) to use that response, or
// (nil, false) to fall through to the default 404.
type Fallback func(req *reqres.Request) (*reqres.Response, bool)

var allowSafe = "GET, HEAD, OPTIONS"

func init() {
	// Fail fast at startup if the running toolchain's x/text build ever
	// drops the utf-8 encoding, rather than trusting the literal below.
	if _, err := htmlindex.Get("utf-8"); err != nil {
		panic("dispatch: utf-8 encoding unavailable: " + err.Error())
	}
}

// Dispatch resolves req against the static file root in cfg, calling
// fallback (if non-nil) when no static file resolves.
func Dispatch(cfg config.Config, req *reqres.Request, fallback Fallback) *reqres.Response {
	if req.Method == reqres.MethodOptions && req.URL == "*" {
		return reqres.NewResponse(204)
	}

	contentPath, ok := resolvePath(cfg.Root, req.URL)
	if !ok {
		return notFoundOrFallback(req, fallback)
	}

	info, err := os.Stat(contentPath)
	if err != nil || info.IsDir() {
		return notFoundOrFallback(req, fallback)
	}

	if !req.Method.IsSafe() {
		resp := reqres.NewResponse(405)
		resp.Headers.Set("Allow", allowSafe)
		return resp
	}

	if req.Method == reqres.MethodOptions {
		resp := reqres.NewResponse(204)
		resp.Headers.Set("Allow", allowSafe)
		return resp
	}

	return serveFile(contentPath, req)
}

// resolvePath joins root with url's path stripped of its leading slash,
// then rejects any candidate that escapes the canonicalized root.
func resolvePath(root, url string) (string, bool) {
	cleanRoot, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return "", false
	}

	relative := strings.TrimPrefix(url, "/")
	candidate, err := filepath.Abs(filepath.Join(cleanRoot, relative))
	if err != nil {
		return "", false
	}

	if candidate != cleanRoot && !strings.HasPrefix(candidate, cleanRoot+string(filepath.Separator)) {
		return "", false
	}
	return candidate, true
}

// serveFile copies the file at path into a pkg/buffer.Buffer, which spills
// to a temp file once the content exceeds the configured memory threshold.
// For GET the spooled content is then read back whole into the response
// body, so the full file is held in memory while the response is built;
// HEAD and OPTIONS only use the spooled size.
func serveFile(path string, req *reqres.Request) *reqres.Response {
	f, err := os.Open(path)
	if err != nil {
		return ErrorResponse(404, req)
	}
	defer f.Close()

	spool := buffer.New(constants.DefaultBodyMemLimit)
	defer spool.Close()

	if _, err := io.Copy(spool, f); err != nil {
		return ErrorResponse(500, req)
	}

	resp := reqres.NewResponse(200)
	resp.Headers.Set("Content-Type", contentType(path))

	if req.Method == reqres.MethodGet {
		data, err := readSpooled(spool)
		if err != nil {
			return ErrorResponse(500, req)
		}
		resp.SetBody(data)
	} else {
		resp.Headers.Set("Content-Length", strconv.FormatInt(spool.Size(), 10))
	}
	return resp
}

func readSpooled(spool *buffer.Buffer) ([]byte, error) {
	r, err := spool.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func contentType(path string) string {
	t := mime.TypeByExtension(filepath.Ext(path))
	if t == "" {
		return "application/octet-stream"
	}
	if strings.HasPrefix(t, "text/") && !strings.Contains(t, "charset") {
		return t + "; charset=utf-8"
	}
	return t
}

func notFoundOrFallback(req *reqres.Request, fallback Fallback) *reqres.Response {
	if fallback != nil {
		if resp, ok := fallback(req); ok {
			return resp
		}
	}
	return ErrorResponse(404, req)
}

// ErrorResponse builds a fault response for status: an HTML body when the
// client's Accept header names text/html, text/* or */*, otherwise an
// empty body. Shared with pkg/connfsm for client-fault responses.
func ErrorResponse(status int, req *reqres.Request) *reqres.Response {
	resp := reqres.NewResponse(status)
	if req != nil && acceptsHTML(req) {
		resp.Headers.Set("Content-Type", "text/html; charset=utf-8")
		resp.SetBody([]byte(htmlErrorBody(status, resp.Reason())))
	}
	return resp
}

func acceptsHTML(req *reqres.Request) bool {
	accept, ok := req.Headers.Get("Accept")
	if !ok {
		return false
	}
	for _, part := range strings.Split(accept, ",") {
		switch strings.TrimSpace(strings.SplitN(part, ";", 2)[0]) {
		case "text/html", "text/*", "*/*":
			return true
		}
	}
	return false
}

func htmlErrorBody(status int, reason string) string {
	return "<html><head><title>" + strconv.Itoa(status) + " " + reason +
		"</title></head><body><h1>" + strconv.Itoa(status) + " " + reason + "</h1></body></html>"
}
