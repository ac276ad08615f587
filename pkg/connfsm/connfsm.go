// Package connfsm drives one accepted connection through its
// read/parse/dispatch/respond cycle, honoring keep-alive budgets and
// translating transport and parse faults into HTTP status codes.
package connfsm

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shoresys/httpd/pkg/config"
	"github.com/shoresys/httpd/pkg/dispatch"
	"github.com/shoresys/httpd/pkg/errors"
	"github.com/shoresys/httpd/pkg/httpcodec"
	"github.com/shoresys/httpd/pkg/reqres"
	"github.com/shoresys/httpd/pkg/rules"
	"github.com/shoresys/httpd/pkg/timing"
	"github.com/shoresys/httpd/pkg/transport"
)

// Logger is the subset of logrus.FieldLogger the FSM needs; a
// *logrus.Logger or *logrus.Entry built by pkg/serverlog satisfies it.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Connection drives the read/parse/dispatch/respond cycle for one
// accepted socket to completion.
type Connection struct {
	stream   *transport.Stream
	cfg      config.Config
	ruleSet  *rules.Set
	fallback dispatch.Fallback
	log      Logger
	served   int
}

// New constructs a Connection ready to Run.
func New(stream *transport.Stream, cfg config.Config, ruleSet *rules.Set, fallback dispatch.Fallback, log Logger) *Connection {
	return &Connection{stream: stream, cfg: cfg, ruleSet: ruleSet, fallback: fallback, log: log}
}

// Run drives the connection to completion: it loops reading, parsing,
// dispatching and responding until the connection closes or a fatal I/O
// fault occurs. The New/Read/Dispatch/SendResponse/Close/Error states are
// expressed as a loop rather than an explicit state enum, idiomatic Go for
// this kind of sequential protocol driver.
func (c *Connection) Run() {
	for {
		timer := timing.NewTimer()

		out := c.readRequest(timer)
		if out.fatalErr != nil {
			c.log.Errorf("connection error: %v", out.fatalErr)
			_ = c.stream.Close()
			return
		}
		if out.peerClosed {
			_ = c.stream.Close()
			return
		}

		timer.StartDispatch()
		var resp *reqres.Response
		forceClose := false
		if out.clientErrorStatus != 0 {
			resp = dispatch.ErrorResponse(out.clientErrorStatus, out.req)
			forceClose = true
		} else {
			resp = dispatch.Dispatch(c.cfg, out.req, c.fallback)
		}
		timer.EndDispatch()

		if out.clientErrorStatus == 0 {
			timer.StartRuleEval()
			if err := c.ruleSet.Apply(out.req, resp, c.logCallable()); err != nil {
				c.log.Warnf("rule evaluation error: %v", err)
			}
			timer.EndRuleEval()
		}

		closeNow := forceClose || c.shouldClose(out.req)
		c.applyConnectionHeaders(resp, closeNow)

		timer.StartWrite()
		writeErr := c.stream.Write(httpcodec.Serialize(resp))
		timer.EndWrite()
		if writeErr != nil {
			c.log.Errorf("connection error: %v", writeErr)
			_ = c.stream.Close()
			return
		}

		c.served++

		if out.req != nil {
			c.log.Infof("request complete: %s %s -> %d (%s)", out.req.Method, out.req.URL, resp.Status, timer.GetMetrics())
		}

		if closeNow {
			_ = c.stream.Close()
			return
		}
	}
}

type readResult struct {
	req               *reqres.Request
	clientErrorStatus int
	peerClosed        bool
	fatalErr          error
}

// readRequest implements Read(None) and the Read(Some(partial)) loop: it
// reads until the codec reports a complete request, a client fault, a
// fatal I/O error, or the peer closing during the first read of a new
// request. A peer close during that first read is reported as peerClosed
// (silent close) even when some bytes of the request line or headers had
// already arrived; a peer close while reading the rest of a partial
// request is a 400.
func (c *Connection) readRequest(timer *timing.Timer) readResult {
	timer.StartRead()
	buf, cause, err := c.stream.Read(transport.UntilDoubleCRLF{}, c.idleTimeout())
	timer.EndRead()

	switch cause {
	case transport.IOError:
		return readResult{fatalErr: err}
	case transport.TimedOut:
		return readResult{clientErrorStatus: 408}
	case transport.PeerClosed:
		return readResult{peerClosed: true}
	}

	timer.StartParse()
	req, complete, parseErr := httpcodec.Parse(buf)
	timer.EndParse()
	if parseErr != nil {
		return readResult{clientErrorStatus: statusForParseError(parseErr)}
	}

	for !complete {
		strategy := c.nextStrategy(req, buf)

		timer.StartRead()
		more, cause, err := c.stream.Read(strategy, c.idleTimeout())
		timer.EndRead()

		switch cause {
		case transport.IOError:
			return readResult{fatalErr: err}
		case transport.TimedOut:
			return readResult{clientErrorStatus: 408}
		case transport.PeerClosed:
			return readResult{clientErrorStatus: 400}
		}

		buf = append(buf, more...)

		timer.StartParse()
		req, complete, parseErr = httpcodec.Parse(buf)
		timer.EndParse()
		if parseErr != nil {
			return readResult{clientErrorStatus: statusForParseError(parseErr)}
		}
	}

	return readResult{req: req}
}

// statusForParseError maps a parse fault to the status code the client
// sees: a resource-limit fault reports 431 (header section) or 413 (body)
// rather than a bare 400, so a client can distinguish "too large" from
// "malformed".
func statusForParseError(err error) int {
	e, ok := err.(*errors.Error)
	if !ok || e.Type != errors.ErrorTypeLimit {
		return 400
	}
	if e.Op == "parse_headers" {
		return 431
	}
	return 413
}

// nextStrategy picks the read strategy for the partial request already
// accumulated in buf.
func (c *Connection) nextStrategy(req *reqres.Request, buf []byte) transport.Strategy {
	if req.Headers.Has("Content-Length") {
		total, _ := req.ContentLength()
		idx := bytes.Index(buf, []byte("\r\n\r\n"))
		bodySoFar := int64(0)
		if idx >= 0 {
			bodySoFar = int64(len(buf) - (idx + 4))
		}
		remaining := total - bodySoFar
		if remaining < 0 {
			remaining = 0
		}
		return transport.UntilNBytes{N: int(remaining)}
	}
	return transport.UntilDoubleCRLF{}
}

func (c *Connection) idleTimeout() time.Duration {
	if c.cfg.KeepAlive.Mode == config.KeepAliveOn {
		return c.cfg.KeepAlive.Timeout
	}
	return c.cfg.Timeout
}

// shouldClose decides whether this connection closes after the response
// currently being sent.
func (c *Connection) shouldClose(req *reqres.Request) bool {
	if c.cfg.KeepAlive.Mode == config.KeepAliveOff {
		return true
	}
	if c.served == c.cfg.KeepAlive.MaxRequests-1 {
		return true
	}
	if req != nil && req.WantsClose() {
		return true
	}
	return false
}

func (c *Connection) applyConnectionHeaders(resp *reqres.Response, closeNow bool) {
	if closeNow {
		resp.Headers.Set("Connection", "close")
		return
	}
	if c.cfg.KeepAlive.Mode == config.KeepAliveOn && c.cfg.KeepAlive.IncludeHeader {
		remaining := c.cfg.KeepAlive.MaxRequests - c.served - 1
		resp.Headers.Set("Keep-Alive", fmt.Sprintf("timeout=%d, max=%d", int(c.cfg.KeepAlive.Timeout.Seconds()), remaining))
	}
}

func (c *Connection) logCallable() rules.Callable {
	return func(args []rules.Value) (rules.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		c.log.Infof("rule log: %s", strings.Join(parts, " "))
		return rules.BoolValue(true, rules.Position{}), nil
	}
}
