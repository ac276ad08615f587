package rules

import (
	"testing"

	"github.com/shoresys/httpd/pkg/reqres"
)

func noopLog(args []Value) (Value, error) { return BoolValue(true, Position{}), nil }

func TestEvalRedirect(t *testing.T) {
	file, err := Parse(`matches /old.html { redirect 301 "/new.html"; }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	req := reqres.NewRequest()
	req.Method = reqres.MethodGet
	req.URL = "/old.html"
	resp := reqres.NewResponse(200)

	if err := Eval(file, req, resp, noopLog); err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if resp.Status != 301 {
		t.Errorf("status = %d, want 301", resp.Status)
	}
	if loc, _ := resp.Headers.Get("Location"); loc != "/new.html" {
		t.Errorf("Location = %q", loc)
	}
}

func TestEvalReturnWithBody(t *testing.T) {
	file, err := Parse(`matches /blocked { return 403 "forbidden"; }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	req := reqres.NewRequest()
	req.URL = "/blocked"
	resp := reqres.NewResponse(200)

	if err := Eval(file, req, resp, noopLog); err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if resp.Status != 403 {
		t.Errorf("status = %d, want 403", resp.Status)
	}
	if string(resp.Body) != "forbidden" {
		t.Errorf("body = %q", resp.Body)
	}
	if cl, _ := resp.Headers.Get("Content-Length"); cl != "9" {
		t.Errorf("Content-Length = %q, want 9", cl)
	}
}

func TestEvalIfMethodEquality(t *testing.T) {
	src := `matches /api {
		if request.method == "POST" {
			return 400;
		}
	}`
	file, err := Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	req := reqres.NewRequest()
	req.Method = reqres.MethodPost
	req.URL = "/api"
	resp := reqres.NewResponse(200)

	if err := Eval(file, req, resp, noopLog); err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if resp.Status != 400 {
		t.Errorf("status = %d, want 400", resp.Status)
	}
}

func TestEvalIfFalseDoesNotApply(t *testing.T) {
	src := `matches /api {
		if request.method == "POST" {
			return 400;
		}
	}`
	file, err := Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	req := reqres.NewRequest()
	req.Method = reqres.MethodGet
	req.URL = "/api"
	resp := reqres.NewResponse(200)

	if err := Eval(file, req, resp, noopLog); err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if resp.Status != 200 {
		t.Errorf("status = %d, want unchanged 200", resp.Status)
	}
}

func TestEvalSetHeaderMethod(t *testing.T) {
	file, err := Parse(`matches / { response.set_header("X-Served-By", "httpd"); }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	req := reqres.NewRequest()
	req.URL = "/"
	resp := reqres.NewResponse(200)

	if err := Eval(file, req, resp, noopLog); err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if v, _ := resp.Headers.Get("X-Served-By"); v != "httpd" {
		t.Errorf("X-Served-By = %q", v)
	}
}

func TestEvalStopsAtFirstFinishAcrossRules(t *testing.T) {
	src := `
		matches / { return 200 "first"; }
		matches / { return 500 "second"; }
	`
	file, err := Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	req := reqres.NewRequest()
	req.URL = "/"
	resp := reqres.NewResponse(200)

	if err := Eval(file, req, resp, noopLog); err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if string(resp.Body) != "first" {
		t.Errorf("body = %q, want first (second rule must not run)", resp.Body)
	}
}

func TestEvalUnresolvedIdentifierIsRuntimeError(t *testing.T) {
	file, err := Parse(`matches / { nonexistent(); }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	req := reqres.NewRequest()
	req.URL = "/"
	resp := reqres.NewResponse(200)

	err = Eval(file, req, resp, noopLog)
	if err == nil {
		t.Fatalf("expected runtime error")
	}
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("error is %T, want *RuntimeError", err)
	}
	if rerr.Kind != RuntimeUnresolvedIdentifier {
		t.Errorf("kind = %v, want RuntimeUnresolvedIdentifier", rerr.Kind)
	}
}

func TestEvalPartiallyMutatedResponseSurvivesRuntimeError(t *testing.T) {
	src := `matches / {
		response.set_header("X-Before", "yes");
		nonexistent();
	}`
	file, err := Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	req := reqres.NewRequest()
	req.URL = "/"
	resp := reqres.NewResponse(200)

	if err := Eval(file, req, resp, noopLog); err == nil {
		t.Fatalf("expected runtime error")
	}
	if v, _ := resp.Headers.Get("X-Before"); v != "yes" {
		t.Errorf("expected partial mutation to survive, X-Before = %q", v)
	}
}

func TestEvalPatternIsSubstringMatch(t *testing.T) {
	file, err := Parse(`matches /api { return 404; }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	req := reqres.NewRequest()
	req.URL = "/v1/api/users"
	resp := reqres.NewResponse(200)

	if err := Eval(file, req, resp, noopLog); err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if resp.Status != 404 {
		t.Errorf("status = %d, want 404 (pattern /api should substring-match /v1/api/users)", resp.Status)
	}
}

func TestParseRejectsUnrecognizedStatusCodeDirectly(t *testing.T) {
	_, err := Parse(`matches /x { return 418; }`)
	if err == nil {
		t.Fatalf("expected parse error for status code not in the canonical set")
	}
}
