package rules

import "testing"

func TestTokenizeBasicRule(t *testing.T) {
	src := `
		matches /index.html {
			response.set_header("Server", "httpd");
			return 301 "/index2.html";
		}
	`

	tokens, err := Tokenize(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []TokenKind{
		TokMatches, TokString,
		TokLBrace,
		TokIdent, TokDot, TokIdent, TokLParen, TokString, TokComma, TokString, TokRParen, TokSemicolon,
		TokReturn, TokInt, TokString, TokSemicolon,
		TokRBrace,
		TokEOF,
	}

	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(tokens), len(want), tokens)
	}
	for i, k := range want {
		if tokens[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, tokens[i].Kind, k)
		}
	}
	if tokens[1].Text != "/index.html" {
		t.Errorf("pattern = %q, want /index.html", tokens[1].Text)
	}
}

func TestTokenizeComment(t *testing.T) {
	tokens, err := Tokenize("# a comment\nmatches /x { return 200; }")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens[0].Kind != TokMatches {
		t.Fatalf("expected comment to be skipped, got %s first", tokens[0].Kind)
	}
}

func TestTokenizeErrOnInvalidInt(t *testing.T) {
	_, err := Tokenize("34rioewj")
	if err == nil {
		t.Fatalf("expected lex error")
	}
}

func TestTokenizeErrOnUnterminatedString(t *testing.T) {
	_, err := Tokenize(`return 301 "/index.html`)
	if err == nil {
		t.Fatalf("expected lex error")
	}
}

func TestTokenizeOperators(t *testing.T) {
	tokens, err := Tokenize(`if request.method == "POST" && true { return 400; }`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var kinds []TokenKind
	for _, tok := range tokens {
		kinds = append(kinds, tok.Kind)
	}
	wantContains := []TokenKind{TokIf, TokEq, TokAnd}
	for _, w := range wantContains {
		found := false
		for _, k := range kinds {
			if k == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected token %s in stream %v", w, kinds)
		}
	}
}
