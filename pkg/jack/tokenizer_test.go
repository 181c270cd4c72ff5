package jack_test

import (
	"testing"

	"github.com/nandtools/n2t/pkg/jack"
)

func tokenValues(t *testing.T, tok *jack.Tokenizer) []jack.Token {
	t.Helper()
	var out []jack.Token
	for tok.HasMoreTokens() {
		out = append(out, tok.Next())
	}
	return out
}

func TestTokenizerStripsComments(t *testing.T) {
	src := []byte(`
		// a line comment
		class Foo { /* a block
		comment */ field int x; }
	`)

	tok, err := jack.NewTokenizer(src)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	tokens := tokenValues(t, tok)
	var values []string
	for _, tk := range tokens {
		values = append(values, tk.Value)
	}

	want := []string{"class", "Foo", "{", "field", "int", "x", ";", "}"}
	if len(values) != len(want) {
		t.Fatalf("got %v, want %v", values, want)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("token %d: got %q, want %q", i, values[i], want[i])
		}
	}
}

func TestTokenizerClassifiesKeywordsAndIdentifiers(t *testing.T) {
	tok, err := jack.NewTokenizer([]byte("var int count;"))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	tokens := tokenValues(t, tok)
	kinds := []jack.TokenKind{jack.Keyword, jack.Keyword, jack.Identifier, jack.Symbol}
	for i, want := range kinds {
		if tokens[i].Kind != want {
			t.Errorf("token %d (%q): got kind %s, want %s", i, tokens[i].Value, tokens[i].Kind, want)
		}
	}
}

func TestTokenizerStringConstantStripsQuotes(t *testing.T) {
	tok, err := jack.NewTokenizer([]byte(`"hello world"`))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	got := tok.Next()
	if got.Kind != jack.StringConst || got.Value != "hello world" {
		t.Errorf("got %+v, want StringConst %q", got, "hello world")
	}
}

func TestTokenizerPreviousRewindsCursor(t *testing.T) {
	tok, err := jack.NewTokenizer([]byte("foo ( )"))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	first := tok.Next()  // "foo"
	second := tok.Next() // "("
	rewound := tok.Previous()

	if rewound != first {
		t.Errorf("expected Previous to rewind back to %+v, got %+v", first, rewound)
	}
	if tok.Next() != second {
		t.Error("expected Next after rewind to reproduce the same token sequence")
	}
}

func TestTokenizerEmptySourceHasNoTokens(t *testing.T) {
	tok, err := jack.NewTokenizer([]byte("   \n\t "))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if tok.HasMoreTokens() {
		t.Fatal("expected an all-whitespace source to have no tokens")
	}
}
