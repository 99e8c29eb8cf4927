package filter

import (
	"errors"
	"reflect"
	"testing"
)

func mustParse(t *testing.T, input string) Node {
	t.Helper()
	node, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q): %v", input, err)
	}
	return node
}

func TestParse_Atoms(t *testing.T) {
	tests := []struct {
		input string
		want  Node
	}{
		{"~all", Unary{Code: "all", clause: fields["all"].clause}},
		{"~marked", Unary{Code: "marked", clause: fields["marked"].clause}},
		{"~q", Unary{Code: "q", clause: fields["q"].clause}},
		{"~u example", RegexMatch{Code: "u", Pattern: "example", clause: fields["u"].clause}},
		{"~c 404", IntCompare{Code: "c", Value: 404, clause: fields["c"].clause}},
		{"~marker todo", RegexMatch{Code: "marker", Pattern: "todo", clause: fields["marker"].clause}},
	}

	for _, tt := range tests {
		got := mustParse(t, tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Parse(%q) = %#v, want %#v", tt.input, got, tt.want)
		}
	}
}

func TestParse_BareWordMatchesURL(t *testing.T) {
	got := mustParse(t, `example\.com`)
	want := RegexMatch{Code: "u", Pattern: `example\.com`, clause: fields["u"].clause}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse = %#v, want %#v", got, want)
	}
}

func TestParse_Precedence(t *testing.T) {
	// AND binds tighter than OR: (~marked & ~c 200) | ~c 201.
	node := mustParse(t, "~marked ~c 200 | ~c 201")

	or, ok := node.(Or)
	if !ok {
		t.Fatalf("root = %T, want Or", node)
	}
	if len(or.Children) != 2 {
		t.Fatalf("Or has %d children, want 2", len(or.Children))
	}
	and, ok := or.Children[0].(And)
	if !ok {
		t.Fatalf("left = %T, want And", or.Children[0])
	}
	if len(and.Children) != 2 {
		t.Fatalf("And has %d children, want 2", len(and.Children))
	}
	if _, ok := or.Children[1].(IntCompare); !ok {
		t.Fatalf("right = %T, want IntCompare", or.Children[1])
	}
}

func TestParse_ImplicitAndEqualsExplicit(t *testing.T) {
	implicit := mustParse(t, "~marked ~q")
	explicit := mustParse(t, "~marked & ~q")
	if !reflect.DeepEqual(implicit, explicit) {
		t.Errorf("implicit = %#v, explicit = %#v", implicit, explicit)
	}
}

func TestParse_NotBindsTighterThanAnd(t *testing.T) {
	// !~q ~marked is (!~q) & ~marked.
	node := mustParse(t, "!~q ~marked")
	and, ok := node.(And)
	if !ok {
		t.Fatalf("root = %T, want And", node)
	}
	if _, ok := and.Children[0].(Not); !ok {
		t.Errorf("left = %T, want Not", and.Children[0])
	}
}

func TestParse_ParensOverridePrecedence(t *testing.T) {
	// ~marked & (~c 200 | ~c 201): the Or is a child of the And.
	node := mustParse(t, "~marked (~c 200 | ~c 201)")
	and, ok := node.(And)
	if !ok {
		t.Fatalf("root = %T, want And", node)
	}
	if _, ok := and.Children[1].(Or); !ok {
		t.Errorf("right = %T, want Or", and.Children[1])
	}
}

func TestParse_DoubleNegation(t *testing.T) {
	node := mustParse(t, "!!~q")
	outer, ok := node.(Not)
	if !ok {
		t.Fatalf("root = %T, want Not", node)
	}
	if _, ok := outer.Child.(Not); !ok {
		t.Errorf("child = %T, want Not", outer.Child)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sentinel error
	}{
		{"empty", "", ErrEmptyFilter},
		{"whitespace only", "   ", ErrEmptyFilter},
		{"unknown flag", "~nope", ErrUnknownFlag},
		{"regex flag without argument", "~u", ErrMissingArgument},
		{"regex flag before operator", "~u | ~q", ErrMissingArgument},
		{"int flag without argument", "~c", ErrMissingArgument},
		{"int flag with word", "~c abc", ErrInvalidInt},
		{"int flag negative", "~c -1", ErrInvalidInt},
		{"unmatched open paren", "(~q", ErrUnmatchedParen},
		{"unmatched close paren", "~q)", ErrUnmatchedParen},
		{"trailing operator", "~q |", ErrUnexpectedToken},
		{"bang without operand", "!", ErrUnexpectedToken},
		{"unterminated quote", `~u "open`, ErrUnterminatedString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.input)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("Parse(%q) err = %v, want %v", tt.input, err, tt.sentinel)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Errorf("Parse(%q) err is not a *ParseError", tt.input)
			}
		})
	}
}

func TestCompile_AtomFragments(t *testing.T) {
	tests := []struct {
		input      string
		wantFrag   string
		wantParams []any
	}{
		{"~all", `1 = 1`, nil},
		{"~q", `status_code IS NULL`, nil},
		{"~u example", `search(?, url, 1)`, []any{"example"}},
		{"~c 404", `COALESCE(status_code = ?, 0)`, []any{404}},
		{"~h content-type", `fid IN (SELECT fid FROM header_view WHERE search(?, kvstr, 1))`, []any{"content-type"}},
	}

	for _, tt := range tests {
		pred := Compile(mustParse(t, tt.input))
		if pred.Fragment != tt.wantFrag {
			t.Errorf("Compile(%q).Fragment = %q, want %q", tt.input, pred.Fragment, tt.wantFrag)
		}
		if !reflect.DeepEqual(pred.Params, tt.wantParams) {
			t.Errorf("Compile(%q).Params = %#v, want %#v", tt.input, pred.Params, tt.wantParams)
		}
	}
}

func TestCompile_AndFragmentAndParamOrder(t *testing.T) {
	pred := Compile(mustParse(t, "~marked ~c 200"))

	wantFrag := `( (marked IS NOT NULL AND marked != '') ) AND ( COALESCE(status_code = ?, 0) )`
	if pred.Fragment != wantFrag {
		t.Errorf("Fragment = %q, want %q", pred.Fragment, wantFrag)
	}
	if !reflect.DeepEqual(pred.Params, []any{200}) {
		t.Errorf("Params = %#v, want [200]", pred.Params)
	}
}

func TestCompile_ParamsLeftToRight(t *testing.T) {
	pred := Compile(mustParse(t, "~m GET ~u example | ~d other"))
	want := []any{"GET", "example", "other"}
	if !reflect.DeepEqual(pred.Params, want) {
		t.Errorf("Params = %#v, want %#v", pred.Params, want)
	}
}

func TestCompile_NotWrapsChild(t *testing.T) {
	pred := Compile(mustParse(t, "!~q"))
	want := `NOT ( status_code IS NULL )`
	if pred.Fragment != want {
		t.Errorf("Fragment = %q, want %q", pred.Fragment, want)
	}
	if len(pred.Params) != 0 {
		t.Errorf("Params = %#v, want none", pred.Params)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	const input = "~marked (~c 200 | ~c 201) !~d internal"
	first := Compile(mustParse(t, input))
	for i := 0; i < 5; i++ {
		again := Compile(mustParse(t, input))
		if again.Fragment != first.Fragment {
			t.Fatalf("fragment changed between compiles: %q vs %q", again.Fragment, first.Fragment)
		}
		if !reflect.DeepEqual(again.Params, first.Params) {
			t.Fatalf("params changed between compiles: %#v vs %#v", again.Params, first.Params)
		}
	}
}
