package stats

import (
	"math"
	"testing"
)

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"日本語", "日本人", 1},
	}
	for _, tc := range cases {
		if got := Levenshtein([]rune(tc.a), []rune(tc.b)); got != tc.want {
			t.Fatalf("Levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestErrorCounts(t *testing.T) {
	var c ErrorCounts
	c.Compare("hello world", "hallo  world\n")
	if c.CharErrors != 1 || c.Chars != 11 {
		t.Fatalf("unexpected char counts %+v", c)
	}
	if c.WordErrors != 1 || c.Words != 2 {
		t.Fatalf("unexpected word counts %+v", c)
	}
	if math.Abs(c.CER()-1.0/11.0) > 1e-9 || c.WER() != 0.5 {
		t.Fatalf("unexpected rates %v %v", c.CER(), c.WER())
	}

	var total ErrorCounts
	total.Add(c)
	total.Add(ErrorCounts{Chars: 9})
	if total.Chars != 20 || total.CharErrors != 1 {
		t.Fatalf("unexpected totals %+v", total)
	}
}

func TestErrorRateEmptyReference(t *testing.T) {
	var c ErrorCounts
	c.Compare("", "")
	if c.CER() != 0 {
		t.Fatalf("expected zero rate for empty pair")
	}
	c.Compare("", "x")
	if c.CER() != 1 {
		t.Fatalf("expected full error rate for insertions into empty reference")
	}
}
