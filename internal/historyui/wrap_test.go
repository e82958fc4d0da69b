package historyui

import "testing"

func TestWrapTextBreaksAtSpaces(t *testing.T) {
	got := wrapText("combine_tessdata exited with status 2", 20)
	want := "combine_tessdata\nexited with status 2"
	if got != want {
		t.Fatalf("unexpected wrap:\n%q\nwant\n%q", got, want)
	}
}

func TestWrapTextHardBreaksLongWords(t *testing.T) {
	got := wrapText("abcdefghij", 4)
	if got != "abcd\nefgh\nij" {
		t.Fatalf("unexpected wrap: %q", got)
	}
}

func TestWrapTextCountsWideRunes(t *testing.T) {
	got := wrapText("日本語の文章", 6)
	if got != "日本語\nの文章" {
		t.Fatalf("unexpected wrap: %q", got)
	}
}

func TestWrapTextKeepsNewlines(t *testing.T) {
	got := wrapText("a b\nc", 10)
	if got != "a b\nc" {
		t.Fatalf("unexpected wrap: %q", got)
	}
}
