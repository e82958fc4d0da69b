package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Stage", "Status", "Duration"}
	rows := [][]string{
		{"2 combine_tessdata", "succeeded", "3s"},
		{"3 lstmtraining", "failed", "1h2m0s"},
	}
	rightAlign := map[int]bool{2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Stage              Status    Duration" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "2 combine_tessdata succeeded       3s" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "3 lstmtraining     failed      1h2m0s" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideCharacters(t *testing.T) {
	lines := formatTable([]string{"Font", "N"}, [][]string{{"源ノ明朝", "1"}, {"Arial", "2"}}, nil)
	if lines[1] != "源ノ明朝 1" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "Arial    2" {
		t.Fatalf("unexpected narrow row: %q", lines[2])
	}
}
