package stats

import "strings"

// Levenshtein returns the edit distance between two token sequences.
func Levenshtein[T comparable](a, b []T) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// ErrorCounts accumulates edit distances against reference lengths.
type ErrorCounts struct {
	CharErrors int
	Chars      int
	WordErrors int
	Words      int
}

// Compare adds the character and word errors of got against want.
func (c *ErrorCounts) Compare(want, got string) {
	wantRunes := []rune(normalizeSpace(want))
	gotRunes := []rune(normalizeSpace(got))
	c.CharErrors += Levenshtein(wantRunes, gotRunes)
	c.Chars += len(wantRunes)

	wantWords := strings.Fields(want)
	c.WordErrors += Levenshtein(wantWords, strings.Fields(got))
	c.Words += len(wantWords)
}

// Add merges other into c.
func (c *ErrorCounts) Add(other ErrorCounts) {
	c.CharErrors += other.CharErrors
	c.Chars += other.Chars
	c.WordErrors += other.WordErrors
	c.Words += other.Words
}

// CER returns the character error rate as a fraction.
func (c ErrorCounts) CER() float64 {
	return rate(c.CharErrors, c.Chars)
}

// WER returns the word error rate as a fraction.
func (c ErrorCounts) WER() float64 {
	return rate(c.WordErrors, c.Words)
}

func rate(errors, total int) float64 {
	if total == 0 {
		if errors == 0 {
			return 0
		}
		return 1
	}
	return float64(errors) / float64(total)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
