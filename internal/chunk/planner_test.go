package chunk

import (
	"fmt"
	"strings"
	"testing"
)

func TestPlanEmptyInput(t *testing.T) {
	p := NewPlanner(DefaultWordBudget)
	if chunks := p.Plan(""); len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty input, got %d", len(chunks))
	}
}

func TestPlanShortTextSingleChunk(t *testing.T) {
	p := NewPlanner(DefaultWordBudget)
	text := "a few words\non two lines\n"
	chunks := p.Plan(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != text {
		t.Fatalf("chunk content mismatch: %q", chunks[0].Content)
	}
	if chunks[0].Index != 0 {
		t.Fatalf("expected index 0, got %d", chunks[0].Index)
	}
	if chunks[0].WordCount != 6 {
		t.Fatalf("expected 6 words, got %d", chunks[0].WordCount)
	}
}

func TestPlanLosslessPartition(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no trailing newline", "one two three\nfour five"},
		{"trailing newline", "one two three\nfour five\n"},
		{"blank lines", "one\n\n\ntwo\n"},
		{"single long line", strings.Repeat("word ", 9000)},
		{"many lines", strings.Repeat("alpha beta gamma delta\n", 2000)},
	}
	p := NewPlanner(100)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := p.Plan(tt.text)
			var joined strings.Builder
			for i, c := range chunks {
				if c.Index != i {
					t.Fatalf("chunk %d has index %d", i, c.Index)
				}
				joined.WriteString(c.Content)
			}
			if joined.String() != tt.text {
				t.Fatalf("concatenated chunks do not reproduce input")
			}
		})
	}
}

func TestPlanTenThousandWordsThreeChunks(t *testing.T) {
	// 1000 lines of 10 words each against the default 4096-word budget.
	var b strings.Builder
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&b, "w%d w w w w w w w w w\n", i)
	}
	p := NewPlanner(4096)
	chunks := p.Plan(b.String())
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks for 10000 words, got %d", len(chunks))
	}
	total := 0
	for _, c := range chunks {
		total += c.WordCount
	}
	if total != 10000 {
		t.Fatalf("expected 10000 words across chunks, got %d", total)
	}
}

func TestPlanBudgetOvershootBoundedByOneLine(t *testing.T) {
	// Each line has 7 words, budget 10: a sealed chunk may exceed the budget
	// only by the line that crossed it.
	p := NewPlanner(10)
	text := strings.Repeat("a b c d e f g\n", 6)
	chunks := p.Plan(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.WordCount >= 10+7 {
			t.Fatalf("chunk %d overshoots budget by more than a line: %d words", c.Index, c.WordCount)
		}
	}
}

func TestPlanOrderIsStable(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "line-%03d\n", i)
	}
	p := NewPlanner(5)
	chunks := p.Plan(b.String())
	last := -1
	for _, c := range chunks {
		first := strings.SplitN(c.Content, "\n", 2)[0]
		var n int
		if _, err := fmt.Sscanf(first, "line-%d", &n); err != nil {
			t.Fatalf("unexpected first line %q: %v", first, err)
		}
		if n <= last {
			t.Fatalf("chunks out of input order: %d after %d", n, last)
		}
		last = n
	}
}
