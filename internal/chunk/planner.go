// Package chunk splits normalized text into word-budgeted chunks for
// sequential speech synthesis.
package chunk

import "strings"

// DefaultWordBudget bounds the number of words handed to the synthesizer in
// one call.
const DefaultWordBudget = 4096

// Chunk is a contiguous slice of the source text. Chunks partition the input
// in original order with no overlap and no loss.
type Chunk struct {
	Index     int
	Content   string
	WordCount int
}

// Planner accumulates whole lines into chunks. A chunk boundary never falls
// inside a line, so a single line longer than the budget overshoots it.
type Planner struct {
	budget int
}

func NewPlanner(wordBudget int) *Planner {
	if wordBudget <= 0 {
		wordBudget = DefaultWordBudget
	}
	return &Planner{budget: wordBudget}
}

// Plan splits text into ordered chunks. The current chunk is sealed once its
// accumulated word count has reached the budget; the next line starts a new
// chunk. Empty input yields no chunks.
func (p *Planner) Plan(text string) []Chunk {
	if text == "" {
		return nil
	}

	var chunks []Chunk
	var current strings.Builder
	words := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Content:   current.String(),
			WordCount: words,
		})
		current.Reset()
		words = 0
	}

	rest := text
	for len(rest) > 0 {
		line := rest
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			line = rest[:i+1]
			rest = rest[i+1:]
		} else {
			rest = ""
		}
		if words >= p.budget {
			flush()
		}
		current.WriteString(line)
		words += len(strings.Fields(line))
	}
	flush()

	return chunks
}
