package chunking

import (
	"fmt"
	"regexp"
	"strings"

	"course-assistant/internal/core/domain"
)

// sentenceBoundary matches sentence-terminal punctuation followed by
// whitespace. Punctuation stays with the preceding sentence.
var sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

// Chunker splits course lessons into sentence-aligned chunks bounded by a
// word budget, with a trailing-sentence overlap between adjacent chunks.
// Output is deterministic for identical input.
type Chunker struct {
	MaxWords     int
	OverlapWords int
}

func New(maxWords, overlapWords int) *Chunker {
	if maxWords <= 0 {
		maxWords = 180
	}
	if overlapWords < 0 {
		overlapWords = 0
	}
	if overlapWords >= maxWords {
		overlapWords = maxWords / 4
	}
	return &Chunker{
		MaxWords:     maxWords,
		OverlapWords: overlapWords,
	}
}

// Chunk produces the ordered chunk sequence for every lesson of the course.
// The first chunk of each lesson carries a contextual header naming the
// course and lesson; later chunks are left unprefixed so the header does not
// dominate embedding similarity.
func (c *Chunker) Chunk(course *domain.Course) []domain.Chunk {
	if course == nil {
		return nil
	}

	var out []domain.Chunk
	for _, lesson := range course.Lessons {
		out = append(out, c.chunkLesson(course.Title, lesson)...)
	}
	return out
}

func (c *Chunker) chunkLesson(courseTitle string, lesson domain.Lesson) []domain.Chunk {
	sentences := splitSentences(lesson.Content)
	if len(sentences) == 0 {
		return nil
	}

	counts := make([]int, len(sentences))
	for i, s := range sentences {
		counts[i] = len(strings.Fields(s))
	}

	var chunks []domain.Chunk
	start := 0
	index := 0
	for start < len(sentences) {
		end := start
		words := 0
		// A sentence longer than the budget is kept whole, never truncated.
		for end < len(sentences) && (words == 0 || words+counts[end] <= c.MaxWords) {
			words += counts[end]
			end++
		}

		content := strings.Join(sentences[start:end], " ")
		if index == 0 {
			content = fmt.Sprintf("Course %s Lesson %d content: %s", courseTitle, lesson.Number, content)
		}
		chunks = append(chunks, domain.Chunk{
			Content:      content,
			CourseTitle:  courseTitle,
			LessonNumber: lesson.Number,
			ChunkIndex:   index,
			WordCount:    words,
		})
		index++

		if end >= len(sentences) {
			break
		}

		// The next chunk re-includes the trailing sentences of this one
		// whose combined size fits the overlap budget.
		next := end
		overlap := 0
		for next > start+1 && overlap+counts[next-1] <= c.OverlapWords {
			overlap += counts[next-1]
			next--
		}
		start = next
	}
	return chunks
}

func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var out []string
	start := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		sentence := strings.TrimSpace(text[start : loc[0]+1])
		if sentence != "" {
			out = append(out, sentence)
		}
		start = loc[1]
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}
