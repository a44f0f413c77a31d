package domain

// Lesson is one ordered section of a course document.
type Lesson struct {
	Number  int    `json:"number" yaml:"number"`
	Title   string `json:"title" yaml:"title"`
	Link    string `json:"link,omitempty" yaml:"link,omitempty"`
	Content string `json:"-" yaml:"content"`
}

// Course is an immutable parsed course document.
type Course struct {
	Title      string   `json:"title" yaml:"title"`
	Link       string   `json:"link,omitempty" yaml:"link,omitempty"`
	Instructor string   `json:"instructor,omitempty" yaml:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons" yaml:"lessons"`
}

// Chunk is the unit written to the semantic index. Content is bounded by the
// chunker's word budget and overlaps the previous chunk of the same lesson.
type Chunk struct {
	Content      string `json:"content"`
	CourseTitle  string `json:"course_title"`
	LessonNumber int    `json:"lesson_number"`
	ChunkIndex   int    `json:"chunk_index"`
	WordCount    int    `json:"word_count"`
}

// IngestReport summarizes one batch folder ingestion. Failures carry the
// filename so a single malformed document does not abort the batch.
type IngestReport struct {
	Ingested      []string          `json:"ingested"`
	Skipped       []string          `json:"skipped,omitempty"`
	Failed        map[string]string `json:"failed,omitempty"`
	ChunksIndexed int               `json:"chunks_indexed"`
}
