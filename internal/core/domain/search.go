package domain

// SearchQuery describes one semantic search request. CourseTitle and
// LessonNumber are optional filters; CourseTitle must already be canonical.
type SearchQuery struct {
	Text         string
	CourseTitle  string
	LessonNumber *int
	Limit        int
}

// SearchResult is one scored match, ordered by descending relevance.
type SearchResult struct {
	Content      string  `json:"content"`
	CourseTitle  string  `json:"course_title"`
	LessonNumber int     `json:"lesson_number"`
	ChunkIndex   int     `json:"chunk_index"`
	Score        float64 `json:"score"`
}

// SourceReference is the human-readable citation derived from one result.
type SourceReference struct {
	Title string `json:"title"`
	Link  string `json:"link,omitempty"`
}

// Answer is the final outcome of one query: the generated text plus the
// citations accumulated during tool execution. ToolsUsed lists the executed
// tool names in invocation order, for observability rather than the client.
type Answer struct {
	Text      string            `json:"text"`
	Sources   []SourceReference `json:"sources"`
	ToolsUsed []string          `json:"-"`
}

// CourseStats is the catalog summary exposed on the API.
type CourseStats struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}
