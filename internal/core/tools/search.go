package tools

import (
	"context"
	"fmt"
	"strings"

	"course-assistant/internal/core/domain"
	"course-assistant/internal/core/ports"
)

const SearchToolName = "search_course_content"

// SearchTool exposes semantic course search to the model. After a successful
// execution lastSources holds one citation per result; the registry reads and
// resets it once per completed query, so a tool instance must not serve two
// interleaved queries (the orchestrator guards this with one critical section
// per query).
type SearchTool struct {
	search      ports.SemanticSearch
	resultLimit int

	lastSources []domain.SourceReference
}

func NewSearchTool(search ports.SemanticSearch, resultLimit int) *SearchTool {
	if resultLimit <= 0 {
		resultLimit = 5
	}
	return &SearchTool{
		search:      search,
		resultLimit: resultLimit,
	}
}

func (t *SearchTool) Declaration() domain.ToolDeclaration {
	return domain.ToolDeclaration{
		Name:        SearchToolName,
		Description: "Search course materials for content relevant to a question, optionally scoped to one course and/or lesson.",
		Parameters: []domain.ToolParam{
			{Name: "query", Type: "string", Description: "What to search for in the course content", Required: true},
			{Name: "course_name", Type: "string", Description: "Course title, full or partial (e.g. 'MCP', 'Introduction')"},
			{Name: "lesson_number", Type: "integer", Description: "Specific lesson number to search within (e.g. 1, 2, 3)"},
		},
	}
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]any) string {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return "The search tool requires a 'query' parameter."
	}

	courseTitle := ""
	if name := strings.TrimSpace(stringArg(args, "course_name")); name != "" {
		resolved, err := t.search.ResolveCourseName(ctx, name)
		if err != nil {
			if domain.IsKind(err, domain.ErrCourseNotFound) {
				return fmt.Sprintf("No course found matching '%s'", name)
			}
			return err.Error()
		}
		courseTitle = resolved
	}

	searchQuery := domain.SearchQuery{
		Text:        query,
		CourseTitle: courseTitle,
		Limit:       t.resultLimit,
	}
	if lesson, ok := intArg(args, "lesson_number"); ok {
		searchQuery.LessonNumber = &lesson
	}

	results, err := t.search.Search(ctx, searchQuery)
	if err != nil {
		return err.Error()
	}
	if len(results) == 0 {
		t.lastSources = nil
		return noContentMessage(courseTitle, searchQuery.LessonNumber)
	}

	return t.formatResults(ctx, results)
}

// formatResults renders one labeled block per result, in relevance order,
// and overwrites lastSources with a matching citation per result.
func (t *SearchTool) formatResults(ctx context.Context, results []domain.SearchResult) string {
	blocks := make([]string, 0, len(results))
	sources := make([]domain.SourceReference, 0, len(results))

	for _, result := range results {
		header := fmt.Sprintf("[%s - Lesson %d]", result.CourseTitle, result.LessonNumber)
		blocks = append(blocks, header+"\n"+result.Content)

		source := domain.SourceReference{
			Title: fmt.Sprintf("%s - Lesson %d", result.CourseTitle, result.LessonNumber),
		}
		if link, err := t.search.LessonLink(ctx, result.CourseTitle, result.LessonNumber); err == nil {
			source.Link = link
		}
		sources = append(sources, source)
	}

	t.lastSources = sources
	return strings.Join(blocks, "\n\n")
}

func (t *SearchTool) LastSources() []domain.SourceReference {
	return t.lastSources
}

func (t *SearchTool) ResetSources() {
	t.lastSources = nil
}

func noContentMessage(courseTitle string, lessonNumber *int) string {
	msg := "No relevant content found"
	if courseTitle != "" {
		msg += fmt.Sprintf(" in course '%s'", courseTitle)
	}
	if lessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
	}
	return msg
}
