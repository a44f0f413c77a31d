package tools

import (
	"context"
	"fmt"
	"strings"

	"course-assistant/internal/core/domain"
	"course-assistant/internal/core/ports"
)

const OutlineToolName = "get_course_outline"

// OutlineTool returns a course's title, link, and full lesson list from the
// catalog, so the model can answer structural questions without a content
// search.
type OutlineTool struct {
	search  ports.SemanticSearch
	catalog ports.CourseCatalog

	lastSources []domain.SourceReference
}

func NewOutlineTool(search ports.SemanticSearch, catalog ports.CourseCatalog) *OutlineTool {
	return &OutlineTool{
		search:  search,
		catalog: catalog,
	}
}

func (t *OutlineTool) Declaration() domain.ToolDeclaration {
	return domain.ToolDeclaration{
		Name:        OutlineToolName,
		Description: "Get the outline of a course: its title, link, and complete numbered lesson list.",
		Parameters: []domain.ToolParam{
			{Name: "course_name", Type: "string", Description: "Course title, full or partial", Required: true},
		},
	}
}

func (t *OutlineTool) Execute(ctx context.Context, args map[string]any) string {
	name := strings.TrimSpace(stringArg(args, "course_name"))
	if name == "" {
		return "The outline tool requires a 'course_name' parameter."
	}

	resolved, err := t.search.ResolveCourseName(ctx, name)
	if err != nil {
		if domain.IsKind(err, domain.ErrCourseNotFound) {
			return fmt.Sprintf("No course found matching '%s'", name)
		}
		return err.Error()
	}

	course, err := t.catalog.GetOutline(ctx, resolved)
	if err != nil {
		return err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", course.Title)
	if course.Link != "" {
		fmt.Fprintf(&b, "Link: %s\n", course.Link)
	}
	fmt.Fprintf(&b, "Lessons (%d):\n", len(course.Lessons))
	for _, lesson := range course.Lessons {
		fmt.Fprintf(&b, "%d. %s\n", lesson.Number, lesson.Title)
	}

	t.lastSources = []domain.SourceReference{{Title: course.Title, Link: course.Link}}
	return strings.TrimRight(b.String(), "\n")
}

func (t *OutlineTool) LastSources() []domain.SourceReference {
	return t.lastSources
}

func (t *OutlineTool) ResetSources() {
	t.lastSources = nil
}
