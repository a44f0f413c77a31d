package usecase

import (
	"context"
	"fmt"
	"sort"

	"course-assistant/internal/core/domain"
	"course-assistant/internal/core/ports"
)

// SearchCoursesUseCase composes the embedder, vector index, and course
// catalog into the semantic search capability the tools consume.
type SearchCoursesUseCase struct {
	embedder     ports.Embedder
	index        ports.VectorIndex
	catalog      ports.CourseCatalog
	defaultLimit int
}

func NewSearchCoursesUseCase(
	embedder ports.Embedder,
	index ports.VectorIndex,
	catalog ports.CourseCatalog,
	defaultLimit int,
) *SearchCoursesUseCase {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	return &SearchCoursesUseCase{
		embedder:     embedder,
		index:        index,
		catalog:      catalog,
		defaultLimit: defaultLimit,
	}
}

func (uc *SearchCoursesUseCase) Search(ctx context.Context, query domain.SearchQuery) ([]domain.SearchResult, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = uc.defaultLimit
	}

	// A filter naming an unknown course must fail with the filter in the
	// message, not return a silently empty result set.
	if query.CourseTitle != "" {
		if _, err := uc.catalog.ResolveCourseName(ctx, query.CourseTitle); err != nil {
			if domain.IsKind(err, domain.ErrCourseNotFound) {
				return nil, domain.WrapError(domain.ErrSearch, "search",
					fmt.Errorf("no such course: %q", query.CourseTitle))
			}
			return nil, domain.WrapError(domain.ErrSearch, "search", err)
		}
	}

	vector, err := uc.embedder.EmbedQuery(ctx, query.Text)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSearch, "embed query", err)
	}

	results, err := uc.index.Query(ctx, vector, limit, query.CourseTitle, query.LessonNumber)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSearch, "query index", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

func (uc *SearchCoursesUseCase) ResolveCourseName(ctx context.Context, partial string) (string, error) {
	return uc.catalog.ResolveCourseName(ctx, partial)
}

func (uc *SearchCoursesUseCase) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error) {
	return uc.catalog.LessonLink(ctx, courseTitle, lessonNumber)
}
