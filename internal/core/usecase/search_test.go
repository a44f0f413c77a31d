package usecase

import (
	"context"
	"strings"
	"testing"

	"course-assistant/internal/core/domain"
)

type fakeEmbedder struct {
	queries []string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	return []float32{1, 2, 3}, nil
}

type fakeIndex struct {
	results      []domain.SearchResult
	lastLimit    int
	lastCourse   string
	lastLesson   *int
	indexedCount int
}

func (f *fakeIndex) IndexChunks(_ context.Context, _ []domain.Chunk, _ [][]float32) error {
	f.indexedCount++
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, limit int, courseTitle string, lessonNumber *int) ([]domain.SearchResult, error) {
	f.lastLimit = limit
	f.lastCourse = courseTitle
	f.lastLesson = lessonNumber
	return f.results, nil
}

type fakeCourseCatalog struct {
	titles map[string]string
	links  map[int]string
}

func (f *fakeCourseCatalog) UpsertCourse(_ context.Context, _ *domain.Course) error { return nil }

func (f *fakeCourseCatalog) ResolveCourseName(_ context.Context, name string) (string, error) {
	if resolved, ok := f.titles[name]; ok {
		return resolved, nil
	}
	return "", domain.ErrCourseNotFound
}

func (f *fakeCourseCatalog) LessonLink(_ context.Context, courseTitle string, lessonNumber int) (string, error) {
	if link, ok := f.links[lessonNumber]; ok {
		return link, nil
	}
	return "", domain.ErrLessonNotFound
}

func (f *fakeCourseCatalog) GetOutline(_ context.Context, _ string) (*domain.Course, error) {
	return nil, domain.ErrCourseNotFound
}

func (f *fakeCourseCatalog) ListCourseTitles(_ context.Context) ([]string, error) {
	titles := make([]string, 0, len(f.titles))
	for _, t := range f.titles {
		titles = append(titles, t)
	}
	return titles, nil
}

func TestSearchOrdersByScore(t *testing.T) {
	index := &fakeIndex{results: []domain.SearchResult{
		{Content: "low", Score: 0.2},
		{Content: "high", Score: 0.9},
		{Content: "mid", Score: 0.5},
	}}
	uc := NewSearchCoursesUseCase(&fakeEmbedder{}, index, &fakeCourseCatalog{}, 0)

	results, err := uc.Search(context.Background(), domain.SearchQuery{Text: "q"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []string{"high", "mid", "low"} {
		if results[i].Content != want {
			t.Fatalf("result %d = %q, want %q", i, results[i].Content, want)
		}
	}
}

func TestSearchAppliesDefaultLimit(t *testing.T) {
	index := &fakeIndex{}
	uc := NewSearchCoursesUseCase(&fakeEmbedder{}, index, &fakeCourseCatalog{}, 0)

	if _, err := uc.Search(context.Background(), domain.SearchQuery{Text: "q"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if index.lastLimit != 5 {
		t.Fatalf("expected default limit 5, got %d", index.lastLimit)
	}
}

func TestSearchForwardsFilters(t *testing.T) {
	index := &fakeIndex{}
	catalog := &fakeCourseCatalog{titles: map[string]string{"Course X": "Course X"}}
	uc := NewSearchCoursesUseCase(&fakeEmbedder{}, index, catalog, 0)

	lesson := 3
	_, err := uc.Search(context.Background(), domain.SearchQuery{
		Text:         "q",
		CourseTitle:  "Course X",
		LessonNumber: &lesson,
		Limit:        7,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if index.lastCourse != "Course X" {
		t.Fatalf("course filter not forwarded, got %q", index.lastCourse)
	}
	if index.lastLesson == nil || *index.lastLesson != 3 {
		t.Fatalf("lesson filter not forwarded, got %v", index.lastLesson)
	}
	if index.lastLimit != 7 {
		t.Fatalf("explicit limit not forwarded, got %d", index.lastLimit)
	}
}

func TestSearchUnknownCourseFilterNamesIt(t *testing.T) {
	uc := NewSearchCoursesUseCase(&fakeEmbedder{}, &fakeIndex{}, &fakeCourseCatalog{}, 0)

	_, err := uc.Search(context.Background(), domain.SearchQuery{Text: "q", CourseTitle: "Nonexistent"})
	if err == nil {
		t.Fatalf("expected error for unknown course filter")
	}
	if !domain.IsKind(err, domain.ErrSearch) {
		t.Fatalf("expected search kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "Nonexistent") {
		t.Fatalf("error does not name the filter: %v", err)
	}
}

func TestSearchEmbedsTheQueryText(t *testing.T) {
	embedder := &fakeEmbedder{}
	uc := NewSearchCoursesUseCase(embedder, &fakeIndex{}, &fakeCourseCatalog{}, 0)

	if _, err := uc.Search(context.Background(), domain.SearchQuery{Text: "tool calling basics"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(embedder.queries) != 1 || embedder.queries[0] != "tool calling basics" {
		t.Fatalf("query text not embedded: %v", embedder.queries)
	}
}
