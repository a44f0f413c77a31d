package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"course-assistant/internal/core/domain"
	"course-assistant/internal/core/usecase"
	"course-assistant/internal/observability/metrics"
)

type stubModel struct {
	answer    string
	toolCalls []domain.ToolCall
	err       error
	calls     int
}

func (m *stubModel) Chat(_ context.Context, _ domain.ChatRequest) (*domain.ChatResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.calls == 1 && len(m.toolCalls) > 0 {
		return &domain.ChatResponse{ToolCalls: m.toolCalls}, nil
	}
	return &domain.ChatResponse{Content: m.answer}, nil
}

type stubRegistry struct {
	sources []domain.SourceReference
}

func (s *stubRegistry) Declarations() []domain.ToolDeclaration { return nil }

func (s *stubRegistry) Execute(_ context.Context, _ string, _ map[string]any) (string, error) {
	return "", nil
}

func (s *stubRegistry) CollectSources() []domain.SourceReference { return s.sources }

func (s *stubRegistry) ResetSources() { s.sources = nil }

type stubSessions struct {
	nextID  string
	created int
}

func (s *stubSessions) CreateSession() string {
	s.created++
	return s.nextID
}

func (s *stubSessions) History(string) string { return "" }

func (s *stubSessions) AddExchange(string, string, string) {}

type stubCatalog struct {
	titles []string
	err    error
}

func (s *stubCatalog) UpsertCourse(_ context.Context, _ *domain.Course) error { return nil }

func (s *stubCatalog) ResolveCourseName(_ context.Context, name string) (string, error) {
	return name, nil
}

func (s *stubCatalog) LessonLink(_ context.Context, _ string, _ int) (string, error) {
	return "", domain.ErrLessonNotFound
}

func (s *stubCatalog) GetOutline(_ context.Context, _ string) (*domain.Course, error) {
	return nil, domain.ErrCourseNotFound
}

func (s *stubCatalog) ListCourseTitles(_ context.Context) ([]string, error) {
	return s.titles, s.err
}

type stubStorage struct{}

func (stubStorage) Save(_ context.Context, _ string, _ io.Reader) error { return nil }

func (stubStorage) Open(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type stubQueue struct {
	published []string
}

func (q *stubQueue) PublishCourseUploaded(_ context.Context, key string) error {
	q.published = append(q.published, key)
	return nil
}

func (q *stubQueue) SubscribeCourseUploaded(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}

func newTestRouter(model *stubModel, registry *stubRegistry, sessions *stubSessions, catalog *stubCatalog, options RouterOptions) http.Handler {
	answerUC := usecase.NewAnswerUseCase(model, registry, sessions, 0)
	ingestUC := usecase.NewIngestCourseUseCase(stubStorage{}, &stubQueue{})
	return NewRouter(answerUC, ingestUC, sessions, catalog, options).Handler()
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestQueryEndpointMintsSessionAndReturnsSources(t *testing.T) {
	registry := &stubRegistry{sources: []domain.SourceReference{{Title: "Course X - Lesson 1", Link: "https://example.com/x/1"}}}
	sessions := &stubSessions{nextID: "session-42"}
	handler := newTestRouter(&stubModel{answer: "the answer"}, registry, sessions, &stubCatalog{}, RouterOptions{})

	res := postJSON(t, handler, "/v1/query", map[string]string{"query": "what is lesson 1 about?"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var resp queryResponse
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "the answer" {
		t.Fatalf("unexpected answer %q", resp.Answer)
	}
	if resp.SessionID != "session-42" {
		t.Fatalf("session id not minted: %q", resp.SessionID)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Link != "https://example.com/x/1" {
		t.Fatalf("sources not returned: %+v", resp.Sources)
	}
	if sessions.created != 1 {
		t.Fatalf("expected one session created, got %d", sessions.created)
	}
}

func TestQueryEndpointKeepsProvidedSession(t *testing.T) {
	sessions := &stubSessions{nextID: "should-not-be-used"}
	handler := newTestRouter(&stubModel{answer: "ok"}, &stubRegistry{}, sessions, &stubCatalog{}, RouterOptions{})

	res := postJSON(t, handler, "/v1/query", map[string]string{"query": "q", "session_id": "existing"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp queryResponse
	_ = json.Unmarshal(res.Body.Bytes(), &resp)
	if resp.SessionID != "existing" {
		t.Fatalf("session id replaced: %q", resp.SessionID)
	}
	if sessions.created != 0 {
		t.Fatalf("session minted despite one being provided")
	}
}

func TestQueryEndpointValidation(t *testing.T) {
	handler := newTestRouter(&stubModel{answer: "ok"}, &stubRegistry{}, &stubSessions{nextID: "s"}, &stubCatalog{}, RouterOptions{})

	res := postJSON(t, handler, "/v1/query", map[string]string{"query": "   "})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("blank query expected 400, got %d", res.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid json expected 400, got %d", rec.Code)
	}
}

func TestQueryEndpointMapsTemporaryErrorTo503(t *testing.T) {
	model := &stubModel{err: domain.WrapError(domain.ErrTemporary, "chat", errors.New("overloaded"))}
	handler := newTestRouter(model, &stubRegistry{}, &stubSessions{nextID: "s"}, &stubCatalog{}, RouterOptions{})

	res := postJSON(t, handler, "/v1/query", map[string]string{"query": "q"})
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", res.Code, res.Body.String())
	}
}

func TestQueryEndpointMapsModelFailureTo500(t *testing.T) {
	model := &stubModel{err: errors.New("boom")}
	handler := newTestRouter(model, &stubRegistry{}, &stubSessions{nextID: "s"}, &stubCatalog{}, RouterOptions{})

	res := postJSON(t, handler, "/v1/query", map[string]string{"query": "q"})
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
}

func TestQueryEndpointRecordsToolMetrics(t *testing.T) {
	serverMetrics := metrics.NewHTTPServerMetrics("api")
	model := &stubModel{
		answer:    "ok",
		toolCalls: []domain.ToolCall{{ID: "call_0", Name: "search_course_content"}},
	}
	handler := newTestRouter(model, &stubRegistry{}, &stubSessions{nextID: "s"}, &stubCatalog{}, RouterOptions{
		Metrics: serverMetrics,
	})

	res := postJSON(t, handler, "/v1/query", map[string]string{"query": "q", "session_id": "s"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	exposition := rec.Body.String()
	if !strings.Contains(exposition, `ca_tools_calls_total{service="api",tool="search_course_content"} 1`) {
		t.Fatalf("tool call counter missing:\n%s", exposition)
	}
	if !strings.Contains(exposition, `ca_query_tool_rounds_total{service="api"} 1`) {
		t.Fatalf("tool round counter missing:\n%s", exposition)
	}
}

func TestCreateSessionEndpoint(t *testing.T) {
	handler := newTestRouter(&stubModel{}, &stubRegistry{}, &stubSessions{nextID: "fresh"}, &stubCatalog{}, RouterOptions{})

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(res.Body.Bytes(), &resp)
	if resp["session_id"] != "fresh" {
		t.Fatalf("session id missing: %v", resp)
	}
}

func TestCourseStatsEndpoint(t *testing.T) {
	catalog := &stubCatalog{titles: []string{"Course A", "Course B"}}
	handler := newTestRouter(&stubModel{}, &stubRegistry{}, &stubSessions{nextID: "s"}, catalog, RouterOptions{})

	req := httptest.NewRequest(http.MethodGet, "/v1/courses", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var stats domain.CourseStats
	if err := json.Unmarshal(res.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalCourses != 2 || len(stats.CourseTitles) != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestUploadCourseEndpoint(t *testing.T) {
	handler := newTestRouter(&stubModel{}, &stubRegistry{}, &stubSessions{nextID: "s"}, &stubCatalog{}, RouterOptions{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "course.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("Course Title: X\n\nLesson 1: Intro\ncontent\n"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/courses", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	var resp map[string]string
	_ = json.Unmarshal(res.Body.Bytes(), &resp)
	if !strings.HasSuffix(resp["storage_key"], "_course.txt") {
		t.Fatalf("storage key missing: %v", resp)
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	handler := newTestRouter(&stubModel{}, &stubRegistry{}, &stubSessions{nextID: "s"}, &stubCatalog{}, RouterOptions{
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	})

	req1 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req1.RemoteAddr = "10.0.0.1:1234"
	res1 := httptest.NewRecorder()
	handler.ServeHTTP(res1, req1)
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req2.RemoteAddr = "10.0.0.1:1235"
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	handler := newTestRouter(&stubModel{}, &stubRegistry{}, &stubSessions{nextID: "s"}, &stubCatalog{}, RouterOptions{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("request id header not set")
	}

	req2 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req2.Header.Set(requestIDHeader, "given-id")
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Header().Get(requestIDHeader) != "given-id" {
		t.Fatalf("provided request id not propagated")
	}
}
