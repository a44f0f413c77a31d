package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"course-assistant/internal/core/domain"
	"course-assistant/internal/core/ports"
	"course-assistant/internal/core/usecase"
	"course-assistant/internal/observability/metrics"
)

type Router struct {
	answerUC *usecase.AnswerUseCase
	ingestUC *usecase.IngestCourseUseCase
	sessions ports.ConversationStore
	catalog  ports.CourseCatalog
	metrics  *metrics.HTTPServerMetrics

	service        string
	rateLimitRPS   float64
	rateLimitBurst int
}

type RouterOptions struct {
	Metrics        *metrics.HTTPServerMetrics
	Service        string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(
	answerUC *usecase.AnswerUseCase,
	ingestUC *usecase.IngestCourseUseCase,
	sessions ports.ConversationStore,
	catalog ports.CourseCatalog,
	options RouterOptions,
) *Router {
	service := options.Service
	if service == "" {
		service = "api"
	}
	return &Router{
		answerUC:       answerUC,
		ingestUC:       ingestUC,
		sessions:       sessions,
		catalog:        catalog,
		metrics:        options.Metrics,
		service:        service,
		rateLimitRPS:   options.RateLimitRPS,
		rateLimitBurst: options.RateLimitBurst,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/query", rt.answerQuery)
	mux.HandleFunc("/v1/sessions", rt.createSession)
	mux.HandleFunc("/v1/courses", rt.courses)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type queryResponse struct {
	Answer    string                   `json:"answer"`
	Sources   []domain.SourceReference `json:"sources"`
	SessionID string                   `json:"session_id"`
}

func (rt *Router) answerQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = rt.sessions.CreateSession()
		if rt.metrics != nil {
			rt.metrics.RecordSessionCreated(rt.service)
		}
	}

	start := time.Now()
	answer, err := rt.answerUC.Answer(r.Context(), req.Query, sessionID)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordQuery(rt.service, "error", 0, time.Since(start))
		}
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordQuery(rt.service, "success", len(answer.Sources), time.Since(start))
		if len(answer.ToolsUsed) > 0 {
			rt.metrics.RecordToolRound(rt.service)
		}
		for _, tool := range answer.ToolsUsed {
			rt.metrics.RecordToolCall(rt.service, tool)
		}
	}

	sources := answer.Sources
	if sources == nil {
		sources = []domain.SourceReference{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Answer:    answer.Text,
		Sources:   sources,
		SessionID: sessionID,
	})
}

func (rt *Router) createSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	sessionID := rt.sessions.CreateSession()
	if rt.metrics != nil {
		rt.metrics.RecordSessionCreated(rt.service)
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sessionID})
}

func (rt *Router) courses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.courseStats(w, r)
	case http.MethodPost:
		rt.uploadCourse(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) courseStats(w http.ResponseWriter, r *http.Request) {
	titles, err := rt.catalog.ListCourseTitles(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if titles == nil {
		titles = []string{}
	}
	writeJSON(w, http.StatusOK, domain.CourseStats{
		TotalCourses: len(titles),
		CourseTitles: titles,
	})
}

func (rt *Router) uploadCourse(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	storageKey, err := rt.ingestUC.Upload(r.Context(), fileHeader.Filename, file)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordUpload(rt.service)
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"storage_key": storageKey})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
