package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"course-assistant/internal/core/domain"
	"course-assistant/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return NewWithExecutor(baseURL, collection, nil)
}

func NewWithExecutor(baseURL, collection string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

// pointID derives a stable id from the chunk coordinates, so reprocessing
// the same course overwrites its points instead of accumulating duplicates.
func pointID(chunk domain.Chunk) string {
	seed := fmt.Sprintf("%s|%d|%d", chunk.CourseTitle, chunk.LessonNumber, chunk.ChunkIndex)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

func (c *Client) IndexChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch")
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, point{
			ID:     pointID(chunk),
			Vector: vectors[i],
			Payload: map[string]any{
				"course_title":  chunk.CourseTitle,
				"lesson_number": chunk.LessonNumber,
				"chunk_index":   chunk.ChunkIndex,
				"content":       chunk.Content,
				"word_count":    chunk.WordCount,
			},
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	return c.send(ctx, "upsert", http.MethodPut, path, map[string]any{"points": points}, nil, nil)
}

func (c *Client) Query(
	ctx context.Context,
	queryVector []float32,
	limit int,
	courseTitle string,
	lessonNumber *int,
) ([]domain.SearchResult, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}

	var must []map[string]any
	if courseTitle != "" {
		must = append(must, map[string]any{
			"key":   "course_title",
			"match": map[string]any{"value": courseTitle},
		})
	}
	if lessonNumber != nil {
		must = append(must, map[string]any{
			"key":   "lesson_number",
			"match": map[string]any{"value": *lessonNumber},
		})
	}
	if len(must) > 0 {
		reqBody["filter"] = map[string]any{"must": must}
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	if err := c.send(ctx, "search", http.MethodPost, path, reqBody, &searchResp, nil); err != nil {
		return nil, err
	}

	out := make([]domain.SearchResult, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.SearchResult{
			Content:      stringPayload(r.Payload, "content"),
			CourseTitle:  stringPayload(r.Payload, "course_title"),
			LessonNumber: intPayload(r.Payload, "lesson_number"),
			ChunkIndex:   intPayload(r.Payload, "chunk_index"),
			Score:        r.Score,
		})
	}
	return out, nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	// 200/201 for create, 409 if already exists (depends on version/config).
	path := fmt.Sprintf("/collections/%s", c.collection)
	tolerate := func(statusCode int) bool { return statusCode == http.StatusConflict }
	if err := c.send(ctx, "ensure_collection", http.MethodPut, path, reqBody, nil, tolerate); err != nil {
		return err
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

// send runs one Qdrant HTTP call under the resilience executor when one is
// configured. The request is rebuilt per attempt, so retried calls resend
// the full body.
func (c *Client) send(
	ctx context.Context,
	operation string,
	method string,
	path string,
	payload any,
	out any,
	tolerateStatus func(int) bool,
) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	call := func(ctx context.Context) error {
		return c.doRequest(ctx, operation, method, path, body, out, tolerateStatus)
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "qdrant."+operation, call, classifyQdrantError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

func (c *Client) doRequest(
	ctx context.Context,
	operation string,
	method string,
	path string,
	body []byte,
	out any,
	tolerateStatus func(int) bool,
) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if tolerateStatus != nil && tolerateStatus(resp.StatusCode) {
		return nil
	}
	if resp.StatusCode >= 300 {
		return statusError(operation, resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
	}
	return nil
}

func statusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func stringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func intPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}
