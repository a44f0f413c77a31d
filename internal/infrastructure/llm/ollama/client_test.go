package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"course-assistant/internal/core/domain"
)

func TestChatSendsMessagesAndTools(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"hello"}}`))
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed")
	resp, err := client.Chat(context.Background(), domain.ChatRequest{
		System:   "be helpful",
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
		Tools: []domain.ToolDeclaration{{
			Name:        "search_course_content",
			Description: "Search course materials",
			Parameters: []domain.ToolParam{
				{Name: "query", Type: "string", Description: "what to search for", Required: true},
				{Name: "course_name", Type: "string", Description: "course filter"},
			},
		}},
		MaxTokens: 200,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "hello" {
		t.Fatalf("unexpected content %q", resp.Content)
	}

	if captured["stream"] != false {
		t.Fatalf("streaming must be disabled, got %v", captured["stream"])
	}
	messages, _ := captured["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(messages))
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be helpful" {
		t.Fatalf("system message malformed: %v", first)
	}

	tools, _ := captured["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool spec, got %d", len(tools))
	}
	spec, _ := tools[0].(map[string]any)
	fn, _ := spec["function"].(map[string]any)
	if fn["name"] != "search_course_content" {
		t.Fatalf("tool name missing: %v", fn)
	}
	params, _ := fn["parameters"].(map[string]any)
	required, _ := params["required"].([]any)
	if len(required) != 1 || required[0] != "query" {
		t.Fatalf("required parameters malformed: %v", required)
	}
}

func TestChatSynthesizesToolCallIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"","tool_calls":[
			{"function":{"name":"get_course_outline","arguments":{"course_name":"X"}}},
			{"function":{"name":"search_course_content","arguments":{"query":"q","lesson_number":2}}}
		]}}`))
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed")
	resp, err := client.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "q"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !resp.RequestsTools() {
		t.Fatalf("expected tool requests")
	}
	if resp.ToolCalls[0].ID != "call_0" || resp.ToolCalls[1].ID != "call_1" {
		t.Fatalf("ids not synthesized in order: %+v", resp.ToolCalls)
	}
	if resp.ToolCalls[1].Name != "search_course_content" {
		t.Fatalf("tool name lost: %+v", resp.ToolCalls[1])
	}
	if resp.ToolCalls[1].Arguments["lesson_number"] != float64(2) {
		t.Fatalf("arguments lost: %+v", resp.ToolCalls[1].Arguments)
	}
}

func TestChatForwardsGenerationOptions(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"ok"}}`))
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed")
	_, err := client.Chat(context.Background(), domain.ChatRequest{
		Messages:  []domain.ChatMessage{{Role: domain.RoleUser, Content: "q"}},
		MaxTokens: 512,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	options, _ := captured["options"].(map[string]any)
	if options["temperature"] != float64(0) {
		t.Fatalf("expected temperature 0, got %v", options["temperature"])
	}
	if options["num_predict"] != float64(512) {
		t.Fatalf("expected num_predict 512, got %v", options["num_predict"])
	}
	if _, hasTools := captured["tools"]; hasTools {
		t.Fatalf("tools must be omitted when none are declared")
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed")
	embedder := NewEmbedder(client)
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestRetryableStatusBecomesTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed")
	_, err := client.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "q"}},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}
}

func TestEmbedBatchKeepsOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[1,0],[0,1]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	vectors, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Fatalf("unexpected vectors %v", vectors)
	}
}
