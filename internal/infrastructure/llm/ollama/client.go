package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"course-assistant/internal/core/domain"
	"course-assistant/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// NewWithExecutor adds retry and circuit breaking around every Ollama call.
func NewWithExecutor(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	client := New(baseURL, genModel, embedModel)
	client.executor = executor
	return client
}

type chatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	Function toolCallFunction `json:"function"`
}

type toolCallFunction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type toolSpec struct {
	Type     string           `json:"type"`
	Function toolSpecFunction `json:"function"`
}

type toolSpecFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Chat runs one /api/chat turn. Ollama does not assign ids to tool calls,
// so ids are synthesized positionally (call_0, call_1, ...) to keep tool
// results correlated with their requests across the followup turn.
func (c *Client) Chat(ctx context.Context, request domain.ChatRequest) (*domain.ChatResponse, error) {
	messages := make([]chatMessage, 0, len(request.Messages)+1)
	if request.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: request.System})
	}
	for _, m := range request.Messages {
		msg := chatMessage{Role: m.Role, Content: m.Content}
		for _, call := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, toolCall{
				Function: toolCallFunction{Name: call.Name, Arguments: call.Arguments},
			})
		}
		messages = append(messages, msg)
	}

	reqBody := map[string]any{
		"model":    c.genModel,
		"messages": messages,
		"stream":   false,
		"options": map[string]any{
			"temperature": request.Temperature,
			"num_predict": request.MaxTokens,
		},
	}
	if len(request.Tools) > 0 {
		reqBody["tools"] = buildToolSpecs(request.Tools)
	}

	var response struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []toolCall `json:"tool_calls"`
		} `json:"message"`
	}
	if err := c.postJSON(ctx, "/api/chat", reqBody, &response, "chat"); err != nil {
		return nil, err
	}

	out := &domain.ChatResponse{Content: strings.TrimSpace(response.Message.Content)}
	for i, call := range response.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return out, nil
}

func buildToolSpecs(declarations []domain.ToolDeclaration) []toolSpec {
	specs := make([]toolSpec, 0, len(declarations))
	for _, decl := range declarations {
		properties := map[string]any{}
		required := []string{}
		for _, param := range decl.Parameters {
			properties[param.Name] = map[string]any{
				"type":        param.Type,
				"description": param.Description,
			}
			if param.Required {
				required = append(required, param.Name)
			}
		}
		specs = append(specs, toolSpec{
			Type: "function",
			Function: toolSpecFunction{
				Name:        decl.Name,
				Description: decl.Description,
				Parameters: map[string]any{
					"type":       "object",
					"properties": properties,
					"required":   required,
				},
			},
		})
	}
	return specs
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}
