package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"course-assistant/internal/core/domain"
	"course-assistant/internal/core/ports"
)

// loopState tracks the generation loop through its protocol states. The
// explicit machine makes the one-tool-round-per-query bound enforceable:
// stateAwaitingFollowup never transitions back to stateToolRequested.
type loopState int

const (
	stateInit loopState = iota
	stateAwaitingModel
	stateToolRequested
	stateAwaitingFollowup
	stateDone
)

const systemPromptBase = `You are a course materials assistant. Answer questions about course content using the provided tools when the question concerns specific courses or lessons.

- Use the search tool at most once per user question.
- Answer general knowledge questions directly, without tools.
- Be concise and factual; do not speculate beyond the retrieved content.`

// AnswerUseCase runs the tool-calling protocol against the language model:
// it sends the query with tool declarations, executes any requested tools
// through the registry, re-submits the results for a final completion, and
// returns the answer together with the sources the tools recorded.
type AnswerUseCase struct {
	model     ports.ChatModel
	registry  ports.ToolRegistry
	sessions  ports.ConversationStore
	maxTokens int

	// Serializes tool execution through source read/reset so concurrent
	// queries sharing this registry cannot leak citations across queries.
	mu sync.Mutex
}

func NewAnswerUseCase(
	model ports.ChatModel,
	registry ports.ToolRegistry,
	sessions ports.ConversationStore,
	maxTokens int,
) *AnswerUseCase {
	if maxTokens <= 0 {
		maxTokens = 800
	}
	return &AnswerUseCase{
		model:     model,
		registry:  registry,
		sessions:  sessions,
		maxTokens: maxTokens,
	}
}

func (uc *AnswerUseCase) Answer(ctx context.Context, query, sessionID string) (*domain.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("query is required"))
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	// Deferred so failed queries cannot bleed their citations into the next
	// query on the shared registry. Runs after CollectSources on success.
	defer uc.registry.ResetSources()

	var (
		system    string
		messages  []domain.ChatMessage
		response  *domain.ChatResponse
		finalText string
		toolsUsed []string
	)

	state := stateInit
	for state != stateDone {
		switch state {
		case stateInit:
			system = uc.buildSystemPrompt(sessionID)
			messages = []domain.ChatMessage{{Role: domain.RoleUser, Content: query}}
			state = stateAwaitingModel

		case stateAwaitingModel:
			resp, err := uc.model.Chat(ctx, domain.ChatRequest{
				System:      system,
				Messages:    messages,
				Tools:       uc.registry.Declarations(),
				Temperature: 0,
				MaxTokens:   uc.maxTokens,
			})
			if err != nil {
				return nil, domain.WrapError(domain.ErrGeneration, "model call", err)
			}
			if resp.RequestsTools() {
				response = resp
				state = stateToolRequested
				break
			}
			finalText = resp.Content
			state = stateDone

		case stateToolRequested:
			toolMessages, err := uc.runToolRound(ctx, response.ToolCalls)
			if err != nil {
				return nil, err
			}
			messages = append(messages, domain.ChatMessage{
				Role:      domain.RoleAssistant,
				Content:   response.Content,
				ToolCalls: response.ToolCalls,
			})
			messages = append(messages, toolMessages...)
			for _, call := range response.ToolCalls {
				toolsUsed = append(toolsUsed, call.Name)
			}
			state = stateAwaitingFollowup

		case stateAwaitingFollowup:
			// No tool declarations this time: the model must produce
			// text. Tool requests in the followup are not executed.
			resp, err := uc.model.Chat(ctx, domain.ChatRequest{
				System:      system,
				Messages:    messages,
				Temperature: 0,
				MaxTokens:   uc.maxTokens,
			})
			if err != nil {
				return nil, domain.WrapError(domain.ErrGeneration, "followup model call", err)
			}
			finalText = resp.Content
			state = stateDone
		}
	}

	sources := uc.registry.CollectSources()

	if sessionID != "" {
		uc.sessions.AddExchange(sessionID, query, finalText)
	}

	return &domain.Answer{Text: finalText, Sources: sources, ToolsUsed: toolsUsed}, nil
}

func (uc *AnswerUseCase) buildSystemPrompt(sessionID string) string {
	if sessionID == "" {
		return systemPromptBase
	}
	history := uc.sessions.History(sessionID)
	if history == "" {
		return systemPromptBase
	}
	return systemPromptBase + "\n\nPrevious conversation:\n" + history
}

// runToolRound executes all invocations of one model turn in request order,
// keeping tool-result messages aligned with their invocation ids. Execution
// is sequential: tools accumulate source state, so a tool invoked twice in
// one round must see its invocations one after the other.
func (uc *AnswerUseCase) runToolRound(ctx context.Context, calls []domain.ToolCall) ([]domain.ChatMessage, error) {
	messages := make([]domain.ChatMessage, 0, len(calls))
	for _, call := range calls {
		result, err := uc.registry.Execute(ctx, call.Name, call.Arguments)
		if err != nil {
			return nil, err
		}
		messages = append(messages, domain.ChatMessage{
			Role:       domain.RoleTool,
			Content:    result,
			ToolName:   call.Name,
			ToolCallID: call.ID,
		})
	}
	return messages, nil
}
