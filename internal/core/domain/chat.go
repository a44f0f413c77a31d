package domain

// Message roles used in the model conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is one tool invocation requested by the model. ID correlates the
// invocation with its result message within a single round.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolParam describes one parameter of a declared tool.
type ToolParam struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// ToolDeclaration is the schema exposed to the model so it can decide whether
// and how to invoke a tool.
type ToolDeclaration struct {
	Name        string
	Description string
	Parameters  []ToolParam
}

// ChatMessage is one entry in the model conversation history. Tool-result
// messages carry the name and ID of the invocation they answer.
type ChatMessage struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolName   string
	ToolCallID string
}

// ChatRequest is what the orchestrator sends to the language model. Tools is
// empty on the followup call, forcing a final text answer.
type ChatRequest struct {
	System      string
	Messages    []ChatMessage
	Tools       []ToolDeclaration
	Temperature float64
	MaxTokens   int
}

// ChatResponse is either a final text completion (no tool calls) or a request
// to execute one or more tools.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// RequestsTools reports whether the response is a tool-use request rather
// than a final completion.
func (r *ChatResponse) RequestsTools() bool {
	return r != nil && len(r.ToolCalls) > 0
}
