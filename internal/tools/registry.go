package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ag-tools/internal/events"
	"ag-tools/internal/util"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"
	"golang.org/x/sync/errgroup"
)

// Call is one tool invocation requested by the agent.
type Call struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Registry stores available tools and dispatches calls to them.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	emit  events.Emitter
}

// NewRegistry builds a registry from tools.
func NewRegistry(items ...Tool) *Registry {
	reg := &Registry{tools: map[string]Tool{}}
	for _, item := range items {
		reg.tools[item.Name()] = item
	}
	return reg
}

// Register adds or replaces a tool.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// SetEmitter installs the receiver for tool call events.
func (r *Registry) SetEmitter(emit events.Emitter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emit = emit
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns sorted tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAITools converts tool definitions to OpenAI tool schema, sorted by name.
func (r *Registry) OpenAITools() []openai.ChatCompletionToolUnionParam {
	var defs []openai.ChatCompletionToolUnionParam
	for _, name := range r.Names() {
		tool, _ := r.Get(name)
		defs = append(defs, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        tool.Name(),
					Description: param.NewOpt(tool.Description()),
					Parameters:  shared.FunctionParameters(tool.Parameters().Map()),
				},
			},
		})
	}
	return defs
}

// Dispatch validates the call's arguments and runs the tool. Every call
// publishes ToolCallStarted followed by exactly one of ToolCallFinished or
// ToolCallFailed, including an unknown tool, bad arguments or a panic; those
// come back as a failed "Error" result.
func (r *Registry) Dispatch(ctx context.Context, call Call) Result {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	start := time.Now()
	input := util.RedactSecrets(string(call.Arguments))
	r.publish(events.Event{Type: events.ToolCallStarted, Timestamp: start, Payload: events.ToolCallStartedPayload{
		CallID:    call.ID,
		ToolName:  call.Name,
		Input:     input,
		StartedAt: start,
	}})

	res := r.run(ctx, call, start)
	res.DurationMs = time.Since(start).Milliseconds()
	r.finish(call, input, start, res)
	return res
}

func (r *Registry) run(ctx context.Context, call Call, start time.Time) Result {
	tool, ok := r.Get(call.Name)
	if !ok {
		return newResult(call.Name, start, fmt.Sprintf("Error: Tool '%s' not found", call.Name), false, true)
	}
	args, err := decodeArguments(call.Arguments)
	if err != nil {
		return newResult(call.Name, start, fmt.Sprintf("Error: Invalid arguments for tool '%s': %v", call.Name, err), false, true)
	}
	if errs := tool.ValidateParams(args); len(errs) > 0 {
		return newResult(call.Name, start, fmt.Sprintf("Error: Invalid parameters for tool '%s': %s", call.Name, strings.Join(errs, "; ")), false, true)
	}
	return execute(ctx, tool, args)
}

// DispatchBatch runs calls concurrently, at most limit at a time (no limit
// when limit <= 0). Results keep the order of calls.
func (r *Registry) DispatchBatch(ctx context.Context, calls []Call, limit int) []Result {
	results := make([]Result, len(calls))
	group, groupCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}
	for i, call := range calls {
		group.Go(func() error {
			results[i] = r.Dispatch(groupCtx, call)
			return nil
		})
	}
	_ = group.Wait()
	return results
}

func execute(ctx context.Context, tool Tool, args map[string]any) (res Result) {
	start := time.Now()
	defer recoverResult(tool.Name(), start, &res)
	return tool.Execute(ctx, args)
}

func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// finish publishes the outcome. Listeners get redacted text; the Result
// returned to the caller stays verbatim.
func (r *Registry) finish(call Call, input string, start time.Time, res Result) {
	kind, status := events.ToolCallFinished, "success"
	if res.Failed {
		kind, status = events.ToolCallFailed, "error"
	}
	r.publish(events.Event{Type: kind, Timestamp: time.Now(), Payload: events.ToolCallFinishedPayload{
		CallID:     call.ID,
		ToolName:   call.Name,
		Status:     status,
		Input:      input,
		Output:     util.RedactSecrets(res.Output),
		Preview:    util.RedactSecrets(res.Preview),
		LineCount:  res.LineCount,
		ByteCount:  res.ByteCount,
		Truncated:  res.Truncated,
		StartedAt:  start,
		DurationMs: res.DurationMs,
	}})
}

func (r *Registry) publish(event events.Event) {
	r.mu.RLock()
	emit := r.emit
	r.mu.RUnlock()
	if emit != nil {
		emit(event)
	}
}
