package agent

import (
	"context"

	"synergy/pkg/agent/llm"
	"synergy/pkg/logx"
	"synergy/pkg/session"
	"synergy/pkg/tokens"
)

// LLMExecutor executes agents against an LLM provider, feeding it the
// session's accumulated history as conversation context.
type LLMExecutor struct {
	client     llm.Client
	sessions   *session.Registry
	counter    *tokens.Counter
	maxContext int
	logger     *logx.Logger
}

// NewLLMExecutor creates an executor over the given provider client and
// session registry. maxContext bounds the token budget of the history sent
// with each call; the oldest turns are dropped first when over budget.
func NewLLMExecutor(client llm.Client, sessions *session.Registry, counter *tokens.Counter, maxContext int) *LLMExecutor {
	return &LLMExecutor{
		client:     client,
		sessions:   sessions,
		counter:    counter,
		maxContext: maxContext,
		logger:     logx.NewLogger("executor"),
	}
}

// Execute implements Executor. It emits at most one terminal event carrying
// the model's reply, or an error event when the provider call fails, then
// closes the stream. Turn bookkeeping is the caller's responsibility.
func (e *LLMExecutor) Execute(ctx context.Context, ag *Agent, userID, sessionID, message string) (<-chan Event, error) {
	history, err := e.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages := e.buildMessages(ag, history, message)

	ch := make(chan Event, 1)
	go func() {
		defer close(ch)

		resp, err := e.client.Complete(ctx, llm.NewCompletionRequest(messages))
		if err != nil {
			e.logger.Warn("agent %s call failed for user %s session %s: %v", ag.Name, userID, sessionID, err)
			ch <- Event{Agent: ag.Name, Err: err}
			return
		}
		if resp.Content == "" {
			// Stream closes without a terminal event; the dispatcher
			// reports "no response generated".
			return
		}
		ch <- Event{Agent: ag.Name, Text: resp.Content, Terminal: true}
	}()

	return ch, nil
}

// buildMessages assembles instruction, budget-trimmed history, and the new
// message into a completion request.
func (e *LLMExecutor) buildMessages(ag *Agent, history []session.Turn, message string) []llm.CompletionMessage {
	unlimited := e.maxContext <= 0
	budget := e.maxContext - e.counter.Count(ag.Instruction) - e.counter.Count(message)

	// Walk history newest-first until the budget runs out, then restore order.
	var kept []session.Turn
	for i := len(history) - 1; i >= 0; i-- {
		t := history[i]
		if !unlimited {
			cost := e.counter.Count(t.Text)
			if cost > budget {
				break
			}
			budget -= cost
		}
		kept = append([]session.Turn{t}, kept...)
	}

	messages := make([]llm.CompletionMessage, 0, len(kept)+2)
	if ag.Instruction != "" {
		messages = append(messages, llm.NewSystemMessage(ag.Instruction))
	}
	for i := range kept {
		t := &kept[i]
		switch t.Role {
		case session.RoleUser, session.RoleSystem:
			messages = append(messages, llm.NewUserMessage(t.Text))
		case session.RoleAgent, session.RoleEvaluation:
			messages = append(messages, llm.NewAssistantMessage(t.Text))
		}
	}
	messages = append(messages, llm.NewUserMessage(message))
	return messages
}
