// Package agenttest holds in-memory fakes for the collaborators the graph stages call.
package agenttest

import (
	"context"
	"errors"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrNoReply is returned when a ChatModel runs out of scripted replies.
var ErrNoReply = errors.New("agenttest: no scripted reply left")

// Reply is one scripted model answer.
type Reply struct {
	Message *schema.Message
	Err     error
}

func Text(content string) Reply {
	return Reply{Message: schema.AssistantMessage(content, nil)}
}

func Fail(err error) Reply {
	return Reply{Err: err}
}

// ToolCall scripts a reply that asks for one tool invocation. An empty id
// imitates providers that omit tool-call ids.
func ToolCall(id, name, arguments string) Reply {
	return Reply{Message: schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: arguments},
	}})}
}

// WithUsage attaches token usage to a scripted reply.
func (r Reply) WithUsage(prompt, completion int) Reply {
	if r.Message != nil {
		r.Message.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		}}
	}
	return r
}

// Call records one Generate invocation.
type Call struct {
	Messages    []*schema.Message
	Temperature *float32
	MaxTokens   *int
}

// ChatModel replays scripted replies in order and records every call.
type ChatModel struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Call
	// Respond, when set, answers once the script is exhausted.
	Respond func(msgs []*schema.Message) Reply
}

var _ einomodel.BaseChatModel = (*ChatModel)(nil)

func NewChatModel(replies ...Reply) *ChatModel {
	return &ChatModel{replies: replies}
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o := einomodel.GetCommonOptions(nil, opts...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{
		Messages:    append([]*schema.Message(nil), input...),
		Temperature: o.Temperature,
		MaxTokens:   o.MaxTokens,
	})

	var r Reply
	switch {
	case len(m.replies) > 0:
		r = m.replies[0]
		m.replies = m.replies[1:]
	case m.Respond != nil:
		r = m.Respond(input)
	default:
		return nil, ErrNoReply
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return copyMessage(r.Message), nil
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// Script queues more replies.
func (m *ChatModel) Script(replies ...Reply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
}

// Calls returns a copy of the recorded calls.
func (m *ChatModel) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *ChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Pending is the number of scripted replies not yet consumed.
func (m *ChatModel) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replies)
}

func copyMessage(msg *schema.Message) *schema.Message {
	if msg == nil {
		return schema.AssistantMessage("", nil)
	}
	c := *msg
	c.ToolCalls = append([]schema.ToolCall(nil), msg.ToolCalls...)
	return &c
}
