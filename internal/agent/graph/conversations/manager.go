package conversations

import (
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/elliotchance/pie/v2"

	"github.com/astroguru-core/server/internal/agent/model"
)

// Window selects how many stored turns a stage reads back.
type Window int

const (
	WindowMain Window = iota
	WindowChat
	WindowQuery
)

// MessagesManager turns stored turns into bounded LLM context windows.
// Storage is never truncated; only the view handed to the model is.
type MessagesManager struct {
	mainTurns  int
	chatTurns  int
	queryTurns int
}

func NewMessagesManager(config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		mainTurns:  config.MainWindow,
		chatTurns:  config.ChatWindow,
		queryTurns: config.QueryWindow,
	}
}

func (cm *MessagesManager) size(w Window) int {
	switch w {
	case WindowChat:
		return cm.chatTurns
	case WindowQuery:
		return cm.queryTurns
	default:
		return cm.mainTurns
	}
}

// History returns the newest turns of the window as eino messages, oldest first.
func (cm *MessagesManager) History(turns []model.Turn, w Window) []*schema.Message {
	recent := trimTail(turns, cm.size(w))
	recent = pie.Filter(recent, func(t model.Turn) bool {
		return strings.TrimSpace(t.Content) != ""
	})
	return pie.Map(recent, toMessage)
}

func toMessage(t model.Turn) *schema.Message {
	if t.Role == model.RoleAssistant {
		return schema.AssistantMessage(t.Content, nil)
	}
	return schema.UserMessage(t.Content)
}

// ====================== Helper function ======================
func trimTail[T any](items []T, maxItems int) []T {
	if maxItems <= 0 {
		return []T{}
	}
	if len(items) <= maxItems {
		result := make([]T, len(items))
		copy(result, items)
		return result
	}
	source := items[len(items)-maxItems:]
	result := make([]T, len(source))
	copy(result, source)
	return result
}
