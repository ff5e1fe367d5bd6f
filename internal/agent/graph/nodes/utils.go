package nodes

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

const DefaultMaxToolRounds = 3

// normalizeMaxToolRounds returns a sane default when the provided value is invalid.
func normalizeMaxToolRounds(n int) int {
	if n <= 0 {
		return DefaultMaxToolRounds
	}
	return n
}

// toolLimitNotice tells the model the next answer must be final.
func toolLimitNotice(max int) *schema.Message {
	return &schema.Message{
		Role: schema.System,
		Content: fmt.Sprintf(
			"SYSTEM NOTICE: This is the last of %d rounds; no more tool calls will be executed. "+
				"Reply now with the final JSON object, using your own knowledge for any value the tools did not return.",
			max,
		),
	}
}

// normalizeToolCallIDs fills ids some providers omit, so tool results can be
// matched to their calls. seq carries the counter across rounds.
func normalizeToolCallIDs(out *schema.Message, seq *int) {
	for i := range out.ToolCalls {
		if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
			*seq++
			out.ToolCalls[i].ID = fmt.Sprintf("call_%d", *seq)
		}
	}
}
