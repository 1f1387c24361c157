// Package render turns session transcripts into Markdown for clients and
// terminals.
package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"

	"github.com/zhouzirui/therapist-ai/backend/internal/model/chat"
)

// EmptyPlaceholder is shown while a session has no turns.
const EmptyPlaceholder = "Start a conversation to see the chat history here!"

// Markdown renders every turn, labelling replies with the session's current
// assistant name.
func Markdown(t chat.Transcript) string {
	var sb strings.Builder

	sb.WriteString("## Chat History\n\n")

	if len(t.Turns) == 0 {
		sb.WriteString(EmptyPlaceholder)
		sb.WriteString("\n\n")
	}

	for _, turn := range t.Turns {
		writeTurn(&sb, t.AssistantName, turn)
		sb.WriteString("---\n\n")
	}

	sb.WriteString("_Your therapist is named **")
	sb.WriteString(t.AssistantName)
	sb.WriteString("**._\n")

	return sb.String()
}

// Turn renders a single exchange.
func Turn(assistantName string, turn chat.Turn) string {
	var sb strings.Builder
	writeTurn(&sb, assistantName, turn)
	return sb.String()
}

func writeTurn(sb *strings.Builder, assistantName string, turn chat.Turn) {
	sb.WriteString("**You**: ")
	sb.WriteString(turn.UserUtterance)
	sb.WriteString("\n\n**")
	sb.WriteString(assistantName)
	sb.WriteString("**: ")
	sb.WriteString(turn.AssistantReply)
	sb.WriteString("\n\n")
}

// Terminal styles Markdown for an ANSI terminal of the given width.
func Terminal(markdown string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", errors.Wrap(err, "create terminal renderer")
	}

	out, err := renderer.Render(markdown)
	if err != nil {
		return "", errors.Wrap(err, "render markdown")
	}
	return out, nil
}
