package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/therapist-ai/backend/internal/model/chat"
)

func TestMarkdownEmptyTranscript(t *testing.T) {
	out := Markdown(chat.Transcript{AssistantName: "TherapistAI"})

	assert.Contains(t, out, EmptyPlaceholder)
	assert.Contains(t, out, "Your therapist is named **TherapistAI**.")
	assert.NotContains(t, out, "**You**")
}

func TestMarkdownLabelsEveryTurnWithCurrentName(t *testing.T) {
	session := chat.NewSession("s1")
	session.AppendTurn("I feel anxious today", "It's understandable to feel anxious...", false)
	session.AppendTurn("Thanks", "You're welcome.", false)
	session.RenameAssistant("Sage")

	out := Markdown(session.Transcript())

	assert.Equal(t, 2, strings.Count(out, "**Sage**: "))
	assert.NotContains(t, out, "**TherapistAI**:")
	assert.Less(t, strings.Index(out, "I feel anxious today"), strings.Index(out, "Thanks"))
	assert.NotContains(t, out, EmptyPlaceholder)
}

func TestTurn(t *testing.T) {
	out := Turn("Sage", chat.Turn{UserUtterance: "hi", AssistantReply: "Error: network down", Failed: true})
	assert.Equal(t, "**You**: hi\n\n**Sage**: Error: network down\n\n", out)
}

func TestTerminalRendersText(t *testing.T) {
	out, err := Terminal("**You**: hello", 40)
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}
