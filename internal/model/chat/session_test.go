package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionDefaults(t *testing.T) {
	s := NewSession("abc")

	assert.Equal(t, "abc", s.ID)
	assert.Equal(t, DefaultAssistantName, s.AssistantName)
	assert.Empty(t, s.Turns())
	assert.False(t, s.CreatedAt.IsZero())
}

func TestAppendTurnIsAppendOnly(t *testing.T) {
	s := NewSession("abc")

	var prefix []Turn
	for i := 0; i < 5; i++ {
		s.AppendTurn(fmt.Sprintf("utterance %d", i), fmt.Sprintf("reply %d", i), false)

		turns := s.Turns()
		require.Len(t, turns, i+1)
		for j, prev := range prefix {
			assert.Equal(t, prev, turns[j], "turn %d changed after append %d", j, i)
		}
		prefix = turns
	}
}

func TestTurnsReturnsCopy(t *testing.T) {
	s := NewSession("abc")
	s.AppendTurn("hello", "hi there", false)

	turns := s.Turns()
	turns[0].AssistantReply = "mutated"

	assert.Equal(t, "hi there", s.Turns()[0].AssistantReply)
}

func TestRenameAssistant(t *testing.T) {
	s := NewSession("abc")

	assert.False(t, s.RenameAssistant(""))
	assert.False(t, s.RenameAssistant("   "))
	assert.Equal(t, DefaultAssistantName, s.AssistantName)

	assert.True(t, s.RenameAssistant("  Dr. Calm "))
	assert.Equal(t, "Dr. Calm", s.AssistantName)

	assert.False(t, s.RenameAssistant(""))
	assert.Equal(t, "Dr. Calm", s.AssistantName)
}

func TestRenameRelabelsExistingTurns(t *testing.T) {
	s := NewSession("abc")
	s.AppendTurn("one", "first", false)
	s.AppendTurn("two", "second", false)

	s.RenameAssistant("Sage")

	transcript := s.Transcript()
	assert.Equal(t, "Sage", transcript.AssistantName)
	assert.Len(t, transcript.Turns, 2)
}

func TestResetKeepsName(t *testing.T) {
	s := NewSession("abc")
	s.RenameAssistant("Sage")
	s.AppendTurn("one", "first", false)

	s.Reset()

	assert.Zero(t, s.Len())
	assert.Equal(t, "Sage", s.AssistantName)
}
