package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_AppendsMessages(t *testing.T) {
	current := ConversationState{
		SessionID: "s1",
		Provider:  "google",
		MainLLM:   "gemini-2.5-flash",
		Messages:  []Message{Human("hi")},
	}
	update := ConversationState{Messages: []Message{AI("hello"), AI("again")}}

	merged, err := Merge(current, update)
	require.NoError(t, err)

	require.Len(t, merged.Messages, 3)
	assert.Equal(t, "hi", merged.Messages[0].Content)
	assert.Equal(t, "hello", merged.Messages[1].Content)
	assert.Equal(t, "again", merged.Messages[2].Content)
	assert.Equal(t, "s1", merged.SessionID)
	for _, m := range merged.Messages[1:] {
		assert.NotEmpty(t, m.ID)
	}
	// current is left untouched
	assert.Len(t, current.Messages, 1)
}

func TestMerge_LastWriteIdentity(t *testing.T) {
	merged, err := Merge(
		ConversationState{SessionID: "s1", ConversationID: "c1"},
		ConversationState{ConversationID: "c2", ThreadID: "t1"},
	)
	require.NoError(t, err)
	assert.Equal(t, "s1", merged.SessionID)
	assert.Equal(t, "c2", merged.ConversationID)
	assert.Equal(t, "t1", merged.ThreadID)
}

func TestMerge_ProviderImmutable(t *testing.T) {
	_, err := Merge(
		ConversationState{Provider: "google", MainLLM: "gemini-2.5-flash"},
		ConversationState{Provider: "openai"},
	)
	assert.True(t, errors.Is(err, ErrImmutableField))

	_, err = Merge(
		ConversationState{Provider: "google", MainLLM: "gemini-2.5-flash"},
		ConversationState{MainLLM: "gemini-2.5-pro"},
	)
	assert.True(t, errors.Is(err, ErrImmutableField))

	// Repeating the same value is not a change.
	_, err = Merge(
		ConversationState{Provider: "google"},
		ConversationState{Provider: "google"},
	)
	assert.NoError(t, err)
}

func TestAppendMessages_KeepsExistingIDs(t *testing.T) {
	out := AppendMessages(nil, Message{ID: "fixed", Role: RoleHuman})
	assert.Equal(t, "fixed", out[0].ID)
}

func TestLastMessage(t *testing.T) {
	_, ok := ConversationState{}.LastMessage()
	assert.False(t, ok)

	last, ok := ConversationState{Messages: []Message{Human("a"), AI("b")}}.LastMessage()
	require.True(t, ok)
	assert.Equal(t, "b", last.Content)
}
