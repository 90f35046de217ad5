// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelark/chatkeep/internal/api"
	"github.com/avelark/chatkeep/internal/model"
	"github.com/avelark/chatkeep/internal/session"
	"github.com/avelark/chatkeep/internal/storage"
)

// =============================================================================
// SESSION CONTROLLER TESTS
// =============================================================================

func newTestController(t *testing.T, handler http.HandlerFunc) (*session.State, *storage.Store, *Store, *Controller) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	state, db, store := newTestEnv(t)
	client := api.NewClient(&api.Config{BaseURL: server.URL, RequestsPerMinute: 6000})
	return state, db, store, NewController(store, state, client)
}

// chunkHandler streams the given chunks with a flush between each.
func chunkHandler(chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for _, chunk := range chunks {
			w.Write([]byte(chunk))
			flusher.Flush()
		}
	}
}

func TestController_Send_AccumulatesReply(t *testing.T) {
	// The second chunk is gated on the first snapshot so the chunks can
	// never coalesce into one read.
	gate := make(chan struct{})
	handler := func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("Hel"))
		flusher.Flush()
		<-gate
		w.Write([]byte("lo"))
		flusher.Flush()
	}

	state, _, store, controller := newTestController(t, handler)
	addConversation(t, store)

	var trailing []string
	controller.OnSnapshot = func(snapshot model.Conversation) {
		last, ok := snapshot.LastMessage()
		require.True(t, ok)
		trailing = append(trailing, last.Content)
		if len(trailing) == 1 {
			close(gate)
		}
	}

	require.NoError(t, controller.Send(context.Background(), "hi", 0))

	// The trailing message is replaced wholesale with the accumulated
	// text on every chunk, never appended to in place.
	require.NotEmpty(t, trailing)
	assert.Equal(t, "Hel", trailing[0])
	assert.Equal(t, "Hello", trailing[len(trailing)-1])

	selected := state.Selected()
	require.Equal(t, 2, selected.MessageCount())
	assert.Equal(t, model.RoleUser, selected.Messages[0].Role)
	assert.Equal(t, "hi", selected.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, selected.Messages[1].Role)
	assert.Equal(t, "Hello", selected.Messages[1].Content)

	assert.False(t, state.Loading())
	assert.False(t, state.MessageStreaming())
	assert.False(t, state.MessageError())
}

func TestController_Send_TitleDerivation(t *testing.T) {
	t.Run("long first message truncated", func(t *testing.T) {
		state, _, store, controller := newTestController(t, chunkHandler("reply"))
		addConversation(t, store)

		long := strings.Repeat("x", 45)
		require.NoError(t, controller.Send(context.Background(), long, 0))
		assert.Equal(t, strings.Repeat("x", 30)+"...", state.Selected().Name)
	})

	t.Run("short first message kept whole", func(t *testing.T) {
		state, _, store, controller := newTestController(t, chunkHandler("reply"))
		addConversation(t, store)

		require.NoError(t, controller.Send(context.Background(), "short爱name", 0))
		assert.Equal(t, "short爱name", state.Selected().Name)
	})

	t.Run("second exchange keeps title", func(t *testing.T) {
		state, _, store, controller := newTestController(t, chunkHandler("reply"))
		conv := addConversation(t, store)

		require.NoError(t, controller.Send(context.Background(), "first", 0))
		require.NoError(t, store.RenameConversation(conv.ID, "Custom"))
		require.NoError(t, controller.Send(context.Background(), "second", 0))
		assert.Equal(t, "Custom", state.Selected().Name)
	})
}

func TestController_Send_TransportErrorKeepsUserMessage(t *testing.T) {
	state, _, store, controller := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	addConversation(t, store)

	err := controller.Send(context.Background(), "hi", 0)
	require.Error(t, err)
	assert.True(t, state.MessageError())
	assert.False(t, state.Loading())
	assert.False(t, state.MessageStreaming())

	// The user's message stays committed for a retry
	selected := state.Selected()
	require.Equal(t, 1, selected.MessageCount())
	assert.Equal(t, "hi", selected.Messages[0].Content)
	// The failed exchange never renamed the conversation
	assert.Equal(t, "Conversation 1", selected.Name)
}

func TestController_StopGenerating_KeepsPartial(t *testing.T) {
	release := make(chan struct{})
	served := make(chan int, 1)
	handler := func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("chunk1"))
		flusher.Flush()

		// Block until the client cancels; count what else got written
		<-r.Context().Done()
		served <- 1
		close(release)
	}

	state, _, store, controller := newTestController(t, handler)
	addConversation(t, store)

	controller.OnSnapshot = func(model.Conversation) {
		controller.StopGenerating()
	}

	require.NoError(t, controller.Send(context.Background(), "hi", 0))
	<-release

	assert.Equal(t, 1, <-served)
	selected := state.Selected()
	require.Equal(t, 2, selected.MessageCount())
	assert.Equal(t, "chunk1", selected.Messages[1].Content, "partial text stands after cancellation")
	assert.False(t, state.MessageStreaming())
}

func TestController_EditAndResend(t *testing.T) {
	state, _, store, controller := newTestController(t, chunkHandler("reply"))
	conv := addConversation(t, store)

	seeded := conv
	for _, content := range []string{"m0", "m1", "m2", "m3", "m4"} {
		seeded = seeded.Append(model.Message{Role: model.RoleUser, Content: content})
	}
	require.NoError(t, store.Commit(seeded))

	var beforeReply int
	controller.OnSnapshot = func(snapshot model.Conversation) {
		if beforeReply == 0 {
			// First snapshot: user history plus the new assistant message
			beforeReply = snapshot.MessageCount()
		}
	}

	require.NoError(t, controller.EditAndResend(context.Background(), 2, "edited"))

	// Kept indices 0,1, then the replacement, then the reply
	assert.Equal(t, 4, beforeReply)
	selected := state.Selected()
	require.Equal(t, 4, selected.MessageCount())
	assert.Equal(t, "m0", selected.Messages[0].Content)
	assert.Equal(t, "m1", selected.Messages[1].Content)
	assert.Equal(t, "edited", selected.Messages[2].Content)
	assert.Equal(t, model.RoleAssistant, selected.Messages[3].Role)
}

func TestController_FetchModels(t *testing.T) {
	t.Run("success populates catalog", func(t *testing.T) {
		state, _, _, controller := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"id":"gpt-4","name":"GPT-4","maxLength":24000,"tokenLimit":8000}]`))
		})

		require.NoError(t, controller.FetchModels(context.Background()))
		models := state.Models()
		require.Len(t, models, 1)
		assert.Equal(t, "gpt-4", models[0].ID)
		assert.False(t, state.ModelError())
	})

	t.Run("failure sets flag only", func(t *testing.T) {
		state, _, _, controller := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid key", http.StatusUnauthorized)
		})

		require.Error(t, controller.FetchModels(context.Background()))
		assert.True(t, state.ModelError())
		assert.Empty(t, state.Models())
	})
}
