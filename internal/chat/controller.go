// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/avelark/chatkeep/internal/api"
	"github.com/avelark/chatkeep/internal/model"
	"github.com/avelark/chatkeep/internal/session"
	"github.com/avelark/chatkeep/internal/util"
)

// titleRunes is how much of the first user message becomes the
// conversation's display title.
const titleRunes = 30

// =============================================================================
// SESSION CONTROLLER
// =============================================================================

// Controller orchestrates a user-initiated send or edit-and-resend. It owns
// the loading / streaming / error flags and the stop signal; the store owns
// the collections.
type Controller struct {
	store *Store
	state *session.State
	acc   *Accumulator
	stop  StopSignal

	// OnSnapshot, when set, observes every committed streaming snapshot.
	// Presentation hook; runs on the streaming goroutine.
	OnSnapshot func(model.Conversation)
}

// NewController creates a session controller.
func NewController(store *Store, state *session.State, client *api.Client) *Controller {
	return &Controller{
		store: store,
		state: state,
		acc:   NewAccumulator(client),
	}
}

// Send appends a user message to the selected conversation, streams the
// assistant's reply into it and commits the result. A deleteCount > 0 drops
// that many trailing messages first (the edit-and-resend path).
//
// The user's message commits before the network round trip, so it is never
// lost: a transport failure sets the message-error flag and leaves the
// committed message in place for a retry.
func (c *Controller) Send(ctx context.Context, content string, deleteCount int) error {
	conv := c.state.Selected()
	if deleteCount > 0 {
		conv = conv.DropLast(deleteCount)
	}
	conv = conv.Append(model.Message{Role: model.RoleUser, Content: content})
	firstExchange := conv.MessageCount() == 1

	c.state.SetLoading(true)
	c.state.SetMessageStreaming(true)
	c.state.SetMessageError(false)

	if err := c.store.Commit(conv); err != nil {
		c.clearFlags()
		return err
	}

	req := api.ChatRequest{
		Model:    conv.Model,
		Messages: conv.Messages,
		Key:      c.state.APIKey(),
		Prompt:   conv.Prompt,
	}

	// The title rides along on the streamed snapshots: if the request
	// fails nothing beyond the pre-title commit above is observable.
	if firstExchange {
		conv.Name = util.Ellipsize(content, titleRunes)
	}

	ctx = c.stop.Arm(ctx)
	final, err := c.acc.Run(ctx, conv, req, func(snapshot model.Conversation) {
		c.state.SetLoading(false)
		c.store.CommitPartial(snapshot)
		if c.OnSnapshot != nil {
			c.OnSnapshot(snapshot)
		}
	})
	if err != nil {
		c.state.SetMessageError(true)
		c.clearFlags()
		return err
	}

	err = c.store.Commit(final)
	c.clearFlags()
	return err
}

// EditAndResend truncates the selected conversation to the first index
// messages, then sends content as a fresh user message through the same
// pipeline. The truncation commits on its own: if the resend fails, it is
// not reverted.
func (c *Controller) EditAndResend(ctx context.Context, index int, content string) error {
	if err := c.store.TruncateMessages(c.state.Selected().ID, index); err != nil {
		return err
	}
	return c.Send(ctx, content, 0)
}

// StopGenerating cancels the in-flight stream, if any. The partial reply
// accumulated so far is kept and committed.
func (c *Controller) StopGenerating() {
	c.stop.Stop()
}

// FetchModels refreshes the model catalog from the remote endpoint. A
// failure sets the model-error flag but never blocks conversation use.
func (c *Controller) FetchModels(ctx context.Context) error {
	descriptors, err := c.acc.client.Models(ctx, c.state.APIKey())
	if err != nil {
		c.state.SetModelError(true)
		return err
	}
	c.state.SetModels(descriptors)
	c.state.SetModelError(false)
	return nil
}

func (c *Controller) clearFlags() {
	c.state.SetLoading(false)
	c.state.SetMessageStreaming(false)
}
