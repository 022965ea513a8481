package interaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "lara-bot/internal/common/errors"
)

const (
	EmojiConfirm = "⭕"
	EmojiCancel  = "❌"
)

// Reactor annotates a prompt message with a selectable reaction.
type Reactor interface {
	React(ctx context.Context, channelID, messageID, emoji string) error
}

// Target identifies the prompt message and the only user allowed to answer it.
type Target struct {
	ChannelID string
	MessageID string
	UserID    string
}

// Prompter implements the human-in-the-loop primitives on top of a Coordinator.
type Prompter struct {
	coord   *Coordinator
	reactor Reactor
	timeout time.Duration
}

func NewPrompter(coord *Coordinator, reactor Reactor, timeout time.Duration) *Prompter {
	return &Prompter{coord: coord, reactor: reactor, timeout: timeout}
}

// SelectOne offers choices as reactions on the prompt and returns the first
// one the invoker picks. Deadline expiry is a TimeoutError.
func (p *Prompter) SelectOne(ctx context.Context, t Target, choices []string) (string, error) {
	if len(choices) == 0 {
		return "", apperrors.NewInvalidArgument("choices", "at least one choice is required")
	}
	allowed := make(map[string]struct{}, len(choices))
	for _, c := range choices {
		if _, dup := allowed[c]; dup {
			return "", apperrors.NewInvalidArgument("choices", fmt.Sprintf("duplicate choice %s", c))
		}
		allowed[c] = struct{}{}
	}

	pending := p.coord.Expect(func(ev Event) bool {
		if ev.Kind != ReactionAdded || ev.MessageID != t.MessageID || ev.UserID != t.UserID {
			return false
		}
		_, ok := allowed[ev.Emoji]
		return ok
	})

	for _, c := range choices {
		if err := p.reactor.React(ctx, t.ChannelID, t.MessageID, c); err != nil {
			pending.Cancel()
			return "", fmt.Errorf("add reaction %s: %w", c, err)
		}
	}

	ev, err := pending.Await(ctx, p.timeout)
	if err != nil {
		return "", err
	}
	return ev.Emoji, nil
}

// Confirm asks for ⭕ or ❌. No answer before the deadline counts as ❌.
func (p *Prompter) Confirm(ctx context.Context, t Target) (bool, error) {
	emoji, err := p.SelectOne(ctx, t, []string{EmojiConfirm, EmojiCancel})
	if apperrors.IsTimeout(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return emoji == EmojiConfirm, nil
}

// AwaitReply waits for a free-text message by the invoker in the channel that
// accept approves. Other messages are ignored until the deadline.
func (p *Prompter) AwaitReply(ctx context.Context, channelID, userID string, accept func(string) bool, timeout time.Duration) (string, error) {
	pending := p.coord.Expect(func(ev Event) bool {
		if ev.Kind != MessageCreated || ev.ChannelID != channelID || ev.UserID != userID {
			return false
		}
		return accept(strings.TrimSpace(ev.Content))
	})
	ev, err := pending.Await(ctx, timeout)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(ev.Content), nil
}
