package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"lara-bot/internal/features/interaction"
)

// Message is an outgoing chat message. A nil Embed on edit removes the embed.
type Message struct {
	Content string
	Embed   *discordgo.MessageEmbed
}

// Messenger is everything the handlers need from the chat platform.
type Messenger interface {
	interaction.Reactor
	Send(ctx context.Context, channelID string, msg Message) (messageID string, err error)
	Edit(ctx context.Context, channelID, messageID string, msg Message) error
	SendDirect(ctx context.Context, userID string, msg Message) error
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
}

// Author is the invoking member.
type Author struct {
	ID       string
	Username string
	Roles    []string
	Bot      bool
}

func (a Author) Mention() string { return "<@" + a.ID + ">" }

func (a Author) HasRole(roleID string) bool {
	if roleID == "" {
		return false
	}
	for _, r := range a.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// IncomingMessage is a message event as delivered by the platform adapter.
type IncomingMessage struct {
	GuildID   string
	ChannelID string
	MessageID string
	Author    Author
	Content   string
	// SelfID is the bot's own user id, used for mention prefixes.
	SelfID string
}
