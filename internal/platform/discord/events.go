package discord

import (
	"github.com/bwmarrin/discordgo"

	"lara-bot/internal/bot"
	"lara-bot/internal/features/interaction"
)

// incomingMessage converts a gateway message. Messages without an author
// (system messages) are dropped.
func incomingMessage(m *discordgo.MessageCreate, self string) (bot.IncomingMessage, bool) {
	if m == nil || m.Message == nil || m.Author == nil {
		return bot.IncomingMessage{}, false
	}
	author := bot.Author{ID: m.Author.ID, Username: m.Author.Username, Bot: m.Author.Bot}
	if m.Member != nil {
		author.Roles = m.Member.Roles
	}
	return bot.IncomingMessage{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		Author:    author,
		Content:   m.Content,
		SelfID:    self,
	}, true
}

func reactionEvent(r *discordgo.MessageReactionAdd) (interaction.Event, bool) {
	if r == nil || r.MessageReaction == nil {
		return interaction.Event{}, false
	}
	return interaction.Event{
		Kind:      interaction.ReactionAdded,
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     r.Emoji.Name,
	}, true
}
