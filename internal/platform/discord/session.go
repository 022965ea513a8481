package discord

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"lara-bot/internal/bot"
	"lara-bot/internal/common/logger"
	"lara-bot/internal/features/interaction"
)

const intents = discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// Dispatcher runs the command a message invokes.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg bot.IncomingMessage)
}

// Session is the gateway connection. It implements bot.Messenger and feeds
// gateway events to the interaction coordinator and the command dispatcher.
type Session struct {
	dg        *discordgo.Session
	coord     *interaction.Coordinator
	connected atomic.Bool
	log       zerolog.Logger
}

func New(token string, coord *interaction.Coordinator) (*Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	dg.Identify.Intents = intents
	return &Session{dg: dg, coord: coord, log: logger.Component("discord")}, nil
}

// Start registers the event handlers and opens the gateway. Handlers run on
// their own goroutines and use ctx, so cancelling it aborts pending prompts.
func (s *Session) Start(ctx context.Context, d Dispatcher) error {
	s.dg.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		s.connected.Store(true)
		s.log.Info().Str("user", r.User.Username).Str("user_id", r.User.ID).Int("guilds", len(r.Guilds)).Msg("discord ready")
	})
	s.dg.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
		s.connected.Store(true)
		s.log.Info().Msg("discord session resumed")
	})
	s.dg.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		s.connected.Store(false)
		s.log.Warn().Msg("discord session disconnected")
	})
	s.dg.AddHandler(func(dg *discordgo.Session, m *discordgo.MessageCreate) {
		msg, ok := incomingMessage(m, selfID(dg))
		if !ok {
			return
		}
		s.coord.Dispatch(interaction.Event{
			Kind:      interaction.MessageCreated,
			ChannelID: msg.ChannelID,
			MessageID: msg.MessageID,
			UserID:    msg.Author.ID,
			Content:   msg.Content,
		})
		d.Dispatch(ctx, msg)
	})
	s.dg.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if ev, ok := reactionEvent(r); ok {
			s.coord.Dispatch(ev)
		}
	})

	if err := s.dg.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

func (s *Session) Close() error {
	s.connected.Store(false)
	return s.dg.Close()
}

// Connected reports whether the gateway is ready.
func (s *Session) Connected() bool {
	return s.connected.Load()
}

func (s *Session) Send(ctx context.Context, channelID string, msg bot.Message) (string, error) {
	send := &discordgo.MessageSend{Content: msg.Content}
	if msg.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{msg.Embed}
	}
	m, err := s.dg.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send message to %s: %w", channelID, err)
	}
	return m.ID, nil
}

func (s *Session) Edit(ctx context.Context, channelID, messageID string, msg bot.Message) error {
	edit := discordgo.NewMessageEdit(channelID, messageID).SetContent(msg.Content)
	if msg.Embed != nil {
		edit.SetEmbeds([]*discordgo.MessageEmbed{msg.Embed})
	} else {
		edit.SetEmbeds([]*discordgo.MessageEmbed{})
	}
	if _, err := s.dg.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit message %s: %w", messageID, err)
	}
	return nil
}

func (s *Session) SendDirect(ctx context.Context, userID string, msg bot.Message) error {
	ch, err := s.dg.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm channel with %s: %w", userID, err)
	}
	_, err = s.Send(ctx, ch.ID, msg)
	return err
}

func (s *Session) React(ctx context.Context, channelID, messageID, emoji string) error {
	if err := s.dg.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("add reaction %s to %s: %w", emoji, messageID, err)
	}
	return nil
}

func (s *Session) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := s.dg.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("add role %s to %s: %w", roleID, userID, err)
	}
	return nil
}

func (s *Session) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := s.dg.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("remove role %s from %s: %w", roleID, userID, err)
	}
	return nil
}

func selfID(dg *discordgo.Session) string {
	if dg.State == nil || dg.State.User == nil {
		return ""
	}
	return dg.State.User.ID
}
