package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"

	apperrors "lara-bot/internal/common/errors"
	"lara-bot/internal/common/logger"
)

const (
	msgRetryLater     = "🔥 에러가 발생했습니다. 잠시 후 다시 시도해주세요."
	msgUnexpected     = "⚠️ 명령어를 처리하는 중 문제가 발생했습니다."
	msgUsage          = "사용법: `%s`"
	mentionPrefixFmt  = "<@%s> "
	mentionPrefixNick = "<@!%s> "
)

// Registry maps command names and aliases to commands. It is filled once at
// startup and read concurrently afterwards.
type Registry struct {
	prefixes  []string
	messenger Messenger
	commands  map[string]Command
	order     []Command
}

func NewRegistry(prefixes []string, messenger Messenger) *Registry {
	ps := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p != "" {
			ps = append(ps, p)
		}
	}
	// Longest first so "라라야 " wins over "라라".
	sort.SliceStable(ps, func(i, j int) bool { return len(ps[i]) > len(ps[j]) })
	return &Registry{
		prefixes:  ps,
		messenger: messenger,
		commands:  make(map[string]Command),
	}
}

// Register adds commands. A name or alias may be claimed only once.
func (r *Registry) Register(cmds ...Command) error {
	for _, c := range cmds {
		for _, n := range append([]string{c.Name()}, c.Aliases()...) {
			if _, dup := r.commands[n]; dup {
				return fmt.Errorf("command name %q registered twice", n)
			}
			r.commands[n] = c
		}
		r.order = append(r.order, c)
	}
	return nil
}

func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.commands[name]
	return c, ok
}

// Commands returns the registered commands in registration order.
func (r *Registry) Commands() []Command {
	out := make([]Command, len(r.order))
	copy(out, r.order)
	return out
}

// Parse strips a known prefix and splits the rest into a name and arguments.
func (r *Registry) Parse(content, selfID string) (name string, args []string, ok bool) {
	prefixes := r.prefixes
	if selfID != "" {
		prefixes = append([]string{fmt.Sprintf(mentionPrefixNick, selfID), fmt.Sprintf(mentionPrefixFmt, selfID)}, prefixes...)
	}
	for _, p := range prefixes {
		if !strings.HasPrefix(content, p) {
			continue
		}
		fields := strings.Fields(content[len(p):])
		if len(fields) == 0 {
			return "", nil, false
		}
		return fields[0], fields[1:], true
	}
	return "", nil, false
}

// Dispatch runs the command a message invokes, if any. It never panics and
// reports every failure to the invoker; the bot stays responsive afterwards.
func (r *Registry) Dispatch(ctx context.Context, msg IncomingMessage) {
	if msg.Author.Bot {
		return
	}
	name, args, ok := r.Parse(msg.Content, msg.SelfID)
	if !ok {
		return
	}
	cmd, ok := r.Lookup(name)
	if !ok {
		return
	}

	inv := &Invocation{
		Ctx:       ctx,
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		MessageID: msg.MessageID,
		Author:    msg.Author,
		Path:      []string{name},
		Args:      args,
		messenger: r.messenger,
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().
				Str("command", strings.Join(inv.Path, " ")).
				Str("user_id", inv.Author.ID).
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("command panicked")
			_ = inv.Say("%s", msgUnexpected)
		}
	}()

	err := cmd.Check(inv)
	if err == nil {
		err = cmd.Execute(inv)
	}
	r.handleError(inv, err)
}

// handleError is the handler boundary for errors a command did not handle itself.
func (r *Registry) handleError(inv *Invocation, err error) {
	if err == nil {
		return
	}
	command := strings.Join(inv.Path, " ")

	var uerr *usageError
	if errors.As(err, &uerr) {
		_ = inv.Say(msgUsage, uerr.usage)
		return
	}
	if errors.Is(err, context.Canceled) {
		logger.Debug().Str("command", command).Msg("command cancelled")
		return
	}

	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		logger.Error().Err(err).Str("command", command).Str("user_id", inv.Author.ID).Msg("command failed")
		_ = inv.Say("%s", msgUnexpected)
		return
	}

	switch {
	case appErr.Code == apperrors.ErrCodeCheckFailure:
		logger.Debug().Str("command", command).Str("user_id", inv.Author.ID).Msg("command check failed")
		_ = inv.Say("%s", appErr.Message)
	case appErr.Code == apperrors.ErrCodeTimeout:
		logger.Info().Str("command", command).Str("user_id", inv.Author.ID).Msg("command abandoned after timeout")
	case appErr.Code == apperrors.ErrCodeTransport:
		logger.Warn().Err(appErr).Str("command", command).Str("user_id", inv.Author.ID).Msg("backend unreachable")
		_ = inv.Say("%s, %s", inv.Author.Mention(), msgRetryLater)
	case appErr.UserFacing():
		logger.Level(appErr.Level).Str("command", command).Str("user_id", inv.Author.ID).
			Str("status", appErr.Status).Msg("command rejected")
		_ = inv.Say("%s, %s", inv.Author.Mention(), appErr.Message)
	default:
		logger.Error().Err(appErr).Strs("stack", appErr.WithStack().Stack).
			Str("command", command).Str("user_id", inv.Author.ID).Msg("command failed")
		_ = inv.Say("%s", msgUnexpected)
	}
}
