package bot

import (
	"context"
	"fmt"
	"strings"

	apperrors "lara-bot/internal/common/errors"
	"lara-bot/internal/features/interaction"
)

// Invocation is one parsed command call.
type Invocation struct {
	Ctx       context.Context
	GuildID   string
	ChannelID string
	MessageID string
	Author    Author
	// Path is the chain of names the invoker typed, e.g. ["포르테", "지급"].
	Path []string
	Args []string

	messenger Messenger
}

// Reply sends msg to the invocation channel.
func (inv *Invocation) Reply(msg Message) (string, error) {
	return inv.messenger.Send(inv.Ctx, inv.ChannelID, msg)
}

// Say sends a plain text reply.
func (inv *Invocation) Say(format string, args ...any) error {
	_, err := inv.Reply(Message{Content: fmt.Sprintf(format, args...)})
	return err
}

// Edit rewrites a message the bot sent in the invocation channel.
func (inv *Invocation) Edit(messageID string, msg Message) error {
	return inv.messenger.Edit(inv.Ctx, inv.ChannelID, messageID, msg)
}

// Target addresses a prompt only the invoker may answer.
func (inv *Invocation) Target(messageID string) interaction.Target {
	return interaction.Target{ChannelID: inv.ChannelID, MessageID: messageID, UserID: inv.Author.ID}
}

// Command is one dispatchable handler.
type Command interface {
	Name() string
	Aliases() []string
	Brief() string
	Check(inv *Invocation) error
	Execute(inv *Invocation) error
}

// Check is a permission predicate; it returns a CheckFailure to deny.
type Check func(inv *Invocation) error

// All passes when every check passes, evaluated in order.
func All(checks ...Check) Check {
	return func(inv *Invocation) error {
		for _, c := range checks {
			if c == nil {
				continue
			}
			if err := c(inv); err != nil {
				return err
			}
		}
		return nil
	}
}

// Any passes when at least one check passes; denied is reported otherwise.
func Any(denied string, checks ...Check) Check {
	return func(inv *Invocation) error {
		for _, c := range checks {
			if c != nil && c(inv) == nil {
				return nil
			}
		}
		return apperrors.NewCheckFailure(denied)
	}
}

// GuildOnly denies direct messages.
func GuildOnly(denied string) Check {
	return func(inv *Invocation) error {
		if inv.GuildID == "" {
			return apperrors.NewCheckFailure(denied)
		}
		return nil
	}
}

// GuildAllowed denies guilds outside the whitelist.
func GuildAllowed(whitelist []string, denied string) Check {
	allowed := make(map[string]struct{}, len(whitelist))
	for _, g := range whitelist {
		if g = strings.TrimSpace(g); g != "" {
			allowed[g] = struct{}{}
		}
	}
	return func(inv *Invocation) error {
		if _, ok := allowed[inv.GuildID]; !ok || inv.GuildID == "" {
			return apperrors.NewCheckFailure(denied)
		}
		return nil
	}
}

// HasRole requires the invoker to hold roleID.
func HasRole(roleID, denied string) Check {
	return func(inv *Invocation) error {
		if !inv.Author.HasRole(roleID) {
			return apperrors.NewCheckFailure(denied)
		}
		return nil
	}
}

// IsOwner requires the invoker to be the bot owner.
func IsOwner(ownerID, denied string) Check {
	return func(inv *Invocation) error {
		if ownerID == "" || inv.Author.ID != ownerID {
			return apperrors.NewCheckFailure(denied)
		}
		return nil
	}
}

// simpleCommand adapts a function into a Command.
type simpleCommand struct {
	name    string
	aliases []string
	brief   string
	check   Check
	run     func(inv *Invocation) error
}

func (c *simpleCommand) Name() string      { return c.name }
func (c *simpleCommand) Aliases() []string { return c.aliases }
func (c *simpleCommand) Brief() string     { return c.brief }

func (c *simpleCommand) Check(inv *Invocation) error {
	if c.check == nil {
		return nil
	}
	return c.check(inv)
}

func (c *simpleCommand) Execute(inv *Invocation) error { return c.run(inv) }

// Group dispatches its first argument to a subcommand. The group check runs
// before the subcommand's own check.
type Group struct {
	simpleCommand
	subs  map[string]Command
	order []Command
}

func NewGroup(name string, aliases []string, brief string, check Check, subs ...Command) (*Group, error) {
	g := &Group{
		simpleCommand: simpleCommand{name: name, aliases: aliases, brief: brief, check: check},
		subs:          make(map[string]Command),
	}
	for _, s := range subs {
		for _, n := range append([]string{s.Name()}, s.Aliases()...) {
			if _, dup := g.subs[n]; dup {
				return nil, fmt.Errorf("group %s: duplicate subcommand name %q", name, n)
			}
			g.subs[n] = s
		}
		g.order = append(g.order, s)
	}
	return g, nil
}

func (g *Group) Execute(inv *Invocation) error {
	if len(inv.Args) == 0 {
		return inv.Say("%s", g.usage())
	}
	sub, ok := g.subs[inv.Args[0]]
	if !ok {
		return inv.Say("알 수 없는 하위 명령어입니다: `%s`\n%s", inv.Args[0], g.usage())
	}
	inv.Path = append(inv.Path, inv.Args[0])
	inv.Args = inv.Args[1:]
	if err := sub.Check(inv); err != nil {
		return err
	}
	return sub.Execute(inv)
}

func (g *Group) usage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** 하위 명령어:", g.name)
	for _, s := range g.order {
		fmt.Fprintf(&b, "\n`%s` %s", strings.Join(append([]string{s.Name()}, s.Aliases()...), "|"), s.Brief())
	}
	return b.String()
}

// usageError is a malformed invocation; the boundary shows the usage text.
type usageError struct {
	usage string
}

func (e *usageError) Error() string { return "usage: " + e.usage }

func usage(format string, args ...any) error {
	return &usageError{usage: fmt.Sprintf(format, args...)}
}
