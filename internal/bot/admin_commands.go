package bot

import (
	"fmt"
	"strings"
	"time"

	"lara-bot/internal/common/logger"
)

// AdminCommands are operator commands for the running bot.
type AdminCommands struct {
	*Deps
	now func() time.Time
}

func NewAdminCommands(d *Deps) *AdminCommands {
	return &AdminCommands{Deps: d, now: time.Now}
}

func (h *AdminCommands) Commands() []Command {
	check := Any(msgAdminOnly,
		IsOwner(h.Config.Discord.OwnerID, msgAdminOnly),
		HasRole(h.Config.Roles.Admin, msgAdminOnly),
	)
	return []Command{
		&simpleCommand{
			name: "reload", aliases: []string{"리로드"},
			brief: "상자 목록을 다시 불러옵니다.",
			check: check, run: h.reload,
		},
		&simpleCommand{
			name: "uptime", aliases: []string{"업타임"},
			brief: "봇이 실행된 시간을 확인합니다.",
			check: check, run: h.uptime,
		},
	}
}

func (h *AdminCommands) reload(inv *Invocation) error {
	target := "catalog"
	if len(inv.Args) > 0 {
		target = inv.Args[0]
	}
	switch target {
	case "catalog", "box", "상자":
	default:
		return usage("reload [catalog|상자]")
	}

	if err := h.Catalog.Reload(); err != nil {
		logger.Warn().Err(err).Str("actor_id", inv.Author.ID).Msg("catalog reload failed")
		return inv.Say("%s, 상자 목록을 불러오지 못했습니다. 기존 목록을 유지합니다.\n```%s```", inv.Author.Mention(), err)
	}
	c := h.Catalog.Current()
	logger.Info().Str("actor_id", inv.Author.ID).Int("boxes", len(c.Boxes())).Msg("catalog reloaded")
	return inv.Say("%s, 상자 목록을 다시 불러왔습니다. (상자 %d개)", inv.Author.Mention(), len(c.Boxes()))
}

func (h *AdminCommands) uptime(inv *Invocation) error {
	return inv.Say("%s, 실행 시간: **%s**", inv.Author.Mention(), formatUptime(h.now().Sub(h.StartedAt)))
}

// formatUptime renders d as "N일 N시간 N분 N초", omitting leading zero units.
func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days, hours, minutes, seconds := total/86400, total%86400/3600, total%3600/60, total%60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d일", days))
	}
	if days > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%d시간", hours))
	}
	if days > 0 || hours > 0 || minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d분", minutes))
	}
	parts = append(parts, fmt.Sprintf("%d초", seconds))
	return strings.Join(parts, " ")
}

// helpCommand lists every registered command with its aliases.
func helpCommand(r *Registry) Command {
	return &simpleCommand{
		name: "help", aliases: []string{"도움말", "도움"},
		brief: "명령어 목록을 확인합니다.",
		run: func(inv *Invocation) error {
			var b strings.Builder
			b.WriteString("**명령어 목록**")
			for _, c := range r.Commands() {
				names := append([]string{c.Name()}, c.Aliases()...)
				fmt.Fprintf(&b, "\n`%s` %s", strings.Join(names, "|"), c.Brief())
			}
			_, err := inv.Reply(Message{Content: b.String()})
			return err
		},
	}
}
