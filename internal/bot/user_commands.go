package bot

import (
	"fmt"

	apperrors "lara-bot/internal/common/errors"
	"lara-bot/internal/common/logger"
	"lara-bot/internal/features/interaction"
)

const (
	msgGuildOnly = "⚠️ **팀 크레센도 디스코드**에서만 사용 가능한 명령어입니다."

	msgNotLinked = `%s, ⚠️ 팀 크레센도 FORTE에 가입하지 않은 계정입니다.
출석체크 보상으로 POINT를 지급받기 위해선 FORTE 가입이 필요합니다.
하단의 링크에서 Discord 계정 연동을 통해 가입해주세요.
> https://forte.team-crescendo.me/login/discord`

	msgAttended = `%s, ⚡ **출석 체크 완료!**

%s

모은 열쇠로 상자를 열면 POINT를 받을 수 있습니다. (` + "`라라야 상자`" + ` 입력)

※ ` + "`💎Premium`" + ` 역할을 갖고 있으면 상자를 열 때 필요한 열쇠가 줄어듭니다.`

	msgNoKeys = "%s, 상자를 열 수 있는 열쇠가 없습니다.\n`라라야 출석` 명령어로 매일 열쇠를 하나씩 얻을 수 있습니다."
)

// UserCommands are the member-facing commands, allowed in whitelisted guilds only.
type UserCommands struct {
	*Deps
}

func NewUserCommands(d *Deps) *UserCommands {
	return &UserCommands{Deps: d}
}

func (h *UserCommands) Commands() []Command {
	check := GuildAllowed(h.Config.Discord.GuildWhitelist, msgGuildOnly)
	return []Command{
		&simpleCommand{
			name: "출석", aliases: []string{"출석체크", "출첵", "ㅊ", "attend"},
			brief: "팀 크레센도 디스코드 서버에 출석하고 열쇠를 얻습니다.",
			check: check, run: h.attend,
		},
		&simpleCommand{
			name: "상자", aliases: []string{"box"},
			brief: "열쇠를 사용하여 상자를 열고 확률적으로 포인트를 받습니다.",
			check: check, run: h.openBox,
		},
		&simpleCommand{
			name: "구독", aliases: []string{"subscribe"},
			brief: "전용 구독자 역할을 지급받거나 반환합니다.",
			check: check, run: h.subscribe,
		},
	}
}

func (h *UserCommands) isPremium(inv *Invocation) bool {
	return inv.Author.HasRole(h.Config.Roles.Premium)
}

func (h *UserCommands) attend(inv *Invocation) error {
	user, linked, err := h.Forte.GetDiscordUser(inv.Ctx, inv.Author.ID)
	if err != nil {
		return err
	}
	if !linked {
		return inv.Say(msgNotLinked, inv.Author.Mention())
	}
	if user.Deleted() {
		return inv.Say("%s, 탈퇴한 사용자입니다.", inv.Author.Mention())
	}

	keyCount, err := h.Attendance.PostAttendance(inv.Ctx, inv.Author.ID)
	if err != nil {
		appErr, ok := apperrors.AsAppError(err)
		if !ok || appErr.Code != apperrors.ErrCodeDomain {
			return err
		}
		logger.Level(appErr.Level).Str("user_id", inv.Author.ID).Str("status", appErr.Status).Msg("attend failure")
		return inv.Say("%s, %s", inv.Author.Mention(), appErr.Message)
	}

	logger.Info().Str("user_id", inv.Author.ID).Int("key_count", keyCount).Msg("attend success")
	return inv.Say(msgAttended, inv.Author.Mention(), progress(keyCount))
}

func (h *UserCommands) openBox(inv *Invocation) error {
	keyCount, err := h.Attendance.GetKeyCount(inv.Ctx, inv.Author.ID)
	if err != nil {
		return err
	}
	if keyCount == 0 {
		return inv.Say(msgNoKeys, inv.Author.Mention())
	}

	boxes := h.Catalog.Current()
	premium := h.isPremium(inv)

	selectID, err := inv.Reply(Message{Content: inv.Author.Mention(), Embed: boxSelectEmbed(boxes, premium)})
	if err != nil {
		return err
	}
	choices := append(boxes.Emojis(), interaction.EmojiCancel)
	emoji, err := h.Prompter.SelectOne(inv.Ctx, inv.Target(selectID), choices)
	if apperrors.IsTimeout(err) {
		return nil
	}
	if err != nil {
		return err
	}
	box, ok := boxes.ByEmoji(emoji)
	if !ok {
		return nil
	}

	promptID, err := inv.Reply(Message{Content: inv.Author.Mention(), Embed: boxOpenEmbed(box, premium, keyCount)})
	if err != nil {
		return err
	}
	confirmed, err := h.Prompter.Confirm(inv.Ctx, inv.Target(promptID))
	if err != nil {
		return err
	}
	if !confirmed {
		return inv.Say("%s 취소되었습니다.", inv.Author.Mention())
	}

	if err := inv.Edit(promptID, Message{Content: fmt.Sprintf("%s, **%s**를 여는 중...", inv.Author.Mention(), box.Name)}); err != nil {
		return err
	}

	// Every outcome below replaces the in-progress text.
	point, remaining, err := h.Attendance.UnpackBox(inv.Ctx, inv.Author.ID, box.Type, premium)
	if err != nil {
		text := msgRetryLater
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.UserFacing() {
			text = appErr.Message
			logger.Level(appErr.Level).Str("user_id", inv.Author.ID).Str("box", box.Type).Str("status", appErr.Status).Msg("unpack failure")
		} else {
			logger.Warn().Err(err).Str("user_id", inv.Author.ID).Str("box", box.Type).Msg("unpack failure")
		}
		return inv.Edit(promptID, Message{Content: inv.Author.Mention() + ", " + text})
	}

	logger.Info().Str("user_id", inv.Author.ID).Str("box", box.Type).
		Int("point", point).Int("key_count", remaining).Msg("unpack success")
	return inv.Edit(promptID, Message{
		Content: fmt.Sprintf("%s, 상자를 열어 **%dP**를 얻었습니다! (남은 열쇠: **%d개**)", inv.Author.Mention(), point, remaining),
	})
}

func (h *UserCommands) subscribe(inv *Invocation) error {
	role := h.Config.Roles.Subscriber
	if role == "" {
		return inv.Say("⚠️ 구독자 역할을 찾을 수 없습니다.")
	}

	if inv.Author.HasRole(role) {
		if err := h.Messenger.RemoveRole(inv.Ctx, inv.GuildID, inv.Author.ID, role); err != nil {
			return err
		}
		logger.Info().Str("user_id", inv.Author.ID).Msg("subscriber role revoked")
		return inv.Say("%s, 구독자 역할을 회수했습니다.", inv.Author.Mention())
	}

	if err := h.Messenger.AddRole(inv.Ctx, inv.GuildID, inv.Author.ID, role); err != nil {
		return err
	}
	logger.Info().Str("user_id", inv.Author.ID).Msg("subscriber role granted")
	return inv.Say("%s, 구독자 역할을 지급했습니다.", inv.Author.Mention())
}
