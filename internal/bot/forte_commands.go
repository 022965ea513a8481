package bot

import (
	"context"
	"regexp"
	"strconv"

	apperrors "lara-bot/internal/common/errors"
	"lara-bot/internal/common/logger"
	"lara-bot/internal/common/validation"
	"lara-bot/internal/features/audit"
	"lara-bot/internal/features/item"
	"lara-bot/internal/platform/forte"
)

const (
	msgAdminOnly   = "⚠️ 관리자만 사용할 수 있는 명령어입니다."
	msgUnknownUser = "존재하지 않는 사용자 정보입니다."
)

// discordIDPattern matches a raw 18-digit snowflake or a user mention.
var discordIDPattern = regexp.MustCompile(`^(?:<@!?)?(\d{18})>?$`)

// ForteCommands are the admin commands operating on Forte accounts.
type ForteCommands struct {
	*Deps
	excluded func(string) bool
}

func NewForteCommands(d *Deps) *ForteCommands {
	return &ForteCommands{Deps: d, excluded: item.ExcludedSet(d.Config.Refund.ExcludedItemIDs)}
}

func (h *ForteCommands) Group() (*Group, error) {
	check := All(GuildOnly(msgAdminOnly), HasRole(h.Config.Roles.Admin, msgAdminOnly))
	return NewGroup("forte", []string{"포르테", "ㅍ"}, "포르테 API 관련 명령어가 모아져 있습니다.", check,
		&simpleCommand{name: "user", aliases: []string{"사용자"}, brief: "포르테 이용자 정보를 확인합니다.", run: h.user},
		&simpleCommand{name: "deposit", aliases: []string{"지급"}, brief: "포르테 이용자에게 포인트를 지급합니다.", run: h.deposit},
		&simpleCommand{name: "refund", aliases: []string{"환불"}, brief: "포르테 이용자의 아이템을 환불합니다.", run: h.refund},
		&simpleCommand{name: "token", aliases: []string{"토큰"}, brief: "클라이언트 토큰을 재발급합니다.", run: h.token},
	)
}

// ResolveUser converts a Discord mention/id or a Forte user id into a live
// account. Unlinked, unknown and deleted accounts are NotFound errors whose
// message is shown to the invoker.
func ResolveUser(ctx context.Context, backend ForteBackend, argument string) (*forte.User, error) {
	ref, err := validation.UserRef(argument)
	if err != nil {
		return nil, apperrors.NewNotFound(msgUnknownUser).WithDetail("argument", argument)
	}

	var user *forte.User
	if m := discordIDPattern.FindStringSubmatch(ref); m != nil {
		var linked bool
		user, linked, err = backend.GetDiscordUser(ctx, m[1])
		if err != nil {
			return nil, err
		}
		if !linked {
			return nil, apperrors.NewNotFound("FORTE에 가입하지 않은 디스코드 계정입니다.").WithDetail("discord_id", m[1])
		}
	} else {
		var found bool
		user, found, err = backend.GetUser(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, apperrors.NewNotFound(msgUnknownUser).WithDetail("user_id", ref)
		}
	}

	if user.Deleted() {
		return nil, apperrors.NewNotFound("탈퇴한 사용자입니다.").WithDetail("user_id", user.ID.String())
	}
	return user, nil
}

func (h *ForteCommands) user(inv *Invocation) error {
	if len(inv.Args) < 1 {
		return usage("포르테 사용자 <사용자>")
	}
	u, err := ResolveUser(inv.Ctx, h.Forte, inv.Args[0])
	if err != nil {
		return err
	}
	_, err = inv.Reply(Message{Embed: userEmbed(u)})
	return err
}

func (h *ForteCommands) deposit(inv *Invocation) error {
	if len(inv.Args) < 2 {
		return usage("포르테 지급 <사용자> <포인트>")
	}
	points, err := validation.Points(inv.Args[1])
	if err != nil {
		return usage("포르테 지급 <사용자> <포인트>")
	}
	u, err := ResolveUser(inv.Ctx, h.Forte, inv.Args[0])
	if err != nil {
		return err
	}

	embed := userEmbed(u)
	embed.Fields = append(embed.Fields, fieldInline("예상 포인트", strconv.FormatInt(u.Points+points, 10)))
	promptID, err := inv.Reply(Message{Content: "다음과 같이 포인트를 지급합니다.", Embed: embed})
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

	receiptID, err := h.Forte.CreditPoints(inv.Ctx, u.ID.String(), points)
	if apperrors.HasStatus(err, forte.StatusRejected) {
		appErr, _ := apperrors.AsAppError(err)
		logger.Info().Str("user_id", u.ID.String()).Int64("points", points).Str("actor_id", inv.Author.ID).
			Str("reason", appErr.Message).Msg("deposit rejected")
		return inv.Say("포인트 지급에 실패했습니다: %s", appErr.Message)
	}
	if err != nil {
		return err
	}

	h.Receipts.Record(inv.Ctx, audit.Receipt{
		ID: receiptID, UserID: u.ID.String(), Points: points, ActorID: inv.Author.ID, Reason: "deposit",
	})
	return inv.Say("포인트 지급에 성공했습니다! (영수증 ID: %s)", receiptID)
}

func (h *ForteCommands) refund(inv *Invocation) error {
	if len(inv.Args) < 1 {
		return usage("포르테 환불 <사용자>")
	}
	u, err := ResolveUser(inv.Ctx, h.Forte, inv.Args[0])
	if err != nil {
		return err
	}

	items, err := h.Forte.ListItems(inv.Ctx, u.ID.String())
	if err != nil {
		return err
	}
	eligible := item.FilterRefundable(items, h.excluded)
	if len(eligible) == 0 {
		return inv.Say("%s, 환불 가능한 아이템이 없습니다.", inv.Author.Mention())
	}

	ids := make(map[string]struct{}, len(eligible))
	for _, it := range eligible {
		ids[it.ID.String()] = struct{}{}
	}
	timeout := h.Config.Refund.ReplyTimeout
	if _, err := inv.Reply(Message{
		Content: inv.Author.Mention() + ", 환불할 아이템의 ID를 " + strconv.Itoa(int(timeout.Seconds())) + "초 안에 입력해주세요.",
		Embed:   refundListEmbed(eligible),
	}); err != nil {
		return err
	}

	reply, err := h.Prompter.AwaitReply(inv.Ctx, inv.ChannelID, inv.Author.ID, func(s string) bool {
		_, ok := ids[s]
		return ok
	}, timeout)
	if apperrors.IsTimeout(err) {
		return inv.Say("%s, 입력 시간이 초과되어 환불을 취소했습니다.", inv.Author.Mention())
	}
	if err != nil {
		return err
	}
	chosen, _ := item.Find(eligible, forte.ID(reply))

	return h.refundItem(inv, u, chosen)
}

// refundItem withdraws the item and credits its price back only once the
// backend shows the item as expired. Each write is attempted once.
func (h *ForteCommands) refundItem(inv *Invocation, u *forte.User, chosen forte.Item) error {
	log := logger.Info().Str("user_id", u.ID.String()).Str("item_id", chosen.ID.String()).Str("actor_id", inv.Author.ID)

	if err := h.Forte.DeleteItem(inv.Ctx, u.ID.String(), chosen.ID); err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.UserFacing() {
			return inv.Say("아이템 회수에 실패했습니다: %s", appErr.Message)
		}
		return err
	}

	after, err := h.Forte.ListItems(inv.Ctx, u.ID.String())
	if err != nil {
		logger.Warn().Err(err).Str("user_id", u.ID.String()).Str("item_id", chosen.ID.String()).Msg("refund verification failed")
		return inv.Say("%s, 아이템 회수 여부를 확인하지 못해 환불을 완료하지 못했습니다. 포인트는 지급되지 않았습니다.", inv.Author.Mention())
	}
	deleted, found := item.Find(after, chosen.ID)
	if !found || !bool(deleted.Expired) {
		logger.Warn().Str("user_id", u.ID.String()).Str("item_id", chosen.ID.String()).Bool("found", found).Msg("item not expired after delete")
		return inv.Say("%s, 아이템이 만료 처리되지 않아 환불을 완료하지 못했습니다. 포인트는 지급되지 않았습니다.", inv.Author.Mention())
	}

	receiptID, err := h.Forte.CreditPoints(inv.Ctx, u.ID.String(), chosen.Price)
	if err != nil {
		reason := msgRetryLater
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.UserFacing() {
			reason = appErr.Message
		}
		logger.Error().Err(err).Str("user_id", u.ID.String()).Str("item_id", chosen.ID.String()).
			Int64("points", chosen.Price).Msg("item withdrawn but refund credit failed")
		return inv.Say("%s, 아이템은 회수되었지만 포인트 지급에 실패했습니다: %s", inv.Author.Mention(), reason)
	}

	h.Receipts.Record(inv.Ctx, audit.Receipt{
		ID: receiptID, UserID: u.ID.String(), Points: chosen.Price, ActorID: inv.Author.ID, Reason: "refund:" + chosen.ID.String(),
	})
	log.Int64("points", chosen.Price).Str("receipt_id", receiptID.String()).Msg("refund success")
	_, err = inv.Reply(Message{Content: inv.Author.Mention(), Embed: refundSummaryEmbed(u, chosen, receiptID)})
	return err
}

func (h *ForteCommands) token(inv *Invocation) error {
	if len(inv.Args) < 1 {
		return usage("포르테 토큰 <클라이언트 ID>")
	}
	clientID, err := validation.ClientID(inv.Args[0])
	if err != nil {
		return usage("포르테 토큰 <클라이언트 ID>")
	}

	token, err := h.Forte.RefreshClientToken(inv.Ctx, clientID)
	if apperrors.HasStatus(err, forte.StatusRejected) {
		appErr, _ := apperrors.AsAppError(err)
		return inv.Say("토큰 재발급에 실패했습니다: %s", appErr.Message)
	}
	if err != nil {
		return err
	}
	logger.Info().Str("client_id", clientID).Str("actor_id", inv.Author.ID).Msg("client token refreshed")

	if err := h.Messenger.SendDirect(inv.Ctx, inv.Author.ID, Message{
		Content: "클라이언트 `" + clientID + "`의 새 토큰입니다.\n```" + token + "```",
	}); err != nil {
		logger.Warn().Err(err).Str("client_id", clientID).Str("actor_id", inv.Author.ID).Msg("failed to deliver refreshed token")
		return inv.Say("%s, 토큰은 재발급되었지만 DM을 보낼 수 없습니다. DM 설정을 확인해주세요.", inv.Author.Mention())
	}
	return inv.Say("%s, 클라이언트 `%s`의 토큰을 재발급했습니다. DM을 확인해주세요.", inv.Author.Mention(), clientID)
}
