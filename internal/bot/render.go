package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	attendance "lara-bot/internal/features/attendance/service"
	"lara-bot/internal/features/catalog"
	"lara-bot/internal/platform/forte"
)

const (
	markerKey   = "🔑"
	markerEmpty = "❔"
)

// progress renders n filled and MaxKeyCount-n empty markers.
func progress(n int) string {
	if n < 0 {
		n = 0
	}
	if n > attendance.MaxKeyCount {
		n = attendance.MaxKeyCount
	}
	return strings.Repeat(markerKey, n) + strings.Repeat(markerEmpty, attendance.MaxKeyCount-n)
}

// describeBox is the one-line summary used in the selection prompt.
func describeBox(b catalog.Box, premium bool) string {
	return fmt.Sprintf("%s **%s** (열쇠 %d개 필요, 최대 %dP)", b.Emoji, b.Name, b.KeyCost(premium), b.MaxPoint())
}

func boxSelectEmbed(c *catalog.Catalog, premium bool) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(c.Boxes()))
	for _, b := range c.Boxes() {
		lines = append(lines, describeBox(b, premium))
	}
	return &discordgo.MessageEmbed{
		Title:       "어떤 상자를 열어볼까요?",
		Description: strings.Join(lines, "\n"),
	}
}

// boxOpenEmbed shows cost and odds of one box at the invoker's tier.
func boxOpenEmbed(b catalog.Box, premium bool, keyCount int) *discordgo.MessageEmbed {
	var d strings.Builder
	fmt.Fprintf(&d, "열쇠 %d개 필요", b.Key)
	if b.KeyPremium != nil {
		fmt.Fprintf(&d, " (프리미엄: %d개 필요)", *b.KeyPremium)
	}

	d.WriteString("\n\n이 상자를 열면..\n")
	for i, p := range b.Probabilities {
		if i > 0 {
			d.WriteString("\n")
		}
		fmt.Fprintf(&d, "%.0f%%의 확률로 %dP 획득", 100*p.Prob, p.Point)
	}

	fmt.Fprintf(&d, "\n\n열쇠 %d개를 사용해서 **%s**를 열어볼까요?\n", b.KeyCost(premium), b.Name)
	fmt.Fprintf(&d, "(현재 열쇠 **%d개**를 가지고 있어요!)", keyCount)

	embed := &discordgo.MessageEmbed{Title: b.Name, Description: d.String()}
	if b.Image != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: b.Image}
	}
	return embed
}

func userEmbed(u *forte.User) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s (ID: %s)", u.Name, u.ID),
		Description: u.Email,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "가입 시각", Value: orDash(u.CreatedAt), Inline: true},
			{Name: "보유 포인트", Value: fmt.Sprint(u.Points), Inline: true},
		},
	}
}

func refundListEmbed(items []forte.Item) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("`%s` %s (%dP)", it.ID, it.Name(), it.Price))
	}
	return &discordgo.MessageEmbed{
		Title:       "환불 가능한 아이템",
		Description: strings.Join(lines, "\n"),
	}
}

func refundSummaryEmbed(u *forte.User, it forte.Item, receiptID forte.ID) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "환불 완료",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "사용자", Value: fmt.Sprintf("%s (ID: %s)", u.Name, u.ID)},
			{Name: "아이템", Value: fmt.Sprintf("%s (ID: %s)", it.Name(), it.ID)},
			{Name: "환불 포인트", Value: fmt.Sprintf("%dP", it.Price), Inline: true},
			{Name: "포인트", Value: fmt.Sprintf("%d → %d", u.Points, u.Points+it.Price), Inline: true},
			{Name: "영수증 ID", Value: receiptID.String(), Inline: true},
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func fieldInline(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true}
}
