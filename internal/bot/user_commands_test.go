package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lara-bot/internal/features/interaction"
)

const (
	routeDiscordUser = "GET /discords/{id}"
	routeGetAttend   = "GET /discords/{id}/attendances"
	routePostAttend  = "POST /discords/{id}/attendances"
	routeUnpack      = "POST /discords/{id}/attendances/unpack"
)

func TestAttend(t *testing.T) {
	h := newHarness(t)
	h.stub.handle(routeDiscordUser, http.StatusOK, `{"id":42,"name":"alice","points":50,"deleted_at":null}`)
	h.stub.handle(routePostAttend, http.StatusCreated, `{"key_count":3}`)

	h.run(member, "라라야 출석")

	text := h.msgr.lastText()
	assert.Contains(t, text, member.Mention()+", ⚡ **출석 체크 완료!**")
	assert.Contains(t, text, strings.Repeat("🔑", 3)+strings.Repeat("❔", 7))
	assert.Equal(t, 3, strings.Count(text, "🔑"))
	assert.Equal(t, 1, h.stub.count(routePostAttend))
}

func TestAttendUnlinkedUser(t *testing.T) {
	h := newHarness(t)
	h.stub.handle(routeDiscordUser, http.StatusOK, `[]`)
	h.stub.handle(routePostAttend, http.StatusCreated, `{"key_count":1}`)

	h.run(member, "라라 출첵")

	assert.Contains(t, h.msgr.lastText(), "FORTE에 가입하지 않은 계정입니다.")
	assert.Contains(t, h.msgr.lastText(), "https://forte.team-crescendo.me/login/discord")
	assert.Zero(t, h.stub.count(routePostAttend))
}

func TestAttendDeletedUser(t *testing.T) {
	h := newHarness(t)
	h.stub.handle(routeDiscordUser, http.StatusOK, `{"id":42,"deleted_at":"2024-01-01 00:00:00"}`)
	h.stub.handle(routePostAttend, http.StatusCreated, `{"key_count":1}`)

	h.run(member, "라라 출석")

	assert.Contains(t, h.msgr.lastText(), "탈퇴한 사용자입니다.")
	assert.Zero(t, h.stub.count(routePostAttend))
}

func TestAttendAlreadyAttended(t *testing.T) {
	h := newHarness(t)
	h.stub.handle(routeDiscordUser, http.StatusOK, `{"id":42}`)
	h.stub.handle(routePostAttend, http.StatusConflict, `{"status":"exist_attendance","diff":"5시간 2분"}`)

	h.run(member, "라라 출석")

	assert.Equal(t, member.Mention()+", 최근에 이미 출석체크 하셨습니다.\n`5시간 2분` 후 다시 시도해주세요.", h.msgr.lastText())
}

// attendanceLedger is a backend holding one user's key count: one check-in
// per cooldown window, capped at ten keys.
type attendanceLedger struct {
	mu       sync.Mutex
	keys     int
	attended bool
	broken   bool
}

func (l *attendanceLedger) install(s *forteStub) {
	s.handle(routeDiscordUser, http.StatusOK, `{"id":42}`)
	s.handleFunc(routeGetAttend, func(w http.ResponseWriter, _ *http.Request) {
		l.mu.Lock()
		defer l.mu.Unlock()
		fmt.Fprintf(w, `{"key_count":%d}`, l.keys)
	})
	s.handleFunc(routePostAttend, func(w http.ResponseWriter, _ *http.Request) {
		l.mu.Lock()
		defer l.mu.Unlock()
		switch {
		case l.broken:
			_, _ = w.Write([]byte(`{"error":true}`))
		case l.attended:
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"status":"exist_attendance","diff":"23시간 59분"}`))
		case l.keys >= 10:
			_, _ = w.Write([]byte(`{"status":"max_key_count"}`))
		default:
			l.keys++
			l.attended = true
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"key_count":%d}`, l.keys)
		}
	})
}

// nextDay ends the cooldown window.
func (l *attendanceLedger) nextDay() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attended = false
}

func TestAttendUntilKeyCap(t *testing.T) {
	h := newHarness(t)
	ledger := &attendanceLedger{keys: 8}
	ledger.install(h.stub)
	keys := func() int {
		n, err := h.attend.GetKeyCount(context.Background(), member.ID)
		require.NoError(t, err)
		return n
	}

	h.run(member, "라라 출석")
	assert.Contains(t, h.msgr.lastText(), strings.Repeat("🔑", 9)+"❔")

	h.run(member, "라라 출석")
	assert.Equal(t, member.Mention()+", 최근에 이미 출석체크 하셨습니다.\n`23시간 59분` 후 다시 시도해주세요.", h.msgr.lastText())
	assert.Equal(t, 9, keys())

	ledger.nextDay()
	h.run(member, "라라 출석")
	assert.Contains(t, h.msgr.lastText(), strings.Repeat("🔑", 10))
	assert.NotContains(t, h.msgr.lastText(), "❔")

	ledger.nextDay()
	h.run(member, "라라 출석")
	assert.Equal(t, member.Mention()+", 열쇠는 최대 10개까지 가질 수 있습니다.\n`라라야 상자` 명령어를 입력해 열쇠를 사용해주세요.", h.msgr.lastText())
	assert.Equal(t, 10, keys())
	assert.Equal(t, 4, h.stub.count(routePostAttend))
}

func TestAttendBackendDeclaresError(t *testing.T) {
	h := newHarness(t)
	ledger := &attendanceLedger{keys: 3, broken: true}
	ledger.install(h.stub)

	h.run(member, "라라 출석")

	assert.Equal(t, member.Mention()+", "+msgRetryLater, h.msgr.lastText())
}

func TestAttendOutsideWhitelistedGuild(t *testing.T) {
	h := newHarness(t)
	h.stub.handle(routeDiscordUser, http.StatusOK, `{"id":42}`)

	h.runIn("elsewhere", member, "라라 출석")
	assert.Equal(t, msgGuildOnly, h.msgr.lastText())

	h.runIn("", member, "라라 출석")
	assert.Equal(t, msgGuildOnly, h.msgr.lastText())
	assert.Zero(t, h.stub.count(routeDiscordUser))
}

func TestAttendBackendDown(t *testing.T) {
	h := newHarness(t)
	h.stub.srv.Close()

	h.run(member, "라라 출석")

	assert.Equal(t, member.Mention()+", "+msgRetryLater, h.msgr.lastText())
}

func TestOpenBox(t *testing.T) {
	h := newHarness(t)
	h.stub.handle(routeGetAttend, http.StatusOK, `{"key_count":5}`)
	h.stub.handle(routeUnpack, http.StatusOK, `{"point":30,"key_count":2}`)
	h.msgr.answer(member, "🥉", interaction.EmojiConfirm)

	h.run(member, "라라 상자")

	sent := h.msgr.sentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "어떤 상자를 열어볼까요?", sent[0].Msg.Embed.Title)
	assert.Equal(t, []string{"🥉", "🥈", "🥇", "❌"}, h.msgr.reactions[sent[0].MessageID])
	assert.Equal(t, "브론즈 상자", sent[1].Msg.Embed.Title)
	assert.Contains(t, sent[1].Msg.Embed.Description, "열쇠 3개를 사용해서 **브론즈 상자**를 열어볼까요?")
	assert.Contains(t, sent[1].Msg.Embed.Description, "(현재 열쇠 **5개**를 가지고 있어요!)")

	final := h.msgr.lastEdit(sent[1].MessageID)
	assert.Equal(t, member.Mention()+", 상자를 열어 **30P**를 얻었습니다! (남은 열쇠: **2개**)", final)
	assert.Equal(t, "box=bronze&isPremium=0", h.stub.lastQuery(routeUnpack))
	assert.Equal(t, 1, h.stub.count(routeUnpack))
}

func TestOpenBoxPremium(t *testing.T) {
	h := newHarness(t)
	h.stub.handle(routeGetAttend, http.StatusOK, `{"key_count":8}`)
	h.stub.handle(routeUnpack, http.StatusOK, `{"point":80,"key_count":0}`)
	premium := withRoles(member, testPremium)
	h.msgr.answer(premium, "🥇", interaction.EmojiConfirm)

	h.run(premium, "라라 상자")

	sent := h.msgr.sentMessages()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1].Msg.Embed.Description, "열쇠 8개를 사용해서 **골드 상자**를 열어볼까요?")
	assert.Equal(t, "box=gold&isPremium=1", h.stub.lastQuery(routeUnpack))
}

func TestOpenBoxNoKeys(t *testing.T) {
	h := newHarness(t)
	h.stub.handle(routeGetAttend, http.StatusOK, `[]`)

	h.run(member, "라라 상자")

	assert.Equal(t, member.Mention()+", 상자를 열 수 있는 열쇠가 없습니다.\n`라라야 출석` 명령어로 매일 열쇠를 하나씩 얻을 수 있습니다.", h.msgr.lastText())
	assert.Len(t, h.msgr.sentMessages(), 1)
}

func TestOpenBoxSelectionTimeout(t *testing.T) {
	h := newHarness(t)
	h.stub.handle(routeGetAttend, http.StatusOK, `{"key_count":5}`)
	h.stub.handle(routeUnpack, http.StatusOK, `{"point":30,"key_count":2}`)

	h.run(member, "라라 상자")

	assert.Len(t, h.msgr.sentMessages(), 1)
	assert.Zero(t, h.stub.count(routeUnpack))
	assert.Zero(t, h.coord.Len())
}

func TestOpenBoxSelectionCancelled(t *testing.T) {
	h := newHarness(t)
	h.stub.handle(routeGetAttend, http.StatusOK, `{"key_count":5}`)
	h.stub.handle(routeUnpack, http.StatusOK, `{"point":30,"key_count":2}`)
	h.msgr.answer(member, interaction.EmojiCancel)

	h.run(member, "라라 상자")

	assert.Len(t, h.msgr.sentMessages(), 1)
	assert.Zero(t, h.stub.count(routeUnpack))
}

func TestOpenBoxConfirmDeclined(t *testing.T) {
	for name, answers := range map[string][]string{
		"cancelled": {"🥈", interaction.EmojiCancel},
		"timed out": {"🥈"},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.stub.handle(routeGetAttend, http.StatusOK, `{"key_count":5}`)
			h.stub.handle(routeUnpack, http.StatusOK, `{"point":30,"key_count":0}`)
			h.msgr.answer(member, answers...)

			h.run(member, "라라 상자")

			assert.Equal(t, member.Mention()+" 취소되었습니다.", h.msgr.lastText())
			assert.Zero(t, h.stub.count(routeUnpack))
		})
	}
}

func TestOpenBoxIgnoresOtherUsers(t *testing.T) {
	h := newHarness(t)
	h.stub.handle(routeGetAttend, http.StatusOK, `{"key_count":5}`)
	h.stub.handle(routeUnpack, http.StatusOK, `{"point":30,"key_count":2}`)
	h.msgr.answer(admin, "🥉", interaction.EmojiConfirm)

	h.run(member, "라라 상자")

	assert.Len(t, h.msgr.sentMessages(), 1)
	assert.Zero(t, h.stub.count(routeUnpack))
}

func TestOpenBoxInsufficientKeys(t *testing.T) {
	h := newHarness(t)
	h.stub.handle(routeGetAttend, http.StatusOK, `{"key_count":1}`)
	h.stub.handle(routeUnpack, http.StatusBadRequest, `{"message":"not enough keys"}`)
	h.msgr.answer(member, "🥇", interaction.EmojiConfirm)

	h.run(member, "라라 상자")

	sent := h.msgr.sentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, member.Mention()+", 상자를 열기에 충분한 열쇠가 없습니다.", h.msgr.lastEdit(sent[1].MessageID))
}

func TestOpenBoxUnpackServerError(t *testing.T) {
	h := newHarness(t)
	h.stub.handle(routeGetAttend, http.StatusOK, `{"key_count":9}`)
	h.stub.handle(routeUnpack, http.StatusInternalServerError, `{}`)
	h.msgr.answer(member, "🥇", interaction.EmojiConfirm)

	h.run(member, "라라 상자")

	sent := h.msgr.sentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, member.Mention()+", "+msgRetryLater, h.msgr.lastEdit(sent[1].MessageID))
	assert.Equal(t, 1, h.stub.count(routeUnpack))
}

func TestSubscribe(t *testing.T) {
	h := newHarness(t)

	h.run(member, "라라 구독")
	assert.Equal(t, []string{testGuild + "/" + member.ID + "/" + testSubscriber}, h.msgr.roleAdds)
	assert.Contains(t, h.msgr.lastText(), "구독자 역할을 지급했습니다.")

	h.run(withRoles(member, testSubscriber), "라라 구독")
	assert.Equal(t, []string{testGuild + "/" + member.ID + "/" + testSubscriber}, h.msgr.roleRemoves)
	assert.Contains(t, h.msgr.lastText(), "구독자 역할을 회수했습니다.")
}

func TestProgress(t *testing.T) {
	assert.Equal(t, strings.Repeat("❔", 10), progress(0))
	assert.Equal(t, strings.Repeat("🔑", 10), progress(10))
	assert.Equal(t, strings.Repeat("🔑", 10), progress(12))
	assert.Equal(t, strings.Repeat("❔", 10), progress(-1))
}
