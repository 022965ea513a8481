package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lara-bot/internal/common/config"
	attendance "lara-bot/internal/features/attendance/service"
	"lara-bot/internal/features/audit"
	"lara-bot/internal/features/catalog"
	"lara-bot/internal/features/interaction"
	"lara-bot/internal/platform/forte"
)

const (
	testGuild      = "g1"
	testChannel    = "c1"
	testAdminRole  = "r-admin"
	testPremium    = "r-premium"
	testSubscriber = "r-sub"
	testOwner      = "999999999999999999"
)

var (
	member = Author{ID: "123456789012345678", Username: "alice"}
	admin  = Author{ID: "234567890123456789", Username: "bob", Roles: []string{testAdminRole}}
)

// record is one message the bot sent or edited.
type record struct {
	ChannelID string
	MessageID string
	Msg       Message
}

// fakeMessenger records everything the bot does. Prompts are answered from
// a queue: when the final choice (❌) is added to a message, the next queued
// emoji is played back as a reaction by the answering user.
type fakeMessenger struct {
	coord *interaction.Coordinator

	mu          sync.Mutex
	seq         int
	sent        []record
	edits       []record
	dms         map[string][]Message
	reactions   map[string][]string
	answers     []string
	answerer    string
	roleAdds    []string
	roleRemoves []string
	dmErr       error
}

func newFakeMessenger(coord *interaction.Coordinator) *fakeMessenger {
	return &fakeMessenger{
		coord:     coord,
		dms:       make(map[string][]Message),
		reactions: make(map[string][]string),
	}
}

// answer queues prompt answers given by user, one per prompt.
func (f *fakeMessenger) answer(user Author, emojis ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answerer = user.ID
	f.answers = append(f.answers, emojis...)
}

func (f *fakeMessenger) Send(_ context.Context, channelID string, msg Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("msg-%d", f.seq)
	f.sent = append(f.sent, record{ChannelID: channelID, MessageID: id, Msg: msg})
	return id, nil
}

func (f *fakeMessenger) Edit(_ context.Context, channelID, messageID string, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, record{ChannelID: channelID, MessageID: messageID, Msg: msg})
	return nil
}

func (f *fakeMessenger) SendDirect(_ context.Context, userID string, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dmErr != nil {
		return f.dmErr
	}
	f.dms[userID] = append(f.dms[userID], msg)
	return nil
}

func (f *fakeMessenger) React(_ context.Context, channelID, messageID, emoji string) error {
	f.mu.Lock()
	f.reactions[messageID] = append(f.reactions[messageID], emoji)
	var next string
	if emoji == interaction.EmojiCancel && len(f.answers) > 0 {
		next, f.answers = f.answers[0], f.answers[1:]
	}
	user := f.answerer
	f.mu.Unlock()

	if next != "" {
		f.coord.Dispatch(interaction.Event{
			Kind:      interaction.ReactionAdded,
			ChannelID: channelID,
			MessageID: messageID,
			UserID:    user,
			Emoji:     next,
		})
	}
	return nil
}

func (f *fakeMessenger) AddRole(_ context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleAdds = append(f.roleAdds, guildID+"/"+userID+"/"+roleID)
	return nil
}

func (f *fakeMessenger) RemoveRole(_ context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleRemoves = append(f.roleRemoves, guildID+"/"+userID+"/"+roleID)
	return nil
}

func (f *fakeMessenger) sentMessages() []record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]record(nil), f.sent...)
}

func (f *fakeMessenger) editedMessages() []record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]record(nil), f.edits...)
}

// lastText is the content of the last message sent.
func (f *fakeMessenger) lastText() string {
	sent := f.sentMessages()
	if len(sent) == 0 {
		return ""
	}
	return sent[len(sent)-1].Msg.Content
}

// lastEdit is the latest content of messageID.
func (f *fakeMessenger) lastEdit(messageID string) string {
	edits := f.editedMessages()
	for i := len(edits) - 1; i >= 0; i-- {
		if edits[i].MessageID == messageID {
			return edits[i].Msg.Content
		}
	}
	return ""
}

// forteStub is a scripted Forte backend counting calls per route pattern.
type forteStub struct {
	srv *httptest.Server
	mux *http.ServeMux

	mu      sync.Mutex
	calls   map[string]int
	queries map[string]string
}

func newForteStub(t *testing.T) *forteStub {
	t.Helper()
	s := &forteStub{mux: http.NewServeMux(), calls: make(map[string]int), queries: make(map[string]string)}
	s.srv = httptest.NewServer(s.mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *forteStub) handleFunc(pattern string, fn http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[pattern]++
		s.queries[pattern] = r.URL.RawQuery
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fn(w, r)
	})
}

func (s *forteStub) handle(pattern string, status int, body string) {
	s.handleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

// lastQuery is the raw query string of the latest call to pattern.
func (s *forteStub) lastQuery(pattern string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[pattern]
}

func (s *forteStub) count(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[pattern]
}

type fakeRecorder struct {
	mu       sync.Mutex
	receipts []audit.Receipt
}

func (r *fakeRecorder) Record(_ context.Context, rc audit.Receipt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts = append(r.receipts, rc)
}

func (r *fakeRecorder) all() []audit.Receipt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Receipt(nil), r.receipts...)
}

type harness struct {
	t        *testing.T
	cfg      *config.Config
	stub     *forteStub
	coord    *interaction.Coordinator
	msgr     *fakeMessenger
	receipts *fakeRecorder
	boxes    *catalog.Store
	attend   attendance.AttendanceService
	registry *Registry
}

type harnessOption func(*harness)

func withCatalogPath(path string) harnessOption {
	return func(h *harness) {
		s, err := catalog.NewStore(path)
		require.NoError(h.t, err)
		h.boxes = s
	}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	cfg := &config.Config{}
	cfg.Discord.Prefixes = []string{"라라 ", "라라야 "}
	cfg.Discord.OwnerID = testOwner
	cfg.Discord.GuildWhitelist = []string{testGuild}
	cfg.Roles.Admin = testAdminRole
	cfg.Roles.Premium = testPremium
	cfg.Roles.Subscriber = testSubscriber
	cfg.Refund.ExcludedItemIDs = []string{"excluded"}
	cfg.Refund.ReplyTimeout = time.Second
	cfg.Interaction.Timeout = 100 * time.Millisecond

	h := &harness{t: t, cfg: cfg, stub: newForteStub(t), coord: interaction.NewCoordinator(), receipts: &fakeRecorder{}}
	h.msgr = newFakeMessenger(h.coord)
	for _, opt := range opts {
		opt(h)
	}
	if h.boxes == nil {
		withCatalogPath(filepath.Join("..", "..", "resources", "box.json"))(h)
	}

	client := forte.NewClient(forte.Options{BaseURL: h.stub.srv.URL, Token: "test", Timeout: time.Second})
	h.attend = attendance.NewAttendanceService(client, h.boxes)
	registry, err := NewRegistryFromDeps(&Deps{
		Config:     cfg,
		Messenger:  h.msgr,
		Prompter:   interaction.NewPrompter(h.coord, h.msgr, cfg.Interaction.Timeout),
		Forte:      client,
		Attendance: h.attend,
		Catalog:    h.boxes,
		Receipts:   h.receipts,
		StartedAt:  time.Now(),
	})
	require.NoError(t, err)
	h.registry = registry
	return h
}

// run dispatches content as author in the whitelisted guild and waits for the
// command to finish.
func (h *harness) run(author Author, content string) {
	h.runIn(testGuild, author, content)
}

func (h *harness) runIn(guildID string, author Author, content string) {
	h.registry.Dispatch(context.Background(), IncomingMessage{
		GuildID:   guildID,
		ChannelID: testChannel,
		MessageID: "in-1",
		Author:    author,
		Content:   content,
	})
}

// replyWhenAsked types content as author once a free-text prompt is pending.
func (h *harness) replyWhenAsked(author Author, content string) {
	go func() {
		deadline := time.Now().Add(time.Second)
		for h.coord.Len() == 0 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		h.coord.Dispatch(interaction.Event{
			Kind:      interaction.MessageCreated,
			ChannelID: testChannel,
			UserID:    author.ID,
			Content:   content,
		})
	}()
}

func withRoles(a Author, roles ...string) Author {
	a.Roles = append(append([]string(nil), a.Roles...), roles...)
	return a
}

func contains(records []record, substr string) bool {
	for _, r := range records {
		if strings.Contains(r.Msg.Content, substr) {
			return true
		}
	}
	return false
}

var errDMClosed = errors.New("cannot send messages to this user")
