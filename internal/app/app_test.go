package app

import (
	gocontext "context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teleroute/teleroute"
	"github.com/teleroute/teleroute/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T, environ map[string]string) *config.Config {
	t.Helper()
	env := map[string]string{"TELEROUTE_BOT_TOKEN": "123:test-token"}
	for k, v := range environ {
		env[k] = v
	}
	cfg, err := config.LoadWithEnv("", env)
	require.NoError(t, err)
	return cfg
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []string
	sent     []tgbotapi.MessageConfig
	batches  [][]tgbotapi.Update
}

func (f *fakeAPI) GetUpdates(tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	f.mu.Lock()
	if len(f.batches) > 0 {
		b := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return b, nil
	}
	f.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	return nil, nil
}

func (f *fakeAPI) GetMe() (tgbotapi.User, error) {
	return tgbotapi.User{ID: 42, IsBot: true, FirstName: "Route", UserName: "route_bot"}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, methodOf(c))
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func methodOf(c tgbotapi.Chattable) string {
	switch c.(type) {
	case tgbotapi.DeleteWebhookConfig:
		return "deleteWebhook"
	case tgbotapi.SetMyCommandsConfig:
		return "setMyCommands"
	case tgbotapi.DeleteMyCommandsConfig:
		return "deleteMyCommands"
	default:
		return "other"
	}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if mc, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, mc)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		out = append(out, m.Text)
	}
	return out
}

func (f *fakeAPI) requestMethods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func startUpdate(id int, userID int64) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id,
			From:      &tgbotapi.User{ID: userID, FirstName: "Ann"},
			Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
			Text:      "/start",
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
		},
	}
}

func TestTransport(t *testing.T) {
	a, err := New(testConfig(t, nil), &fakeAPI{}, discardLogger())
	require.NoError(t, err)

	poller, ok := a.Transport().(*teleroute.LongPoller)
	require.True(t, ok)
	assert.Equal(t, config.DefaultPollTimeout, poller.Timeout)

	a, err = New(testConfig(t, map[string]string{
		"TELEROUTE_SETTINGS_USE_WEBHOOK":          "true",
		"TELEROUTE_SETTINGS_DROP_PENDING_UPDATES": "true",
		"TELEROUTE_WEBHOOK_URL":                   "https://bot.example.com/",
		"TELEROUTE_WEBHOOK_PORT":                  "8443",
	}), &fakeAPI{}, discardLogger())
	require.NoError(t, err)

	wh, ok := a.Transport().(*teleroute.Webhook)
	require.True(t, ok)
	assert.Equal(t, "https://bot.example.com/webhook", wh.URL)
	assert.Equal(t, ":8443", wh.Addr)
	assert.True(t, wh.DropPendingUpdates)
}

func TestRun_polling(t *testing.T) {
	api := &fakeAPI{batches: [][]tgbotapi.Update{{startUpdate(1, 7)}}}
	a, err := New(testConfig(t, nil), api, discardLogger())
	require.NoError(t, err)

	ctx, cancel := gocontext.WithCancel(gocontext.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return len(api.sentTexts()) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	assert.Contains(t, api.sentTexts()[0], "Route")
	assert.Equal(t, 1, a.Users().Count())
	assert.Equal(t, teleroute.StateStopped, a.Bot().State())

	methods := api.requestMethods()
	assert.Contains(t, methods, "setMyCommands")
	assert.Contains(t, methods, "deleteWebhook")
	assert.Equal(t, "deleteMyCommands", methods[len(methods)-1])

	me, ok := a.Bot().Shared().Me()
	require.True(t, ok)
	assert.Equal(t, "route_bot", me.UserName)
}

func TestRun_whitelistDropsStrangers(t *testing.T) {
	api := &fakeAPI{batches: [][]tgbotapi.Update{{startUpdate(1, 99), startUpdate(2, 5)}}}
	cfg := testConfig(t, map[string]string{"TELEROUTE_SETTINGS_ALLOWED_USER_IDS": "5"})
	a, err := New(cfg, api, discardLogger())
	require.NoError(t, err)

	ctx, cancel := gocontext.WithCancel(gocontext.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return len(api.sentTexts()) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.Len(t, api.sent, 1)
	assert.Equal(t, int64(5), api.sent[0].ChatID)
	assert.Equal(t, 1, a.Users().Count())
}

func TestCheckRetry_leavesFloodControlToCaller(t *testing.T) {
	retry, err := checkRetry(gocontext.Background(), &http.Response{StatusCode: http.StatusTooManyRequests}, nil)
	assert.NoError(t, err)
	assert.False(t, retry)

	retry, err = checkRetry(gocontext.Background(), &http.Response{StatusCode: http.StatusBadGateway}, nil)
	assert.NoError(t, err)
	assert.True(t, retry)
}

func TestNewAPI_retriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:test-token/getMe", r.URL.Path)
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"id": 42, "is_bot": true, "first_name": "Route", "username": "route_bot"},
		})
	}))
	defer srv.Close()

	cfg := testConfig(t, map[string]string{"TELEROUTE_API_BOT_API_URL": srv.URL + "/"})
	client := newHTTPClient(cfg, discardLogger())
	client.RetryWaitMin = time.Millisecond
	client.RetryWaitMax = time.Millisecond

	api, err := newBotAPI(cfg, client)
	require.NoError(t, err)
	assert.Equal(t, "route_bot", api.Self.UserName)
	assert.Equal(t, int32(2), hits.Load())
}
