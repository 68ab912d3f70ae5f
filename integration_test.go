package teleroute

import (
	gocontext "context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123:test-token"

// botAPIServer is a minimal Bot API speaking the real wire format.
type botAPIServer struct {
	t *testing.T

	mu      sync.Mutex
	batches []string
	methods []string
	sent    []map[string]string
}

func (s *botAPIServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/bot"+testToken+"/")
	if err := r.ParseForm(); err != nil {
		s.t.Errorf("parse form: %v", err)
	}

	s.mu.Lock()
	s.methods = append(s.methods, method)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Route","username":"route_bot"}}`)
	case "deleteWebhook", "setMyCommands":
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	case "getUpdates":
		s.mu.Lock()
		var batch string
		if len(s.batches) > 0 {
			batch, s.batches = s.batches[0], s.batches[1:]
		}
		s.mu.Unlock()
		if batch == "" {
			time.Sleep(10 * time.Millisecond)
			batch = "[]"
		}
		fmt.Fprintf(w, `{"ok":true,"result":%s}`, batch)
	case "sendMessage":
		s.mu.Lock()
		s.sent = append(s.sent, map[string]string{
			"chat_id": r.FormValue("chat_id"),
			"text":    r.FormValue("text"),
		})
		s.mu.Unlock()
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":99,"date":0,"chat":{"id":5,"type":"private"}}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
	}
}

func (s *botAPIServer) sentMessages() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.sent...)
}

func messageJSON(id int, text string) string {
	return fmt.Sprintf(`{"update_id":%d,"message":{"message_id":%d,"date":0,"from":{"id":5,"is_bot":false,"first_name":"U"},"chat":{"id":5,"type":"private"},"text":%q}}`, id, id, text)
}

func newTestBotAPI(t *testing.T, srv *botAPIServer) *tgbotapi.BotAPI {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	api, err := tgbotapi.NewBotAPIWithClient(testToken, ts.URL+"/bot%s/%s", ts.Client())
	require.NoError(t, err)
	return api
}

func TestIntegration_pollingRoundTrip(t *testing.T) {
	srv := &botAPIServer{t: t, batches: []string{
		"[" + messageJSON(100, "/start@route_bot") + "," + messageJSON(101, "/start@other_bot") + "]",
		"[" + messageJSON(102, "/start") + "]",
	}}
	api := newTestBotAPI(t, srv)

	b, err := New(api, WithLogger(discardLogger()), WithShutdownTimeout(time.Second))
	require.NoError(t, err)
	b.OnStartup(Identify)

	r := NewRouter("main")
	r.Command([]string{"start"}, func(c Context) error {
		return c.Reply("hello " + c.Sender().FirstName)
	})
	b.Include(r)

	poller := &LongPoller{Timeout: 1, Logger: discardLogger()}
	ctx, cancel := gocontext.WithCancel(gocontext.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, poller) }()

	require.Eventually(t, func() bool {
		return len(srv.sentMessages()) >= 2 && poller.Offset() == 103
	}, 3*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}

	sent := srv.sentMessages()
	require.Len(t, sent, 2, "the command addressed to another bot is ignored")
	for _, m := range sent {
		assert.Equal(t, "5", m["chat_id"])
		assert.Equal(t, "hello U", m["text"])
	}

	me, ok := b.Shared().Me()
	require.True(t, ok)
	assert.Equal(t, "route_bot", me.UserName)
}

func TestIntegration_apiErrorSurfaces(t *testing.T) {
	srv := &botAPIServer{t: t}
	api := newTestBotAPI(t, srv)

	b, err := New(api, WithLogger(discardLogger()))
	require.NoError(t, err)

	c := newContext(b.Dispatcher(), gocontext.Background(), NewUpdate(tgbotapi.Update{
		UpdateID:      1,
		CallbackQuery: &tgbotapi.CallbackQuery{ID: "x", From: &tgbotapi.User{ID: 1}},
	}))
	// answerCallbackQuery is unknown to the fake server.
	assert.Error(t, c.Respond("ok"))
}
