package middleware

import (
	gocontext "context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/teleroute/teleroute"
)

// mockContext implements teleroute.Context for middleware testing.
type mockContext struct {
	update *teleroute.Update
	store  map[string]any

	// Tracking calls for assertions.
	respondCalled int
	respondText   string
}

func newMock(raw tgbotapi.Update) *mockContext {
	return &mockContext{update: teleroute.NewUpdate(raw)}
}

func messageFrom(userID int64, chatID int64, text string) *mockContext {
	return newMock(tgbotapi.Update{
		UpdateID: 7,
		Message: &tgbotapi.Message{
			MessageID: 1,
			From:      &tgbotapi.User{ID: userID},
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
			Text:      text,
		},
	})
}

func callbackFrom(userID int64, data string) *mockContext {
	return newMock(tgbotapi.Update{
		UpdateID: 8,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			From: &tgbotapi.User{ID: userID},
			Data: data,
		},
	})
}

func channelPost() *mockContext {
	return newMock(tgbotapi.Update{
		UpdateID:    9,
		ChannelPost: &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: -100, Type: "channel"}, Text: "news"},
	})
}

func (m *mockContext) Ctx() gocontext.Context                          { return gocontext.Background() }
func (m *mockContext) Update() *teleroute.Update                       { return m.update }
func (m *mockContext) API() teleroute.API                              { return nil }
func (m *mockContext) Shared() *teleroute.Shared                       { return teleroute.NewShared() }
func (m *mockContext) Value(key string) any                            { return nil }
func (m *mockContext) WithValue(string, any) teleroute.Context         { return m }
func (m *mockContext) WithCtx(gocontext.Context) teleroute.Context     { return m }
func (m *mockContext) Sender() *tgbotapi.User                          { return m.update.Sender() }
func (m *mockContext) Chat() *tgbotapi.Chat                            { return m.update.Chat() }
func (m *mockContext) Message() *tgbotapi.Message                      { return m.update.Message() }
func (m *mockContext) Text() string                                    { return m.update.Text() }
func (m *mockContext) Command() string                                 { return "" }
func (m *mockContext) Args() []string                                  { return nil }
func (m *mockContext) Callback() *tgbotapi.CallbackQuery               { return m.update.CallbackQuery() }
func (m *mockContext) Send(_ string, _ ...teleroute.SendOption) error  { return nil }
func (m *mockContext) Reply(_ string, _ ...teleroute.SendOption) error { return nil }
func (m *mockContext) AnswerInline(_ ...any) error                     { return nil }
func (m *mockContext) Data() string {
	if cb := m.Callback(); cb != nil {
		return cb.Data
	}
	return ""
}

func (m *mockContext) Respond(text string) error {
	m.respondCalled++
	m.respondText = text
	m.Set("teleroute.responded", true)
	return nil
}
func (m *mockContext) RespondAlert(text string) error { return m.Respond(text) }

func (m *mockContext) Get(key string) any {
	if m.store == nil {
		return nil
	}
	return m.store[key]
}

func (m *mockContext) Set(key string, val any) {
	if m.store == nil {
		m.store = make(map[string]any)
	}
	m.store[key] = val
}
