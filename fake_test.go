package teleroute

import (
	gocontext "context"
	"io"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAPI records calls and answers them from canned values.
type fakeAPI struct {
	mu sync.Mutex

	requests []tgbotapi.Chattable
	sent     []tgbotapi.Chattable
	polls    []tgbotapi.UpdateConfig

	me         tgbotapi.User
	meErr      error
	requestErr error
	// sendErrs are returned by successive Send calls, then nil.
	sendErrs []error
	// getUpdates answers GetUpdates; nil returns an empty batch.
	getUpdates func(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

func (f *fakeAPI) GetUpdates(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	f.mu.Lock()
	f.polls = append(f.polls, cfg)
	fn := f.getUpdates
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(cfg)
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return tgbotapi.Message{}, err
		}
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) GetMe() (tgbotapi.User, error) {
	return f.me, f.meErr
}

func (f *fakeAPI) Requests() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.requests...)
}

func (f *fakeAPI) Sent() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.sent...)
}

func (f *fakeAPI) Polls() []tgbotapi.UpdateConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.UpdateConfig(nil), f.polls...)
}

// fakeTransport feeds a fixed list of updates and then waits for ctx.
type fakeTransport struct {
	updates     []*Update
	registerErr error
	allowed     []string
	// deregisterBlock, when set, holds Deregister until it is closed.
	deregisterBlock chan struct{}

	mu           sync.Mutex
	registered   bool
	deregistered bool
}

func (t *fakeTransport) Name() string { return "fake" }

func (t *fakeTransport) setAllowedUpdates(kinds []string) { t.allowed = kinds }

func (t *fakeTransport) Register(gocontext.Context, API) error {
	if t.registerErr != nil {
		return t.registerErr
	}
	t.mu.Lock()
	t.registered = true
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) Run(ctx gocontext.Context, feed FeedFunc) error {
	for _, u := range t.updates {
		feed(u)
	}
	<-ctx.Done()
	return nil
}

func (t *fakeTransport) Deregister(gocontext.Context, API) error {
	if t.deregisterBlock != nil {
		<-t.deregisterBlock
	}
	t.mu.Lock()
	t.deregistered = true
	t.mu.Unlock()
	return nil
}

func textMessage(id int, userID int64, text string) *Update {
	return NewUpdate(tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id * 10,
			From:      &tgbotapi.User{ID: userID, UserName: "user"},
			Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
			Text:      text,
		},
	})
}

func callbackQuery(id int, userID int64, data string) *Update {
	return NewUpdate(tgbotapi.Update{
		UpdateID: id,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb",
			From: &tgbotapi.User{ID: userID},
			Message: &tgbotapi.Message{
				MessageID: 5,
				Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
				Text:      "menu",
			},
			Data: data,
		},
	})
}

// testContext builds a Context for u on a fresh dispatcher.
func testContext(api *fakeAPI, u *Update, opts ...Option) Context {
	d := NewDispatcher(api, nil, append([]Option{WithLogger(discardLogger())}, opts...)...)
	return newContext(d, gocontext.Background(), u)
}
