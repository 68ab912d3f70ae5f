package teleroute

import (
	gocontext "context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawMessage(id int) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id,
			From:      &tgbotapi.User{ID: 1},
			Chat:      &tgbotapi.Chat{ID: 1, Type: "private"},
			Text:      "hi",
		},
	}
}

// collector gathers fed updates and cancels the run after want of them.
type collector struct {
	mu     sync.Mutex
	ids    []int
	want   int
	cancel gocontext.CancelFunc
}

func (c *collector) feed(u *Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, u.ID())
	if len(c.ids) == c.want {
		c.cancel()
	}
}

func TestLongPoller_register(t *testing.T) {
	api := &fakeAPI{}
	p := &LongPoller{DropPendingUpdates: true, Logger: discardLogger()}

	require.NoError(t, p.Register(gocontext.Background(), api))

	reqs := api.Requests()
	require.Len(t, reqs, 1)
	cfg, ok := reqs[0].(tgbotapi.DeleteWebhookConfig)
	require.True(t, ok)
	assert.True(t, cfg.DropPendingUpdates)
}

func TestLongPoller_deregister(t *testing.T) {
	api := &fakeAPI{}
	p := &LongPoller{Logger: discardLogger()}
	require.NoError(t, p.Deregister(gocontext.Background(), api))
	assert.Empty(t, api.Requests())

	p.DropPendingUpdates = true
	require.NoError(t, p.Deregister(gocontext.Background(), api))
	reqs := api.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].(tgbotapi.DeleteWebhookConfig).DropPendingUpdates)
}

func TestLongPoller_cursorAdvances(t *testing.T) {
	batches := [][]tgbotapi.Update{
		{rawMessage(10), rawMessage(11)},
		{rawMessage(12)},
	}
	var call int
	api := &fakeAPI{getUpdates: func(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
		if call >= len(batches) {
			return nil, nil
		}
		b := batches[call]
		call++
		return b, nil
	}}

	ctx, cancel := gocontext.WithCancel(gocontext.Background())
	defer cancel()
	col := &collector{want: 3, cancel: cancel}

	p := &LongPoller{Timeout: 1, AllowedUpdates: []string{"message"}, Logger: discardLogger()}
	require.NoError(t, p.Register(ctx, api))
	require.NoError(t, p.Run(ctx, col.feed))

	assert.Equal(t, []int{10, 11, 12}, col.ids)
	assert.Equal(t, 13, p.Offset())

	polls := api.Polls()
	require.GreaterOrEqual(t, len(polls), 2)
	assert.Equal(t, 0, polls[0].Offset)
	assert.Equal(t, 12, polls[1].Offset)
	assert.Equal(t, 1, polls[0].Timeout)
	assert.Equal(t, 100, polls[0].Limit)
	assert.Equal(t, []string{"message"}, polls[0].AllowedUpdates)
}

func TestLongPoller_fetchFailureKeepsCursor(t *testing.T) {
	var call int
	api := &fakeAPI{getUpdates: func(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
		call++
		switch call {
		case 1:
			return []tgbotapi.Update{rawMessage(5)}, nil
		case 2:
			return nil, errors.New("connection reset")
		case 3:
			return nil, &tgbotapi.Error{Code: 502, Message: "Bad Gateway"}
		default:
			return []tgbotapi.Update{rawMessage(6)}, nil
		}
	}}

	ctx, cancel := gocontext.WithCancel(gocontext.Background())
	defer cancel()
	col := &collector{want: 2, cancel: cancel}

	p := &LongPoller{InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Logger: discardLogger()}
	require.NoError(t, p.Register(ctx, api))
	require.NoError(t, p.Run(ctx, col.feed))

	assert.Equal(t, []int{5, 6}, col.ids, "no update is lost or skipped across failures")
	polls := api.Polls()
	require.GreaterOrEqual(t, len(polls), 4)
	for _, cfg := range polls[1:4] {
		assert.Equal(t, 6, cfg.Offset, "failed fetches retry from the same cursor")
	}
}

func TestLongPoller_stopsDuringFetch(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	api := &fakeAPI{getUpdates: func(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
		<-block
		return []tgbotapi.Update{rawMessage(1)}, nil
	}}

	ctx, cancel := gocontext.WithCancel(gocontext.Background())
	p := &LongPoller{Logger: discardLogger()}
	require.NoError(t, p.Register(ctx, api))

	done := make(chan error, 1)
	fed := 0
	go func() { done <- p.Run(ctx, func(*Update) { fed++ }) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
	assert.Zero(t, fed)
	assert.Equal(t, 0, p.Offset(), "an abandoned batch is not acknowledged")
}

func TestLongPoller_notRegistered(t *testing.T) {
	p := &LongPoller{}
	assert.Error(t, p.Run(gocontext.Background(), func(*Update) {}))
}

func TestLongPoller_defaults(t *testing.T) {
	p := NewLongPoller(0)
	assert.Equal(t, "polling", p.Name())
	assert.Equal(t, 30, p.timeout())
	assert.Equal(t, 100, p.limit())
	assert.Equal(t, initialBackoff, p.initialBackoff())
	assert.Equal(t, maxBackoff, p.maxBackoff())

	p.setAllowedUpdates([]string{"message"})
	assert.Equal(t, []string{"message"}, p.AllowedUpdates)
	p.setAllowedUpdates([]string{"poll"})
	assert.Equal(t, []string{"message"}, p.AllowedUpdates, "explicit values win")
}
