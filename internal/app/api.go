package app

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/teleroute/teleroute/internal/config"
)

// NewAPI creates the Bot API client for cfg. Network failures and 5xx
// answers are retried at the HTTP level; flood control (429) is left to the
// caller, which honours retry_after.
func NewAPI(cfg *config.Config, log *slog.Logger) (*tgbotapi.BotAPI, error) {
	return newBotAPI(cfg, newHTTPClient(cfg, log))
}

func newHTTPClient(cfg *config.Config, log *slog.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.API.RetryMax
	client.Logger = log.With("component", "http")
	client.CheckRetry = checkRetry
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	// Long polls are held open by Telegram for up to poll_timeout seconds.
	client.HTTPClient.Timeout = time.Duration(cfg.Settings.PollTimeout+15) * time.Second
	return client
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func newBotAPI(cfg *config.Config, client *retryablehttp.Client) (*tgbotapi.BotAPI, error) {
	endpoint := strings.TrimSuffix(cfg.API.BotAPIURL, "/") + "/bot%s/%s"
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Bot.Token, endpoint, client.StandardClient())
	if err != nil {
		return nil, errors.Wrap(err, "creating telegram client")
	}
	return api, nil
}
