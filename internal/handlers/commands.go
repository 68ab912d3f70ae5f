package handlers

import (
	gocontext "context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hashicorp/go-multierror"
	"github.com/teleroute/teleroute"
	"github.com/teleroute/teleroute/internal/config"
)

// UserCommands is the command menu shown to everyone.
var UserCommands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Start the bot"},
	{Command: "help", Description: "List available commands"},
	{Command: "about", Description: "About this bot"},
}

// OwnerCommands is the command menu shown in the owner's private chat.
var OwnerCommands = append(append([]tgbotapi.BotCommand(nil), UserCommands...),
	tgbotapi.BotCommand{Command: "stats", Description: "Bot statistics"},
)

func apiFrom(shared *teleroute.Shared) (teleroute.API, error) {
	api, ok := shared.Value(teleroute.KeyClient).(teleroute.API)
	if !ok {
		return nil, fmt.Errorf("no API provided under %q", teleroute.KeyClient)
	}
	return api, nil
}

// SetupCommands returns a startup hook publishing the command menus: the user
// list in the default scope and, when an owner is configured, the owner list
// in the owner's chat.
func SetupCommands(cfg *config.Config) teleroute.Hook {
	return func(_ gocontext.Context, shared *teleroute.Shared) error {
		api, err := apiFrom(shared)
		if err != nil {
			return err
		}
		if _, err := api.Request(tgbotapi.NewSetMyCommands(UserCommands...)); err != nil {
			return fmt.Errorf("setMyCommands: %w", err)
		}
		if cfg.Settings.OwnerID == 0 {
			return nil
		}
		scope := tgbotapi.NewBotCommandScopeChat(cfg.Settings.OwnerID)
		if _, err := api.Request(tgbotapi.NewSetMyCommandsWithScope(scope, OwnerCommands...)); err != nil {
			return fmt.Errorf("setMyCommands for owner: %w", err)
		}
		return nil
	}
}

// RemoveCommands returns a shutdown hook deleting what SetupCommands published.
// Both scopes are attempted even when the first fails.
func RemoveCommands(cfg *config.Config) teleroute.Hook {
	return func(_ gocontext.Context, shared *teleroute.Shared) error {
		api, err := apiFrom(shared)
		if err != nil {
			return err
		}
		var result *multierror.Error
		if _, err := api.Request(tgbotapi.NewDeleteMyCommands()); err != nil {
			result = multierror.Append(result, fmt.Errorf("deleteMyCommands: %w", err))
		}
		if cfg.Settings.OwnerID != 0 {
			scope := tgbotapi.NewBotCommandScopeChat(cfg.Settings.OwnerID)
			if _, err := api.Request(tgbotapi.NewDeleteMyCommandsWithScope(scope)); err != nil {
				result = multierror.Append(result, fmt.Errorf("deleteMyCommands for owner: %w", err))
			}
		}
		return result.ErrorOrNil()
	}
}
