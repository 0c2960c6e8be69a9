package bot

import (
	"aifi/ai"
	"aifi/core"
	"aifi/lib/sl"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

const (
	errorResponse = "Sorry, something went wrong. Please try again later."
	helpText      = "You can use the following commands:\n" +
		"/help - show this help\n" +
		"/generate <post_id> [prompt] - generate a featured image for a post\n"
)

// botAPI is the part of *tgbotapi.BotAPI the bot uses
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) (tgbotapi.UpdatesChannel, error)
	StopReceivingUpdates()
}

type TgBot struct {
	api    botAPI
	images core.ImageService
	chatId int64
	log    *slog.Logger
}

func NewTgBot(conf *core.Config, log *slog.Logger) (*TgBot, error) {
	if conf.Telegram.ChatId == 0 {
		return nil, errors.New("telegram chat_id is not configured")
	}
	api, err := tgbotapi.NewBotAPI(conf.Telegram.ApiKey)
	if err != nil {
		return nil, err
	}
	return &TgBot{
		api:    api,
		chatId: conf.Telegram.ChatId,
		log:    log.With(sl.Module("telegram")),
	}, nil
}

// SetImageService enables the /generate command
func (t *TgBot) SetImageService(images core.ImageService) {
	t.images = images
}

// Notify sends a freshly generated featured image to the configured chat
func (t *TgBot) Notify(_ context.Context, event ai.GeneratedEvent) error {
	photo := tgbotapi.NewPhotoUpload(t.chatId, tgbotapi.FileBytes{
		Name:  event.Asset.FileName,
		Bytes: event.Image,
	})
	photo.Caption = caption(event)
	if _, err := t.api.Send(photo); err != nil {
		return fmt.Errorf("sending photo: %w", err)
	}
	return nil
}

func (t *TgBot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := t.api.GetUpdatesChan(u)
	if err != nil {
		return err
	}

	for update := range updates {
		if update.Message == nil || !update.Message.IsCommand() {
			continue
		}
		incoming := update.Message
		if incoming.Chat.ID != t.chatId {
			continue
		}

		switch incoming.Command() {
		case "help", "start":
			t.plainResponse(incoming.Chat.ID, helpText)
		case "generate":
			go t.generate(incoming.Chat.ID, incoming.CommandArguments())
		}
	}
	return nil
}

func (t *TgBot) Stop() {
	t.api.StopReceivingUpdates()
}

func (t *TgBot) generate(chatId int64, args string) {
	if t.images == nil {
		t.plainResponse(chatId, errorResponse)
		return
	}
	postId, prompt, ok := parseGenerateCommand(args)
	if !ok {
		t.plainResponse(chatId, "Usage: /generate <post_id> [prompt]")
		return
	}

	t.sendChatAction(chatId, tgbotapi.ChatUploadPhoto)
	started := time.Now()
	res, err := t.images.Generate(context.Background(), core.GenerationRequest{
		PostId: postId,
		Prompt: prompt,
	})
	if err != nil {
		var apiErr *ai.APIError
		if errors.As(err, &apiErr) {
			t.plainResponse(chatId, apiErr.Message)
			return
		}
		t.log.Error("generate", sl.Err(err))
		t.plainResponse(chatId, errorResponse)
		return
	}
	t.log.With(
		slog.String("post", postId),
		slog.Duration("elapsed", time.Since(started)),
	).Info("generated from telegram")
	// the image itself arrives through Notify
	t.plainResponse(chatId, "Featured image set: "+res.Url)
}

func (t *TgBot) sendChatAction(chatId int64, action string) {
	if _, err := t.api.Send(tgbotapi.NewChatAction(chatId, action)); err != nil {
		t.log.Warn("sending chat action", sl.Err(err))
	}
}

func (t *TgBot) plainResponse(chatId int64, text string) {
	msg := tgbotapi.NewMessage(chatId, text)
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("sending message", sl.Err(err))
	}
}

// parseGenerateCommand splits "<post_id> [prompt]"
func parseGenerateCommand(args string) (string, string, bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", "", false
	}
	prompt := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(args), fields[0]))
	return fields[0], prompt, true
}

func caption(event ai.GeneratedEvent) string {
	title := event.Post.Title
	if len([]rune(title)) > 50 {
		title = string([]rune(title)[:50]) + "..."
	}
	return fmt.Sprintf("New featured image for \"%s\" (post %s)\n%s", title, event.Post.Id, event.Url)
}
