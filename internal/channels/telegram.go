package channels

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/grixate/pulseboard/internal/control"
	"github.com/grixate/pulseboard/internal/dashboard"
)

// Telegram publishes the dashboard as a plain-text message and exposes
// the control operations as bot commands. The Bot API has no message
// GET, so FetchMessage probes the tracked message by editing its reply
// markup; "message is not modified" means the message exists.
type Telegram struct {
	token   string
	control *control.Service
	log     *log.Logger
	bot     *tgbotapi.BotAPI
}

func NewTelegram(token string, ctrl *control.Service, logger *log.Logger) *Telegram {
	if logger == nil {
		logger = log.Default()
	}
	return &Telegram{token: token, control: ctrl, log: logger}
}

func (t *Telegram) Start(ctx context.Context) error {
	// The Bot API client has no per-call context support; a client
	// timeout bounds every outbound call instead.
	bot, err := tgbotapi.NewBotAPIWithClient(t.token, tgbotapi.APIEndpoint, &http.Client{Timeout: 90 * time.Second})
	if err != nil {
		return fmt.Errorf("telegram session: %w", err)
	}
	t.bot = bot
	go t.poll(ctx)
	return nil
}

func (t *Telegram) Close() error {
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	return nil
}

func (t *Telegram) poll(ctx context.Context) {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 60
	updates := t.bot.GetUpdatesChan(updateCfg)
	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil || update.Message.From == nil || !update.Message.IsCommand() {
				continue
			}
			t.handleCommand(update.Message)
		}
	}
}

func (t *Telegram) handleCommand(msg *tgbotapi.Message) {
	caller := strconv.FormatInt(msg.From.ID, 10)

	var reply string
	var err error
	switch msg.Command() {
	case "set_status_refresh":
		reply, err = t.control.SetRefresh(caller, strings.TrimSpace(msg.CommandArguments()))
	case "get_status_refresh":
		reply, err = t.control.GetRefresh()
	case "set_status_channel":
		target := strings.TrimSpace(msg.CommandArguments())
		if target == "" {
			// No argument means "use this chat".
			target = strconv.FormatInt(msg.Chat.ID, 10)
		}
		reply, err = t.control.SetChannel(caller, target)
	default:
		return
	}
	if err != nil {
		t.log.Printf("telegram: control %s: %v", msg.Command(), err)
	}
	if reply == "" {
		reply = "Something went wrong while updating the configuration."
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, reply)
	out.ReplyToMessageID = msg.MessageID
	if _, err := t.bot.Send(out); err != nil {
		t.log.Printf("telegram: reply failed: %v", err)
	}
}

func (t *Telegram) FetchMessage(ctx context.Context, channelID, messageID string) error {
	chatID, msgID, err := telegramIDs(channelID, messageID)
	if err != nil {
		return apiError("fetch message", err)
	}
	probe := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := t.bot.Request(probe); err != nil && !isNotModified(err) {
		return apiError("fetch message", err)
	}
	return nil
}

func (t *Telegram) PublishMessage(ctx context.Context, channelID string, doc dashboard.Document) (string, error) {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return "", apiError("send message", fmt.Errorf("bad chat id %q: %w", channelID, err))
	}
	sent, err := t.bot.Send(tgbotapi.NewMessage(chatID, textFromDocument(doc)))
	if err != nil {
		return "", apiError("send message", err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

func (t *Telegram) EditMessage(ctx context.Context, channelID, messageID string, doc dashboard.Document) error {
	chatID, msgID, err := telegramIDs(channelID, messageID)
	if err != nil {
		return apiError("edit message", err)
	}
	edit := tgbotapi.NewEditMessageText(chatID, msgID, textFromDocument(doc))
	if _, err := t.bot.Send(edit); err != nil && !isNotModified(err) {
		return apiError("edit message", err)
	}
	return nil
}

func textFromDocument(doc dashboard.Document) string {
	var b strings.Builder
	b.WriteString(doc.Title)
	b.WriteString("\n")
	for _, field := range doc.Fields {
		b.WriteString("\n")
		b.WriteString(field.Name)
		b.WriteString("\n")
		b.WriteString(field.Value)
		b.WriteString("\n")
	}
	if doc.Footer != "" {
		b.WriteString("\n")
		b.WriteString(doc.Footer)
	}
	return b.String()
}

func telegramIDs(channelID, messageID string) (int64, int, error) {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad chat id %q: %w", channelID, err)
	}
	msgID, err := strconv.Atoi(messageID)
	if err != nil {
		return 0, 0, fmt.Errorf("bad message id %q: %w", messageID, err)
	}
	return chatID, msgID, nil
}

// A repeated edit with identical content is still a live message.
func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
