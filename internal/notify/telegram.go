// Package notify delivers best-effort audit messages to the admin Telegram chat.
package notify

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/vidcrafter/internal/models"
)

const sendTimeout = 10 * time.Second

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts audit events to one chat. Delivery happens off the request
// path; failures are logged and dropped.
type Telegram struct {
	sender Sender
	chatID int64
	log    *slog.Logger
	wg     sync.WaitGroup
}

// NewTelegramBot builds a bot client whose HTTP calls are bounded by sendTimeout.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	client := &http.Client{Timeout: sendTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return bot, nil
}

func NewTelegram(sender Sender, chatID int64, log *slog.Logger) *Telegram {
	return &Telegram{sender: sender, chatID: chatID, log: log}
}

func (t *Telegram) CouponRedeemed(user *models.User, coupon *models.Coupon, newBalance int) {
	text := fmt.Sprintf("Coupon %s (+%d) redeemed by %s. Balance: %d", coupon.Code, coupon.Value, user.Email, newBalance)
	t.send(text)
}

func (t *Telegram) CouponCreated(coupon *models.Coupon) {
	t.send(fmt.Sprintf("Coupon %s (+%d) issued by %s", coupon.Code, coupon.Value, coupon.CreatedByAdmin))
}

func (t *Telegram) send(text string) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		msg := tgbotapi.NewMessage(t.chatID, text)
		if _, err := t.sender.Send(msg); err != nil {
			t.log.Error("send admin notification", "chat_id", t.chatID, "err", err)
		}
	}()
}

// Wait blocks until in-flight notifications finish.
func (t *Telegram) Wait() {
	t.wg.Wait()
}
