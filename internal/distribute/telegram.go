package distribute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/quotefunnel/quotefunnel/internal/config"
	"github.com/quotefunnel/quotefunnel/internal/store"
	"go.uber.org/zap"
)

const telegramTimeout = 10 * time.Second

// Notifier sends owner notifications through the Telegram Bot API.
// With empty credentials every call is a silent no-op, so callers never
// need to check whether notifications are configured.
type Notifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   *zap.Logger
}

func NewNotifier(cfg config.Telegram, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		baseURL:  "https://api.telegram.org",
		client:   &http.Client{Timeout: telegramTimeout},
		logger:   logger,
	}
}

// Notify sends a titled message. Failures are logged and swallowed.
func (n *Notifier) Notify(ctx context.Context, title, content string) {
	if n.botToken == "" || n.chatID == "" {
		return
	}

	text := fmt.Sprintf("<b>%s</b>\n\n%s\n\n<i>%s</i>",
		title, content, time.Now().Format("2006-01-02 15:04:05"))

	body, err := json.Marshal(map[string]string{
		"chat_id":    n.chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		n.logger.Warn("failed to marshal telegram message", zap.Error(err))
		return
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("failed to build telegram request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("failed to send telegram notification", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.logger.Warn("telegram API error", zap.Int("status", resp.StatusCode))
	}
}

// NotifyLead formats and sends the new-lead notification.
func (n *Notifier) NotifyLead(ctx context.Context, lead *store.Lead) {
	n.Notify(ctx, "New Lead Received",
		fmt.Sprintf("%s %s from %s just submitted a quote request. Email: %s, Phone: %s",
			lead.FirstName, lead.LastName, lead.ZipCode, lead.Email, lead.Phone))
}

// NotifyExpressLead formats and sends the express-lead notification.
func (n *Notifier) NotifyExpressLead(ctx context.Context, lead *store.ExpressLead) {
	n.Notify(ctx, "Express Lead Received",
		fmt.Sprintf("Quick quote request. Email: %s, Phone: %s. They want to be contacted ASAP.",
			lead.Email, lead.Phone))
}
