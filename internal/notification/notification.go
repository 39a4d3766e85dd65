// Package notification pushes trade and cycle alerts to Telegram and
// Discord. The manager subscribes to the event bus so alerting stays
// out of the trading path.
package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"equity-trading-bot/config"
	"equity-trading-bot/internal/events"
	"equity-trading-bot/internal/logging"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifyTradeOpen  NotificationType = "trade_open"
	NotifyTradeClose NotificationType = "trade_close"
	NotifyError      NotificationType = "error"
	NotifyInfo       NotificationType = "info"
)

// Notification represents a notification message
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Ticker    string
	Price     float64
	Timestamp time.Time
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager manages multiple notification providers
type Manager struct {
	notifiers []Notifier
	enabled   bool
	logger    *logging.Logger
}

// NewManager builds a manager with the providers enabled in the config.
func NewManager(cfg config.NotificationConfig, logger *logging.Logger) *Manager {
	m := &Manager{
		enabled: cfg.Enabled,
		logger:  logger.WithComponent("notification"),
	}
	m.AddNotifier(NewTelegramNotifier(cfg.Telegram))
	m.AddNotifier(NewDiscordNotifier(cfg.Discord))
	return m
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send sends a notification to all enabled providers
func (m *Manager) Send(notification *Notification) error {
	if !m.enabled {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			if err := n.Send(notification); err != nil {
				m.logger.Warn("Notification delivery failed", "provider", n.Name(), "error", err.Error())
				lastErr = err
			}
		}
	}
	return lastErr
}

// AttachBus subscribes the manager to the events worth alerting on.
func (m *Manager) AttachBus(bus *events.EventBus) {
	bus.Subscribe(events.EventTradeExecuted, func(ev events.Event) {
		m.sendTradeAlert(ev)
	})
	bus.Subscribe(events.EventStopLossHit, func(ev events.Event) {
		m.sendExitAlert("Stop loss", ev)
	})
	bus.Subscribe(events.EventTakeProfitHit, func(ev events.Event) {
		m.sendExitAlert("Take profit", ev)
	})
	bus.Subscribe(events.EventError, func(ev events.Event) {
		_ = m.Send(&Notification{
			Type:      NotifyError,
			Title:     "Trading cycle error",
			Message:   stringField(ev.Data, "error"),
			Timestamp: ev.Timestamp,
		})
	})
}

func (m *Manager) sendTradeAlert(ev events.Event) {
	ticker := stringField(ev.Data, "ticker")
	action := stringField(ev.Data, "action")
	price := floatField(ev.Data, "price")
	quantity := floatField(ev.Data, "quantity")
	reason := stringField(ev.Data, "reason")

	notifyType := NotifyTradeOpen
	if action == "SELL" {
		notifyType = NotifyTradeClose
	}

	_ = m.Send(&Notification{
		Type:      notifyType,
		Title:     fmt.Sprintf("%s %s", action, ticker),
		Message:   fmt.Sprintf("%s %.4f shares of %s @ %.2f\nReason: %s", action, quantity, ticker, price, reason),
		Ticker:    ticker,
		Price:     price,
		Timestamp: ev.Timestamp,
	})
}

func (m *Manager) sendExitAlert(kind string, ev events.Event) {
	ticker := stringField(ev.Data, "ticker")
	pctChange := floatField(ev.Data, "pct_change")
	proceeds := floatField(ev.Data, "proceeds")

	_ = m.Send(&Notification{
		Type:      NotifyTradeClose,
		Title:     fmt.Sprintf("%s triggered: %s", kind, ticker),
		Message:   fmt.Sprintf("%s closed at %+.2f%% for %.2f proceeds", ticker, pctChange*100, proceeds),
		Ticker:    ticker,
		Timestamp: ev.Timestamp,
	})
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func floatField(data map[string]interface{}, key string) float64 {
	if v, ok := data[key].(float64); ok {
		return v
	}
	return 0
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

// TelegramNotifier sends notifications via Telegram
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
	baseURL  string
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(cfg config.TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		enabled:  cfg.Enabled && cfg.BotToken != "" && cfg.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  "https://api.telegram.org",
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) IsEnabled() bool { return t.enabled }

func (t *TelegramNotifier) Send(notification *Notification) error {
	if !t.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       fmt.Sprintf("*%s*\n\n%s", notification.Title, notification.Message),
		"parse_mode": "Markdown",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

// =============================================================================
// DISCORD NOTIFIER
// =============================================================================

// DiscordNotifier sends notifications via Discord webhook
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(cfg config.DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: cfg.WebhookURL,
		enabled:    cfg.Enabled && cfg.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string { return "discord" }

func (d *DiscordNotifier) IsEnabled() bool { return d.enabled }

func (d *DiscordNotifier) Send(notification *Notification) error {
	if !d.enabled {
		return nil
	}

	color := 0x00FF00
	if notification.Type == NotifyError {
		color = 0xFF0000
	}

	embed := map[string]interface{}{
		"title":       notification.Title,
		"description": notification.Message,
		"color":       color,
		"timestamp":   notification.Timestamp.Format(time.RFC3339),
	}
	if notification.Ticker != "" {
		fields := []map[string]interface{}{
			{"name": "Ticker", "value": notification.Ticker, "inline": true},
		}
		if notification.Price > 0 {
			fields = append(fields, map[string]interface{}{
				"name": "Price", "value": fmt.Sprintf("%.2f", notification.Price), "inline": true,
			})
		}
		embed["fields"] = fields
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{embed},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}
	return nil
}
