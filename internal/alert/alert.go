// Package alert pushes operator notifications, such as positions reaching their
// liquidation price, to chat channels
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"dex_trader/internal/core"
)

type AlertLevel string

const (
	Info     AlertLevel = "INFO"
	Warning  AlertLevel = "WARNING"
	Error    AlertLevel = "ERROR"
	Critical AlertLevel = "CRITICAL"
)

const sendTimeout = 10 * time.Second

type AlertPayload struct {
	Level     AlertLevel
	Title     string
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// SortedFieldKeys returns the field names in a stable order
func (p AlertPayload) SortedFieldKeys() []string {
	keys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type AlertChannel interface {
	Send(ctx context.Context, alert AlertPayload) error
	Name() string
}

// AlertManager fans alerts out to every channel. Alerts sharing a key are
// suppressed until the cooldown since the last delivered one has passed.
type AlertManager struct {
	channels []AlertChannel
	cooldown time.Duration
	lastSent map[string]time.Time
	now      func() time.Time
	logger   core.ILogger
	mu       sync.Mutex
}

func NewAlertManager(cooldown time.Duration, logger core.ILogger) *AlertManager {
	return &AlertManager{
		cooldown: cooldown,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
		logger:   logger.WithField("component", "alert_manager"),
	}
}

func (am *AlertManager) AddChannel(ch AlertChannel) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.channels = append(am.channels, ch)
	am.logger.Info("Added alert channel", "name", ch.Name())
}

// Enabled reports whether any channel is configured
func (am *AlertManager) Enabled() bool {
	am.mu.Lock()
	defer am.mu.Unlock()
	return len(am.channels) > 0
}

// Alert sends asynchronously and reports whether the alert passed the cooldown
func (am *AlertManager) Alert(ctx context.Context, key, title, message string, level AlertLevel, fields map[string]string) bool {
	am.mu.Lock()
	now := am.now()
	if last, ok := am.lastSent[key]; ok && now.Sub(last) < am.cooldown {
		am.mu.Unlock()
		return false
	}
	am.lastSent[key] = now
	channels := append([]AlertChannel(nil), am.channels...)
	am.mu.Unlock()

	payload := AlertPayload{
		Level:     level,
		Title:     title,
		Message:   message,
		Timestamp: now,
		Fields:    fields,
	}
	am.logger.Info("Triggering alert", "key", key, "title", title, "level", level)

	for _, ch := range channels {
		go func(c AlertChannel) {
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
			defer cancel()

			if err := c.Send(sendCtx, payload); err != nil {
				am.logger.Error("Failed to send alert", "channel", c.Name(), "error", err)
			}
		}(ch)
	}
	return true
}

func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
