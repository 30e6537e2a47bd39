package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"serialtool/config"
	"serialtool/session"
)

const queueSize = 32

// Message is a Slack-compatible webhook payload
type Message struct {
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents a message attachment
type Attachment struct {
	Color     string  `json:"color,omitempty"`
	Title     string  `json:"title,omitempty"`
	Text      string  `json:"text,omitempty"`
	Fields    []Field `json:"fields,omitempty"`
	Footer    string  `json:"footer,omitempty"`
	Timestamp int64   `json:"ts,omitempty"`
}

// Field represents a field in an attachment
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// WebhookNotifier posts session lifecycle and error events to a webhook.
// Posting happens on its own goroutine; failures are logged and dropped.
type WebhookNotifier struct {
	config     *config.NotifyConfig
	instanceID string
	logger     *slog.Logger
	client     *http.Client

	mu       sync.Mutex
	openedAt map[string]time.Time

	queue     chan Message
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewWebhookNotifier creates a notifier and starts its sender
func NewWebhookNotifier(cfg *config.NotifyConfig, instanceID string, logger *slog.Logger) *WebhookNotifier {
	n := &WebhookNotifier{
		config:     cfg,
		instanceID: instanceID,
		logger:     logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		openedAt: make(map[string]time.Time),
		queue:    make(chan Message, queueSize),
	}

	n.wg.Add(1)
	go n.run()
	return n
}

// IsEnabled returns true if a webhook is configured
func (n *WebhookNotifier) IsEnabled() bool {
	return n.config.WebhookURL != ""
}

// NotifyEvent queues a message for ev when its kind is enabled. It never blocks.
func (n *WebhookNotifier) NotifyEvent(ev session.Event) {
	if !n.IsEnabled() {
		return
	}

	msg, ok := n.messageFor(ev)
	if !ok {
		return
	}

	select {
	case n.queue <- msg:
	default:
		n.logger.Warn("Notification queue full, dropping message", "event", ev.Kind, "device", ev.Device)
	}
}

// Close stops the sender after the queued messages have been posted
func (n *WebhookNotifier) Close() {
	n.closeOnce.Do(func() { close(n.queue) })
	n.wg.Wait()
}

func (n *WebhookNotifier) messageFor(ev session.Event) (Message, bool) {
	fields := []Field{
		{Title: "Instance", Value: n.instanceID, Short: true},
		{Title: "Device", Value: ev.Device, Short: true},
	}

	var color, title string
	switch {
	case ev.Kind == session.EventOpened && n.config.NotifySessions:
		n.mu.Lock()
		n.openedAt[ev.SessionID] = ev.Time
		n.mu.Unlock()

		color, title = "good", "Session Opened"
		fields = append(fields, Field{Title: "Baud", Value: fmt.Sprintf("%d", ev.BaudRate), Short: true})

	case ev.Kind == session.EventClosed && n.config.NotifySessions:
		n.mu.Lock()
		opened, ok := n.openedAt[ev.SessionID]
		delete(n.openedAt, ev.SessionID)
		n.mu.Unlock()

		color, title = "warning", "Session Closed"
		if ok {
			fields = append(fields, Field{Title: "Duration", Value: formatDuration(ev.Time.Sub(opened)), Short: true})
		}

	case ev.IsError() && n.config.NotifyErrors:
		color, title = "danger", "Session Error"
		if ev.Err != nil {
			fields = append(fields, Field{Title: "Error", Value: ev.Err.Error(), Short: false})
		}

	default:
		return Message{}, false
	}

	return Message{
		Attachments: []Attachment{
			{
				Color:     color,
				Title:     title,
				Fields:    fields,
				Footer:    "serialtool",
				Timestamp: ev.Time.Unix(),
			},
		},
	}, true
}

func (n *WebhookNotifier) run() {
	defer n.wg.Done()
	for msg := range n.queue {
		if err := n.send(context.Background(), msg); err != nil {
			n.logger.Warn("Failed to send notification", "error", err)
		}
	}
}

func (n *WebhookNotifier) send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned non-OK status: %d", resp.StatusCode)
	}

	n.logger.Debug("Webhook notification sent")
	return nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
