package ui

import (
	"context"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"serialtool/controller"
	"serialtool/session"
)

// StatusTab shows the current session snapshot
type StatusTab struct {
	ctrl            *controller.Controller
	refreshInterval time.Duration

	stateLabel   *widget.Label
	deviceLabel  *widget.Label
	sessionLabel *widget.Label
	uptimeLabel  *widget.Label
	rxLabel      *widget.Label
	txLabel      *widget.Label
	errorsLabel  *widget.Label
	lastErrLabel *widget.Label
	logLabel     *widget.Label
}

// NewStatusTab creates the status tab
func NewStatusTab(ctrl *controller.Controller) *StatusTab {
	return &StatusTab{
		ctrl:            ctrl,
		refreshInterval: time.Second,
	}
}

// Build constructs the status UI
func (s *StatusTab) Build() fyne.CanvasObject {
	s.stateLabel = widget.NewLabel("State: -")
	s.deviceLabel = widget.NewLabel("Port: -")
	s.sessionLabel = widget.NewLabel("Session: -")
	s.uptimeLabel = widget.NewLabel("Open for: -")

	s.rxLabel = widget.NewLabel("Received: 0 bytes")
	s.txLabel = widget.NewLabel("Sent: 0 bytes")
	s.errorsLabel = widget.NewLabel("Errors: 0")
	s.lastErrLabel = widget.NewLabel("")
	s.lastErrLabel.Wrapping = fyne.TextWrapWord

	s.logLabel = widget.NewLabel("")
	s.logLabel.Wrapping = fyne.TextWrapWord

	sessionCard := widget.NewCard("Session", "", container.NewVBox(
		s.stateLabel,
		s.deviceLabel,
		s.sessionLabel,
		s.uptimeLabel,
	))

	trafficCard := widget.NewCard("Traffic", "", container.NewVBox(
		s.rxLabel,
		s.txLabel,
		s.errorsLabel,
		s.lastErrLabel,
	))

	logCard := widget.NewCard("Event Log", "", s.logLabel)

	refreshBtn := widget.NewButton("Refresh Now", s.refresh)

	s.refresh()

	return container.NewVScroll(container.NewVBox(
		sessionCard,
		trafficCard,
		logCard,
		container.NewHBox(refreshBtn),
	))
}

// Run refreshes the tab until ctx ends
func (s *StatusTab) Run(ctx context.Context) {
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fyne.Do(s.refresh)
		case <-ctx.Done():
			return
		}
	}
}

func (s *StatusTab) refresh() {
	info := s.ctrl.SessionInfo()

	s.stateLabel.SetText(fmt.Sprintf("State: %s", info.State))
	switch info.State {
	case session.StateRunning:
		s.stateLabel.Importance = widget.SuccessImportance
	case session.StateError:
		s.stateLabel.Importance = widget.DangerImportance
	default:
		s.stateLabel.Importance = widget.MediumImportance
	}
	s.stateLabel.Refresh()

	if info.Device != "" {
		s.deviceLabel.SetText(fmt.Sprintf("Port: %s at %d baud", info.Device, info.BaudRate))
	} else {
		s.deviceLabel.SetText("Port: -")
	}
	if info.SessionID != "" {
		s.sessionLabel.SetText("Session: " + info.SessionID)
	} else {
		s.sessionLabel.SetText("Session: -")
	}
	if info.State == session.StateRunning && !info.OpenedAt.IsZero() {
		s.uptimeLabel.SetText("Open for: " + formatUptime(int64(time.Since(info.OpenedAt).Seconds())))
	} else {
		s.uptimeLabel.SetText("Open for: -")
	}

	s.rxLabel.SetText(fmt.Sprintf("Received: %d bytes", info.BytesRead))
	s.txLabel.SetText(fmt.Sprintf("Sent: %d bytes", info.BytesWritten))
	s.errorsLabel.SetText(fmt.Sprintf("Errors: %d", info.Errors))
	if info.LastError != "" {
		s.lastErrLabel.SetText("Last error: " + info.LastError)
	} else {
		s.lastErrLabel.SetText("")
	}

	s.logLabel.SetText(s.ctrl.LogPath())
}

// formatUptime formats uptime seconds into a readable string
func formatUptime(seconds int64) string {
	duration := time.Duration(seconds) * time.Second
	hours := int(duration.Hours())
	minutes := int(duration.Minutes()) % 60
	secs := int(duration.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, secs)
	}
	return fmt.Sprintf("%ds", secs)
}
