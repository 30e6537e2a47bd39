package ui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"serialtool/codec"
	"serialtool/config"
	"serialtool/controller"
)

// SessionTab holds the port controls, receive area and send line
type SessionTab struct {
	window  fyne.Window
	ctrl    *controller.Controller
	cfg     *config.Config
	console *Console
	logger  *slog.Logger

	portSelect *widget.Select
	baudEntry  *widget.SelectEntry
	modeSelect *widget.Select
	toggleBtn  *widget.Button
	sendEntry  *widget.Entry
}

// NewSessionTab creates the session tab
func NewSessionTab(window fyne.Window, ctrl *controller.Controller, cfg *config.Config, console *Console, logger *slog.Logger) *SessionTab {
	return &SessionTab{
		window:  window,
		ctrl:    ctrl,
		cfg:     cfg,
		console: console,
		logger:  logger,
	}
}

// Build constructs the session UI
func (s *SessionTab) Build() fyne.CanvasObject {
	s.portSelect = widget.NewSelect(nil, nil)
	s.portSelect.PlaceHolder = "(no ports)"

	rates := make([]string, 0, len(s.cfg.Serial.BaudRates))
	for _, r := range s.cfg.Serial.BaudRates {
		rates = append(rates, strconv.Itoa(r))
	}
	s.baudEntry = widget.NewSelectEntry(rates)
	s.baudEntry.SetText(strconv.Itoa(s.cfg.Serial.BaudRate))

	modes := codec.List()
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	s.modeSelect = widget.NewSelect(names, func(value string) {
		mode, err := codec.ParseMode(value)
		if err != nil {
			return
		}
		if err := s.ctrl.SetMode(mode); err != nil {
			dialog.ShowError(err, s.window)
		}
	})
	s.modeSelect.SetSelected(string(s.ctrl.Mode()))

	s.toggleBtn = widget.NewButton("Open", s.toggle)
	s.toggleBtn.Importance = widget.HighImportance

	s.sendEntry = widget.NewEntry()
	s.sendEntry.SetPlaceHolder("Text to send")
	s.sendEntry.OnSubmitted = func(string) { s.send() }
	sendBtn := widget.NewButton("Send", s.send)

	clearBtn := widget.NewButton("Clear", s.console.Clear)

	s.console.setOnLine(func(line controller.Line) {
		if line.Direction == controller.DirectionStatus {
			s.syncState()
		}
	})

	controls := container.NewHBox(
		widget.NewLabel("Port"), container.NewGridWrap(fyne.NewSize(200, s.portSelect.MinSize().Height), s.portSelect),
		widget.NewLabel("Baud"), container.NewGridWrap(fyne.NewSize(130, s.baudEntry.MinSize().Height), s.baudEntry),
		s.toggleBtn,
		widget.NewSeparator(),
		widget.NewLabel("Mode"), s.modeSelect,
		clearBtn,
	)

	sendRow := container.NewBorder(nil, nil, nil, sendBtn, s.sendEntry)

	return container.NewBorder(
		controls,
		sendRow,
		nil,
		nil,
		s.console.Build(),
	)
}

// WatchPorts keeps the port list current until ctx ends
func (s *SessionTab) WatchPorts(ctx context.Context) {
	controller.WatchPorts(ctx, s.cfg.Serial.PortRefresh(), s.ctrl.ListPorts,
		func(ports []string) {
			fyne.Do(func() {
				s.setPorts(ports)
			})
		},
		func(err error) {
			s.logger.Warn("Failed to list serial ports", "error", err)
		},
	)
}

func (s *SessionTab) setPorts(ports []string) {
	prev := s.portSelect.Selected
	if prev == "" {
		prev = s.cfg.Serial.Device
	}
	selected := controller.ReconcileSelection(prev, ports)

	s.portSelect.SetOptions(ports)
	if selected == "" {
		s.portSelect.ClearSelected()
	} else if selected != s.portSelect.Selected {
		s.portSelect.SetSelected(selected)
	}
}

func (s *SessionTab) toggle() {
	if s.ctrl.Running() {
		s.toggleBtn.Disable()
		go func() {
			if err := s.ctrl.Stop(context.Background()); err != nil {
				s.logger.Warn("Failed to stop session", "error", err)
			}
			fyne.Do(s.syncState)
		}()
		return
	}

	device := s.portSelect.Selected
	if device == "" {
		dialog.ShowInformation("No Port", "Please select a serial port", s.window)
		return
	}
	baud, err := strconv.Atoi(s.baudEntry.Text)
	if err != nil || baud <= 0 {
		dialog.ShowError(fmt.Errorf("invalid baud rate: %q", s.baudEntry.Text), s.window)
		return
	}

	s.toggleBtn.Disable()
	go func() {
		// Open failures are shown in the receive area
		_ = s.ctrl.Start(context.Background(), device, baud)
		fyne.Do(s.syncState)
	}()
}

func (s *SessionTab) send() {
	text := s.sendEntry.Text
	if err := s.ctrl.Send(text); err == nil {
		s.sendEntry.SetText("")
	}
	s.syncState()
}

// syncState mirrors the session and display mode onto the controls
func (s *SessionTab) syncState() {
	running := s.ctrl.Running()
	if running {
		s.toggleBtn.SetText("Close")
		s.portSelect.Disable()
		s.baudEntry.Disable()
	} else {
		s.toggleBtn.SetText("Open")
		s.portSelect.Enable()
		s.baudEntry.Enable()
	}
	s.toggleBtn.Enable()

	if mode := string(s.ctrl.Mode()); s.modeSelect.Selected != mode && slices.Contains(s.modeSelect.Options, mode) {
		s.modeSelect.SetSelected(mode)
	}
}
