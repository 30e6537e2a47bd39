package ui

import (
	"context"
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"serialtool/config"
	"serialtool/controller"
)

// MainUI represents the main user interface
type MainUI struct {
	window   fyne.Window
	ctrl     *controller.Controller
	logger   *slog.Logger
	session  *SessionTab
	commands *CommandsTab
	status   *StatusTab
	footer   *widget.Label
	cancel   context.CancelFunc
}

// NewMainUI creates a new main UI. console must be the sink the controller
// was created with.
func NewMainUI(window fyne.Window, ctrl *controller.Controller, cfg *config.Config, console *Console, logger *slog.Logger) *MainUI {
	ui := &MainUI{
		window: window,
		ctrl:   ctrl,
		logger: logger,
	}

	// Create tabs
	ui.session = NewSessionTab(window, ctrl, cfg, console, logger)
	ui.commands = NewCommandsTab(window, ctrl, func() { ui.session.syncState() })
	ui.status = NewStatusTab(ctrl)

	return ui
}

// Build constructs the UI layout
func (m *MainUI) Build() *fyne.Container {
	tabs := container.NewAppTabs(
		container.NewTabItem("Session", m.session.Build()),
		container.NewTabItem("Commands", m.commands.Build()),
		container.NewTabItem("Status", m.status.Build()),
	)

	return container.NewBorder(
		nil,
		m.buildFooter(),
		nil,
		nil,
		tabs,
	)
}

// MainMenu builds the window menu
func (m *MainUI) MainMenu() *fyne.MainMenu {
	file := fyne.NewMenu("File",
		fyne.NewMenuItem("Export Commands...", m.exportCommands),
		fyne.NewMenuItem("Import Commands...", m.importCommands),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Set Log Directory...", m.chooseLogDirectory),
	)
	return fyne.NewMainMenu(file)
}

// Start begins the background refresh loops
func (m *MainUI) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	go m.session.WatchPorts(ctx)
	go m.status.Run(ctx)
}

// Stop ends the background refresh loops
func (m *MainUI) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

// buildFooter creates the footer section
func (m *MainUI) buildFooter() *fyne.Container {
	m.footer = widget.NewLabel("")
	m.updateFooter()

	return container.NewVBox(
		widget.NewSeparator(),
		m.footer,
	)
}

func (m *MainUI) updateFooter() {
	m.footer.SetText("Logging to " + m.ctrl.LogPath())
}

func (m *MainUI) exportCommands() {
	save := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, m.window)
			return
		}
		if w == nil {
			return
		}
		path := w.URI().Path()
		w.Close()

		if err := m.ctrl.Library().Export(path); err != nil {
			dialog.ShowError(err, m.window)
			return
		}
		m.logger.Info("Exported command library", "path", path)
	}, m.window)
	save.SetFileName("commands.json")
	save.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	save.Show()
}

func (m *MainUI) importCommands() {
	open := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, m.window)
			return
		}
		if r == nil {
			return
		}
		path := r.URI().Path()
		r.Close()

		if err := m.ctrl.Library().Import(path); err != nil {
			dialog.ShowError(err, m.window)
			return
		}
		m.commands.Refresh()
		m.logger.Info("Imported command library", "path", path, "commands", m.ctrl.Library().Len())
	}, m.window)
	open.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	open.Show()
}

func (m *MainUI) chooseLogDirectory() {
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, m.window)
			return
		}
		if dir == nil {
			return
		}
		m.ctrl.SetLogDirectory(dir.Path())
		m.updateFooter()
		dialog.ShowInformation("Log Directory", fmt.Sprintf("Traffic is now logged to\n%s", m.ctrl.LogPath()), m.window)
	}, m.window)
}
