package ui

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"serialtool/codec"
	"serialtool/controller"
	"serialtool/library"
)

var commandColumns = []string{"Name", "Command", "Type", "Note"}

// CommandsTab shows the stored command library
type CommandsTab struct {
	window      fyne.Window
	ctrl        *controller.Controller
	table       *widget.Table
	entries     []library.Entry
	selectedIdx int
	onSent      func()
}

// NewCommandsTab creates the commands tab. onSent runs after a stored
// command was sent, since sending may switch the display mode.
func NewCommandsTab(window fyne.Window, ctrl *controller.Controller, onSent func()) *CommandsTab {
	return &CommandsTab{
		window:      window,
		ctrl:        ctrl,
		selectedIdx: -1,
		onSent:      onSent,
	}
}

// Build constructs the command library UI
func (c *CommandsTab) Build() fyne.CanvasObject {
	c.entries = c.ctrl.Library().Entries()

	c.table = widget.NewTable(
		func() (int, int) {
			return len(c.entries) + 1, len(commandColumns) // +1 for header row
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.TableCellID, cell fyne.CanvasObject) {
			label := cell.(*widget.Label)

			if id.Row == 0 {
				label.SetText(commandColumns[id.Col])
				label.TextStyle = fyne.TextStyle{Bold: true}
				return
			}

			label.TextStyle = fyne.TextStyle{}
			if id.Row-1 >= len(c.entries) {
				label.SetText("")
				return
			}
			e := c.entries[id.Row-1]
			switch id.Col {
			case 0:
				label.SetText(e.Name)
			case 1:
				label.SetText(e.Payload)
			case 2:
				label.SetText(string(e.Encoding))
			case 3:
				label.SetText(e.Note)
			}
		},
	)
	c.table.SetColumnWidth(0, 160) // Name
	c.table.SetColumnWidth(1, 260) // Command
	c.table.SetColumnWidth(2, 70)  // Type
	c.table.SetColumnWidth(3, 300) // Note

	c.table.OnSelected = func(id widget.TableCellID) {
		c.selectedIdx = id.Row - 1
	}

	addBtn := widget.NewButton("Add Command", c.showAddDialog)

	deleteBtn := widget.NewButton("Delete Command", func() {
		if !c.hasSelection() {
			dialog.ShowInformation("No Selection", "Please select a command to delete", c.window)
			return
		}
		c.deleteCommand(c.selectedIdx)
	})

	sendBtn := widget.NewButton("Send Selected", func() {
		if !c.hasSelection() {
			dialog.ShowInformation("No Selection", "Please select a command to send", c.window)
			return
		}
		c.sendCommand(c.selectedIdx)
	})
	sendBtn.Importance = widget.HighImportance

	buttons := container.NewVBox(
		addBtn,
		deleteBtn,
		widget.NewSeparator(),
		sendBtn,
	)

	return container.NewBorder(
		container.NewVBox(
			widget.NewLabel("Stored Commands"),
			widget.NewSeparator(),
		),
		nil,
		nil,
		buttons,
		container.NewScroll(c.table),
	)
}

// Refresh reloads rows from the library
func (c *CommandsTab) Refresh() {
	c.entries = c.ctrl.Library().Entries()
	c.selectedIdx = -1
	if c.table != nil {
		c.table.UnselectAll()
		c.table.Refresh()
	}
}

func (c *CommandsTab) hasSelection() bool {
	return c.selectedIdx >= 0 && c.selectedIdx < len(c.entries)
}

func (c *CommandsTab) sendCommand(idx int) {
	err := c.ctrl.SendStored(idx)
	var indexErr *library.IndexError
	if errors.As(err, &indexErr) {
		dialog.ShowError(err, c.window)
		c.Refresh()
		return
	}
	if c.onSent != nil {
		c.onSent()
	}
}

// showAddDialog asks for a new entry and appends it when valid
func (c *CommandsTab) showAddDialog() {
	nameEntry := widget.NewEntry()
	commandEntry := widget.NewEntry()

	modes := codec.List()
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	typeSelect := widget.NewSelect(names, nil)
	typeSelect.SetSelected(string(c.ctrl.Mode()))

	noteEntry := widget.NewEntry()

	items := []*widget.FormItem{
		{Text: "Name", Widget: nameEntry},
		{Text: "Command", Widget: commandEntry},
		{Text: "Type", Widget: typeSelect},
		{Text: "Note", Widget: noteEntry},
	}

	dialog.ShowForm("Add Command", "Add", "Cancel", items, func(submitted bool) {
		if !submitted {
			return
		}

		entry := library.Entry{
			Name:     nameEntry.Text,
			Payload:  commandEntry.Text,
			Encoding: codec.Mode(typeSelect.Selected),
			Note:     noteEntry.Text,
		}
		if err := entry.Validate(); err != nil {
			dialog.ShowError(fmt.Errorf("command not added: %w", err), c.window)
			return
		}

		c.ctrl.Library().Add(entry)
		c.Refresh()
	}, c.window)
}

// deleteCommand removes a row after confirmation
func (c *CommandsTab) deleteCommand(idx int) {
	dialog.ShowConfirm("Delete Command", "Are you sure you want to delete this command?", func(confirmed bool) {
		if !confirmed {
			return
		}
		if err := c.ctrl.Library().RemoveAt(idx); err != nil {
			dialog.ShowError(err, c.window)
		}
		c.Refresh()
	}, c.window)
}
