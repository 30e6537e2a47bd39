package ui

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"

	"serialtool/controller"
)

// DefaultConsoleLines caps the receive area
const DefaultConsoleLines = 2000

// Console is the receive area. It implements controller.Sink and may be
// handed to the controller before the window is built.
type Console struct {
	mu       sync.Mutex
	lines    []string
	maxLines int
	list     *widget.List
	onLine   func(controller.Line)
}

// NewConsole creates an empty console keeping at most maxLines
func NewConsole(maxLines int) *Console {
	if maxLines <= 0 {
		maxLines = DefaultConsoleLines
	}
	return &Console{maxLines: maxLines}
}

// Display implements controller.Sink
func (c *Console) Display(line controller.Line) {
	c.mu.Lock()
	c.lines = append(c.lines, line.String())
	if over := len(c.lines) - c.maxLines; over > 0 {
		c.lines = append(c.lines[:0], c.lines[over:]...)
	}
	list, onLine := c.list, c.onLine
	c.mu.Unlock()

	fyne.Do(func() {
		if list != nil {
			list.Refresh()
			list.ScrollToBottom()
		}
		if onLine != nil {
			onLine(line)
		}
	})
}

// Clear empties the receive area
func (c *Console) Clear() {
	c.mu.Lock()
	c.lines = nil
	list := c.list
	c.mu.Unlock()

	fyne.Do(func() {
		if list != nil {
			list.Refresh()
		}
	})
}

// Build constructs the list widget showing the lines
func (c *Console) Build() *widget.List {
	list := widget.NewList(
		func() int {
			c.mu.Lock()
			defer c.mu.Unlock()
			return len(c.lines)
		},
		func() fyne.CanvasObject {
			label := widget.NewLabel("")
			label.TextStyle = fyne.TextStyle{Monospace: true}
			return label
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			c.mu.Lock()
			text := ""
			if id < len(c.lines) {
				text = c.lines[id]
			}
			c.mu.Unlock()
			obj.(*widget.Label).SetText(text)
		},
	)

	c.mu.Lock()
	c.list = list
	c.mu.Unlock()
	return list
}

func (c *Console) setOnLine(fn func(controller.Line)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLine = fn
}
