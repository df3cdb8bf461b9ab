package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// StatusBar shows the instance, daemon state and key hints.
type StatusBar struct {
	*tview.TextView
	instance string
	status   string
	seen     int
	paused   bool
	flash    string
	hints    []string
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv}
}

// SetInstance updates the instance name display.
func (sb *StatusBar) SetInstance(name string) {
	sb.instance = name
	sb.render()
}

// SetStatus updates the daemon state and message count.
func (sb *StatusBar) SetStatus(status string, seen int) {
	sb.status = status
	sb.seen = seen
	sb.render()
}

// SetPaused toggles the paused indicator.
func (sb *StatusBar) SetPaused(paused bool) {
	sb.paused = paused
	sb.render()
}

// SetFlash sets a temporary message.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

// SetHints sets the key hints shown at the right.
func (sb *StatusBar) SetHints(hints []string) {
	sb.hints = hints
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()
	_, _ = fmt.Fprint(sb, sb.line())
}

func (sb *StatusBar) line() string {
	color := "red"
	if sb.status == "SERVING" {
		color = "green"
	}
	line := fmt.Sprintf(" [::b]%s[-:-:-] | [%s]%s[-] | %d msgs", sb.instance, color, sb.status, sb.seen)
	if sb.paused {
		line += " | [yellow]PAUSED[-]"
	}
	if sb.flash != "" {
		line += fmt.Sprintf(" | [yellow]%s[-]", tview.Escape(sb.flash))
	}
	if len(sb.hints) > 0 {
		line += " | " + strings.Join(sb.hints, " ")
	}
	return line
}
