package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/chatlog/internal/store"
	"github.com/rivo/tview"
)

// MaxLines bounds the scrollback kept in the view.
const MaxLines = 5000

// MessageView is the scrolling tail of archived messages.
type MessageView struct {
	*tview.TextView
}

// NewMessageView creates a new message view.
func NewMessageView(title string) *MessageView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true).
		SetMaxLines(MaxLines)
	tv.SetBorder(true).SetTitle(fmt.Sprintf(" %s ", title))

	return &MessageView{TextView: tv}
}

// Append writes msgs, oldest first, and follows the tail.
func (mv *MessageView) Append(msgs []store.Message) {
	for _, m := range msgs {
		_, _ = fmt.Fprint(mv, formatMessage(m))
	}
	if len(msgs) > 0 {
		mv.ScrollToEnd()
	}
}

func formatMessage(m store.Message) string {
	ts := time.UnixMilli(m.ReceivedAt).Format("15:04:05")
	return fmt.Sprintf("[::d]%s[-:-:-] [green]%s[-] %s\n", ts, tview.Escape(m.Topic), displayPayload(m.Payload))
}
