package ui

import (
	"time"

	"bookman/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	notifyDuration   = 3 * time.Second
	editHintDuration = 2 * time.Second
)

// notificationExpiredMsg fires when the timer for generation gen runs out.
type notificationExpiredMsg struct {
	gen int
}

// Notifier holds at most one transient message. Every Notify or Clear bumps
// the generation, so a timer started earlier can never clear a newer message.
type Notifier struct {
	current *model.Notification
	gen     int

	tick func(time.Duration, func(time.Time) tea.Msg) tea.Cmd
	now  func() time.Time
}

// NewNotifier creates an empty notifier driven by tea.Tick.
func NewNotifier() *Notifier {
	return &Notifier{
		tick: tea.Tick,
		now:  time.Now,
	}
}

// Notify replaces the current message and schedules its expiry after d.
func (n *Notifier) Notify(text string, category model.Category, d time.Duration) tea.Cmd {
	n.gen++
	gen := n.gen
	n.current = &model.Notification{
		Text:      text,
		Category:  category,
		ExpiresAt: n.now().Add(d),
	}
	return n.tick(d, func(time.Time) tea.Msg {
		return notificationExpiredMsg{gen: gen}
	})
}

// Expire clears the message if gen is still current. It reports whether it did.
func (n *Notifier) Expire(gen int) bool {
	if gen != n.gen || n.current == nil {
		return false
	}
	n.current = nil
	return true
}

// Clear empties the channel now and invalidates pending timers.
func (n *Notifier) Clear() {
	n.gen++
	n.current = nil
}

// Current returns the live message, if any.
func (n *Notifier) Current() (model.Notification, bool) {
	if n.current == nil {
		return model.Notification{}, false
	}
	return *n.current, true
}

// View renders the banner for the live message.
func (n *Notifier) View(width int) string {
	note, ok := n.Current()
	if !ok {
		return ""
	}
	switch note.Category {
	case model.CategoryError:
		return ErrorStyle.Width(width).Render("Error: " + note.Text)
	case model.CategorySuccess:
		return SuccessStyle.Width(width).Render(note.Text)
	default:
		return InfoStyle.Width(width).Render(note.Text)
	}
}
