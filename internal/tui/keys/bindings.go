package keys

import (
	"sort"

	"github.com/gdamore/tcell/v2"
)

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds the application's keybindings by name.
type Registry struct {
	actions map[string]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]*Action)}
}

// Add registers action under name, replacing any previous binding.
func (r *Registry) Add(name string, action *Action) {
	r.actions[name] = action
}

// Hints returns visible descriptions sorted by binding name.
func (r *Registry) Hints() []string {
	names := make([]string, 0, len(r.actions))
	for name, a := range r.actions {
		if a.Visible {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	hints := make([]string, 0, len(names))
	for _, name := range names {
		hints = append(hints, r.actions[name].Description)
	}
	return hints
}

// HandleEvent runs the first matching action. Returns true if one matched.
func (r *Registry) HandleEvent(ev *tcell.EventKey) bool {
	for _, a := range r.actions {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	return false
}
