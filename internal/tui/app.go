package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatlog/internal/tui/keys"
	"github.com/matheus3301/chatlog/internal/tui/model"
	"github.com/matheus3301/chatlog/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	backlogSize     = 200
	refreshInterval = 500 * time.Millisecond
	statusInterval  = 5 * time.Second
)

// App tails one instance's message archive.
type App struct {
	app       *tview.Application
	vm        *model.ViewModel
	registry  *keys.Registry
	statusBar *views.StatusBar
	msgView   *views.MessageView
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(vm *model.ViewModel, instanceName string) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:       tview.NewApplication(),
		vm:        vm,
		registry:  keys.NewRegistry(),
		statusBar: views.NewStatusBar(),
		msgView:   views.NewMessageView(instanceName),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetInstance(instanceName)
	a.setupBindings()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.Add("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: a.Stop,
	})
	a.registry.Add("escape", &keys.Action{
		Key:     tcell.KeyEscape,
		Handler: a.Stop,
	})
	a.registry.Add("pause", &keys.Action{
		Rune: 'p', Key: tcell.KeyRune,
		Description: "p:pause", Visible: true,
		Handler: func() {
			paused := a.vm.TogglePause()
			a.statusBar.SetPaused(paused)
		},
	})
	a.registry.Add("clear", &keys.Action{
		Rune: 'c', Key: tcell.KeyRune,
		Description: "c:clear", Visible: true,
		Handler: func() { a.msgView.Clear() },
	})
	a.statusBar.SetHints(a.registry.Hints())
}

func (a *App) setupLayout() {
	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.msgView, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if a.registry.HandleEvent(event) {
			return nil
		}
		return event
	})
}

// Run loads the backlog, starts polling and blocks until the user quits.
func (a *App) Run() error {
	go func() {
		a.vm.LoadStatus(a.ctx)
		msgs, err := a.vm.LoadBacklog(backlogSize)
		if err != nil {
			a.vm.Flash.Set("Load failed: "+err.Error(), 5*time.Second)
		}
		a.app.QueueUpdateDraw(func() {
			a.msgView.Append(msgs)
			a.statusBar.SetStatus(a.vm.Status(), a.vm.Seen())
			a.statusBar.SetFlash(a.vm.Flash.Get())
		})

		a.startRefreshLoop()
	}()

	return a.app.Run()
}

func (a *App) startRefreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	statusTicker := time.NewTicker(statusInterval)
	go func() {
		defer ticker.Stop()
		defer statusTicker.Stop()
		for {
			select {
			case <-ticker.C:
				msgs, err := a.vm.Poll()
				if err != nil {
					a.vm.Flash.Set("Poll failed: "+err.Error(), 5*time.Second)
				}
				a.app.QueueUpdateDraw(func() {
					a.msgView.Append(msgs)
					a.statusBar.SetStatus(a.vm.Status(), a.vm.Seen())
					a.statusBar.SetFlash(a.vm.Flash.Get())
				})
			case <-statusTicker.C:
				a.vm.LoadStatus(a.ctx)
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
