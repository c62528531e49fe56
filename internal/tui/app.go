package tui

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/OlenaTeqBlaze/adunit/internal/event"
	"github.com/OlenaTeqBlaze/adunit/internal/interstitial"
	"github.com/OlenaTeqBlaze/adunit/internal/simulator"
)

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
	sched   *Scheduler
}

// New creates a new TUI application. unit must have been created with
// sched as its scheduler so notifications land on the update loop.
func New(ctx context.Context, unit *interstitial.Unit, coord *simulator.Coordinator, sched *Scheduler, bus *event.Bus) *App {
	return &App{
		model: NewModel(ctx, unit, coord, sched, bus),
		sched: sched,
	}
}

// Run starts the TUI application
func (a *App) Run() error {
	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
	)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		if _, ok := <-sigChan; ok {
			a.program.Send(tea.Quit())
		}
	}()

	a.sched.Start(a.program)
	defer a.sched.Stop()

	_, err := a.program.Run()
	a.model.Detach()

	// Clean up signal handler
	signal.Stop(sigChan)
	close(sigChan)

	return err
}
