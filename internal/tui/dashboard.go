// Package tui is the interactive operator view: a bubbletea program over a
// console session, plus a plain-text summary for non-interactive output.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"droneops-console/internal/console"
	"droneops-console/internal/ops"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

type tickMsg struct{ ops.Tick }

// commandMsg carries a phrase submitted from outside the terminal.
type commandMsg struct{ input string }

// adminMsg reports admin endpoint status.
type adminMsg struct{ active bool }

// Dashboard runs the bubbletea program. Everything that reaches the
// session from other goroutines goes through program.Send.
type Dashboard struct {
	program teaProgram
	run     func() error
}

// NewDashboard builds the program for sess. It does not start it.
func NewDashboard(ctx context.Context, sess *console.Session) *Dashboard {
	p := tea.NewProgram(newModel(ctx, sess), tea.WithAltScreen(), tea.WithContext(ctx))
	return &Dashboard{
		program: p,
		run: func() error {
			_, err := p.Run()
			return err
		},
	}
}

// Run blocks until the operator quits or ctx is cancelled.
func (d *Dashboard) Run() error { return d.run() }

// Tick forwards a timer tick to the event loop.
func (d *Dashboard) Tick(t ops.Tick) { d.program.Send(tickMsg{t}) }

// Submit queues a typed command as if the operator entered it.
func (d *Dashboard) Submit(input string) { d.program.Send(commandMsg{input: input}) }

// SetAdminStatus updates the admin indicator.
func (d *Dashboard) SetAdminStatus(active bool) { d.program.Send(adminMsg{active: active}) }
