package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
)

// ErrInterrupted is returned by RunWithProgress when the user quits the
// progress view before the work finished.
var ErrInterrupted = errors.New("interrupted")

type startMsg struct {
	description string
	total       int
}

type advanceMsg int

type doneMsg struct{ err error }

// ProgressModel shows a spinner, a bar and row counts for one running load.
type ProgressModel struct {
	spinner spinner.Model
	bar     progress.Model

	description string
	total       int
	current     int
	started     time.Time
	now         func() time.Time

	done        bool
	interrupted bool
	err         error
}

func NewProgressModel() ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	return ProgressModel{
		spinner: s,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		description: "preparing",
		now:         time.Now,
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.interrupted = true
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(60, msg.Width-30))
		return m, nil
	case startMsg:
		m.description = msg.description
		m.total = msg.total
		m.current = 0
		m.started = m.now()
		return m, nil
	case advanceMsg:
		m.current += int(msg)
		if m.total > 0 && m.current > m.total {
			m.current = m.total
		}
		return m, nil
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	bar, cmd := m.bar.Update(msg)
	m.bar = bar.(progress.Model)
	return m, cmd
}

// Percent is the completed share, 0 when the total is unknown.
func (m ProgressModel) Percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.current) / float64(m.total)
}

// Rate is rows per second since the load started.
func (m ProgressModel) Rate() float64 {
	if m.started.IsZero() {
		return 0
	}
	elapsed := m.now().Sub(m.started).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.current) / elapsed
}

func (m ProgressModel) View() string {
	pad := strings.Repeat(" ", 2)

	head := m.spinner.View() + " " + HighlightStyle.Render(m.description)
	switch {
	case m.done && m.err != nil:
		head = ErrorStyle.Render("✗ " + m.description)
	case m.done:
		head = SuccessStyle.Render("✓ " + m.description)
	case m.interrupted:
		head = WarningStyle.Render("! " + m.description)
	}

	stats := InfoStyle.Render(fmt.Sprintf("%d/%d rows", m.current, m.total))
	rate := DimStyle.Render(fmt.Sprintf("%.0f rows/s", m.Rate()))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		head,
		pad+m.bar.ViewAs(m.Percent()),
		pad+stats+"  "+rate,
	) + "\n"
}

// ProgressReporter forwards load progress to a running program. It
// satisfies loader.Progress.
type ProgressReporter struct {
	program *tea.Program
}

func (r *ProgressReporter) Start(description string, total int) {
	r.program.Send(startMsg{description: description, total: total})
}

func (r *ProgressReporter) Advance(rows int) {
	r.program.Send(advanceMsg(rows))
}

// RunWithProgress runs fn while rendering its progress. fn receives a
// context that is canceled when the user quits the view.
func RunWithProgress(ctx context.Context, fn func(ctx context.Context, r *ProgressReporter) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(), tea.WithContext(ctx))
	r := &ProgressReporter{program: p}

	errCh := make(chan error, 1)
	go func() {
		err := fn(ctx, r)
		// Send returns immediately once the program has exited
		p.Send(doneMsg{err: err})
		errCh <- err
	}()

	final, runErr := p.Run()
	cancel()
	err := <-errCh

	if m, ok := final.(ProgressModel); ok && m.interrupted {
		if err == nil || errors.Is(err, context.Canceled) {
			return ErrInterrupted
		}
	}
	if err != nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return errors.Wrap(runErr, "progress view")
	}
	return nil
}
