package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"deepreason/internal/domain"
)

var (
	progressLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	progressDoneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	progressFailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// progressDoneMsg is sent once the orchestrator call returns, telling the
// progress model to render a final line and quit.
type progressDoneMsg struct {
	resp domain.DeepReasoningResponse
	err  error
}

type progressModel struct {
	spinner spinner.Model
	task    string
	done    bool
	result  progressDoneMsg
}

func newProgressModel(task domain.Task) progressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = progressLabelStyle
	return progressModel{spinner: sp, task: task.Description}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressDoneMsg:
		m.done = true
		m.result = msg
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		if m.result.err == nil && m.result.resp.Success {
			return progressDoneStyle.Render(fmt.Sprintf("✓ %s\n", m.task))
		}
		return progressFailStyle.Render(fmt.Sprintf("✗ %s\n", m.task))
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), progressLabelStyle.Render(m.task))
}

// progressProgram wraps a running tea.Program so the caller can block on
// orchestrator.Execute in the main goroutine and push a single terminal
// message in once it returns.
type progressProgram struct {
	program *tea.Program
}

func newProgressProgram(task domain.Task) *progressProgram {
	return &progressProgram{program: tea.NewProgram(newProgressModel(task))}
}

// start runs the program in the background and returns a channel closed
// once the program has fully exited.
func (p *progressProgram) start() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.program.Run()
	}()
	return done
}

// finish pushes the terminal message that stops the spinner.
func (p *progressProgram) finish(resp domain.DeepReasoningResponse, err error) {
	p.program.Send(progressDoneMsg{resp: resp, err: err})
}
