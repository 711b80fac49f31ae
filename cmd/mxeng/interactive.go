package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/mxbridge/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// maxEntries bounds the transcript kept in memory.
const maxEntries = 200

type entry struct {
	err    error
	input  string
	output string
}

type interactiveModel struct {
	eng     *runtime.Engine
	logger  *zap.Logger
	input   textinput.Model
	entries []entry
	history []string
	recall  int
	height  int
	busy    bool
}

type evalMsg struct {
	entry entry
}

func newInteractiveModel(eng *runtime.Engine, logger *zap.Logger) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(">> ")
	ti.Placeholder = "x = [1, 2, 3]"
	ti.Width = 60
	ti.Focus()
	return &interactiveModel{
		eng:    eng,
		logger: logger,
		input:  ti,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.input.Width = msg.Width - 4

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit

		case "esc":
			m.input.SetValue("")
			m.recall = len(m.history)
			return m, nil

		case "up":
			if m.recall > 0 {
				m.recall--
				m.input.SetValue(m.history[m.recall])
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.recall < len(m.history)-1 {
				m.recall++
				m.input.SetValue(m.history[m.recall])
				m.input.CursorEnd()
			} else {
				m.recall = len(m.history)
				m.input.SetValue("")
			}
			return m, nil

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy {
				return m, nil
			}
			if line == "exit" || line == "quit" {
				return m, tea.Quit
			}
			m.history = append(m.history, line)
			m.recall = len(m.history)
			m.input.SetValue("")
			m.busy = true
			return m, m.execute(line)
		}

	case evalMsg:
		m.busy = false
		m.entries = append(m.entries, msg.entry)
		if len(m.entries) > maxEntries {
			m.entries = m.entries[len(m.entries)-maxEntries:]
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// execute runs one console line off the UI goroutine. Lines starting with
// ':get ' print a variable as JSON; everything else is evaluated.
func (m *interactiveModel) execute(line string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		e := entry{input: line}

		if name, ok := strings.CutPrefix(line, ":get "); ok {
			v, err := m.eng.GetVariable(ctx, strings.TrimSpace(name))
			if err != nil {
				e.err = err
				return evalMsg{entry: e}
			}
			data, err := json.MarshalIndent(v, "", "  ")
			e.output, e.err = string(data)+"\n", err
			return evalMsg{entry: e}
		}

		e.output, e.err = m.eng.Evaluate(ctx, line)
		if e.err != nil {
			m.logger.Debug("console evaluate failed", zap.String("expr", line), zap.Error(e.err))
		}
		return evalMsg{entry: e}
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("mxeng"))
	b.WriteString(" ")
	b.WriteString(infoStyle.Render(fmt.Sprintf("session %g", m.eng.Session().ID())))
	b.WriteString("\n\n")

	for _, line := range m.transcript() {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	if m.busy {
		b.WriteString(helpStyle.Render("evaluating..."))
	} else {
		b.WriteString(helpStyle.Render("enter evaluate • :get name show JSON • ↑/↓ history • ctrl+c quit"))
	}
	return b.String()
}

// transcript renders past entries, trimmed to the lines that fit above the
// prompt.
func (m *interactiveModel) transcript() []string {
	var lines []string
	for _, e := range m.entries {
		lines = append(lines, promptStyle.Render(">> ")+e.input)
		if out := strings.TrimRight(e.output, "\n"); out != "" {
			for _, l := range strings.Split(out, "\n") {
				if strings.HasPrefix(l, "Error: ") {
					lines = append(lines, errorStyle.Render(l))
				} else {
					lines = append(lines, resultStyle.Render(l))
				}
			}
		}
		if e.err != nil {
			lines = append(lines, errorStyle.Render(fmt.Sprintf("Error: %v", e.err)))
		}
	}

	if room := m.height - 6; m.height > 0 && len(lines) > room {
		if room < 0 {
			room = 0
		}
		lines = lines[len(lines)-room:]
	}
	return lines
}

func runInteractive(eng *runtime.Engine, logger *zap.Logger) error {
	p := tea.NewProgram(newInteractiveModel(eng, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
