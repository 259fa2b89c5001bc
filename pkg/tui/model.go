// Package tui is the terminal month view. It holds no calendar state of its
// own beyond cursors: every change goes through the controller.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harrisonrobin/cyclecal/pkg/colors"
	"github.com/harrisonrobin/cyclecal/pkg/controller"
	"github.com/harrisonrobin/cyclecal/pkg/datekey"
	"github.com/harrisonrobin/cyclecal/pkg/grid"
)

type mode int

const (
	modeBrowse mode = iota
	modeAdding
)

// dispatchedMsg carries the result of a controller command run as a tea.Cmd.
type dispatchedMsg struct {
	view controller.View
	err  error
}

type Model struct {
	ctrl    *controller.Controller
	palette *colors.Palette
	ctx     context.Context

	view       controller.View
	taskCursor int
	mode       mode
	busy       bool
	input      textinput.Model
	status     string
	err        error
}

func New(ctx context.Context, ctrl *controller.Controller, palette *colors.Palette) *Model {
	if palette == nil {
		palette = colors.Default()
	}
	ti := textinput.New()
	ti.Placeholder = "New task"
	ti.CharLimit = 4096

	m := &Model{ctrl: ctrl, palette: palette, ctx: ctx, input: ti}
	m.view = ctrl.View()
	return m
}

// Init opens today.
func (m *Model) Init() tea.Cmd {
	return m.dispatch(controller.OpenDay{Date: m.today()})
}

func (m *Model) today() datekey.Key {
	for _, d := range m.view.Days {
		if d.IsToday {
			return d.Date
		}
	}
	return datekey.New(m.view.State.Year, m.view.State.Month, 1)
}

func (m *Model) dispatch(cmd controller.Command) tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		v, err := m.ctrl.Dispatch(m.ctx, cmd)
		return dispatchedMsg{view: v, err: err}
	}
}

func (m *Model) selected() (datekey.Key, bool) {
	if m.view.State.Selected == nil {
		return datekey.Key{}, false
	}
	return *m.view.State.Selected, true
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dispatchedMsg:
		m.busy = false
		m.view = msg.view
		m.err = msg.err
		if m.view.Detail == nil || m.taskCursor >= len(m.view.Detail.Tasks) {
			m.taskCursor = 0
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		if m.mode == modeAdding {
			return m.updateAdding(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeBrowse
		m.input.Blur()
		m.input.SetValue("")
		return m, nil
	case "enter":
		day, ok := m.selected()
		text := m.input.Value()
		m.mode = modeBrowse
		m.input.Blur()
		m.input.SetValue("")
		if !ok {
			return m, nil
		}
		m.status = "Asking for advice..."
		return m, m.dispatch(controller.AddTask{Date: day, Text: text})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	day, hasDay := m.selected()

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		return m, m.moveSelection(day, hasDay, -1)
	case "right", "l":
		return m, m.moveSelection(day, hasDay, 1)
	case "up", "k":
		return m, m.moveSelection(day, hasDay, -grid.Columns)
	case "down", "j":
		return m, m.moveSelection(day, hasDay, grid.Columns)
	case "n":
		return m, m.changeMonth(1)
	case "p":
		return m, m.changeMonth(-1)
	case "tab":
		if m.view.Detail != nil && len(m.view.Detail.Tasks) > 0 {
			m.taskCursor = (m.taskCursor + 1) % len(m.view.Detail.Tasks)
		}
	case "a":
		if hasDay {
			m.mode = modeAdding
			return m, m.input.Focus()
		}
	case "d":
		if hasDay && m.hasTasks() {
			return m, m.dispatch(controller.DeleteTask{Date: day, Index: m.taskCursor})
		}
	case "m":
		if hasDay && m.hasTasks() {
			m.status = "Moved to " + day.AddDays(1).ISO()
			return m, m.dispatch(controller.MoveTask{From: day, To: day.AddDays(1), Index: m.taskCursor})
		}
	case "esc":
		return m, m.dispatch(controller.CloseDay{})
	}
	return m, nil
}

func (m *Model) hasTasks() bool {
	return m.view.Detail != nil && len(m.view.Detail.Tasks) > 0
}

func (m *Model) moveSelection(day datekey.Key, hasDay bool, delta int) tea.Cmd {
	if !hasDay {
		return m.dispatch(controller.OpenDay{Date: datekey.New(m.view.State.Year, m.view.State.Month, 1)})
	}
	m.taskCursor = 0
	return m.dispatch(controller.OpenDay{Date: day.AddDays(delta)})
}

// changeMonth keeps a day open by selecting the 1st of the new month.
func (m *Model) changeMonth(delta int) tea.Cmd {
	first := datekey.New(m.view.State.Year, m.view.State.Month+time.Month(delta), 1)
	m.taskCursor = 0
	return m.dispatch(controller.OpenDay{Date: first})
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4")).Padding(0, 1)
	headerStyle   = lipgloss.NewStyle().Faint(true)
	dimStyle      = lipgloss.NewStyle().Faint(true)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F6BF26")).Bold(true)
	cursorStyle   = lipgloss.NewStyle().Bold(true)
	detailBox     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).MarginTop(1)
	cellWidth     = 5
	weekdayHeader = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}
)

func (m *Model) View() string {
	var b strings.Builder
	st := m.view.State
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %d", st.Month, st.Year)))
	b.WriteString("\n\n")

	var header []string
	for _, d := range weekdayHeader {
		header = append(header, headerStyle.Width(cellWidth).Render(d))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, header...))
	b.WriteString("\n")

	for _, week := range grid.Weeks(m.view.Days) {
		var cells []string
		for _, d := range week {
			cells = append(cells, m.renderCell(d))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}

	if d := m.view.Detail; d != nil {
		b.WriteString(detailBox.Render(m.renderDetail(d)))
		b.WriteString("\n")
	}

	if m.mode == modeAdding {
		b.WriteString("\n" + m.input.View() + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()) + "\n")
	} else if m.status != "" {
		b.WriteString("\n" + dimStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("←↑↓→ day • n/p month • a add • d delete • m move to next day • tab task • q quit"))
	return b.String()
}

func (m *Model) renderCell(d grid.Day) string {
	style := lipgloss.NewStyle().Width(cellWidth)
	if !d.InCurrentMonth {
		return style.Faint(true).Render(fmt.Sprintf("%2d", d.Date.Day))
	}
	label := fmt.Sprintf("%2d", d.Date.Day)
	if d.TaskCount > 0 {
		label += "•"
	}
	if d.HasAdvice {
		label += "*"
	}
	style = style.Foreground(lipgloss.Color(m.palette.Terminal(d.Phase)))
	if d.IsToday {
		style = style.Bold(true).Underline(true)
	}
	if sel := m.view.State.Selected; sel != nil && *sel == d.Date {
		style = style.Reverse(true)
	}
	return style.Render(label)
}

func (m *Model) renderDetail(d *controller.DayDetail) string {
	var b strings.Builder
	phaseStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.palette.Terminal(d.Info.Phase)))
	b.WriteString(fmt.Sprintf("%s  %s\n", d.Date.ISO(), phaseStyle.Render(d.Info.Label)))
	msg := d.Info.Message
	if d.Info.ShowWarning {
		msg = warningStyle.Render("⚠ " + msg)
	}
	b.WriteString(msg + "\n\n")

	if len(d.Tasks) == 0 {
		b.WriteString(dimStyle.Render("No tasks"))
	}
	for i, t := range d.Tasks {
		line := "  " + t.Text
		if i == m.taskCursor {
			line = cursorStyle.Render("› " + t.Text)
		}
		b.WriteString(line + "\n")
		if t.HasAdvice() {
			b.WriteString(dimStyle.Render("    "+t.Advice) + "\n")
		}
	}

	if len(d.Tasks) > 0 && len(d.Candidates) > 0 {
		b.WriteString("\n" + dimStyle.Render("Next days:") + "\n")
		for _, c := range d.Candidates {
			dot := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Terminal(c.Info.Phase))).Render("●")
			b.WriteString(fmt.Sprintf("  %s %s %s\n", dot, c.Date.ISO(), c.Info.Label))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Run starts the program on the alternate screen.
func Run(ctx context.Context, ctrl *controller.Controller, palette *colors.Palette) error {
	p := tea.NewProgram(New(ctx, ctrl, palette), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
