// Package ui renders build progress in the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"cdef/internal/buildpipeline"
)

const statusWidth = 10

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	elapsedStyle = lipgloss.NewStyle().Faint(true)
)

// arrayRow is one line of the table: the latest state of an [[array]].
type arrayRow struct {
	name    string
	stage   buildpipeline.Stage
	status  buildpipeline.Status
	elapsed time.Duration
	err     string
}

func (r arrayRow) finished() bool {
	return buildpipeline.Event{Status: r.status}.Finished()
}

// fraction estimates how far the array has come, 0..1.
func (r arrayRow) fraction() float64 {
	if r.finished() {
		return 1
	}
	if r.status != buildpipeline.StatusWorking {
		return 0
	}
	switch r.stage {
	case buildpipeline.StageLoad:
		return 0.2
	case buildpipeline.StageRender:
		return 0.6
	default:
		return 0
	}
}

type progressModel struct {
	title   string
	events  <-chan buildpipeline.Event
	spinner spinner.Model
	bar     progress.Model
	rows    []arrayRow
	byName  map[string]int
	phase   string // whole-build stage, set by events without an array
	width   int
	done    bool
}

type eventMsg buildpipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders per-array progress
// until events is closed.
func NewProgressModel(title string, arrays []string, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = activeStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		rows:    make([]arrayRow, len(arrays)),
		byName:  make(map[string]int, len(arrays)),
		width:   80,
	}
	for i, name := range arrays {
		m.rows[i] = arrayRow{name: name, status: buildpipeline.StatusQueued}
		m.byName[name] = i
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(buildpipeline.Event(msg)), m.next())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	header := m.title
	if m.phase != "" {
		header = fmt.Sprintf("%s (%s)", header, m.phase)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-statusWidth-16, 20)
	for _, row := range m.rows {
		label := statusLabel(row.stage, row.status)
		fmt.Fprintf(&b, "  %s %s", styleStatus(row.status).Render(fmt.Sprintf("%*s", statusWidth, label)), truncate(row.name, nameWidth))
		if row.finished() && row.elapsed > 0 {
			b.WriteString(elapsedStyle.Render(fmt.Sprintf("  %.1fms", float64(row.elapsed)/float64(time.Millisecond))))
		}
		b.WriteByte('\n')
		if row.err != "" {
			fmt.Fprintf(&b, "  %*s %s\n", statusWidth, "", failStyle.Render(truncate(row.err, nameWidth)))
		}
	}

	b.WriteByte('\n')
	if m.done {
		b.WriteString(m.bar.ViewAs(1.0))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteByte('\n')
	return b.String()
}

// next waits for the following event; a closed channel ends the program.
func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) apply(ev buildpipeline.Event) tea.Cmd {
	if ev.Array == "" {
		if label := statusLabel(ev.Stage, ev.Status); label != "" && ev.Status == buildpipeline.StatusWorking {
			m.phase = label
		}
		return nil
	}
	i, ok := m.byName[ev.Array]
	if !ok {
		return nil
	}
	row := &m.rows[i]
	row.stage = ev.Stage
	row.status = ev.Status
	row.elapsed = ev.Elapsed
	if ev.Err != nil {
		row.err = firstLine(ev.Err.Error())
	}
	return m.bar.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	total := 0.0
	for _, row := range m.rows {
		total += row.fraction()
	}
	return total / float64(len(m.rows))
}

func statusLabel(stage buildpipeline.Stage, status buildpipeline.Status) string {
	if status != buildpipeline.StatusWorking {
		return string(status)
	}
	switch stage {
	case buildpipeline.StageLoad:
		return "loading"
	case buildpipeline.StageRender:
		return "rendering"
	case buildpipeline.StageAssemble:
		return "assembling"
	case buildpipeline.StageWrite:
		return "writing"
	default:
		return ""
	}
}

func styleStatus(status buildpipeline.Status) lipgloss.Style {
	switch status {
	case buildpipeline.StatusDone, buildpipeline.StatusCached:
		return okStyle
	case buildpipeline.StatusError:
		return failStyle
	case buildpipeline.StatusWorking:
		return activeStyle
	default:
		return idleStyle
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
