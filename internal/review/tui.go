// Package review is the terminal UI for paging through stored jobs and
// setting their review flags.
package review

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobsync/internal/annotation"
	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/store"
)

// requestTimeout bounds each store call made from the UI.
const requestTimeout = 30 * time.Second

// sortColumns is the cycle the sort key steps through.
var sortColumns = []string{"llm_score", "date_posted", "scraping_date", "company"}

// Querier reads pages of stored jobs.
type Querier interface {
	Query(ctx context.Context, q store.Query) (store.Page, error)
}

// Flagger applies review flags to a stored job.
type Flagger interface {
	SetFlags(ctx context.Context, id string, u annotation.Update) error
}

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

type pageLoadedMsg struct {
	page store.Page
	err  error
}

type flagsSetMsg struct {
	id  string
	err error
}

// Model is the bubbletea model of the review UI.
type Model struct {
	jobs  Querier
	flags Flagger
	open  func(url string) error

	query   store.Query
	page    store.Page
	cursor  int
	loading bool
	status  string
	err     string

	view            viewState
	showDescription bool
	list            viewport.Model
	detail          viewport.Model
	spin            spinner.Model
	help            help.Model

	width, height int
	ready         bool
}

// New creates a Model starting at q.
func New(jobs Querier, flags Flagger, q store.Query) Model {
	return Model{
		jobs:  jobs,
		flags: flags,
		open:  openURL,
		query: q,
		spin:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:  help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.spin.Tick)
}

func (m Model) load() tea.Cmd {
	jobs, q := m.jobs, m.query
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		page, err := jobs.Query(ctx, q)
		return pageLoadedMsg{page: page, err: err}
	}
}

func (m Model) setFlags(id string, u annotation.Update) tea.Cmd {
	flags := m.flags
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return flagsSetMsg{id: id, err: flags.SetFlags(ctx, id, u)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.recalcLayout()
		return m, nil

	case pageLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		m.page = msg.page
		m.cursor = min(m.cursor, max(len(m.page.Rows)-1, 0))
		if m.view == viewDetail {
			m.view = viewList
		}
		m.recalcContent()
		return m, nil

	case flagsSetMsg:
		if msg.err != nil {
			m.loading = false
			m.err = msg.err.Error()
			return m, nil
		}
		m.status = "updated " + msg.id
		return m, m.load()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		if m.loading {
			return m, nil
		}
		if m.view == viewDetail {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
		return m, nil
	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
		return m, nil
	case key.Matches(msg, keys.NextPage):
		if m.query.Page < m.page.TotalPages {
			m.query.Page++
			m.cursor = 0
			return m.reload()
		}
		return m, nil
	case key.Matches(msg, keys.PrevPage):
		if m.query.Page > 1 {
			m.query.Page--
			m.cursor = 0
			return m.reload()
		}
		return m, nil
	case key.Matches(msg, keys.NextMode):
		modes := store.Modes()
		m.query.Mode = modes[(int(m.query.Mode)+1)%len(modes)]
		m.query.Page, m.cursor = 1, 0
		return m.reload()
	case key.Matches(msg, keys.Sort):
		m.query.OrderBy = nextSort(m.query.OrderBy)
		m.query.Page, m.cursor = 1, 0
		return m.reload()
	case key.Matches(msg, keys.Open):
		if _, ok := m.selected(); ok {
			m.view = viewDetail
			m.showDescription = false
			m.detail = viewport.New(max(m.width-4, 20), max(m.height-4, 5))
			m.refreshDetail()
		}
		return m, nil
	}
	if cmd, ok := m.toggle(msg); ok {
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		m.view = viewList
		return m, nil
	case key.Matches(msg, keys.Description):
		m.showDescription = !m.showDescription
		m.refreshDetail()
		m.detail.SetYOffset(0)
		return m, nil
	case key.Matches(msg, keys.Browser):
		if j, ok := m.selected(); ok {
			if u := firstURL(j.JobRecord); u != "" {
				if err := m.open(u); err != nil {
					m.err = err.Error()
				}
			}
		}
		return m, nil
	}
	if cmd, ok := m.toggle(msg); ok {
		return m, cmd
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

// toggle flips the flag bound to msg on the selected job. Setting applied or
// interested also marks the job viewed.
func (m *Model) toggle(msg tea.KeyMsg) (tea.Cmd, bool) {
	j, ok := m.selected()
	if !ok {
		return nil, false
	}
	a := j.Annotation
	var u annotation.Update
	switch {
	case key.Matches(msg, keys.Viewed):
		u.Viewed = annotation.Bool(!model.Flag(a.Viewed))
	case key.Matches(msg, keys.Interested):
		u.Interested = annotation.Bool(!model.Flag(a.Interested))
	case key.Matches(msg, keys.Applied):
		u.Applied = annotation.Bool(!model.Flag(a.Applied))
	default:
		return nil, false
	}
	if (model.Flag(u.Interested) || model.Flag(u.Applied)) && !model.Flag(a.Viewed) {
		u.Viewed = annotation.Bool(true)
	}
	m.loading = true
	m.status = ""
	return m.setFlags(j.ID, u), true
}

func (m Model) reload() (tea.Model, tea.Cmd) {
	m.loading = true
	m.status = ""
	return m, m.load()
}

func (m Model) selected() (model.StoredJob, bool) {
	if m.cursor < 0 || m.cursor >= len(m.page.Rows) {
		return model.StoredJob{}, false
	}
	return m.page.Rows[m.cursor], true
}

func (m *Model) moveCursor(delta int) {
	m.cursor = min(max(m.cursor+delta, 0), max(len(m.page.Rows)-1, 0))
	m.recalcContent()

	top := m.cursor * jobItemHeight
	bottom := top + jobItemHeight - 1
	if top < m.list.YOffset {
		m.list.SetYOffset(top)
	} else if bottom >= m.list.YOffset+m.list.Height {
		m.list.SetYOffset(bottom - m.list.Height + 1)
	}
}

func (m *Model) recalcLayout() {
	// Tabs (1) + border (2) + status (1) + help (1).
	w, h := max(m.width-2, 20), max(m.height-5, 5)
	if !m.ready {
		m.list = viewport.New(w, h)
		m.ready = true
	} else {
		m.list.Width, m.list.Height = w, h
	}
	m.detail.Width, m.detail.Height = max(m.width-4, 20), max(m.height-4, 5)
	m.help.Width = m.width
	m.recalcContent()
	m.refreshDetail()
}

func (m *Model) recalcContent() {
	m.list.SetContent(renderJobs(m.page.Rows, m.cursor))
}

func (m *Model) refreshDetail() {
	if j, ok := m.selected(); ok {
		m.detail.SetContent(renderDetail(j, m.width, m.showDescription))
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	var body, hints string
	if m.view == viewDetail {
		body = borderStyle.Width(max(m.width-2, 20)).Render(m.detail.View())
		hints = m.help.ShortHelpView(keys.detailHelp())
	} else {
		body = borderStyle.Width(max(m.width-2, 20)).Render(m.list.View())
		hints = m.help.ShortHelpView(keys.listHelp())
	}
	return m.tabs() + "\n" + body + "\n" + m.statusBar() + "\n" + hints
}

func (m Model) tabs() string {
	var parts []string
	for _, mode := range store.Modes() {
		label := strings.ReplaceAll(mode.String(), "_", " ")
		if mode == m.query.Mode {
			parts = append(parts, activeTabStyle.Render("["+label+"]"))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) statusBar() string {
	text := fmt.Sprintf("page %d/%d · %d jobs · sort %s %s",
		m.query.Page, max(m.page.TotalPages, 1), m.page.TotalRows, m.query.OrderBy, strings.ToLower(string(m.query.OrderDir)))
	if m.loading {
		text = m.spin.View() + " " + text
	}
	if m.status != "" {
		text += " · " + m.status
	}
	bar := statusBarStyle.Width(m.width).Render(text)
	if m.err != "" {
		bar += "\n" + errorStyle.Render("⚠ "+m.err)
	}
	return bar
}

func nextSort(current string) string {
	for i, c := range sortColumns {
		if c == current {
			return sortColumns[(i+1)%len(sortColumns)]
		}
	}
	return sortColumns[0]
}

// openURL opens url in the default system browser without waiting.
func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("opening urls is not supported on %s", runtime.GOOS)
	}
	return cmd.Start()
}

// Run starts the review UI in the alternate screen and blocks until the user
// quits.
func Run(jobs Querier, flags Flagger, q store.Query) error {
	m := New(jobs, flags, q)
	m.loading = true
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
