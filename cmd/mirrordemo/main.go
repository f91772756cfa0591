// mirrordemo is a self-contained terminal demo of distributed mirror
// verification: append events, tamper with one party's copy and watch
// the comparison catch it.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/juanpablocruz/flightrec/internal/mirror"
	"github.com/juanpablocruz/flightrec/pkg/ledger"
	"github.com/juanpablocruz/flightrec/pkg/storage"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	borderStyle = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

type model struct {
	source  *ledger.Ledger
	mirrors *mirror.Network

	table table.Model
	log   viewport.Model
	lines []string
	seq   int
}

func newModel(dir string) (*model, error) {
	src := ledger.New(storage.NewFileStore(filepath.Join(dir, "events.jsonl")))
	net := mirror.New(nil)

	columns := []table.Column{
		{Title: "Mirror", Width: 12},
		{Title: "Hash", Width: 20},
		{Title: "Events", Width: 7},
		{Title: "Syncs", Width: 6},
		{Title: "State", Width: 10},
	}
	t := table.New(table.WithColumns(columns), table.WithHeight(5))
	st := table.DefaultStyles()
	st.Header = st.Header.Bold(true)
	st.Selected = lipgloss.NewStyle()
	t.SetStyles(st)

	vp := viewport.New(70, 10)

	m := &model{source: src, mirrors: net, table: t, log: vp}
	m.logf("ready: %d events in source ledger", src.Len())
	m.refresh()
	return m, nil
}

func (m *model) logf(format string, args ...any) {
	m.lines = append(m.lines, fmt.Sprintf(format, args...))
	if len(m.lines) > 200 {
		m.lines = m.lines[len(m.lines)-200:]
	}
	m.log.SetContent(lipgloss.JoinVertical(lipgloss.Left, m.lines...))
	m.log.GotoBottom()
}

func short(h string) string {
	if len(h) > 18 {
		return h[:18] + ".."
	}
	return h
}

func (m *model) refresh() {
	rows := make([]table.Row, 0, 3)
	for _, loc := range mirror.Locations() {
		rep, err := m.mirrors.Get(loc)
		if err != nil {
			continue
		}
		state := "clean"
		if rep.Tampered {
			state = "TAMPERED"
		}
		rows = append(rows, table.Row{
			string(loc),
			short(rep.Hash()),
			fmt.Sprintf("%d", len(rep.Events)),
			fmt.Sprintf("%d", rep.SyncCount),
			state,
		})
	}
	m.table.SetRows(rows)
}

func (m *model) Init() tea.Cmd {
	return nil
}

var demoTypes = []ledger.EventType{
	ledger.TrainingStarted,
	ledger.SafetyEvalRun,
	ledger.SafetyEvalPassed,
	ledger.ModelDeployed,
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.log.Width = msg.Width - 4
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "a":
			et := demoTypes[m.seq%len(demoTypes)]
			m.seq++
			e, err := m.source.Append(ledger.EventInput{
				EventType:   et,
				Description: fmt.Sprintf("demo event %d", m.seq),
			})
			if err != nil {
				m.logf("append failed: %v", err)
			} else {
				m.logf("appended event %d (%s)", e.ID, e.EventType)
			}
		case "s":
			if err := m.mirrors.SyncAll(m.source.Events()); err != nil {
				m.logf("sync failed: %v", err)
			} else {
				m.logf("synced %d events to all mirrors", m.source.Len())
			}
		case "1", "2", "3":
			loc := mirror.Locations()[int(msg.String()[0]-'1')]
			if _, err := m.mirrors.Tamper(loc, mirror.TamperModify); err != nil {
				m.logf("tamper failed: %v", err)
			} else {
				m.logf("%s", badStyle.Render(fmt.Sprintf("tampered with %s mirror", loc)))
			}
		case "c":
			cmp := m.mirrors.Compare()
			if cmp.AllConsistent {
				m.logf("%s", okStyle.Render("compare: "+cmp.Message))
			} else {
				m.logf("%s", badStyle.Render("compare: "+cmp.Message))
			}
		case "t":
			det := m.mirrors.DetectTampering(m.source.Events())
			if det.TamperedCount == 0 {
				m.logf("%s", okStyle.Render("detect: every mirror matches the source"))
			} else {
				for loc, match := range det.Matches {
					if !match {
						m.logf("%s", badStyle.Render(fmt.Sprintf("detect: %s diverges from source", loc)))
					}
				}
			}
		case "r":
			if err := m.mirrors.Reset(); err != nil {
				m.logf("reset failed: %v", err)
			} else {
				m.logf("mirrors reset")
			}
		}
		m.refresh()
	}

	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	help := helpStyle.Render("a append  s sync  1/2/3 tamper lab/auditor/gov  c compare  t detect  r reset  q quit")
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("flightrec mirror demo"),
		fmt.Sprintf("source ledger: %d events, tail %s", m.source.Len(), short(m.source.LatestHash())),
		borderStyle.Render(m.table.View()),
		borderStyle.Render(m.log.View()),
		help,
	)
}

func main() {
	dir, err := os.MkdirTemp("", "mirrordemo-*")
	if err != nil {
		fmt.Fprintln(os.Stderr, "mirrordemo:", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	m, err := newModel(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mirrordemo:", err)
		os.Exit(1)
	}
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "mirrordemo:", err)
		os.Exit(1)
	}
}
