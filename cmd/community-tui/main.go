package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-community/pkg/snapshot"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	detailBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(1, 2).
			MarginLeft(2)

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("up/k", "previous record"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("down/j", "next record"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Quit}}
}

// record is one decoded snapshot entry with its kind label
type record struct {
	kind string
	rec  snapshot.PartitionRecord
}

type model struct {
	path    string
	records []record
	table   table.Model
	help    help.Model
	keys    keyMap
	width   int
	height  int
}

func loadRecords(path string) ([]record, error) {
	reader, err := snapshot.OpenMapped(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	records := make([]record, 0, reader.Count())
	for i := 0; i < reader.Count(); i++ {
		rec, err := reader.Partition(i)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		recKind, err := reader.Kind(i)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		kind := "partition"
		switch recKind {
		case snapshot.KindHierarchyLevel:
			kind = fmt.Sprintf("level %d", rec.Level)
		case snapshot.KindProfileEntry:
			kind = "profile"
		}
		records = append(records, record{kind: kind, rec: rec})
	}
	return records, nil
}

func communitySizes(membership []int) []int {
	counts := make(map[int]int)
	for _, c := range membership {
		counts[c]++
	}
	sizes := make([]int, 0, len(counts))
	for _, n := range counts {
		sizes = append(sizes, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
	return sizes
}

func initialModel(path string, records []record) model {
	columns := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Kind", Width: 10},
		{Title: "Resolution", Width: 12},
		{Title: "Quality", Width: 14},
		{Title: "Communities", Width: 12},
	}

	rows := make([]table.Row, 0, len(records))
	for i, r := range records {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i),
			r.kind,
			fmt.Sprintf("%.6g", r.rec.Resolution),
			fmt.Sprintf("%.6f", r.rec.Quality),
			fmt.Sprintf("%d", len(communitySizes(r.rec.Membership))),
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	return model{
		path:    path,
		records: records,
		table:   t,
		help:    help.New(),
		keys:    keys,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Community Snapshot Viewer"))
	b.WriteString("\n")
	b.WriteString(labelStyle.MarginLeft(2).Render(m.path))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")

	if idx := m.table.Cursor(); idx >= 0 && idx < len(m.records) {
		b.WriteString(m.detailView(m.records[idx]))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	b.WriteString("\n")
	return b.String()
}

// detailView renders community sizes of the selected record as a bar chart
func (m model) detailView(r record) string {
	sizes := communitySizes(r.rec.Membership)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  resolution %.6g  quality %.6f  nodes %d\n\n",
		labelStyle.Render("selected:"), r.kind, r.rec.Resolution, r.rec.Quality, len(r.rec.Membership))

	maxBars := 10
	if len(sizes) < maxBars {
		maxBars = len(sizes)
	}
	largest := 1
	if len(sizes) > 0 {
		largest = sizes[0]
	}
	barWidth := 40
	for i := 0; i < maxBars; i++ {
		n := sizes[i] * barWidth / largest
		if n < 1 {
			n = 1
		}
		fmt.Fprintf(&b, "%4d %s\n", sizes[i], barStyle.Render(strings.Repeat("█", n)))
	}
	if len(sizes) > maxBars {
		fmt.Fprintf(&b, "%s\n", labelStyle.Render(fmt.Sprintf("... and %d smaller communities", len(sizes)-maxBars)))
	}

	return detailBoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: community-tui SNAPSHOT\n\nBrowse a detection snapshot file interactively.\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	records, err := loadRecords(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "snapshot contains no records")
		os.Exit(1)
	}

	p := tea.NewProgram(initialModel(path, records), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
