package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-tabgraph/pkg/config"
	"github.com/dd0wney/cluso-tabgraph/pkg/logging"
	"github.com/dd0wney/cluso-tabgraph/pkg/metrics"
	"github.com/dd0wney/cluso-tabgraph/pkg/summary"
	"github.com/dd0wney/cluso-tabgraph/pkg/tabgraph"
	"github.com/dd0wney/cluso-tabgraph/pkg/visualization"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2)

	canvasStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF"))

	detailStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 1).
			Width(48)

	edgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	bridgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AA8800"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginLeft(2)

	clusterColors = []lipgloss.Color{
		"#FF5F87", "#5FD7FF", "#AFFF5F", "#FFD75F",
		"#AF87FF", "#FF8700", "#5FFFAF", "#D7AFFF",
	}
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	NextNode key.Binding
	PrevNode key.Binding
	Raise    key.Binding
	Lower    key.Binding
	Refresh  key.Binding
	Layout   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select cluster"),
	),
	NextNode: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next tab"),
	),
	PrevNode: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev tab"),
	),
	Raise: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "raise threshold"),
	),
	Lower: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "lower threshold"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "recompute"),
	),
	Layout: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "switch layout"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "more help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.NextNode, k.Raise, k.Lower, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.NextNode, k.PrevNode},
		{k.Raise, k.Lower, k.Refresh, k.Layout},
		{k.Help, k.Quit},
	}
}

const thresholdStep = 0.05

var layoutKinds = []string{tabgraph.LayoutForce, tabgraph.LayoutTree, tabgraph.LayoutCircular}

type model struct {
	engine   *tabgraph.Engine
	interval time.Duration
	table    table.Model
	help     help.Model
	keys     keyMap
	width    int
	height   int
	nodeIdx  int
	layout   int
	message  string
}

type tickMsg time.Time

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func initialModel(engine *tabgraph.Engine, interval time.Duration) model {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}

	columns := []table.Column{
		{Title: "#", Width: 3},
		{Title: "Cluster", Width: 28},
		{Title: "Tabs", Width: 5},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(8),
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
		engine:   engine,
		interval: interval,
		table:    t,
		help:     help.New(),
		keys:     keys,
		nodeIdx:  -1,
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd(m.interval)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		m.engine.Tick(1)
		if m.engine.Drain() {
			m.refreshRows()
		}
		return m, tickCmd(m.interval)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.Select):
			cid := m.table.Cursor()
			if m.engine.OnClusterSelected(cid) {
				m.nodeIdx = -1
				m.message = ""
			}
			return m, nil

		case key.Matches(msg, m.keys.NextNode):
			m.cycleNode(1)
			return m, nil

		case key.Matches(msg, m.keys.PrevNode):
			m.cycleNode(-1)
			return m, nil

		case key.Matches(msg, m.keys.Raise):
			m.adjustThreshold(thresholdStep)
			return m, nil

		case key.Matches(msg, m.keys.Lower):
			m.adjustThreshold(-thresholdStep)
			return m, nil

		case key.Matches(msg, m.keys.Layout):
			m.layout = (m.layout + 1) % len(layoutKinds)
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			if err := m.engine.Refresh(context.Background()); err != nil {
				m.message = err.Error()
			}
			return m, nil
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *model) cycleNode(step int) {
	tabs := m.engine.Tabs()
	if len(tabs) == 0 {
		return
	}
	m.nodeIdx = ((m.nodeIdx+step)%len(tabs) + len(tabs)) % len(tabs)
	m.engine.OnNodeClicked(tabs[m.nodeIdx].ID)
	if sel := m.engine.Selected(); sel.Cluster >= 0 && sel.Cluster < len(m.table.Rows()) {
		m.table.SetCursor(sel.Cluster)
	}
}

func (m *model) adjustThreshold(delta float64) {
	t := math.Round((m.engine.Threshold()+delta)*100) / 100
	t = math.Max(0, math.Min(1, t))
	if err := m.engine.SetThreshold(t); err != nil {
		m.message = err.Error()
		return
	}
	m.message = ""
}

func (m *model) refreshRows() {
	n := m.engine.NumClusters()
	rows := make([]table.Row, 0, n)
	for cid := 0; cid < n; cid++ {
		res := m.engine.ClusterSummary(cid)
		rows = append(rows, table.Row{
			fmt.Sprint(cid),
			res.Summary.Title,
			fmt.Sprint(len(m.engine.ClusterMembers(cid))),
		})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= n && n > 0 {
		m.table.SetCursor(n - 1)
	}
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf("Tab Graph  threshold %.2f  tabs %d  clusters %d  layout %s",
		m.engine.Threshold(), len(m.engine.Tabs()), m.engine.NumClusters(), layoutKinds[m.layout])))
	s.WriteString("\n")

	cols := max(20, m.width-56)
	rows := max(10, m.height-8)
	canvas := canvasStyle.Render(m.renderCanvas(cols, rows))

	side := lipgloss.JoinVertical(lipgloss.Left, m.table.View(), m.renderDetail())
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, canvas, side))

	if m.message != "" {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render("✗ " + m.message))
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return s.String()
}

// renderCanvas rasterizes the layout into a cols by rows character grid:
// spanning tree edges first, then tabs colored by cluster.
func (m model) renderCanvas(cols, rows int) string {
	cfg := m.engine.Layout().Config()
	positions, err := m.engine.StaticLayout(layoutKinds[m.layout])
	if err != nil {
		return err.Error()
	}

	project := func(p visualization.Position) (int, int) {
		x := int(p.X / cfg.Width * float64(cols-1))
		y := int(p.Y / cfg.Height * float64(rows-1))
		return min(max(x, 0), cols-1), min(max(y, 0), rows-1)
	}

	grid := make([][]string, rows)
	for y := range grid {
		grid[y] = make([]string, cols)
		for x := range grid[y] {
			grid[y][x] = " "
		}
	}

	if mst := m.engine.MST(); mst != nil {
		bridges := make(map[[2]string]bool, len(mst.BridgeEdges))
		for _, b := range mst.BridgeEdges {
			bridges[[2]string{b.Node1, b.Node2}] = true
		}
		for _, e := range mst.Edges {
			p1, ok1 := positions[e.Node1]
			p2, ok2 := positions[e.Node2]
			if !ok1 || !ok2 {
				continue
			}
			style := edgeStyle
			if bridges[[2]string{e.Node1, e.Node2}] {
				style = bridgeStyle
			}
			x1, y1 := project(p1)
			x2, y2 := project(p2)
			steps := max(abs(x2-x1), abs(y2-y1))
			for i := 1; i < steps; i++ {
				x := x1 + (x2-x1)*i/steps
				y := y1 + (y2-y1)*i/steps
				grid[y][x] = style.Render("·")
			}
		}
	}

	sel := m.engine.Selected()
	for _, tab := range m.engine.Tabs() {
		p, ok := positions[tab.ID]
		if !ok {
			continue
		}
		x, y := project(p)
		glyph := "●"
		if m.engine.Centrality(tab.ID) >= 0.99 {
			glyph = "◆"
		}
		color := lipgloss.Color("#FFFFFF")
		if cid, ok := m.engine.ClusterFor(tab.ID); ok {
			color = clusterColors[cid%len(clusterColors)]
		}
		style := lipgloss.NewStyle().Foreground(color)
		if tab.ID == sel.Node {
			style = style.Reverse(true)
		}
		grid[y][x] = style.Render(glyph)
	}

	lines := make([]string, rows)
	for y, row := range grid {
		lines[y] = strings.Join(row, "")
	}
	return strings.Join(lines, "\n")
}

func (m model) renderDetail() string {
	sel := m.engine.Selected()
	var b strings.Builder

	if sel.Node != "" {
		if tab, ok := m.engine.Tab(sel.Node); ok {
			b.WriteString(lipgloss.NewStyle().Bold(true).Render(truncate(tab.Title, 44)))
			b.WriteString("\n")
			b.WriteString(labelStyle.Render(truncate(tab.URL, 44)))
			b.WriteString("\n")
			b.WriteString(fmt.Sprintf("centrality %.2f\n\n", m.engine.Centrality(sel.Node)))
		}
	}

	if sel.Cluster < 0 {
		b.WriteString(labelStyle.Render("Select a cluster or a tab"))
		return detailStyle.Render(b.String())
	}

	res := m.engine.ClusterSummary(sel.Cluster)
	b.WriteString(lipgloss.NewStyle().Bold(true).
		Foreground(clusterColors[sel.Cluster%len(clusterColors)]).
		Render(res.Summary.Title))
	b.WriteString("\n")
	if res.Pending {
		b.WriteString(labelStyle.Render(summary.PendingTitle))
	} else {
		b.WriteString(res.Summary.Summary)
		if len(res.Summary.Tags) > 0 {
			b.WriteString("\n")
			b.WriteString(labelStyle.Render("#" + strings.Join(res.Summary.Tags, " #")))
		}
	}
	return detailStyle.Render(b.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file, reloaded on change")
	tabsPath := flag.String("tabs", "", "Path to a YAML or JSON tab list (required)")
	logPath := flag.String("log", "tabgraph-tui.log", "Log file")
	flag.Parse()

	if *tabsPath == "" {
		fmt.Fprintln(os.Stderr, "tabgraph-tui: -tabs is required")
		os.Exit(2)
	}

	if err := run(*configPath, *tabsPath, *logPath); err != nil {
		fmt.Fprintf(os.Stderr, "tabgraph-tui: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, tabsPath, logPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	logger := logging.NewJSONLogger(logFile, logging.ParseLevel(cfg.LogLevel))
	logging.SetDefaultLogger(logger)

	tabs, err := tabgraph.LoadTabs(tabsPath)
	if err != nil {
		return err
	}

	engine, err := tabgraph.New(tabgraph.Options{
		Config:   cfg,
		Provider: tabgraph.NewStaticProvider(tabs),
		Logger:   logger,
		Metrics:  metrics.NewRegistry(),
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, cfg, logger)
		if err != nil {
			logger.Warn("Config reload disabled", logging.Path(configPath), logging.Error(err))
		} else {
			engine.WatchConfig(watcher)
			defer watcher.Stop()
		}
	}

	if err := engine.Refresh(context.Background()); err != nil {
		return err
	}

	p := tea.NewProgram(initialModel(engine, cfg.Layout.TickInterval), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
