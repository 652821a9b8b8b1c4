package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"stockadvisor/internal/browse"
	"stockadvisor/internal/config"
	"stockadvisor/internal/dashboard"
	"stockadvisor/internal/metrics"
	"stockadvisor/internal/store"
	"stockadvisor/internal/util"
	"stockadvisor/pkg/advisor"
)

// Styles.
var (
	tickerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	scoreStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	classStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	priceStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	capStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	colHeaderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	noteStyle       = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("14"))
	sectionStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	loadingBarStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3")) // black on yellow
)

// Messages.
type resultMsg struct{ res browse.Result }

type snapshotSavedMsg struct {
	capFilter advisor.CapFilter
	count     int
	err       error
}

// Model.
type model struct {
	ctrl      *browse.Controller
	ctx       context.Context
	cancel    context.CancelFunc
	snapshots store.SnapshotStore // nil when storage.data_dir is unset
	logger    *slog.Logger

	viewport      viewport.Model
	input         textinput.Model
	inputFocused  bool
	ready         bool
	width, height int

	status string
}

func initialModel(ctx context.Context, cancel context.CancelFunc, ctrl *browse.Controller, snapshots store.SnapshotStore, logger *slog.Logger) model {
	ti := textinput.New()
	ti.Placeholder = "ticker, e.g. TCS"
	ti.Prompt = ""
	ti.CharLimit = 32
	ti.Width = 20

	return model{
		ctrl:      ctrl,
		ctx:       ctx,
		cancel:    cancel,
		snapshots: snapshots,
		logger:    logger,
		input:     ti,
	}
}

func (m model) Init() tea.Cmd {
	return m.run(m.ctrl.Mount())
}

// run executes req off the event loop and delivers its Result as a message.
func (m model) run(req *browse.Request) tea.Cmd {
	if req == nil {
		return nil
	}
	r := *req
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return resultMsg{res: ctrl.Execute(ctx, r)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
		if m.inputFocused {
			return m.updateInput(msg)
		}

		switch msg.String() {
		case "q":
			m.cancel()
			return m, tea.Quit
		case "n", "right":
			return m.refresh(m.run(m.ctrl.Next()))
		case "p", "left":
			return m.refresh(m.run(m.ctrl.Previous()))
		case "r":
			return m.refresh(m.run(m.ctrl.Reset()))
		case "c":
			req, err := m.ctrl.SetCapFilter(m.ctrl.Page().Cap.Next())
			if err != nil {
				m.logger.Error("cycling cap filter", "error", err)
				return m, nil
			}
			return m.refresh(m.run(req))
		case "tab":
			m.ctrl.ToggleExchange()
			return m.refresh(nil)
		case "/":
			m.inputFocused = true
			cmd := m.input.Focus()
			return m.refresh(cmd)
		case "s":
			cmd := m.saveSnapshot()
			return m.refresh(cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerH := 1
		inputH := 1
		footerH := 1
		vpHeight := m.height - headerH - inputH - footerH
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.viewport.SetContent(m.renderContent())
		return m, nil

	case resultMsg:
		if m.ctrl.Apply(msg.res) && msg.res.Request.Kind != browse.KindLookup && m.ready {
			m.viewport.GotoTop()
		}
		return m.refresh(nil)

	case snapshotSavedMsg:
		if msg.err != nil {
			m.logger.Error("saving snapshot", "cap", msg.capFilter, "error", msg.err)
			m.status = "snapshot failed: " + msg.err.Error()
		} else {
			m.logger.Info("snapshot saved", "cap", msg.capFilter, "records", msg.count)
			m.status = fmt.Sprintf("saved %d records (%s)", msg.count, msg.capFilter)
		}
		return m.refresh(nil)
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		req := m.ctrl.Analyze(m.input.Value())
		m.input.Blur()
		m.inputFocused = false
		return m.refresh(m.run(req))
	case "esc":
		m.input.Blur()
		m.inputFocused = false
		return m.refresh(nil)
	case "tab":
		m.ctrl.ToggleExchange()
		return m.refresh(nil)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// refresh re-renders the viewport and passes cmd through.
func (m model) refresh(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if m.ready {
		m.viewport.SetContent(m.renderContent())
	}
	return m, cmd
}

func (m *model) saveSnapshot() tea.Cmd {
	if m.snapshots == nil {
		m.status = "snapshots disabled (set storage.data_dir)"
		return nil
	}
	page := m.ctrl.Page()
	if len(page.Records) == 0 {
		m.status = "nothing to save"
		return nil
	}
	snaps, ctx := m.snapshots, m.ctx
	recs, capFilter := page.Records, page.Cap
	return func() tea.Msg {
		err := snaps.WriteSnapshot(ctx, capFilter, time.Now(), recs)
		return snapshotSavedMsg{capFilter: capFilter, count: len(recs), err: err}
	}
}

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}

	page := m.ctrl.Page()
	headerText := fmt.Sprintf(
		" Stock Advisor    health: %s    cap: %s    page %d/%d    records: %s ",
		dashboard.FormatHealth(page.Health),
		page.Cap,
		page.Cursor,
		browse.MaxPages,
		dashboard.FormatInt(len(page.Records)),
	)
	var headerBar string
	if m.ctrl.Busy() {
		headerBar = loadingBarStyle.Render(padOrTrunc(headerText+"   loading... ", m.width))
	} else {
		headerBar = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("4")).
			Render(padOrTrunc(headerText, m.width))
	}

	lookup := m.ctrl.Lookup()
	inputLine := fmt.Sprintf(" lookup [%s] %s", lookup.Exchange, m.input.View())
	if !m.inputFocused {
		inputLine = dimStyle.Render(inputLine + "  (/ to type)")
	}

	footerLeft := " q quit  n/p page  r reset  c cap  / lookup  tab exchange  s save"
	if page.Disclaimer != "" {
		footerLeft += "    " + page.Disclaimer
	}
	footerRight := fmt.Sprintf("%.0f%% ", m.viewport.ScrollPercent()*100)
	gap := m.width - lipgloss.Width(footerLeft) - lipgloss.Width(footerRight)
	if gap < 0 {
		gap = 0
	}
	footerBar := lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("8")).
		Render(padOrTrunc(footerLeft+strings.Repeat(" ", gap)+footerRight, m.width))

	return headerBar + "\n" + inputLine + "\n" + m.viewport.View() + "\n" + footerBar
}

func (m model) renderContent() string {
	var b strings.Builder

	renderLookup(&b, m.ctrl.Lookup(), m.width)

	page := m.ctrl.Page()
	b.WriteString(sectionStyle.Render(padOrTrunc(fmt.Sprintf(" Top picks (%s) ", page.Cap), m.width)))
	b.WriteString("\n")

	if page.Err != "" {
		b.WriteString(errorStyle.Render("  " + page.Err))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(dimStyle.Render("  " + m.status))
		b.WriteString("\n")
	}

	switch {
	case len(page.Records) > 0:
		renderSummary(&b, page.Records)
		renderHeaderRow(&b)
		for i, r := range page.Records {
			renderRecord(&b, i+1, r, m.width)
		}
		if !page.HasMore() {
			b.WriteString(dimStyle.Render("  end of results"))
			b.WriteString("\n")
		}
	case page.Loading():
		b.WriteString(dimStyle.Render("  Loading..."))
		b.WriteString("\n")
	case page.Phase == browse.PhaseReady:
		b.WriteString(dimStyle.Render("  no recommendations"))
		b.WriteString("\n")
	}
	return b.String()
}

func renderLookup(b *strings.Builder, s browse.LookupState, width int) {
	if s.Ticker == "" {
		return
	}
	b.WriteString(sectionStyle.Render(padOrTrunc(fmt.Sprintf(" Lookup %s (%s) ", s.Ticker, s.Exchange), width)))
	b.WriteString("\n")
	switch {
	case s.Loading:
		b.WriteString(dimStyle.Render("  Loading..."))
		b.WriteString("\n")
	case s.Err != "":
		b.WriteString(errorStyle.Render("  " + s.Err))
		b.WriteString("\n")
	case s.Result.HasData():
		renderHeaderRow(b)
		renderRecord(b, 1, *s.Result.Recommendation, width)
		for _, e := range s.Result.Recommendation.Evidence {
			b.WriteString(dimStyle.Render("      - " + e))
			b.WriteString("\n")
		}
	case s.Result != nil:
		b.WriteString(noteStyle.Render("  " + s.Result.Note))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func renderSummary(b *strings.Builder, records []advisor.Recommendation) {
	sum := dashboard.Summarize(records)
	parts := []string{fmt.Sprintf("avg score %s", dashboard.FormatScore(sum.AvgScore))}
	for _, g := range dashboard.GroupByCap(records) {
		parts = append(parts, fmt.Sprintf("%s %d", g.Name, g.Count))
	}
	for _, name := range sum.ClassificationNames() {
		parts = append(parts, fmt.Sprintf("%s %d", name, sum.Classifications[name]))
	}
	b.WriteString(dimStyle.Render("  " + strings.Join(parts, "  |  ")))
	b.WriteString("\n")
}

func renderHeaderRow(b *strings.Builder) {
	b.WriteString(colHeaderStyle.Render(fmt.Sprintf("  %3s  %-12s %6s  %-12s %-12s %8s %10s %-21s %-6s",
		"#", "TICKER", "SCORE", "CLASS", "HOLD", "CONF", "STOP", "TARGET", "CAP")))
	b.WriteString("\n")
}

func renderRecord(b *strings.Builder, n int, r advisor.Recommendation, width int) {
	b.WriteString(fmt.Sprintf("  %3d  ", n))
	b.WriteString(tickerStyle.Render(padOrTrunc(r.Ticker, 12)))
	b.WriteString(" ")
	b.WriteString(scoreStyle.Render(fmt.Sprintf("%6s", dashboard.FormatScore(r.CompositeScore))))
	b.WriteString("  ")
	b.WriteString(classStyle.Render(padOrTrunc(r.Classification, 12)))
	b.WriteString(" ")
	b.WriteString(padOrTrunc(r.HoldingDuration, 12))
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf("%8s", dashboard.FormatConfidence(r.Confidence)))
	b.WriteString(" ")
	b.WriteString(priceStyle.Render(fmt.Sprintf("%10s", dashboard.FormatPrice(r.StopLoss))))
	b.WriteString(" ")
	b.WriteString(priceStyle.Render(padOrTrunc(dashboard.FormatBand(r.TargetBand), 21)))
	b.WriteString(" ")
	b.WriteString(capStyle.Render(dashboard.FormatCap(r.Cap)))
	b.WriteString("\n")

	if r.Rationale != "" {
		indent := "       "
		avail := width - len(indent)
		if avail < 20 {
			avail = 20
		}
		b.WriteString(dimStyle.Render(indent + ansi.Truncate(r.Rationale, avail, "...")))
		b.WriteString("\n")
	}
}

// padOrTrunc pads s with spaces to width terminal cells, or truncates if
// wider. Widths are measured in cells, not bytes.
func padOrTrunc(s string, width int) string {
	if width <= 0 {
		return ""
	}
	n := ansi.StringWidth(s)
	if n > width {
		s = ansi.Truncate(s, width, "")
		n = ansi.StringWidth(s)
	}
	return s + strings.Repeat(" ", width-n)
}

func main() {
	cfgPath := "config/advisor.yaml"
	if p := os.Getenv("ADVISOR_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logFile, err := util.OpenLogFile(cfg.Logging.File, "advisor-client")
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, logFile)
	util.SetDefault(logger)

	client := advisor.NewClient(cfg.API.BaseURL, append(cfg.ClientOptions(), advisor.WithLogger(logger))...)
	ctrl := browse.New(client, logger)
	if err := ctrl.SetExchange(advisor.Exchange(cfg.Lookup.Exchange)); err != nil {
		fmt.Fprintf(os.Stderr, "lookup exchange: %v\n", err)
		os.Exit(1)
	}
	logger.Info("advisor client starting", "api", client.BaseURL(), "exchange", cfg.Lookup.Exchange)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	var snapshots store.SnapshotStore
	if cfg.Storage.DataDir != "" {
		snapshots = store.NewParquetStore(cfg.Storage.DataDir)
	}

	p := tea.NewProgram(
		initialModel(ctx, cancel, ctrl, snapshots, logger),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
