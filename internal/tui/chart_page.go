package tui

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/reqchart/internal/chart"
	"github.com/tinytelemetry/reqchart/internal/metrics"
	"github.com/tinytelemetry/reqchart/internal/model"
	"github.com/tinytelemetry/reqchart/internal/resize"
)

// ChartPageID identifies the chart page.
const ChartPageID = "chart"

const (
	minInterval = 5 * time.Second
	maxInterval = 10 * time.Minute
	// chrome is the border, padding, title and status lines around the plot.
	chromeRows = 6
	chromeCols = 4
)

// countersMsg carries a fetch result.
type countersMsg struct {
	counters []model.Counter
	err      error
	at       time.Time
}

// chartResizedMsg is sent by the resize coordinator once a burst settles.
type chartResizedMsg struct{ Width, Height int }

// refreshTickMsg schedules the next fetch.
type refreshTickMsg struct{}

// ChartPageConfig holds chart page parameters.
type ChartPageConfig struct {
	Options        chart.Options
	Limit          int
	UpdateInterval time.Duration
	Debounce       time.Duration
	Clock          clock.Clock
	Metrics        *metrics.Recorder
	Source         string
}

// ChartPage shows the request counters as a terminal bar chart. Terminal
// size changes are resize signals; a settled burst redraws the chart once.
type ChartPage struct {
	reader   model.CounterReader
	opts     chart.Options
	limit    int
	interval time.Duration
	source   string
	clock    clock.Clock
	obs      *metrics.Recorder
	keys     KeyMap
	help     help.Model

	signal *resize.Broadcaster
	coord  *resize.Coordinator

	sendMu sync.Mutex
	send   func(tea.Msg)

	term     resize.Event
	termRows int
	width    int
	height   int
	dataset  chart.Dataset
	rejected int
	frame    *chart.Frame
	lastErr  error
	loading  bool
	fetched  time.Time
	showHelp bool
}

// NewChartPage creates the page and starts listening for resize signals.
func NewChartPage(reader model.CounterReader, conf ChartPageConfig) *ChartPage {
	if conf.Limit == 0 {
		conf.Limit = model.DefaultCounterLimit
	}
	if conf.UpdateInterval <= 0 {
		conf.UpdateInterval = model.DefaultUpdateInterval
	}
	if conf.Clock == nil {
		conf.Clock = clock.New()
	}
	p := &ChartPage{
		reader:   reader,
		opts:     conf.Options,
		limit:    conf.Limit,
		interval: conf.UpdateInterval,
		source:   conf.Source,
		clock:    conf.Clock,
		obs:      conf.Metrics,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		signal:   resize.NewBroadcaster(),
	}
	p.coord = resize.New(p.signal, p.onResize, resize.Config{
		Debounce: conf.Debounce,
		Clock:    conf.Clock,
		OnSignal: conf.Metrics.ObserveResizeSignal,
	})
	if err := p.coord.Start(); err != nil {
		log.Printf("tui: starting resize coordinator: %v", err)
	}
	return p
}

// SetSender wires the program's Send so coordinator renders reach Update.
func (p *ChartPage) SetSender(send func(tea.Msg)) {
	p.sendMu.Lock()
	p.send = send
	p.sendMu.Unlock()
}

// Close stops the resize coordinator. No resize message is sent afterwards.
func (p *ChartPage) Close() {
	p.coord.Stop()
}

func (p *ChartPage) onResize(width int) {
	p.sendMu.Lock()
	send := p.send
	rows := p.termRows
	p.sendMu.Unlock()
	if send != nil {
		send(chartResizedMsg{Width: width, Height: rows})
	}
}

func (p *ChartPage) ID() string { return ChartPageID }

func (p *ChartPage) Init() tea.Cmd {
	p.loading = true
	return tea.Batch(p.fetchCmd(), p.tickCmd())
}

func (p *ChartPage) fetchCmd() tea.Cmd {
	reader, limit, clk := p.reader, p.limit, p.clock
	return func() tea.Msg {
		counters, err := reader.ListCounters(limit)
		return countersMsg{counters: counters, err: err, at: clk.Now()}
	}
}

func (p *ChartPage) tickCmd() tea.Cmd {
	return tea.Tick(p.interval, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

func (p *ChartPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.sendMu.Lock()
		p.termRows = msg.Height
		p.sendMu.Unlock()
		if p.width == 0 && p.height == 0 {
			// First measurement: draw immediately, as on mount.
			p.applySize(msg.Width, msg.Height)
			return nil, nil
		}
		p.signal.Emit(resize.Event{Width: msg.Width})
		return nil, nil

	case chartResizedMsg:
		p.applySize(msg.Width, msg.Height)
		return nil, nil

	case countersMsg:
		p.loading = false
		p.fetched = msg.at
		p.lastErr = msg.err
		if msg.err == nil {
			ds, diags := chart.FromCounters(msg.counters)
			for _, d := range diags {
				p.obs.ObserveRejected(d.Reason)
			}
			p.dataset, p.rejected = ds, len(diags)
			p.recompute()
		}
		return nil, nil

	case refreshTickMsg:
		p.loading = true
		return tea.Batch(p.fetchCmd(), p.tickCmd()), nil

	case tea.KeyMsg:
		return p.handleKey(msg), nil
	}
	return nil, nil
}

func (p *ChartPage) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, p.keys.ForceQuit), key.Matches(msg, p.keys.Quit):
		return tea.Quit
	case key.Matches(msg, p.keys.Help):
		p.showHelp = !p.showHelp
		p.help.ShowAll = p.showHelp
	case key.Matches(msg, p.keys.Refresh):
		p.loading = true
		return p.fetchCmd()
	case key.Matches(msg, p.keys.IntervalUp):
		p.interval = min(p.interval*2, maxInterval)
	case key.Matches(msg, p.keys.IntervalDown):
		p.interval = max(p.interval/2, minInterval)
	}
	return nil
}

func (p *ChartPage) applySize(width, height int) {
	p.width, p.height = width, height
	p.recompute()
}

func (p *ChartPage) plotSize() (cols, rows int) {
	labelCols := 8
	return p.width - chromeCols - labelCols, p.height - chromeRows - 1
}

func (p *ChartPage) recompute() {
	if p.width <= 0 || p.height <= 0 {
		return
	}
	start := time.Now()
	cols, rows := p.plotSize()
	f, err := chart.Compute(p.dataset, plotLayout(cols, rows), p.opts)
	if err != nil {
		p.lastErr = err
		return
	}
	p.frame = f
	p.obs.ObserveRender("tui", time.Since(start).Seconds())
}

// Frame returns the geometry of the latest draw.
func (p *ChartPage) Frame() *chart.Frame { return p.frame }

func (p *ChartPage) View(width, height int) string {
	if p.width <= 0 || p.height <= 0 || p.frame == nil {
		return "Initializing chart..."
	}

	title := titleStyle.Render("HTTP requests per month")
	if p.source != "" {
		title += helpStyle.Render("  " + p.source)
	}

	var body string
	if len(p.frame.Bars) == 0 {
		_, rows := p.plotSize()
		msg := "No data available"
		if p.loading {
			msg = "Loading..."
		}
		body = lipgloss.Place(max(p.frame.Layout.OuterWidth, 1), max(rows, 1), lipgloss.Center, lipgloss.Center, helpStyle.Render(msg))
	} else {
		rows := int(p.frame.InnerHeight)
		bars := lipgloss.NewStyle().Width(p.frame.Layout.OuterWidth).Render(renderBars(p.frame, rows))
		axis, _ := renderValueAxis(p.frame, rows)
		body = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.JoinHorizontal(lipgloss.Top, bars, " ", axis),
			renderTimeAxis(p.frame, p.frame.Layout.OuterWidth),
		)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body, p.statusLine())
	return frameStyle.Width(max(width-2, 0)).Render(content)
}

func (p *ChartPage) statusLine() string {
	var parts []string
	if p.lastErr != nil {
		parts = append(parts, errorStyle.Render("error: "+p.lastErr.Error()))
	}
	if !p.fetched.IsZero() {
		parts = append(parts, fmt.Sprintf("%d months, updated %s", len(p.dataset), p.fetched.Format("15:04:05")))
	}
	if p.rejected > 0 {
		parts = append(parts, fmt.Sprintf("%d rejected", p.rejected))
	}
	parts = append(parts, fmt.Sprintf("every %s", p.interval))
	status := helpStyle.Render(strings.Join(parts, " · "))
	return lipgloss.JoinVertical(lipgloss.Left, status, p.help.View(p.keys))
}
