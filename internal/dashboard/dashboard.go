package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/pulsefire/internal/metrics"
)

// RunConfig holds run parameters for display.
type RunConfig struct {
	TargetURL  string        // Base URL traffic is generated against
	Duration   time.Duration // Requested total run duration
	Tunnel     bool          // Whether a port-forward tunnel is active
	Flaky      bool          // Whether the flaky endpoint is in the mix
	Seed       int64         // Random seed (0 = time-derived)
	RunID      string        // ULID identifying this run
	ConfigFile string        // Path to config file if used
}

// Dashboard renders a live terminal UI for the traffic run.
type Dashboard struct {
	agg          *metrics.Aggregator
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid           *ui.Grid
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	successGauge   *widgets.Gauge
	phasePara      *widgets.Paragraph
	phaseList      *widgets.List
	outcomeList    *widgets.List
	summaryPara    *widgets.Paragraph
	latencyHistory []float64
	startTime      time.Time
	runConfig      RunConfig
}

// New creates a new Dashboard.
func New(agg *metrics.Aggregator, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		agg:            agg,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		startTime:      time.Now(),
		runConfig:      cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	// Latency Sparkline
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Real-time Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	// Latency Metrics Paragraph
	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	// Success Rate Gauge
	d.successGauge = widgets.NewGauge()
	d.successGauge.Title = "Success Rate"
	d.successGauge.Percent = 0
	d.successGauge.BarColor = ui.ColorGreen
	d.successGauge.BorderStyle.Fg = ui.ColorCyan
	d.successGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	// Current Phase Paragraph
	d.phasePara = widgets.NewParagraph()
	d.phasePara.Title = "Current Phase"
	d.phasePara.Text = "Waiting for first phase..."
	d.phasePara.BorderStyle.Fg = ui.ColorCyan

	// Phase List
	d.phaseList = widgets.NewList()
	d.phaseList.Title = "Phases"
	d.phaseList.Rows = []string{"Awaiting data"}
	d.phaseList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.phaseList.BorderStyle.Fg = ui.ColorCyan

	// Outcome Class List
	d.outcomeList = widgets.NewList()
	d.outcomeList.Title = "Outcomes"
	d.outcomeList.Rows = []string{"No outcomes yet"}
	d.outcomeList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.outcomeList.BorderStyle.Fg = ui.ColorCyan

	// Summary Paragraph
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.18,
			ui.NewCol(0.5, d.successGauge),
			ui.NewCol(0.5, d.phasePara),
		),
		ui.NewRow(0.26,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.42,
			ui.NewCol(0.5, d.phaseList),
			ui.NewCol(0.5, d.outcomeList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and cleans up.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			// Check if context is done to avoid blocking
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the aggregator.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := time.Since(d.startTime)
	s := d.agg.Summary(elapsed)

	// Update latency history for sparkline
	if s.MeanLatency > 0 {
		latencyMs := s.MeanLatencyMs
		d.latencyHistory = append(d.latencyHistory, latencyMs)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf(
			"Real-time Latency | Mean: %.2fms | Min: %.2fms | Max: %.2fms",
			latencyMs,
			s.MinLatencyMs,
			s.MaxLatencyMs,
		)
	}

	successRate := 0.0
	if s.Attempted > 0 {
		successRate = (float64(s.Succeeded) / float64(s.Attempted)) * 100
	}
	percent := int(successRate)
	if percent > 100 {
		percent = 100
	}
	d.successGauge.Percent = percent
	d.successGauge.Label = fmt.Sprintf("%.1f%% OK (%d/%d)", successRate, s.Succeeded, s.Attempted)

	params := d.formatRunParams()

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\n%s\nElapsed: %s | Total: %d | RPS: %.2f | Success Rate: %.1f%%",
		d.runConfig.TargetURL,
		params,
		elapsed.Round(time.Second),
		s.Attempted,
		s.RequestsPerSec,
		successRate,
	)

	d.phasePara.Text = formatCurrentPhase(s.Phases)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP99:  %.2fms",
		s.MinLatencyMs,
		s.MeanLatencyMs,
		s.P50LatencyMs,
		s.P90LatencyMs,
		s.P99LatencyMs,
	)

	d.updatePhaseList(s)
	d.updateOutcomeList(s)
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func (d *Dashboard) updatePhaseList(s metrics.RunSummary) {
	if len(s.Phases) == 0 {
		d.phaseList.Rows = []string{"[No phase data](fg:green)"}
		return
	}
	d.phaseList.Rows = formatPhaseRows(s.Phases)
}

func (d *Dashboard) updateOutcomeList(s metrics.RunSummary) {
	d.outcomeList.Rows = formatOutcomeRows(s.Breakdown)
}

func formatCurrentPhase(phases []metrics.PhaseResult) string {
	if len(phases) == 0 {
		return "Waiting for first phase..."
	}
	p := phases[len(phases)-1]
	lines := []string{
		fmt.Sprintf("[%s](fg:cyan,mod:bold)", p.Name),
		fmt.Sprintf("Attempted: %d | OK: %d | Failed: %d", p.Attempted, p.Succeeded, p.Failed),
		fmt.Sprintf("Mean Latency: %s", p.MeanLatency.Round(time.Millisecond)),
		fmt.Sprintf("Phase Elapsed: %s", p.Duration.Round(time.Second)),
	}
	return joinLines(lines)
}

func formatPhaseRows(phases []metrics.PhaseResult) []string {
	rows := make([]string, 0, len(phases))
	for _, p := range phases {
		rows = append(rows, fmt.Sprintf("[%s](fg:cyan) | att %3d | ok %3d | fail %3d | mean %s",
			p.Name,
			p.Attempted,
			p.Succeeded,
			p.Failed,
			p.MeanLatency.Round(time.Millisecond),
		))
	}
	return rows
}

func formatOutcomeRows(buckets map[metrics.Class]map[string]int) []string {
	rows := metrics.FlattenBreakdown(buckets)
	if len(rows) == 0 {
		return []string{"[No outcomes yet](fg:green)"}
	}
	maxRows := len(rows)
	if maxRows > 10 {
		maxRows = 10
	}
	formatted := make([]string, 0, maxRows)
	for i := 0; i < maxRows; i++ {
		row := rows[i]
		formatted = append(formatted, fmt.Sprintf("[%s %s](fg:%s) %d", row.Class, row.Detail, classColor(row.Class), row.Count))
	}
	return formatted
}

func classColor(c metrics.Class) string {
	switch c {
	case metrics.ClassSuccess:
		return "green"
	case metrics.ClassClientError:
		return "yellow"
	case metrics.ClassTransport:
		return "magenta"
	default:
		return "red"
	}
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	result := lines[0]
	for i := 1; i < len(lines); i++ {
		result += "\n" + lines[i]
	}
	return result
}

// formatRunParams formats the run configuration parameters for display.
func (d *Dashboard) formatRunParams() string {
	var parts []string

	if d.runConfig.Duration > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %s", d.runConfig.Duration))
	}

	if d.runConfig.Seed != 0 {
		parts = append(parts, fmt.Sprintf("Seed: %d", d.runConfig.Seed))
	}

	if d.runConfig.Tunnel {
		parts = append(parts, "Tunnel: on")
	}

	if d.runConfig.Flaky {
		parts = append(parts, "Flaky: on")
	}

	if d.runConfig.RunID != "" {
		parts = append(parts, fmt.Sprintf("Run: %s", d.runConfig.RunID))
	}

	// Config file (only show if used)
	if d.runConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.runConfig.ConfigFile))
	}

	if len(parts) == 0 {
		return ""
	}

	return strings.Join(parts, " | ")
}
