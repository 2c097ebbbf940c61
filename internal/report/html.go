package report

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/torosent/pulsefire/internal/metrics"
)

// HTMLMetadata carries run configuration shown in the report header.
type HTMLMetadata struct {
	TargetURL string
	RunID     string
}

// outcomeRow is a breakdown row with its badge style precomputed so the
// template stays free of classification logic.
type outcomeRow struct {
	Badge  string
	Class  metrics.Class
	Detail string
	Count  int
}

type htmlReportData struct {
	GeneratedAt  string
	Summary      metrics.RunSummary
	Meta         HTMLMetadata
	Outcomes     []outcomeRow
	ProbeSamples string
}

// WriteHTMLReport writes a standalone HTML report for a completed run.
func WriteHTMLReport(w io.Writer, s metrics.RunSummary, meta HTMLMetadata) error {
	rows := metrics.FlattenBreakdown(s.Breakdown)
	outcomes := make([]outcomeRow, 0, len(rows))
	for _, row := range rows {
		badge := "badge-error"
		if row.Class == metrics.ClassSuccess {
			badge = "badge-success"
		}
		outcomes = append(outcomes, outcomeRow{
			Badge:  badge,
			Class:  row.Class,
			Detail: row.Detail,
			Count:  row.Count,
		})
	}

	var probeSamples string
	for _, ph := range s.Phases {
		if len(ph.LatenciesMs) > 0 {
			probeSamples = joinLatencies(ph.Latencies)
			break
		}
	}

	data := htmlReportData{
		GeneratedAt:  time.Now().Format(time.RFC3339),
		Summary:      s,
		Meta:         meta,
		Outcomes:     outcomes,
		ProbeSamples: probeSamples,
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			return d.String()
		},
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatPercent": func(part, total int64) string {
			if total == 0 {
				return "0.0"
			}
			return fmt.Sprintf("%.1f", (float64(part)/float64(total))*100)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("parse html template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}

	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Pulsefire Traffic Report</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1400px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 30px 40px;
        }
        header h1 {
            font-size: 2rem;
            margin-bottom: 10px;
        }
        header .meta {
            opacity: 0.9;
            font-size: 0.9rem;
        }
        .content {
            padding: 40px;
        }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(250px, 1fr));
            gap: 20px;
            margin-bottom: 40px;
        }
        .card {
            background: #f8f9fa;
            border-radius: 8px;
            padding: 20px;
            border-left: 4px solid #667eea;
        }
        .card h3 {
            font-size: 0.9rem;
            color: #6c757d;
            text-transform: uppercase;
            letter-spacing: 0.5px;
            margin-bottom: 10px;
        }
        .card .value {
            font-size: 2rem;
            font-weight: bold;
            color: #2c3e50;
        }
        .card .subvalue {
            font-size: 0.85rem;
            color: #6c757d;
            margin-top: 5px;
        }
        .card.success {
            border-left-color: #10b981;
        }
        .card.error {
            border-left-color: #ef4444;
        }
        .section {
            margin-bottom: 40px;
        }
        .section h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            padding-bottom: 10px;
            border-bottom: 2px solid #e5e7eb;
        }
        table {
            width: 100%;
            border-collapse: collapse;
            background: white;
        }
        th, td {
            text-align: left;
            padding: 12px;
            border-bottom: 1px solid #e5e7eb;
        }
        th {
            background: #f8f9fa;
            font-weight: 600;
            color: #4b5563;
            font-size: 0.9rem;
            text-transform: uppercase;
            letter-spacing: 0.5px;
        }
        tr:hover {
            background: #f8f9fa;
        }
        .badge {
            display: inline-block;
            padding: 4px 12px;
            border-radius: 12px;
            font-size: 0.85rem;
            font-weight: 600;
        }
        .badge-success {
            background: #d1fae5;
            color: #065f46;
        }
        .badge-error {
            background: #fee2e2;
            color: #991b1b;
        }
        .latency-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(150px, 1fr));
            gap: 15px;
            margin-top: 20px;
        }
        .latency-item {
            background: #f8f9fa;
            padding: 15px;
            border-radius: 6px;
            text-align: center;
        }
        .latency-item .label {
            font-size: 0.85rem;
            color: #6c757d;
            margin-bottom: 5px;
        }
        .latency-item .value {
            font-size: 1.3rem;
            font-weight: bold;
            color: #2c3e50;
        }
        .probe-samples {
            margin-top: 15px;
            font-size: 0.9rem;
            color: #6c757d;
        }
        .no-data {
            text-align: center;
            padding: 40px;
            color: #6c757d;
            font-style: italic;
        }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>🔥 Pulsefire Traffic Report</h1>
            {{if .Meta.TargetURL}}
            <div class="meta" style="margin-top: 5px;">Target: <a href="{{.Meta.TargetURL}}" style="color: white; text-decoration: underline;">{{.Meta.TargetURL}}</a></div>
            {{end}}
            {{if .Meta.RunID}}
            <div class="meta">Run ID: {{.Meta.RunID}}</div>
            {{end}}
            <div class="meta">Generated: {{.GeneratedAt}} | Duration: {{formatDuration .Summary.Duration}}</div>
        </header>

        <div class="content">
            <!-- Summary Cards -->
            <div class="grid">
                <div class="card">
                    <h3>Total Requests</h3>
                    <div class="value">{{.Summary.Attempted}}</div>
                </div>
                <div class="card success">
                    <h3>Successful</h3>
                    <div class="value">{{.Summary.Succeeded}}</div>
                    <div class="subvalue">{{formatPercent .Summary.Succeeded .Summary.Attempted}}%</div>
                </div>
                <div class="card error">
                    <h3>Failed</h3>
                    <div class="value">{{.Summary.Failed}}</div>
                    <div class="subvalue">{{formatPercent .Summary.Failed .Summary.Attempted}}%</div>
                </div>
                <div class="card">
                    <h3>Requests/sec</h3>
                    <div class="value">{{formatFloat .Summary.RequestsPerSec}}</div>
                </div>
            </div>

            <!-- Latency Statistics -->
            <div class="section">
                <h2>Latency Statistics</h2>
                <div class="latency-grid">
                    <div class="latency-item">
                        <div class="label">Min</div>
                        <div class="value">{{formatDuration .Summary.MinLatency}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">Max</div>
                        <div class="value">{{formatDuration .Summary.MaxLatency}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">Mean</div>
                        <div class="value">{{formatDuration .Summary.MeanLatency}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">P50</div>
                        <div class="value">{{formatDuration .Summary.P50Latency}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">P90</div>
                        <div class="value">{{formatDuration .Summary.P90Latency}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">P99</div>
                        <div class="value">{{formatDuration .Summary.P99Latency}}</div>
                    </div>
                    {{if gt .Summary.ProbeMeanLatency 0}}
                    <div class="latency-item">
                        <div class="label">Probe Mean</div>
                        <div class="value">{{formatDuration .Summary.ProbeMeanLatency}}</div>
                    </div>
                    {{end}}
                </div>
            </div>

            <!-- Phase Breakdown -->
            {{if .Summary.Phases}}
            <div class="section">
                <h2>Phases</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Phase</th>
                            <th>Attempted</th>
                            <th>OK</th>
                            <th>Failed</th>
                            <th>Mean Latency</th>
                            <th>Elapsed</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .Summary.Phases}}
                        <tr>
                            <td><strong>{{.Name}}</strong></td>
                            <td>{{.Attempted}}</td>
                            <td>{{.Succeeded}}</td>
                            <td>{{.Failed}}</td>
                            <td>{{formatDuration .MeanLatency}}</td>
                            <td>{{formatDuration .Duration}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
                {{if .ProbeSamples}}
                <div class="probe-samples">Probe samples: {{.ProbeSamples}}</div>
                {{end}}
            </div>
            {{end}}

            <!-- Outcome Breakdown -->
            <div class="section">
                <h2>Outcome Breakdown</h2>
                {{if .Outcomes}}
                <table>
                    <thead>
                        <tr>
                            <th>Outcome</th>
                            <th>Detail</th>
                            <th>Count</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .Outcomes}}
                        <tr>
                            <td><span class="badge {{.Badge}}">{{.Class}}</span></td>
                            <td>{{.Detail}}</td>
                            <td>{{.Count}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
                {{else}}
                <div class="no-data">No outcomes recorded</div>
                {{end}}
            </div>
        </div>
    </div>
</body>
</html>`
