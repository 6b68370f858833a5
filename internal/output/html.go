package output

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"time"
)

// GenerateHTMLReport writes report as a standalone HTML page.
func GenerateHTMLReport(w io.Writer, report Report) error {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatMs": func(ms float64) string {
			return FormatDuration(time.Duration(ms * float64(time.Millisecond)))
		},
		"formatPercent": func(share float64) string {
			return fmt.Sprintf("%.1f", share*100)
		},
		"barWidth": func(share float64) string {
			return fmt.Sprintf("%.1f", math.Min(math.Max(share, 0), 1)*100)
		},
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Format(time.RFC3339)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, report); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Load Time Report</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            margin: 0;
            padding: 20px;
        }
        .container {
            max-width: 1200px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
        }
        header {
            background: #2c3e50;
            color: white;
            padding: 24px 32px;
            border-radius: 8px 8px 0 0;
        }
        header .meta {
            opacity: 0.85;
            font-size: 0.9rem;
        }
        .content {
            padding: 32px;
        }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(160px, 1fr));
            gap: 16px;
            margin-bottom: 32px;
        }
        .card {
            background: #f8f9fa;
            border-radius: 6px;
            padding: 16px;
            border-left: 4px solid #667eea;
        }
        .card.error {
            border-left-color: #ef4444;
        }
        .card h3 {
            font-size: 0.8rem;
            color: #6c757d;
            text-transform: uppercase;
            margin: 0 0 8px;
        }
        .card .value {
            font-size: 1.5rem;
            font-weight: bold;
        }
        table {
            width: 100%;
            border-collapse: collapse;
        }
        th, td {
            text-align: left;
            padding: 8px 12px;
            border-bottom: 1px solid #e5e7eb;
        }
        td.num {
            text-align: right;
            font-variant-numeric: tabular-nums;
        }
        .bar {
            height: 12px;
            border-radius: 3px;
        }
        .tier-low { background: #10b981; }
        .tier-medium { background: #f59e0b; }
        .tier-high { background: #ef4444; }
        .badge-error {
            background: #fee2e2;
            color: #991b1b;
            padding: 2px 8px;
            border-radius: 10px;
            font-size: 0.8rem;
        }
        .no-data {
            text-align: center;
            padding: 32px;
            color: #6c757d;
            font-style: italic;
        }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Load Time Report</h1>
            <div class="meta">Session {{.Session}} | Started: {{formatTime .StartedAt}} | Threshold: {{formatPercent .Threshold}}%{{if .Sorted}} | sorted{{end}}</div>
        </header>

        <div class="content">
            <div class="grid">
                <div class="card">
                    <h3>Total Time</h3>
                    <div class="value">{{formatMs .TotalMs}}</div>
                </div>
                <div class="card">
                    <h3>Load Calls</h3>
                    <div class="value">{{.Recorded}}</div>
                </div>
                <div class="card">
                    <h3>Shown</h3>
                    <div class="value">{{.Shown}}</div>
                </div>
                <div class="card error">
                    <h3>Failed</h3>
                    <div class="value">{{.Stats.Failures}}</div>
                </div>
                <div class="card">
                    <h3>P50 / P99</h3>
                    <div class="value">{{formatMs .Stats.P50Ms}} / {{formatMs .Stats.P99Ms}}</div>
                </div>
            </div>

            {{if .Rows}}
            <table>
                <thead>
                    <tr>
                        <th>#</th>
                        <th>Module</th>
                        <th>Time</th>
                        <th>%</th>
                        <th></th>
                    </tr>
                </thead>
                <tbody>
                    {{range .Rows}}
                    <tr>
                        <td class="num">{{.Rank}}{{if $.Sorted}} [{{.Index}}]{{end}}</td>
                        <td title="{{.Filename}}">{{.Display}}{{if .Failed}} <span class="badge-error" title="{{.Error}}">failed</span>{{end}}</td>
                        <td class="num">{{formatMs .DurationMs}}</td>
                        <td class="num">{{formatPercent .Share}}</td>
                        <td style="width: 40%"><div class="bar tier-{{.Tier}}" style="width: {{barWidth .Share}}%"></div></td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
            {{else}}
            <div class="no-data">No load calls above the threshold</div>
            {{end}}

            {{if .Budgets}}
            <h2>Budgets</h2>
            <table>
                <thead>
                    <tr>
                        <th>Budget</th>
                        <th>Actual</th>
                        <th>Status</th>
                    </tr>
                </thead>
                <tbody>
                    {{range .Budgets}}
                    <tr>
                        <td>{{.Budget.Raw}}</td>
                        <td class="num">{{printf "%.2f" .Actual}}</td>
                        <td>{{if .Pass}}PASS{{else}}<span class="badge-error">FAIL</span>{{end}}</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
            {{end}}
        </div>
    </div>
</body>
</html>
`
