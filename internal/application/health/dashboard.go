package health

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
)

type depRow struct {
	Name   string
	OK     bool
	PingMs string
}

type stateRow struct {
	State string
	Count int64
}

type dashboardView struct {
	Healthy    bool
	Result     CollectResult
	AvgLatency string
	Deps       []depRow
	States     []stateRow
}

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Estate API · Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <meta http-equiv="refresh" content="30">
  <style>
    :root { --green: #1f7a5c; --red: #c0392b; --muted: #6b7280; --bg: #f6f7f9; }
    body { background: var(--bg); font-family: system-ui, sans-serif; margin: 0; padding: 40px; color: #1f2933; }
    h1 { margin: 0 0 8px; font-size: 40px; letter-spacing: -1px; }
    h1.ok { color: var(--green); } h1.issue { color: var(--red); }
    .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(260px, 1fr)); gap: 20px; margin-top: 30px; }
    .card { background: #fff; border-radius: 16px; padding: 24px; box-shadow: 0 10px 30px -15px rgba(0,0,0,.15); }
    .label { text-transform: uppercase; font-size: 11px; font-weight: 800; letter-spacing: 2px; color: var(--muted); margin-bottom: 14px; }
    .row { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid #f0f1f3; font-weight: 600; }
    .row:last-child { border-bottom: none; }
    .pill { padding: 2px 10px; border-radius: 8px; font-size: 12px; }
    .pill.ok { background: #e6f4ee; color: var(--green); } .pill.err { background: #fbeaea; color: var(--red); }
    a { color: var(--muted); }
  </style>
</head>
<body>
  {{if .Healthy}}<h1 class="ok">All Systems Operational</h1>{{else}}<h1 class="issue">System Issues Detected</h1>{{end}}
  <div style="color:var(--muted)">Monitoring of API traffic, dependencies and the property workflow. <a href="/health/json">/health/json</a> · <a href="/health/errors">/health/errors</a></div>
  <div class="grid">
    <div class="card">
      <div class="label">Traffic</div>
      <div class="row"><span>Total requests</span><span>{{.Result.Traffic.TotalRequests}}</span></div>
      <div class="row"><span>Successful</span><span>{{.Result.Traffic.SuccessCount}}</span></div>
      <div class="row"><span>Failed</span><span>{{.Result.Traffic.FailedCount}}</span></div>
      <div class="row"><span>Success rate</span><span>{{.Result.Traffic.SuccessRate}}%</span></div>
      <div class="row"><span>Avg latency</span><span>{{.AvgLatency}} ms</span></div>
    </div>
    <div class="card">
      <div class="label">Runtime</div>
      <div class="row"><span>Uptime</span><span>{{.Result.Runtime.UptimeSeconds}} s</span></div>
      <div class="row"><span>Heap used</span><span>{{.Result.Runtime.Memory.HeapUsed}} MB</span></div>
      <div class="row"><span>Goroutines</span><span>{{.Result.Runtime.Goroutines}}</span></div>
      <div class="row"><span>Platform</span><span>{{.Result.Runtime.Platform}}</span></div>
    </div>
    <div class="card">
      <div class="label">Dependencies</div>
      {{range .Deps}}<div class="row"><span>{{.Name}}</span><span class="pill {{if .OK}}ok{{else}}err{{end}}">{{.PingMs}} ms</span></div>
      {{end}}
    </div>
    <div class="card">
      <div class="label">Properties</div>
      {{range .States}}<div class="row"><span>{{.State}}</span><span>{{.Count}}</span></div>
      {{else}}<div class="row"><span>No data</span><span>-</span></div>{{end}}
    </div>
  </div>
</body>
</html>`))

// RenderDashboardHTML returns the HTML status page for GET /.
func RenderDashboardHTML(health CollectResult) string {
	view := dashboardView{
		Healthy:    health.Status == "ok",
		Result:     health,
		AvgLatency: fmt.Sprint(health.Traffic.AvgResponseTime),
	}
	for name, dep := range health.Dependencies {
		ping := "?"
		if p, ok := dep.PingMs.(*int64); ok && p != nil {
			ping = fmt.Sprint(*p)
		}
		view.Deps = append(view.Deps, depRow{
			Name:   name,
			OK:     dep.Status == "connected" || dep.Status == "reachable",
			PingMs: ping,
		})
	}
	sort.Slice(view.Deps, func(i, j int) bool { return view.Deps[i].Name < view.Deps[j].Name })
	for state, n := range health.Properties {
		view.States = append(view.States, stateRow{State: state, Count: n})
	}
	sort.Slice(view.States, func(i, j int) bool { return view.States[i].State < view.States[j].State })

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, view); err != nil {
		return "<h1>Status unavailable</h1>"
	}
	return buf.String()
}
