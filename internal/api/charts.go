package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// historyChart renders an HTML line chart of recent measurement power and
// confidence using go-echarts. This is a debugging-only endpoint (no auth)
// for eyeballing a panel's tap history without a frontend.
// Query params:
//   - limit (optional; default 100, max 1000)
func (s *Server) historyChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}

	measurements, err := s.db.ListMeasurements(limit)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve measurements: %v", err))
		return
	}

	// ListMeasurements is newest-first; the chart reads left to right in
	// time order.
	labels := make([]string, 0, len(measurements))
	power := make([]opts.LineData, 0, len(measurements))
	confidence := make([]opts.LineData, 0, len(measurements))
	for i := len(measurements) - 1; i >= 0; i-- {
		m := measurements[i]
		labels = append(labels, m.CreatedAt.Format("01-02 15:04:05"))
		power = append(power, opts.LineData{Value: m.PowerDb, Name: m.Status})
		confidence = append(confidence, opts.LineData{Value: m.Confidence, Name: m.Status})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Tap History", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Measurement History", Subtitle: fmt.Sprintf("last %d measurements", len(measurements))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "power (dB)"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(labels)
	line.AddSeries("power_db", power)
	line.AddSeries("confidence", confidence,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
