package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"gotrader/internal/coins"
	"gotrader/internal/indicator"
	"gotrader/internal/ledger"
	"gotrader/internal/store/journal"
)

const (
	colorClose = "#eceff4"
	colorMean  = "#fbbf24"
	colorBand  = "#3b82f6"
	colorEntry = "#34d399"
	colorExit  = "#f87171"
)

// RenderChart writes an HTML page plotting the close, rolling mean and bands of
// table with the journalled entries and exits marked.
func RenderChart(w io.Writer, coin coins.Coin, table indicator.Table, decisions []journal.DecisionRecord) error {
	if table.Len() == 0 {
		return fmt.Errorf("report: no indicator rows for %s", coin)
	}
	xAxis := make([]string, table.Len())
	closes := make([]opts.LineData, table.Len())
	means := make([]opts.LineData, table.Len())
	highs := make([]opts.LineData, table.Len())
	lows := make([]opts.LineData, table.Len())
	for i, r := range table.Rows {
		xAxis[i] = r.Date.Format("2006-01-02")
		closes[i] = opts.LineData{Value: r.Close}
		means[i] = opts.LineData{Value: r.RollingMean}
		highs[i] = opts.LineData{Value: r.BollingerHigh}
		lows[i] = opts.LineData{Value: r.BollingerLow}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros, Width: "1400px", Height: "640px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    strings.ToUpper(coin.String()) + " daily",
			Subtitle: fmt.Sprintf("%s to %s", xAxis[0], xAxis[len(xAxis)-1]),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	line.SetXAxis(xAxis).
		AddSeries("close", closes, charts.WithLineStyleOpts(opts.LineStyle{Color: colorClose, Width: 2})).
		AddSeries("rolling mean", means, charts.WithLineStyleOpts(opts.LineStyle{Color: colorMean})).
		AddSeries("bollinger high", highs, charts.WithLineStyleOpts(opts.LineStyle{Color: colorBand, Type: "dashed"})).
		AddSeries("bollinger low", lows, charts.WithLineStyleOpts(opts.LineStyle{Color: colorBand, Type: "dashed"}))
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	entries, exits := markers(table, decisions)
	scatter := charts.NewScatter()
	scatter.SetXAxis(xAxis).
		AddSeries("entry", entries, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorEntry})).
		AddSeries("exit", exits, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorExit}))
	line.Overlap(scatter)

	return line.Render(w)
}

// markers aligns journal entries and exits with the table's x axis.
func markers(table indicator.Table, decisions []journal.DecisionRecord) (entries, exits []opts.ScatterData) {
	entries = make([]opts.ScatterData, table.Len())
	exits = make([]opts.ScatterData, table.Len())
	for i := range entries {
		entries[i] = opts.ScatterData{Value: nil}
		exits[i] = opts.ScatterData{Value: nil}
	}
	index := make(map[string]int, table.Len())
	for i, r := range table.Rows {
		index[r.Date.Format("2006-01-02")] = i
	}
	for _, d := range decisions {
		i, ok := index[d.RunDate]
		if !ok {
			continue
		}
		act := ledger.Action(d.Action)
		point := opts.ScatterData{Value: d.Close, SymbolSize: 12}
		switch {
		case act.Entered():
			point.Symbol = "triangle"
			entries[i] = point
		case act.Exited():
			point.Symbol = "pin"
			exits[i] = point
		}
	}
	return entries, exits
}
