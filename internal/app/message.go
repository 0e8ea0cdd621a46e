package app

import (
	"fmt"
	"strings"

	"gotrader/internal/notifier"
)

// summaryMessage renders the notification sent after a run.
func summaryMessage(out Outcome) notifier.Message {
	pos := out.State.Position
	lines := []string{
		fmt.Sprintf("date      %s", out.Date.Format("2006-01-02")),
		fmt.Sprintf("close     %.2f", out.Close),
		fmt.Sprintf("forecast  %.2f (%dd)", out.Forecast.Price, out.Forecast.Horizon),
		fmt.Sprintf("mode      %s", pos.Mode),
	}
	if entry := pos.EntryPrice(); entry.IsPositive() {
		lines = append(lines,
			fmt.Sprintf("entry     %s", entry.StringFixed(2)),
			fmt.Sprintf("stop      %s", pos.StopLossPrice.StringFixed(2)),
		)
	}
	wl := out.State.WinLoss
	return notifier.Message{
		Title: fmt.Sprintf("%s: %s", strings.ToUpper(out.Coin.String()), out.State.Action.ActionToTake),
		Sections: []notifier.Section{
			{Title: "position", Lines: lines},
			{Title: "record", Lines: []string{
				fmt.Sprintf("trades    %d", wl.Trades()),
				fmt.Sprintf("won       %s", wl.Won().StringFixed(2)),
				fmt.Sprintf("lost      %s", wl.Lost().StringFixed(2)),
			}},
		},
		Footer:    "run " + out.RunID,
	}
}
