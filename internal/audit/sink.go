package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gotrader/internal/ledger"
	"gotrader/internal/trading"
)

const dateLayout = "2006-01-02"

// FileSink writes a human-readable trail of one run. The first record
// truncates the file and later ones append, so the file always holds the
// latest run only.
type FileSink struct {
	Path      string
	Separator string

	mu      sync.Mutex
	started bool
}

func NewFileSink(path, separator string) *FileSink {
	if separator == "" {
		separator = "\n"
	}
	return &FileSink{Path: path, Separator: separator}
}

func (s *FileSink) Record(e trading.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(s.Path) == "" {
		return fmt.Errorf("audit path is empty")
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !s.started {
		if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
			return err
		}
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(s.Path, flags, 0o644)
	if err != nil {
		return err
	}
	s.started = true
	if _, err := f.WriteString(Format(e, s.Separator)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// MemorySink keeps entries in memory.
type MemorySink struct {
	mu      sync.Mutex
	entries []trading.AuditEntry
}

func (s *MemorySink) Record(e trading.AuditEntry) error {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	return nil
}

func (s *MemorySink) Entries() []trading.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]trading.AuditEntry(nil), s.entries...)
}

// Format renders one entry as separator-joined lines, suitable for mailing.
func Format(e trading.AuditEntry, sep string) string {
	lines := []string{
		fmt.Sprintf("coin: %s", e.Coin),
		fmt.Sprintf("message: %s", e.Message),
		fmt.Sprintf("date: %s", e.Date.Format(dateLayout)),
		fmt.Sprintf("close: %s", e.Close),
		fmt.Sprintf("rolling mean: %s", e.RollingMean),
		fmt.Sprintf("bollinger high: %s", e.BollingerHigh),
		fmt.Sprintf("bollinger low: %s", e.BollingerLow),
		fmt.Sprintf("buy entry price: %s", e.BuyEntryPrice),
		fmt.Sprintf("short entry price: %s", e.ShortEntryPrice),
		fmt.Sprintf("forecast for next %d days: %s", e.HorizonDays, e.Forecast),
		fmt.Sprintf("mode: %s", e.Mode),
		fmt.Sprintf("action: %s", e.Action),
		fmt.Sprintf("stop loss price: %s", e.StopLossPrice),
		fmt.Sprintf("position entry date: %s", formatDate(e.PositionEntryDate)),
	}
	if e.Mode == ledger.ModeNone && len(e.EntryChecks) > 0 {
		lines = append(lines, "ENTRY CHECKS")
		for _, c := range e.EntryChecks {
			lines = append(lines,
				fmt.Sprintf("%s band broken today: %t", c.Side, c.BandBroken),
				fmt.Sprintf("%s inside band yesterday: %t", c.Side, c.PrevInsideBand),
				fmt.Sprintf("%s forecast confirms: %t", c.Side, c.ForecastConfirms),
			)
		}
	}
	return strings.Join(lines, sep) + sep + sep
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "none"
	}
	return t.Format(dateLayout)
}
