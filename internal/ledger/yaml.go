package ledger

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

var dateLayouts = []string{
	dateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// yamlDecimal reads prices written as numbers or numeric strings and always
// writes them back as plain YAML numbers.
type yamlDecimal struct{ decimal.Decimal }

func (d yamlDecimal) MarshalYAML() (any, error) {
	tag := "!!float"
	if d.Decimal.Equal(d.Decimal.Truncate(0)) {
		tag = "!!int"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: d.Decimal.String()}, nil
}

func (d *yamlDecimal) UnmarshalYAML(node *yaml.Node) error {
	if isNull(node) {
		d.Decimal = decimal.Zero
		return nil
	}
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	parsed, err := decimal.NewFromString(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: invalid number %q", node.Line, node.Value)
	}
	d.Decimal = parsed
	return nil
}

// yamlFlag accepts true/false as well as 0/1 and 0.0/1.0.
type yamlFlag bool

func (f yamlFlag) MarshalYAML() (any, error) { return bool(f), nil }

func (f *yamlFlag) UnmarshalYAML(node *yaml.Node) error {
	if isNull(node) {
		*f = false
		return nil
	}
	raw := strings.ToLower(strings.TrimSpace(node.Value))
	switch raw {
	case "true", "yes", "on":
		*f = true
		return nil
	case "false", "no", "off", "":
		*f = false
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || (v != 0 && v != 1) {
		return fmt.Errorf("line %d: invalid flag %q", node.Line, node.Value)
	}
	*f = v == 1
	return nil
}

// yamlCount accepts integers and integral floats such as 3.0.
type yamlCount int

func (c yamlCount) MarshalYAML() (any, error) { return int(c), nil }

func (c *yamlCount) UnmarshalYAML(node *yaml.Node) error {
	if isNull(node) {
		*c = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(node.Value), 64)
	if err != nil || v != math.Trunc(v) || math.IsInf(v, 0) {
		return fmt.Errorf("line %d: invalid count %q", node.Line, node.Value)
	}
	*c = yamlCount(v)
	return nil
}

// yamlDate is a UTC calendar day or null.
type yamlDate struct{ t *time.Time }

func (d yamlDate) MarshalYAML() (any, error) {
	if d.t == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: d.t.UTC().Format(dateLayout)}, nil
}

func (d *yamlDate) UnmarshalYAML(node *yaml.Node) error {
	raw := strings.TrimSpace(node.Value)
	if isNull(node) || raw == "" || strings.EqualFold(raw, "none") {
		d.t = nil
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			day := truncateDay(t)
			d.t = &day
			return nil
		}
	}
	return fmt.Errorf("line %d: invalid date %q", node.Line, node.Value)
}

func isNull(node *yaml.Node) bool {
	return node == nil || node.Tag == "!!null" || (node.Kind == yaml.ScalarNode && node.Value == "~")
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type positionDoc struct {
	Mode                string      `yaml:"mode"`
	BuyEntryPrice       yamlDecimal `yaml:"buy_entry_price"`
	ShortEntryPrice     yamlDecimal `yaml:"short_entry_price"`
	StopLossPrice       yamlDecimal `yaml:"stop_loss_price"`
	BuyHasCrossedMean   yamlFlag    `yaml:"buy_has_crossed_mean"`
	ShortHasCrossedMean yamlFlag    `yaml:"short_has_crossed_mean"`
	PositionEntryDate   yamlDate    `yaml:"position_entry_date"`
}

func (p PositionLedger) MarshalYAML() (any, error) {
	return positionDoc{
		Mode:                string(p.Mode),
		BuyEntryPrice:       yamlDecimal{p.BuyEntryPrice},
		ShortEntryPrice:     yamlDecimal{p.ShortEntryPrice},
		StopLossPrice:       yamlDecimal{p.StopLossPrice},
		BuyHasCrossedMean:   yamlFlag(p.BuyHasCrossedMean),
		ShortHasCrossedMean: yamlFlag(p.ShortHasCrossedMean),
		PositionEntryDate:   yamlDate{p.PositionEntryDate},
	}, nil
}

func (p *PositionLedger) UnmarshalYAML(node *yaml.Node) error {
	var doc positionDoc
	if err := node.Decode(&doc); err != nil {
		return err
	}
	mode := Mode(strings.ToLower(strings.TrimSpace(doc.Mode)))
	if mode == "" {
		mode = ModeNone
	}
	if !mode.Valid() {
		return fmt.Errorf("unknown mode %q", doc.Mode)
	}
	*p = PositionLedger{
		Mode:                mode,
		BuyEntryPrice:       doc.BuyEntryPrice.Decimal,
		ShortEntryPrice:     doc.ShortEntryPrice.Decimal,
		StopLossPrice:       doc.StopLossPrice.Decimal,
		BuyHasCrossedMean:   bool(doc.BuyHasCrossedMean),
		ShortHasCrossedMean: bool(doc.ShortHasCrossedMean),
		PositionEntryDate:   doc.PositionEntryDate.t,
	}
	return nil
}

type winLossDoc struct {
	NBuyWon               yamlCount   `yaml:"n_buy_won"`
	NBuyLost              yamlCount   `yaml:"n_buy_lost"`
	NShortWon             yamlCount   `yaml:"n_short_won"`
	NShortLost            yamlCount   `yaml:"n_short_lost"`
	DollarAmountBuyWon    yamlDecimal `yaml:"dollar_amount_buy_won"`
	DollarAmountBuyLost   yamlDecimal `yaml:"dollar_amount_buy_lost"`
	DollarAmountShortWon  yamlDecimal `yaml:"dollar_amount_short_won"`
	DollarAmountShortLost yamlDecimal `yaml:"dollar_amount_short_lost"`
	NTotalDaysInTrades    yamlCount   `yaml:"n_total_days_in_trades"`
}

func (w WinLossLedger) MarshalYAML() (any, error) {
	return winLossDoc{
		NBuyWon:               yamlCount(w.NBuyWon),
		NBuyLost:              yamlCount(w.NBuyLost),
		NShortWon:             yamlCount(w.NShortWon),
		NShortLost:            yamlCount(w.NShortLost),
		DollarAmountBuyWon:    yamlDecimal{w.DollarAmountBuyWon},
		DollarAmountBuyLost:   yamlDecimal{w.DollarAmountBuyLost},
		DollarAmountShortWon:  yamlDecimal{w.DollarAmountShortWon},
		DollarAmountShortLost: yamlDecimal{w.DollarAmountShortLost},
		NTotalDaysInTrades:    yamlCount(w.NTotalDaysInTrades),
	}, nil
}

func (w *WinLossLedger) UnmarshalYAML(node *yaml.Node) error {
	var doc winLossDoc
	if err := node.Decode(&doc); err != nil {
		return err
	}
	*w = WinLossLedger{
		NBuyWon:               int(doc.NBuyWon),
		NBuyLost:              int(doc.NBuyLost),
		NShortWon:             int(doc.NShortWon),
		NShortLost:            int(doc.NShortLost),
		DollarAmountBuyWon:    doc.DollarAmountBuyWon.Decimal,
		DollarAmountBuyLost:   doc.DollarAmountBuyLost.Decimal,
		DollarAmountShortWon:  doc.DollarAmountShortWon.Decimal,
		DollarAmountShortLost: doc.DollarAmountShortLost.Decimal,
		NTotalDaysInTrades:    int(doc.NTotalDaysInTrades),
	}
	return nil
}

// legacyActions maps labels older ledgers carry to their current names.
var legacyActions = map[Action]Action{
	"short_to_contine_short": ActionShortToContinueShort,
}

type actionDoc struct {
	ActionToTake string `yaml:"action_to_take"`
}

func (a ActionRecord) MarshalYAML() (any, error) {
	return actionDoc{ActionToTake: string(a.ActionToTake)}, nil
}

func (a *ActionRecord) UnmarshalYAML(node *yaml.Node) error {
	var doc actionDoc
	if err := node.Decode(&doc); err != nil {
		return err
	}
	act := Action(strings.ToLower(strings.TrimSpace(doc.ActionToTake)))
	if act == "" {
		act = ActionNone
	}
	if current, ok := legacyActions[act]; ok {
		act = current
	}
	if !act.Valid() {
		return fmt.Errorf("unknown action %q", doc.ActionToTake)
	}
	a.ActionToTake = act
	return nil
}
