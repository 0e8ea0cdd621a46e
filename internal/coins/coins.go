package coins

import (
	"fmt"
	"sort"
	"strings"
)

// Coin is a lowercase coin id from the supported set, e.g. "btc".
type Coin string

const (
	BTC Coin = "btc"
	ETH Coin = "eth"
)

type coinInfo struct {
	symbol    string
	companion Coin
}

var supported = map[Coin]coinInfo{
	BTC: {symbol: "BTCUSDT", companion: ETH},
	ETH: {symbol: "ETHUSDT", companion: BTC},
}

// InvalidCoinError is returned for coin ids outside the supported set.
type InvalidCoinError struct {
	Coin string
}

func (e *InvalidCoinError) Error() string {
	return fmt.Sprintf("invalid coin %q: supported coins are %s", e.Coin, strings.Join(Names(), ", "))
}

// Parse normalizes s and checks it against the supported set.
func Parse(s string) (Coin, error) {
	c := Coin(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := supported[c]; !ok {
		return "", &InvalidCoinError{Coin: s}
	}
	return c, nil
}

// ParseAll parses a list, dropping duplicates while keeping order.
func ParseAll(list []string) ([]Coin, error) {
	seen := make(map[Coin]struct{}, len(list))
	out := make([]Coin, 0, len(list))
	for _, s := range list {
		c, err := Parse(s)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

// All returns the supported coins in stable order.
func All() []Coin {
	out := make([]Coin, 0, len(supported))
	for c := range supported {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func Names() []string {
	all := All()
	out := make([]string, len(all))
	for i, c := range all {
		out[i] = string(c)
	}
	return out
}

func (c Coin) String() string { return string(c) }

// Symbol is the exchange pair quoted in USDT.
func (c Coin) Symbol() string { return supported[c].symbol }

// Companion is the coin whose history is used as a forecast covariate.
func (c Coin) Companion() Coin { return supported[c].companion }
