package coins

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	c, err := Parse(" BTC ")
	require.NoError(t, err)
	assert.Equal(t, BTC, c)
	assert.Equal(t, "BTCUSDT", c.Symbol())
	assert.Equal(t, ETH, c.Companion())

	_, err = Parse("doge")
	var invalid *InvalidCoinError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "doge", invalid.Coin)
	assert.Contains(t, err.Error(), "btc, eth")
}

func TestParseAllDedupes(t *testing.T) {
	list, err := ParseAll([]string{"eth", "btc", "ETH"})
	require.NoError(t, err)
	assert.Equal(t, []Coin{ETH, BTC}, list)

	_, err = ParseAll([]string{"btc", "sol"})
	assert.Error(t, err)
}

func TestAllIsSorted(t *testing.T) {
	assert.Equal(t, []Coin{BTC, ETH}, All())
	assert.Equal(t, []string{"btc", "eth"}, Names())
}
