package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/playground/internal/modules/ledger"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PLAYGROUND_DATA_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LEDGER_INITIAL_BALANCE", "10000")
	t.Setenv("EXCHANGE_RATE_API", "http://127.0.0.1:1")
}

func TestLedgerDepositAndStatus(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "ledger", "deposit", "500")
	require.NoError(t, err)
	var deposit ledger.Transaction
	require.NoError(t, json.Unmarshal([]byte(out), &deposit))
	assert.Equal(t, ledger.ActionDeposit, deposit.Action)
	assert.Equal(t, ledger.StatusSuccess, deposit.Status)

	out, err = execute(t, "ledger", "status")
	require.NoError(t, err)
	var state ledger.State
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, "10500", state.Balance.String())
}

func TestLedgerBuyWithPrice(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "ledger", "buy", "AAPL", "10", "--price", "100", "--date", "2024-03-15")
	require.NoError(t, err)
	var buy ledger.Transaction
	require.NoError(t, json.Unmarshal([]byte(out), &buy))
	assert.True(t, buy.Succeeded())
	assert.Equal(t, int64(10), buy.Quantity)
	assert.Equal(t, "2024-03-15", buy.Date.Format("2006-01-02"))

	out, err = execute(t, "ledger", "sell", "MSFT", "1", "--price", "50")
	require.NoError(t, err)
	var sell ledger.Transaction
	require.NoError(t, json.Unmarshal([]byte(out), &sell))
	assert.False(t, sell.Succeeded())
}

func TestLedgerArgumentErrors(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "ledger", "buy", "AAPL", "ten", "--price", "100")
	assert.Error(t, err)

	_, err = execute(t, "ledger", "buy", "AAPL", "1", "--date", "15/03/2024")
	assert.Error(t, err)

	_, err = execute(t, "ledger", "deposit", "abc")
	assert.Error(t, err)

	_, err = execute(t, "ledger", "deposit")
	assert.Error(t, err)
}

func TestSimulateRejectsInvalidFlags(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "simulate", "--pool", "0")
	assert.Error(t, err)

	_, err = execute(t, "simulate", "--start", "yesterday")
	assert.Error(t, err)
}

func TestLedgerMetricsWithMissingIndexBenchmark(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "ledger", "metrics", "--benchmark", "sector:Energy")
	require.NoError(t, err)
	var m ledger.Metrics
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Nil(t, m.Beta)
	assert.Nil(t, m.RelativePerformance)
}
