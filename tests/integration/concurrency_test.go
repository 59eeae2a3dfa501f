package integration

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Concurrent confirms of one reviewed flow must settle exactly once.
func TestIntegration_ConcurrentConfirmSettlesOnce(t *testing.T) {
	app := newTestApp(t)

	payerAcct := app.register(t, "Maria Silva", "maria@example.com", "s3cret-pass")
	payeeAcct := app.register(t, "Joao Souza", "joao@example.com", "s3cret-pass")
	token := app.login(t, "maria@example.com", "s3cret-pass")
	app.setPin(t, token, "1234")
	app.ledger.seed(payerAcct, 500_00)

	_, _ = app.do(t, http.MethodPost, "/api/v1/transfers", map[string]any{
		"payee_key": payeeAcct, "amount": 100_00,
	}, token)
	resp, _ := app.do(t, http.MethodPost, "/api/v1/transfers/pin", map[string]string{"pin": "1234"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	const confirms = 8
	var wg sync.WaitGroup
	codes := make(chan int, confirms)
	for i := 0; i < confirms; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, _ := app.do(t, http.MethodPost, "/api/v1/transfers/confirm", nil, token)
			codes <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(codes)

	succeeded := 0
	for code := range codes {
		if code == http.StatusOK {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one confirm wins the claim")

	payerBalance, err := app.ledger.GetBalance(t.Context(), payerAcct)
	require.NoError(t, err)
	payeeBalance, err := app.ledger.GetBalance(t.Context(), payeeAcct)
	require.NoError(t, err)
	assert.Equal(t, int64(500_00-102_80), payerBalance, "payer debited exactly once")
	assert.Equal(t, int64(100_00), payeeBalance, "payee credited exactly once")
	assert.Equal(t, 1, app.events.committedCount())
}

// PIN entry racing a cancel on the same account must leave the flow in a
// consistent terminal outcome: the cancel always lands, the PIN step either
// advances first or loses cleanly, and no money moves.
func TestIntegration_ConcurrentPinEntryAndCancel(t *testing.T) {
	app := newTestApp(t)

	payerAcct := app.register(t, "Maria Silva", "maria@example.com", "s3cret-pass")
	payeeAcct := app.register(t, "Joao Souza", "joao@example.com", "s3cret-pass")
	token := app.login(t, "maria@example.com", "s3cret-pass")
	app.setPin(t, token, "1234")
	app.ledger.seed(payerAcct, 200_00)

	for i := 0; i < 20; i++ {
		resp, _ := app.do(t, http.MethodPost, "/api/v1/transfers", map[string]any{
			"payee_key": payeeAcct, "amount": 100_00,
		}, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var wg sync.WaitGroup
		wg.Add(2)
		var pinCode, cancelCode int
		go func() {
			defer wg.Done()
			resp, _ := app.do(t, http.MethodPost, "/api/v1/transfers/pin", map[string]string{"pin": "1234"}, token)
			pinCode = resp.StatusCode
		}()
		go func() {
			defer wg.Done()
			resp, _ := app.do(t, http.MethodPost, "/api/v1/transfers/cancel", nil, token)
			cancelCode = resp.StatusCode
		}()
		wg.Wait()

		assert.Equal(t, http.StatusOK, cancelCode, "cancel lands regardless of the PIN step")
		assert.Contains(t, []int{http.StatusOK, http.StatusNotFound}, pinCode,
			"PIN entry either advances the flow first or finds it gone")

		// Whichever side won, the flow is gone afterwards.
		resp, body := app.do(t, http.MethodPost, "/api/v1/transfers/cancel", nil, token)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "TRF_003", body["error_code"])
	}

	payerBalance, err := app.ledger.GetBalance(t.Context(), payerAcct)
	require.NoError(t, err)
	assert.Equal(t, int64(200_00), payerBalance, "no cancelled flow moves money")
	assert.Equal(t, 0, app.events.committedCount())
}

// A debit that would overdraw is refused even under racing confirms from
// independent accounts targeting the same payee.
func TestIntegration_ConcurrentTransfersNeverOverdraw(t *testing.T) {
	app := newTestApp(t)

	payeeAcct := app.register(t, "Joao Souza", "joao@example.com", "s3cret-pass")

	// Several payers, each with just enough for one transfer.
	type payer struct {
		acct  string
		token string
	}
	payers := []payer{}
	emails := []string{"a@example.com", "b@example.com", "c@example.com"}
	names := []string{"Ana", "Bruno", "Clara"}
	for i, email := range emails {
		acct := app.register(t, names[i], email, "s3cret-pass")
		token := app.login(t, email, "s3cret-pass")
		app.setPin(t, token, "1234")
		app.ledger.seed(acct, 20_50)
		payers = append(payers, payer{acct: acct, token: token})
	}

	var wg sync.WaitGroup
	for _, p := range payers {
		wg.Add(1)
		go func(p payer) {
			defer wg.Done()
			_, _ = app.do(t, http.MethodPost, "/api/v1/transfers", map[string]any{
				"payee_key": payeeAcct, "amount": 20_00,
			}, p.token)
			_, _ = app.do(t, http.MethodPost, "/api/v1/transfers/pin", map[string]string{"pin": "1234"}, p.token)
			_, _ = app.do(t, http.MethodPost, "/api/v1/transfers/confirm", nil, p.token)
		}(p)
	}
	wg.Wait()

	payeeBalance, err := app.ledger.GetBalance(t.Context(), payeeAcct)
	require.NoError(t, err)
	assert.Equal(t, int64(3*20_00), payeeBalance)

	for _, p := range payers {
		balance, err := app.ledger.GetBalance(t.Context(), p.acct)
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance, "each payer spent exactly amount plus fee")
	}
}
