package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	actionsmem "github.com/EcodiaTate/site-backend-sub000/internal/repos/actions/memory"
	badgesmem "github.com/EcodiaTate/site-backend-sub000/internal/repos/badges/memory"
	dedupmem "github.com/EcodiaTate/site-backend-sub000/internal/repos/dedup/memory"
	ledgermem "github.com/EcodiaTate/site-backend-sub000/internal/repos/ledger/memory"
	targetsmem "github.com/EcodiaTate/site-backend-sub000/internal/repos/targets/memory"
	"github.com/EcodiaTate/site-backend-sub000/internal/rewards"
	"github.com/EcodiaTate/site-backend-sub000/internal/services/claims"
	"github.com/EcodiaTate/site-backend-sub000/internal/services/multipliers"
	progressionsvc "github.com/EcodiaTate/site-backend-sub000/internal/services/progression"
	"github.com/EcodiaTate/site-backend-sub000/internal/services/wallet"
)

// newTestServer wires the full router over in-memory stores.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := rewards.DefaultConfig()

	ledgerStore := ledgermem.New()
	dedupStore := dedupmem.New()
	targetStore := targetsmem.New()
	actionStore := actionsmem.New()
	badgeStore := badgesmem.New()

	stack := multipliers.NewResolver(cfg, actionStore, badgeStore)

	claimSvc := claims.New(ledgerStore, dedupStore, targetStore, stack, cfg)
	walletSvc := wallet.New(ledgerStore)
	progressionSvc := progressionsvc.New(ledgerStore, actionStore, badgeStore, stack, cfg)

	srv := httptest.NewServer(NewRouter(claimSvc, walletSvc, progressionSvc, targetStore, nil))
	t.Cleanup(srv.Close)

	return srv
}

func do(t *testing.T, method, url, actor string, payload any) (int, map[string]any) {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if actor != "" {
		req.Header.Set("X-Actor-ID", actor)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	err = json.NewDecoder(resp.Body).Decode(&decoded)
	require.NoError(t, err)

	return resp.StatusCode, decoded
}

func TestRouter_ClaimFlow(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	code, _ := do(t, http.MethodPut, srv.URL+"/v1/targets/qr_cafe", "", map[string]any{
		"name": "Corner Cafe",
	})
	require.Equal(t, http.StatusOK, code)

	t.Run("missing_actor_header", func(t *testing.T) {
		code, body := do(t, http.MethodPost, srv.URL+"/v1/claims/qr_cafe", "", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, body["error"], "X-Actor-ID")
	})

	t.Run("unknown_target_404", func(t *testing.T) {
		code, _ := do(t, http.MethodPost, srv.URL+"/v1/claims/qr_nowhere", "act_a", map[string]any{})
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("first_claim_then_cooldown", func(t *testing.T) {
		code, body := do(t, http.MethodPost, srv.URL+"/v1/claims/qr_cafe", "act_a", map[string]any{})
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["ok"])
		// base 12 × first-visit 1.5 × starter tier 1.0
		assert.EqualValues(t, 18, body["awarded_eco"])
		assert.EqualValues(t, 18, body["balance"])
		assert.NotEmpty(t, body["tx_id"])

		code, body = do(t, http.MethodPost, srv.URL+"/v1/claims/qr_cafe", "act_a", map[string]any{})
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, "cooldown", body["reason"])
		assert.EqualValues(t, 0, body["awarded_eco"])
	})

	t.Run("wallet_reflects_claim", func(t *testing.T) {
		code, body := do(t, http.MethodGet, srv.URL+"/v1/wallet/act_a", "", nil)
		require.Equal(t, http.StatusOK, code)
		assert.EqualValues(t, 18, body["balance"])
		assert.EqualValues(t, 18, body["earned_total"])
		assert.Len(t, body["recent_transactions"], 1)
	})

	t.Run("deactivated_target_rejects", func(t *testing.T) {
		code, _ := do(t, http.MethodDelete, srv.URL+"/v1/targets/qr_cafe", "", nil)
		require.Equal(t, http.StatusOK, code)

		code, _ = do(t, http.MethodPost, srv.URL+"/v1/claims/qr_cafe", "act_b", map[string]any{})
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestRouter_SpendAndVoid(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	code, _ := do(t, http.MethodPut, srv.URL+"/v1/targets/qr_garden", "", map[string]any{
		"name": "Community Garden",
	})
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, http.MethodPost, srv.URL+"/v1/claims/qr_garden", "act_s", map[string]any{})
	require.Equal(t, http.StatusOK, code)

	var spendTxID string

	t.Run("spend_ok", func(t *testing.T) {
		code, body := do(t, http.MethodPost, srv.URL+"/v1/wallet/act_s/spend", "", map[string]any{
			"amount": 10,
			"reason": "market stall",
		})
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["ok"])
		assert.EqualValues(t, 8, body["balance"])
		spendTxID, _ = body["tx_id"].(string)
		require.NotEmpty(t, spendTxID)
	})

	t.Run("overspend_422", func(t *testing.T) {
		code, body := do(t, http.MethodPost, srv.URL+"/v1/wallet/act_s/spend", "", map[string]any{
			"amount": 1000,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, "insufficient_balance", body["reason"])
	})

	t.Run("non_positive_amount_400", func(t *testing.T) {
		code, _ := do(t, http.MethodPost, srv.URL+"/v1/wallet/act_s/spend", "", map[string]any{
			"amount": 0,
		})
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("void_restores_balance", func(t *testing.T) {
		code, _ := do(t, http.MethodPost, srv.URL+"/v1/transactions/"+spendTxID+"/void", "", map[string]any{})
		require.Equal(t, http.StatusOK, code)

		code, body := do(t, http.MethodGet, srv.URL+"/v1/wallet/act_s", "", nil)
		require.Equal(t, http.StatusOK, code)
		assert.EqualValues(t, 18, body["balance"])
	})

	t.Run("void_unknown_404", func(t *testing.T) {
		code, _ := do(t, http.MethodPost, srv.URL+"/v1/transactions/tx_missing/void", "", map[string]any{})
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestRouter_ProgressionAndLeaderboard(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	code, _ := do(t, http.MethodPut, srv.URL+"/v1/targets/qr_repair", "", map[string]any{
		"name": "Repair Cafe",
	})
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, http.MethodPost, srv.URL+"/v1/claims/qr_repair", "act_p", map[string]any{})
	require.Equal(t, http.StatusOK, code)

	t.Run("progression_state", func(t *testing.T) {
		code, body := do(t, http.MethodGet, srv.URL+"/v1/progression/act_p", "", nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "act_p", body["actor_id"])
		assert.EqualValues(t, 18, body["xp_total"])
		badges, ok := body["badges"].([]any)
		require.True(t, ok)
		assert.Contains(t, badges, "first_steps")
	})

	t.Run("leaderboard_defaults", func(t *testing.T) {
		code, body := do(t, http.MethodGet, srv.URL+"/v1/leaderboard", "", nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "actors", body["scope"])
		assert.Equal(t, "total", body["period"])

		entries, ok := body["entries"].([]any)
		require.True(t, ok)
		require.Len(t, entries, 1)
		first, ok := entries[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "act_p", first["id"])
		assert.EqualValues(t, 1, first["rank"])
	})

	t.Run("invalid_scope_400", func(t *testing.T) {
		code, _ := do(t, http.MethodGet, srv.URL+"/v1/leaderboard?scope=planets", "", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("invalid_page_400", func(t *testing.T) {
		code, _ := do(t, http.MethodGet, srv.URL+"/v1/leaderboard?page=zero", "", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestRouter_ApprovedActions(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	payload := map[string]any{
		"action_id":     "appr_1",
		"actor_id":      "act_v",
		"action_type":   "cleanup",
		"reward_amount": 30,
		"xp_amount":     40,
	}

	for i := 0; i < 2; i++ {
		code, _ := do(t, http.MethodPost, srv.URL+"/v1/actions/approved", "", payload)
		require.Equal(t, http.StatusAccepted, code)
	}

	code, body := do(t, http.MethodGet, srv.URL+"/v1/wallet/act_v", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 30, body["balance"])

	t.Run("missing_fields_400", func(t *testing.T) {
		code, _ := do(t, http.MethodPost, srv.URL+"/v1/actions/approved", "", map[string]any{
			"actor_id": "act_v",
		})
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestRouter_Healthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	code, body := do(t, http.MethodGet, srv.URL+"/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}
