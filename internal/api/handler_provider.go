package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/EcodiaTate/site-backend-sub000/internal/geo"
	"github.com/EcodiaTate/site-backend-sub000/internal/ledger"
	"github.com/EcodiaTate/site-backend-sub000/internal/repos/actions"
	ledgerrepo "github.com/EcodiaTate/site-backend-sub000/internal/repos/ledger"
	"github.com/EcodiaTate/site-backend-sub000/internal/repos/targets"
	"github.com/EcodiaTate/site-backend-sub000/internal/services/claims"
	progressionsvc "github.com/EcodiaTate/site-backend-sub000/internal/services/progression"
	"github.com/EcodiaTate/site-backend-sub000/internal/services/wallet"
)

const maxBodyBytes = 1 << 20 // 1MB cap

// actorHeader carries the pre-authenticated actor identity; auth itself
// happens upstream.
const actorHeader = "X-Actor-ID"

// HandlerProvider wires the services into HTTP handlers.
type HandlerProvider struct {
	claims      *claims.Service
	wallet      *wallet.Service
	progression *progressionsvc.Service
	targets     targets.Store
}

func NewHandler(claimSvc *claims.Service, walletSvc *wallet.Service,
	progressionSvc *progressionsvc.Service, targetStore targets.Store,
) *HandlerProvider {
	return &HandlerProvider{
		claims:      claimSvc,
		wallet:      walletSvc,
		progression: progressionSvc,
		targets:     targetStore,
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)

		http.Error(w, `{"error":"internal json encode failure"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}

		return errors.New("invalid JSON")
	}

	return nil
}

func actorID(r *http.Request) string {
	return r.Header.Get(actorHeader)
}

// mapStoreError translates repo/service errors to HTTP statuses.
func mapStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, targets.ErrTargetNotFound):
		writeError(w, http.StatusNotFound, "target not found")
	case errors.Is(err, ledger.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, "transaction not found")
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		writeError(w, http.StatusConflict, "duplicate transaction")
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "dependency failure, retry later")
	}
}

// --- Claims ---

type claimRequest struct {
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	GroupSize int      `json:"group_size"`
}

type claimResponse struct {
	OK           bool   `json:"ok"`
	Reason       string `json:"reason,omitempty"`
	AwardedECO   int64  `json:"awarded_eco"`
	XP           int64  `json:"xp,omitempty"`
	BalanceAfter int64  `json:"balance"`
	TxID         string `json:"tx_id,omitempty"`
	TargetName   string `json:"target_name,omitempty"`
}

// SubmitClaimHandler handles POST /v1/claims/{targetCode}.
// Policy denials are 200 with ok=false; they are outcomes, not errors.
func (h *HandlerProvider) SubmitClaimHandler(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "missing "+actorHeader+" header")
		return
	}

	code := chi.URLParam(r, "targetCode")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing target code")
		return
	}

	var req claimRequest
	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var coords *geo.Coordinates
	if req.Lat != nil && req.Lng != nil {
		coords = &geo.Coordinates{Lat: *req.Lat, Lng: *req.Lng}
	}

	res, err := h.claims.SubmitClaim(r.Context(), claims.ClaimRequest{
		ActorID:     actor,
		TargetCode:  code,
		Coordinates: coords,
		GroupSize:   req.GroupSize,
	})
	if err != nil {
		mapStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, claimResponse{
		OK:           res.OK,
		Reason:       string(res.Reason),
		AwardedECO:   res.Awarded,
		XP:           res.XP,
		BalanceAfter: res.BalanceAfter,
		TxID:         res.TxID,
		TargetName:   res.TargetName,
	})
}

// --- Wallet ---

type walletTx struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Direction string    `json:"direction"`
	Amount    int64     `json:"amount"`
	XP        int64     `json:"xp"`
	Status    string    `json:"status"`
	Source    string    `json:"source"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type walletResponse struct {
	ActorID     string     `json:"actor_id"`
	Balance     int64      `json:"balance"`
	EarnedTotal int64      `json:"earned_total"`
	SpentTotal  int64      `json:"spent_total"`
	Recent      []walletTx `json:"recent_transactions"`
}

// GetWalletHandler handles GET /v1/wallet/{actorID}.
func (h *HandlerProvider) GetWalletHandler(w http.ResponseWriter, r *http.Request) {
	actor := chi.URLParam(r, "actorID")
	if actor == "" {
		writeError(w, http.StatusBadRequest, "missing actorID in path")
		return
	}

	wal, err := h.wallet.Wallet(r.Context(), actor)
	if err != nil {
		mapStoreError(w, err)
		return
	}

	recent := make([]walletTx, 0, len(wal.Recent))
	for _, tx := range wal.Recent {
		recent = append(recent, walletTx{
			ID:        tx.ID,
			Kind:      string(tx.Kind),
			Direction: string(tx.Direction),
			Amount:    tx.Amount,
			XP:        tx.XP,
			Status:    string(tx.Status),
			Source:    tx.Source,
			Reason:    tx.Reason,
			CreatedAt: tx.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, walletResponse{
		ActorID:     actor,
		Balance:     wal.Balance,
		EarnedTotal: wal.EarnedTotal,
		SpentTotal:  wal.SpentTotal,
		Recent:      recent,
	})
}

type spendRequest struct {
	Amount         int64  `json:"amount"`
	Kind           string `json:"kind"`
	CounterpartyID string `json:"counterparty_id"`
	Reason         string `json:"reason"`
}

type spendResponse struct {
	OK           bool   `json:"ok"`
	Reason       string `json:"reason,omitempty"`
	TxID         string `json:"tx_id,omitempty"`
	BalanceAfter int64  `json:"balance"`
}

// SpendHandler handles POST /v1/wallet/{actorID}/spend. Insufficient
// balance is a 422 with a structured reason.
func (h *HandlerProvider) SpendHandler(w http.ResponseWriter, r *http.Request) {
	actor := chi.URLParam(r, "actorID")
	if actor == "" {
		writeError(w, http.StatusBadRequest, "missing actorID in path")
		return
	}

	var req spendRequest
	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	res, err := h.wallet.Spend(r.Context(), wallet.SpendRequest{
		ActorID:        actor,
		Amount:         req.Amount,
		Kind:           ledger.Kind(req.Kind),
		CounterpartyID: req.CounterpartyID,
		Reason:         req.Reason,
	})
	if err != nil {
		mapStoreError(w, err)
		return
	}

	status := http.StatusOK
	if !res.OK {
		status = http.StatusUnprocessableEntity
	}

	writeJSON(w, status, spendResponse{
		OK:           res.OK,
		Reason:       string(res.Reason),
		TxID:         res.TxID,
		BalanceAfter: res.BalanceAfter,
	})
}

// VoidTransactionHandler handles POST /v1/transactions/{txID}/void.
func (h *HandlerProvider) VoidTransactionHandler(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "txID")
	if txID == "" {
		writeError(w, http.StatusBadRequest, "missing txID in path")
		return
	}

	err := h.wallet.Void(r.Context(), txID)
	if err != nil {
		mapStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "voided"})
}

// --- Progression ---

// GetProgressionHandler handles GET /v1/progression/{actorID}.
func (h *HandlerProvider) GetProgressionHandler(w http.ResponseWriter, r *http.Request) {
	actor := chi.URLParam(r, "actorID")
	if actor == "" {
		writeError(w, http.StatusBadRequest, "missing actorID in path")
		return
	}

	state, err := h.progression.Progression(r.Context(), actor)
	if err != nil {
		mapStoreError(w, err)
		return
	}

	badgeTypes := make([]string, 0, len(state.Badges))
	for _, g := range state.Badges {
		badgeTypes = append(badgeTypes, g.BadgeType)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"actor_id":         actor,
		"level":            state.Level,
		"xp_total":         state.XPTotal,
		"xp_to_next":       state.XPToNext,
		"streak_days":      state.StreakDays,
		"badges":           badgeTypes,
		"multiplier_stack": state.Stack,
	})
}

// GetLeaderboardHandler handles GET /v1/leaderboard?scope=&period=&page=.
func (h *HandlerProvider) GetLeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = string(ledgerrepo.ScoreByActor)
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = progressionsvc.PeriodTotal
	}

	page := 1
	rawPage := r.URL.Query().Get("page")
	if rawPage != "" {
		parsed, err := strconv.Atoi(rawPage)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = parsed
	}

	if scope != string(ledgerrepo.ScoreByActor) && scope != string(ledgerrepo.ScoreByCounterparty) {
		writeError(w, http.StatusBadRequest, "invalid scope")
		return
	}
	switch period {
	case progressionsvc.PeriodWeekly, progressionsvc.PeriodMonthly, progressionsvc.PeriodTotal:
	default:
		writeError(w, http.StatusBadRequest, "invalid period")
		return
	}

	entries, err := h.progression.Leaderboard(r.Context(), ledgerrepo.ScoreBy(scope), period, page)
	if err != nil {
		mapStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scope":   scope,
		"period":  period,
		"page":    page,
		"entries": entries,
	})
}

// --- Approved actions ---

type approvedActionRequest struct {
	ActionID     string    `json:"action_id"`
	ActorID      string    `json:"actor_id"`
	ActionType   string    `json:"action_type"`
	RewardAmount int64     `json:"reward_amount"`
	XPAmount     int64     `json:"xp_amount"`
	ApprovedAt   time.Time `json:"approved_at"`
}

// IngestApprovedActionHandler handles POST /v1/actions/approved.
func (h *HandlerProvider) IngestApprovedActionHandler(w http.ResponseWriter, r *http.Request) {
	var req approvedActionRequest
	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.ActionID == "" || req.ActorID == "" || req.ActionType == "" {
		writeError(w, http.StatusBadRequest, "action_id, actor_id and action_type are required")
		return
	}
	if req.RewardAmount < 0 || req.XPAmount < 0 {
		writeError(w, http.StatusBadRequest, "amounts must be non-negative")
		return
	}

	approvedAt := req.ApprovedAt
	if approvedAt.IsZero() {
		approvedAt = time.Now().UTC()
	}

	err = h.progression.IngestApprovedAction(r.Context(), actions.Action{
		ID:           req.ActionID,
		ActorID:      req.ActorID,
		ActionType:   req.ActionType,
		RewardAmount: req.RewardAmount,
		XPAmount:     req.XPAmount,
		ApprovedAt:   approvedAt,
	})
	if err != nil {
		mapStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "ingested"})
}

// --- Targets ---

type targetRequest struct {
	Name            string   `json:"name"`
	Lat             *float64 `json:"lat"`
	Lng             *float64 `json:"lng"`
	GeofenceRadiusM int64    `json:"geofence_radius_m"`
	FirstVisit      int64    `json:"base_reward_first_visit"`
	ReturnVisit     int64    `json:"base_reward_return_visit"`
	CooldownHours   int      `json:"cooldown_hours"`
	DailyCapPerUser int      `json:"daily_cap_per_actor"`
	Tier            string   `json:"tier"`
}

// UpsertTargetHandler handles PUT /v1/targets/{code}.
func (h *HandlerProvider) UpsertTargetHandler(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code in path")
		return
	}

	var req targetRequest
	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.targets.Upsert(r.Context(), targets.Target{
		Code:            code,
		Name:            req.Name,
		Lat:             req.Lat,
		Lng:             req.Lng,
		GeofenceRadiusM: req.GeofenceRadiusM,
		FirstVisit:      req.FirstVisit,
		ReturnVisit:     req.ReturnVisit,
		CooldownHours:   req.CooldownHours,
		DailyCapPerUser: req.DailyCapPerUser,
		Tier:            req.Tier,
	})
	if err != nil {
		mapStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "code": code})
}

// DeactivateTargetHandler handles DELETE /v1/targets/{code}. Soft only:
// targets with transaction history are never hard-deleted.
func (h *HandlerProvider) DeactivateTargetHandler(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code in path")
		return
	}

	err := h.targets.Deactivate(r.Context(), code)
	if err != nil {
		mapStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated", "code": code})
}
