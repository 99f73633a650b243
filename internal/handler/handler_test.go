package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GoPolymarket/lottogate/internal/lottery"
	"github.com/GoPolymarket/lottogate/internal/middleware"
	"github.com/GoPolymarket/lottogate/internal/model"
	"github.com/GoPolymarket/lottogate/internal/pkg/apperrors"
	"github.com/GoPolymarket/lottogate/internal/repository"
	"github.com/GoPolymarket/lottogate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.OpenSQLite(fmt.Sprintf("file:h_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	rounds := repository.NewRoundRepo(db)
	wagers := repository.NewWagerRepo(db)
	transfers := repository.NewTransferRepo(db)
	credits := repository.NewCreditRepo(db)
	exposureSvc := service.NewExposureService(rounds, wagers, repository.NewLimitRepo(db), transfers)
	creditLedger := service.NewCreditLedger(rounds, wagers, credits, repository.NewMemberRepo(db))
	ledger := service.NewTransferLedger(rounds, wagers, transfers, exposureSvc, service.NewDirectRecomputer(creditLedger), true)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	v1 := r.Group("/v1")
	v1.Use(middleware.ActorMiddleware(false))
	RegisterRoutes(v1, Handlers{
		Excess:   NewExcessHandler(exposureSvc),
		Transfer: NewTransferHandler(ledger),
		Credit:   NewCreditHandler(creditLedger),
	}, middleware.AdminMiddleware("ops"))

	ctx := context.Background()
	require.NoError(t, rounds.Create(ctx, &model.Round{
		ID: "r1", DealerID: "dealer-a", Variant: lottery.VariantThai, Status: model.RoundOpen,
		CloseAt: time.Now().UTC().Add(time.Hour),
	}))
	require.NoError(t, wagers.Insert(ctx, &model.Wager{
		RoundID: "r1", BettorID: "m1", BetType: lottery.BetTwoTop, Number: "12", Amount: decimal.NewFromInt(2500),
	}))
	return &testEnv{db: db, router: r}
}

func (e *testEnv) do(method, path, dealer string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if dealer != "" {
		req.Header.Set(middleware.HeaderDealerID, dealer)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestExcessAndTransferFlow(t *testing.T) {
	env := newEnv(t)

	rec := env.do(http.MethodGet, "/v1/rounds/r1/excess", "dealer-a", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report struct {
		Items []struct {
			BetType string          `json:"bet_type"`
			Number  string          `json:"number"`
			Excess  decimal.Decimal `json:"excess"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Items, 1)
	assert.True(t, report.Items[0].Excess.Equal(decimal.NewFromInt(500)))

	rec = env.do(http.MethodPost, "/v1/rounds/r1/transfers", "dealer-a", map[string]any{
		"items":  []map[string]string{{"bet_type": "2_top", "number": "12"}},
		"target": map[string]string{"name": "uncle"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var batch service.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	assert.NotEmpty(t, batch.BatchID)
	assert.Len(t, batch.Lines, 1)

	rec = env.do(http.MethodGet, "/v1/rounds/r1/excess", "dealer-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Empty(t, report.Items)

	rec = env.do(http.MethodGet, "/v1/rounds/r1/transfers", "dealer-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), batch.BatchID)

	rec = env.do(http.MethodPost, "/v1/transfers/revert", "dealer-b", map[string]any{"batch_ids": []string{batch.BatchID}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/v1/transfers/revert", "dealer-a", map[string]any{"batch_ids": []string{batch.BatchID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"reverted_lines":1}`, rec.Body.String())
}

func TestTransferValidationErrors(t *testing.T) {
	env := newEnv(t)

	rec := env.do(http.MethodPost, "/v1/rounds/r1/transfers", "dealer-a", map[string]any{"target": map[string]string{"name": "x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/v1/rounds/nope/excess", "dealer-a", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), string(apperrors.ErrNotFound))

	rec = env.do(http.MethodPost, "/v1/transfers/return", "", map[string]any{"wager_ids": []string{"w1"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreditCheckRejectsWith402(t *testing.T) {
	env := newEnv(t)
	credits := repository.NewCreditRepo(env.db)
	ctx := context.Background()
	require.NoError(t, credits.SaveSubscription(ctx, &model.Subscription{
		DealerID: "dealer-a", Status: model.SubscriptionActive, BillingModel: model.BillingPercentage,
		PercentageRate: decimal.NewFromInt(10),
	}))
	require.NoError(t, credits.SaveCredit(ctx, &model.DealerCredit{
		DealerID: "dealer-a", Balance: decimal.NewFromInt(1000), PendingDeduction: decimal.NewFromInt(200),
	}))

	rec := env.do(http.MethodPost, "/v1/dealers/dealer-a/credit/check", "dealer-a", map[string]any{"round_id": "r1", "amount": 100})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"allowed":true`)

	rec = env.do(http.MethodPost, "/v1/dealers/dealer-a/credit/check", "dealer-a", map[string]any{"round_id": "r1", "amount": 20000})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, rec.Body.String(), string(apperrors.ErrInsufficientCredit))

	rec = env.do(http.MethodGet, "/v1/dealers/dealer-a/credit", "dealer-b", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRecomputeIsAdminOnly(t *testing.T) {
	env := newEnv(t)
	require.NoError(t, repository.NewCreditRepo(env.db).SaveSubscription(context.Background(), &model.Subscription{
		DealerID: "dealer-a", Status: model.SubscriptionActive, BillingModel: model.BillingPercentage,
		PercentageRate: decimal.NewFromInt(10),
	}))

	rec := env.do(http.MethodPost, "/v1/dealers/dealer-a/credit/recompute", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/v1/dealers/dealer-a/credit/recompute", "", nil, middleware.HeaderAdminKey, "ops")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Pending decimal.Decimal `json:"pending_deduction"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Pending.Equal(decimal.NewFromInt(250)), out.Pending.String())

	rec = env.do(http.MethodGet, "/v1/dealers/dealer-a/credit", "dealer-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dealer_id":"dealer-a"`)
}
