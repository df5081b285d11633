package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/pointsledger/internal/app/service/points"
	"github.com/fatflowers/pointsledger/internal/models"
	"github.com/fatflowers/pointsledger/internal/platform/db/dbtest"
	"github.com/fatflowers/pointsledger/internal/platform/mq"
	"github.com/fatflowers/pointsledger/pkg/config"
	"github.com/fatflowers/pointsledger/pkg/logctx"
	"github.com/fatflowers/pointsledger/pkg/response"
	"github.com/fatflowers/pointsledger/pkg/types"
)

// newPointsEnv returns a manager on a fresh database with users u1 and u2.
func newPointsEnv(t *testing.T) (*gorm.DB, *points.Manager) {
	t.Helper()
	gdb := dbtest.New(t)
	require.NoError(t, gdb.Create(&[]models.User{{ID: "u1"}, {ID: "u2"}}).Error)
	pm := points.NewManager(&config.Config{}, zap.NewNop().Sugar(), gdb, mq.NopPublisher{})
	return gdb, pm
}

// asUser stands in for JWTAuth.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(logctx.UserIDKey, userID)
		c.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) *response.APIResponse[T] {
	t.Helper()
	var resp response.APIResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp
}

func newPointsRouter(pm PointsService, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1", asUser(userID))
	RegisterPointsRoutes(g, pm, zap.NewNop().Sugar())
	return r
}

func TestApiGetPoints(t *testing.T) {
	_, pm := newPointsEnv(t)
	ctx := context.Background()
	_, err := pm.AddPoints(ctx, "u1", 120, types.PointsHistoryTypeBonus, "welcome")
	require.NoError(t, err)
	_, err = pm.ConsumeForDownload(ctx, "u1", "ord-1", 20)
	require.NoError(t, err)

	r := newPointsRouter(pm, "u1")
	w := doJSON(t, r, http.MethodGet, "/api/v1/points?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[PointsOverview](t, w)
	require.Equal(t, response.APIResponseCodeOK, resp.Code)
	assert.Equal(t, int64(100), resp.Data.Balance.CurrentPoints)
	require.Len(t, resp.Data.History, 1)
	assert.Equal(t, types.PointsHistoryTypeDownload, resp.Data.History[0].Type)
	assert.Empty(t, resp.Data.ActiveRollovers)
}

func TestApiGetPoints_NewUserHasZeroBalance(t *testing.T) {
	_, pm := newPointsEnv(t)
	r := newPointsRouter(pm, "u2")

	w := doJSON(t, r, http.MethodGet, "/api/v1/points", nil)
	resp := decode[PointsOverview](t, w)
	require.Equal(t, response.APIResponseCodeOK, resp.Code)
	assert.Equal(t, "u2", resp.Data.Balance.UserID)
	assert.Zero(t, resp.Data.Balance.CurrentPoints)
	assert.Empty(t, resp.Data.History)
}

func TestApiGetPoints_InvalidPaging(t *testing.T) {
	_, pm := newPointsEnv(t)
	r := newPointsRouter(pm, "u1")

	for _, q := range []string{"limit=abc", "offset=-1"} {
		w := doJSON(t, r, http.MethodGet, "/api/v1/points?"+q, nil)
		assert.Equal(t, response.APIResponseCodeBadRequest, decode[any](t, w).Code, q)
	}
}

func TestApiConsumeForDownload(t *testing.T) {
	gdb, pm := newPointsEnv(t)
	_, err := pm.AddPoints(context.Background(), "u1", 30, types.PointsHistoryTypeBonus, "")
	require.NoError(t, err)
	r := newPointsRouter(pm, "u1")

	tests := []struct {
		name     string
		body     any
		wantCode response.APIResponseCode
		wantBal  int64
	}{
		{name: "charges the order", body: DownloadRequest{OrderID: "ord-1", Cost: 10}, wantCode: response.APIResponseCodeOK, wantBal: 20},
		{name: "same order again", body: DownloadRequest{OrderID: "ord-1", Cost: 10}, wantCode: response.APIResponseCodeConflict, wantBal: 20},
		{name: "insufficient balance", body: DownloadRequest{OrderID: "ord-2", Cost: 50}, wantCode: response.APIResponseCodeConflict, wantBal: 20},
		{name: "missing order id", body: map[string]any{"cost": 5}, wantCode: response.APIResponseCodeBadRequest, wantBal: 20},
		{name: "non-positive cost", body: map[string]any{"order_id": "ord-3", "cost": 0}, wantCode: response.APIResponseCodeBadRequest, wantBal: 20},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/v1/points/download", tc.body)
			require.Equal(t, http.StatusOK, w.Code)
			resp := decode[json.RawMessage](t, w)
			assert.Equal(t, tc.wantCode, resp.Code)
			if tc.wantCode == response.APIResponseCodeOK {
				var data DownloadResponse
				require.NoError(t, json.Unmarshal(resp.Data, &data))
				assert.True(t, data.Success)
				assert.Equal(t, int64(-10), data.History.Amount)
			}
			bal, err := pm.GetBalance(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tc.wantBal, bal.CurrentPoints)
		})
	}

	var downloads int64
	require.NoError(t, gdb.Model(&models.PointsHistory{}).Where("type = ?", types.PointsHistoryTypeDownload).Count(&downloads).Error)
	assert.Equal(t, int64(1), downloads)
}

func TestRegisterPointsRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterPointsRoutes(r.Group("/api/v1"), nil, zap.NewNop().Sugar())

	var got []string
	for _, rt := range r.Routes() {
		got = append(got, rt.Method+" "+rt.Path)
	}
	assert.ElementsMatch(t, []string{"GET /api/v1/points", "POST /api/v1/points/download"}, got)
}
