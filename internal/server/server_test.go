package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/pqasys/langcsebkg5-sub008/internal/audit/domain"
	auditrepository "github.com/pqasys/langcsebkg5-sub008/internal/audit/repository"
	auditservice "github.com/pqasys/langcsebkg5-sub008/internal/audit/service"
	"github.com/pqasys/langcsebkg5-sub008/internal/clock"
	"github.com/pqasys/langcsebkg5-sub008/internal/config"
	marketplacedomain "github.com/pqasys/langcsebkg5-sub008/internal/marketplace/domain"
	obsctx "github.com/pqasys/langcsebkg5-sub008/internal/observability/context"
	pricingdomain "github.com/pqasys/langcsebkg5-sub008/internal/pricing/domain"
	pricingrepository "github.com/pqasys/langcsebkg5-sub008/internal/pricing/repository"
	pricingservice "github.com/pqasys/langcsebkg5-sub008/internal/pricing/service"
	revenuedomain "github.com/pqasys/langcsebkg5-sub008/internal/revenue/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var serverNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type stubRevenueService struct {
	lastRange revenuedomain.Range
	lastAsOf  time.Time
	breakdown revenuedomain.Breakdown
	err       error
}

func (s *stubRevenueService) Summary(ctx context.Context, r revenuedomain.Range) (revenuedomain.Summary, error) {
	s.lastRange = r
	if s.err != nil {
		return revenuedomain.Summary{}, s.err
	}
	return s.breakdown.Summary, nil
}

func (s *stubRevenueService) Breakdown(ctx context.Context, r revenuedomain.Range) (revenuedomain.Breakdown, error) {
	s.lastRange = r
	if s.err != nil {
		return revenuedomain.Breakdown{}, s.err
	}
	return s.breakdown, nil
}

func (s *stubRevenueService) Projection(ctx context.Context, asOf time.Time) (revenuedomain.Projection, error) {
	s.lastAsOf = asOf
	if s.err != nil {
		return revenuedomain.Projection{}, s.err
	}
	return revenuedomain.Projection{AsOf: asOf, ProjectedRevenue: 144}, nil
}

type testServer struct {
	server  *Server
	engine  *gin.Engine
	revenue *stubRevenueService
	audit   auditdomain.Service
}

func newTestServer(t *testing.T, cfg config.Config) testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&marketplacedomain.Course{}, &pricingdomain.MonthlyPrice{}, &auditdomain.AuditLog{}))
	require.NoError(t, db.Create(&marketplacedomain.Course{
		ID: 77, InstitutionID: 1, Title: "Japanese N5", BasePrice: 100, Currency: "USD", CreatedAt: serverNow,
	}).Error)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	fixed := clock.FixedClock{At: serverNow}
	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fixed, Repo: auditrepository.Provide(),
	})
	pricing := pricingservice.NewService(pricingservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fixed, Cfg: cfg,
		Repo: pricingrepository.Provide(), AuditSvc: audit,
	})
	revenue := &stubRevenueService{}

	engine := NewEngine(EngineParams{Cfg: cfg})
	srv := NewServer(ServerParams{
		Engine:     engine,
		Cfg:        cfg,
		DB:         db,
		Log:        zap.NewNop(),
		Clock:      fixed,
		RevenueSvc: revenue,
		PricingSvc: pricing,
		AuditSvc:   audit,
	})
	srv.RegisterAPIRoutes()
	return testServer{server: srv, engine: engine, revenue: revenue, audit: audit}
}

func testConfig() config.Config {
	return config.Config{
		AppName:     "lingua-test",
		Environment: config.EnvTest,
		Export:      config.ExportConfig{RateLimit: 2, RateWindow: time.Minute},
	}
}

func doRequest(t *testing.T, engine *gin.Engine, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func TestRevenueSummaryParsesRange(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := doRequest(t, ts.engine, http.MethodGet, "/api/admin/revenue/summary?start=2026-03-01&end=2026-03-31", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), ts.revenue.lastRange.Start)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), ts.revenue.lastRange.End)
}

func TestRevenueSummaryDefaultsToTrailingWindow(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := doRequest(t, ts.engine, http.MethodGet, "/api/admin/revenue/summary", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, serverNow, ts.revenue.lastRange.End)
	assert.Equal(t, serverNow.AddDate(0, 0, -30), ts.revenue.lastRange.Start)
}

func TestRevenueSummaryRejectsInvertedRange(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := doRequest(t, ts.engine, http.MethodGet, "/api/admin/revenue/summary?start=2026-05-01&end=2026-03-01", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "range", body.Field)
	assert.Equal(t, "invalid_range", body.Code)
}

func TestRevenueFailureIsGeneric(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.revenue.err = fmt.Errorf("%w: %w", revenuedomain.ErrAggregationFailed, fmt.Errorf("dial tcp: refused"))

	rec := doRequest(t, ts.engine, http.MethodGet, "/api/admin/revenue/breakdown", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "revenue_aggregation_failed", body.Code)
	assert.NotContains(t, rec.Body.String(), "dial tcp")
}

func TestRevenueProjectionPassesAsOf(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := doRequest(t, ts.engine, http.MethodGet, "/api/admin/revenue/projection?as_of=2026-09-15T00:00:00Z", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), ts.revenue.lastAsOf)
}

func TestExportRevenueCSVEscapesInstitutionNames(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.revenue.breakdown = revenuedomain.Breakdown{
		ByInstitution: []revenuedomain.InstitutionBreakdown{
			{InstitutionID: 5, InstitutionName: "Berlitz, Berlin", CourseRevenue: 100, TotalRevenue: 100},
		},
	}

	rec := doRequest(t, ts.engine, http.MethodGet, "/api/admin/revenue/export?start=2026-03-01&end=2026-03-31&format=csv", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "revenue_2026-03-01_2026-04-01.csv")

	reader := csv.NewReader(strings.NewReader(rec.Body.String()))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	var names []string
	for _, record := range records {
		if len(record) == 7 && record[0] == "5" {
			names = append(names, record[1])
		}
	}
	assert.Equal(t, []string{"Berlitz, Berlin"}, names)

	logs, err := ts.audit.List(context.Background(), auditdomain.ListFilter{Action: "revenue.export"})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestExportRevenueIsRateLimitedPerClientAddress(t *testing.T) {
	ts := newTestServer(t, testConfig())
	headers := map[string]string{obsctx.HeaderActor: "admin-1"}

	for i := 0; i < 2; i++ {
		rec := doRequest(t, ts.engine, http.MethodGet, "/api/admin/revenue/export", "", headers)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := doRequest(t, ts.engine, http.MethodGet, "/api/admin/revenue/export", "", headers)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// a new actor id from the same address shares the window
	rotated := doRequest(t, ts.engine, http.MethodGet, "/api/admin/revenue/export", "", map[string]string{obsctx.HeaderActor: "admin-2"})
	assert.Equal(t, http.StatusTooManyRequests, rotated.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/revenue/export", nil)
	req.RemoteAddr = "198.51.100.7:40000"
	other := httptest.NewRecorder()
	ts.engine.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestExportRevenueLogsAuditFailure(t *testing.T) {
	ts := newTestServer(t, testConfig())
	core, logs := observer.New(zapcore.WarnLevel)
	ts.server.log = zap.New(core)
	ts.server.auditSvc = failingAuditService{err: errors.New("audit store down")}

	rec := doRequest(t, ts.engine, http.MethodGet, "/api/admin/revenue/export", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	entries := logs.FilterMessage("failed to write revenue export audit log").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "csv", entries[0].ContextMap()["format"])
}

type failingAuditService struct {
	err error
}

func (f failingAuditService) AuditLog(ctx context.Context, action, targetType string, targetID *string, metadata map[string]any) error {
	return f.err
}

func (f failingAuditService) List(ctx context.Context, filter auditdomain.ListFilter) ([]*auditdomain.AuditLog, error) {
	return nil, f.err
}

func TestExportRevenueRejectsUnknownFormat(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := doRequest(t, ts.engine, http.MethodGet, "/api/admin/revenue/export?format=pdf", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "format", decodeError(t, rec).Field)
}

func TestPricingQuote(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := doRequest(t, ts.engine, http.MethodGet, "/api/pricing/quote?base_price=100&month=4&currency=usd", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data quoteResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 15, resp.Data.Discount)
	assert.Equal(t, int64(400), resp.Data.BaseTotal)
	assert.Equal(t, int64(340), resp.Data.Price)
	assert.Equal(t, "USD", resp.Data.Currency)
	assert.Contains(t, resp.Data.FormattedPrice, "340")

	bad := doRequest(t, ts.engine, http.MethodGet, "/api/pricing/quote?base_price=100&month=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "invalid_month_number", decodeError(t, bad).Code)
}

func TestMonthlyPricesLifecycle(t *testing.T) {
	ts := newTestServer(t, testConfig())
	headers := map[string]string{obsctx.HeaderActor: "admin-9"}

	rec := doRequest(t, ts.engine, http.MethodGet, "/api/courses/77/monthly-prices", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Data pricingdomain.Schedule `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2026, got.Data.Year)
	require.Len(t, got.Data.Entries, 12)
	assert.Equal(t, "2026-10", got.Data.Entries[0].Period)

	rec = doRequest(t, ts.engine, http.MethodPost, "/api/courses/77/monthly-prices/override",
		`{"year":2027,"month_number":2,"price":150}`, headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, ts.engine, http.MethodGet, "/api/courses/77/monthly-prices?year=2027", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(150), got.Data.Entries[1].Price)
	assert.True(t, got.Data.Entries[1].IsCustom)

	rec = doRequest(t, ts.engine, http.MethodPost, "/api/courses/77/monthly-prices/reset", `{"year":2027}`, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(180), got.Data.Entries[1].Price)
	assert.False(t, got.Data.Entries[1].IsCustom)

	logs, err := ts.audit.List(context.Background(), auditdomain.ListFilter{TargetType: "course", TargetID: "77"})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, entry := range logs {
		require.NotNil(t, entry.ActorID)
		assert.Equal(t, "admin-9", *entry.ActorID)
	}
}

func TestMonthlyPricesValidation(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := doRequest(t, ts.engine, http.MethodPut, "/api/courses/77/monthly-prices?year=2027",
		`{"prices":[{"month_number":13,"price":10}]}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, errorTypeValidation, body.Type)
	assert.Equal(t, "month_number", body.Field)

	rec = doRequest(t, ts.engine, http.MethodPost, "/api/courses/77/monthly-prices/set-all", `{"year":2027,"price":-1}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "price", decodeError(t, rec).Field)

	rec = doRequest(t, ts.engine, http.MethodGet, "/api/courses/404/monthly-prices", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "course_not_found", decodeError(t, rec).Code)

	rec = doRequest(t, ts.engine, http.MethodGet, "/api/courses/abc/monthly-prices", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id", decodeError(t, rec).Field)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := doRequest(t, ts.engine, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
