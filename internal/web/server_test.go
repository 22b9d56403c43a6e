package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/attendance/internal/client"
	"github.com/JonMunkholm/attendance/internal/config"
	"github.com/JonMunkholm/attendance/internal/core"
	"github.com/JonMunkholm/attendance/internal/dbpool"
)

// fakeService answers from fields; unset funcs return zero values.
type fakeService struct {
	saveBatch func(ctx context.Context, kind string, rows []core.RowRecord) (*core.BatchResult, error)
	summary   func(ctx context.Context, q core.SummaryQuery) ([]core.SummaryRecord, error)
	shifts    []core.ShiftOption
	lines     []core.LineOption
	optErr    error
	pingErr   error

	uploadID string
	clientIP string
}

func (f *fakeService) SaveBatch(ctx context.Context, kind string, rows []core.RowRecord) (*core.BatchResult, error) {
	f.uploadID = core.UploadIDFromContext(ctx)
	f.clientIP = core.IPAddressFromContext(ctx)
	if f.saveBatch != nil {
		return f.saveBatch(ctx, kind, rows)
	}
	return &core.BatchResult{Kind: kind, Received: len(rows), Inserted: len(rows), InvalidRows: []core.InvalidRow{}}, nil
}

func (f *fakeService) Shifts(context.Context) ([]core.ShiftOption, error) {
	return f.shifts, f.optErr
}

func (f *fakeService) Lines(context.Context) ([]core.LineOption, error) {
	return f.lines, f.optErr
}

func (f *fakeService) FilterOptions(context.Context) ([]core.ShiftOption, []core.LineOption, error) {
	return f.shifts, f.lines, f.optErr
}

func (f *fakeService) Summary(ctx context.Context, q core.SummaryQuery) ([]core.SummaryRecord, error) {
	if f.summary != nil {
		return f.summary(ctx, q)
	}
	return []core.SummaryRecord{}, nil
}

func (f *fakeService) WriteTemplate(w io.Writer, kind string) (core.KindInfo, error) {
	def, err := core.Lookup(kind)
	if err != nil {
		return core.KindInfo{}, err
	}
	_, err = io.WriteString(w, "xlsx-bytes")
	return def.Info, err
}

func (f *fakeService) ListKinds() []core.KindInfo {
	return []core.KindInfo{{Key: core.KindUserShifts}}
}

func (f *fakeService) Ping(context.Context) error {
	return f.pingErr
}

func (f *fakeService) UploadLimiterStatus() core.UploadLimiterStatus {
	return core.UploadLimiterStatus{Available: 5, MaxConcurrent: 5}
}

func (f *fakeService) PoolStatus() core.PoolStatus {
	return core.PoolStatus{Ready: f.pingErr == nil, Open: 2, InUse: 1, Idle: 1}
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Upload: config.UploadConfig{MaxBodyBytes: 1 << 20},
		Rate:   config.RateLimitConfig{Enabled: false},
	}
}

func newTestServer(t *testing.T, svc *fakeService, cfg *config.Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	s := NewServer(svc, cfg)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(s *Server, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

func TestSaveUserShifts(t *testing.T) {
	svc := &fakeService{
		saveBatch: func(_ context.Context, kind string, rows []core.RowRecord) (*core.BatchResult, error) {
			assert.Equal(t, core.KindUserShifts, kind)
			return &core.BatchResult{
				BatchID:     "b-1",
				Kind:        kind,
				Received:    len(rows),
				Inserted:    1,
				InvalidRows: []core.InvalidRow{{ID: 1, Row: rows[1], Reason: "EMPLOYEE_ID: required field is empty"}},
			}, nil
		},
	}
	s := newTestServer(t, svc, nil)

	body := `[{"id":0,"col0":"E1","col1":"A","col2":"15-01-2024","col3":"L1"},{"id":1,"col0":"","col1":"A","col2":"15-01-2024","col3":"L1"}]`
	rec := do(s, http.MethodPost, "/api/saveUserShifts", body, core.HeaderUploadID, "up-7")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res core.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Received)
	require.Len(t, res.InvalidRows, 1)
	assert.Equal(t, 1, res.InvalidRows[0].ID)
	assert.Equal(t, "up-7", svc.uploadID)
	assert.Equal(t, "192.0.2.1", svc.clientIP)
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"not an array", "/api/upload/user_shifts", `{"col0":"x"}`, nil, http.StatusBadRequest, "UPL003"},
		{"malformed", "/api/upload/user_shifts", `[{`, nil, http.StatusBadRequest, "UPL003"},
		{"unknown kind", "/api/upload/payroll", `[]`, fmt.Errorf("lookup: %w", core.ErrUnknownKind), http.StatusNotFound, "VAL004"},
		{"too many rows", "/api/upload/user_shifts", `[]`, fmt.Errorf("%w: 600 rows", core.ErrBatchTooLarge), http.StatusRequestEntityTooLarge, "UPL001"},
		{"busy", "/api/upload/user_shifts", `[]`, core.ErrTooManyUploads, http.StatusTooManyRequests, "UPL002"},
		{"database down", "/api/upload/user_shifts", `[]`, fmt.Errorf("acquire connection: %w", errors.New("dial tcp: connection refused")), http.StatusInternalServerError, "DB004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{
				saveBatch: func(context.Context, string, []core.RowRecord) (*core.BatchResult, error) {
					return nil, tt.err
				},
			}
			s := newTestServer(t, svc, nil)

			rec := do(s, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, decodeError(t, rec).Code)
		})
	}
}

func TestUpload_BodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxBodyBytes = 64
	s := newTestServer(t, &fakeService{}, cfg)

	body := `[{"id":0,"col0":"` + strings.Repeat("x", 200) + `"}]`
	rec := do(s, http.MethodPost, "/api/upload/user_shifts", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "UPL001", decodeError(t, rec).Code)
}

func TestShiftsAndLines(t *testing.T) {
	svc := &fakeService{
		shifts: []core.ShiftOption{{ShiftID: "A"}},
		lines:  []core.LineOption{{Line: "L1"}, {Line: "L2"}},
	}
	s := newTestServer(t, svc, nil)

	rec := do(s, http.MethodGet, "/api/shifts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"SHIFT_ID":"A"}]`, rec.Body.String())

	rec = do(s, http.MethodGet, "/api/lines", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"LINE":"L1"},{"LINE":"L2"}]`, rec.Body.String())

	rec = do(s, http.MethodGet, "/api/filter-options", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"shifts":[{"SHIFT_ID":"A"}],"lines":[{"LINE":"L1"},{"LINE":"L2"}]}`, rec.Body.String())
}

func TestShifts_Error(t *testing.T) {
	s := newTestServer(t, &fakeService{optErr: errors.New("login failed for user 'hr'")}, nil)

	rec := do(s, http.MethodGet, "/api/shifts", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "DB008", e.Code)
	assert.NotContains(t, e.Error, "hr", "technical detail must not leak")
}

func TestOverallSummary(t *testing.T) {
	var got core.SummaryQuery
	svc := &fakeService{
		summary: func(_ context.Context, q core.SummaryQuery) ([]core.SummaryRecord, error) {
			got = q
			return []core.SummaryRecord{{Date: "2024-01-15", Shift: "A", Line: "L1", Allotted: 4, Present: 3, Absent: 1}}, nil
		},
	}
	s := newTestServer(t, svc, nil)

	rec := do(s, http.MethodGet, "/api/attendance/overall-summary?date=2024-01-15&lines=L1,L2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `[{"DATE":"2024-01-15","SHIFT":"A","LINE":"L1","ALLOTTED":4,"PRESENT":3,"ABSENT":1}]`, rec.Body.String())

	assert.Equal(t, "2024-01-15", got.Date.Format(core.DateLayout))
	assert.Empty(t, got.Shifts)
	assert.Equal(t, []string{"L1", "L2"}, got.Lines)
}

func TestOverallSummary_BadDate(t *testing.T) {
	s := newTestServer(t, &fakeService{}, nil)

	for _, target := range []string{
		"/api/attendance/overall-summary",
		"/api/attendance/overall-summary?date=15-01-2024",
	} {
		rec := do(s, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, "VAL006", decodeError(t, rec).Code)
	}
}

func TestTemplates(t *testing.T) {
	s := newTestServer(t, &fakeService{}, nil)

	rec := do(s, http.MethodGet, "/download-template", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=UserShiftsTemplate.xlsx`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "xlsx-bytes", rec.Body.String())

	rec = do(s, http.MethodGet, "/api/template/user_skills", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "UserSkillsTemplate.xlsx")

	rec = do(s, http.MethodGet, "/api/template/payroll", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeService{}, nil)
	rec := do(s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.Pool.Ready)
	assert.Equal(t, 2, health.Pool.Open)
	assert.Equal(t, 1, health.Pool.InUse)

	s = newTestServer(t, &fakeService{pingErr: fmt.Errorf("acquire connection: %w", dbpool.ErrClosed)}, nil)
	rec = do(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "DB009", decodeError(t, rec).Code)
}

func TestSecurityHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableCSP = true
	s := newTestServer(t, &fakeService{}, cfg)

	rec := do(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"k1"}
	s := newTestServer(t, &fakeService{}, cfg)

	assert.Equal(t, http.StatusUnauthorized, do(s, http.MethodGet, "/api/shifts", "").Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/api/shifts", "", core.HeaderAPIKey, "k1").Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/healthz", "").Code, "health stays open")
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	s := newTestServer(t, &fakeService{}, cfg)

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/api/lines", "").Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/api/lines", "").Code)

	rec := do(s, http.MethodGet, "/api/lines", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)
}

func TestClientHeadersReachServer(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"k1"}
	seen := make(chan string, 1)
	svc := &fakeService{
		saveBatch: func(ctx context.Context, kind string, rows []core.RowRecord) (*core.BatchResult, error) {
			seen <- core.UploadIDFromContext(ctx)
			return &core.BatchResult{Kind: kind, Received: len(rows), InvalidRows: []core.InvalidRow{}}, nil
		},
	}
	ts := httptest.NewServer(newTestServer(t, svc, cfg).Router())
	defer ts.Close()

	c, err := client.New(config.ClientConfig{BaseURL: ts.URL, APIKey: "k1", Timeout: 5 * time.Second}, nil)
	require.NoError(t, err)

	res, err := c.SaveBatch(context.Background(), core.KindUserShifts, []core.RowRecord{
		core.NewRowRecord(0, []string{"E1", "A", "15-01-2024", "L1"}),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Received)
	assert.Equal(t, c.UploadID(), <-seen)
}
