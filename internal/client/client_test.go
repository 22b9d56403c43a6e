package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/attendance/internal/config"
	"github.com/JonMunkholm/attendance/internal/core"
	"github.com/JonMunkholm/attendance/internal/selection"
)

func newTestClient(t *testing.T, h http.Handler, mutate ...func(*config.ClientConfig)) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.ClientConfig{
		BaseURL:        srv.URL,
		APIKey:         "secret",
		Timeout:        5 * time.Second,
		SummaryTimeout: 5 * time.Second,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	c, err := New(cfg, nil)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New(config.ClientConfig{BaseURL: "ftp://example.com"}, nil)
	assert.Error(t, err)
}

func TestSaveBatch(t *testing.T) {
	var gotUploadID, gotKey string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/saveUserShifts", func(w http.ResponseWriter, r *http.Request) {
		gotUploadID = r.Header.Get(core.HeaderUploadID)
		gotKey = r.Header.Get(core.HeaderAPIKey)

		var rows []core.RowRecord
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&rows)) || !assert.Len(t, rows, 2) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "E1", rows[0].Cell(0))

		writeJSON(w, http.StatusOK, core.BatchResult{
			BatchID:     "b-1",
			Received:    2,
			Inserted:    1,
			InvalidRows: []core.InvalidRow{{ID: 1, Row: rows[1], Reason: "required field is empty"}},
		})
	})

	c := newTestClient(t, mux)
	res, err := c.SaveBatch(context.Background(), core.KindUserShifts, []core.RowRecord{
		core.NewRowRecord(0, []string{"E1", "A", "15-01-2024", "L1"}),
		core.NewRowRecord(1, []string{"", "A", "15-01-2024", "L1"}),
	})
	require.NoError(t, err)

	assert.Equal(t, "b-1", res.BatchID)
	assert.Equal(t, 1, res.Inserted)
	require.Len(t, res.InvalidRows, 1)
	assert.Equal(t, 1, res.InvalidRows[0].ID)
	assert.Equal(t, c.UploadID(), gotUploadID)
	assert.Equal(t, "secret", gotKey)
}

func TestSaveBatch_OtherKindUsesGenericRoute(t *testing.T) {
	var path string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		writeJSON(w, http.StatusOK, core.BatchResult{Received: 1, Inserted: 1})
	}))

	res, err := c.SaveBatch(context.Background(), core.KindUserSkills, []core.RowRecord{core.NewRowRecord(0, []string{"E1"})})
	require.NoError(t, err)
	assert.Equal(t, "/api/upload/user_skills", path)
	assert.NotNil(t, res.InvalidRows)
}

func TestServerError(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
		code    string
	}{
		{
			name: "json error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{
					"error": "Too many uploads in progress",
					"code":  "UPL002",
				})
			},
			want: "Server error: Too many uploads in progress",
			code: "UPL002",
		},
		{
			name: "plain body falls back to status text",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			want: "Server error: Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Shifts(context.Background())
			require.Error(t, err)

			var ce *Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, KindServer, ce.Kind)
			assert.Equal(t, tt.want, ce.UserMessage())
			assert.Equal(t, tt.code, ce.Code)
		})
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), func(cfg *config.ClientConfig) {
		cfg.SummaryTimeout = 50 * time.Millisecond
	})

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	_, err := c.Summary(context.Background(), selection.SummaryFilter{
		Date:   day,
		Shifts: selection.Selection{selection.All},
		Lines:  selection.Selection{selection.All},
	})
	require.Error(t, err)
	assert.Equal(t, "Request timeout. Please try again.", UserMessage(err))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(config.ClientConfig{BaseURL: base, Timeout: time.Second}, nil)
	require.NoError(t, err)

	_, err = c.Lines(context.Background())
	require.Error(t, err)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindNetwork, ce.Kind)
	assert.Equal(t, "Network error. Please check your connection.", ce.UserMessage())
}

func TestUnexpectedBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))

	_, err := c.Lines(context.Background())
	assert.Equal(t, "An unexpected error occurred. Please try again.", UserMessage(err))
}

func TestSummary(t *testing.T) {
	var query string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/attendance/overall-summary", r.URL.Path)
		query = r.URL.RawQuery
		writeJSON(w, http.StatusOK, []core.SummaryRecord{
			{Date: "2024-01-15", Shift: "A", Line: "L1", Allotted: 10, Present: 9, Absent: 1},
		})
	}))

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	got, err := c.Summary(context.Background(), selection.SummaryFilter{
		Date:   day,
		Shifts: selection.Selection{selection.All},
		Lines:  selection.Selection{"A", "B"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 9, got[0].Present)
	assert.Equal(t, "date=2024-01-15&lines=A%2CB", query)
}

func TestSummary_InvalidFilterMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	_, err := c.Summary(context.Background(), selection.SummaryFilter{Date: time.Now()})
	assert.ErrorIs(t, err, selection.ErrNoShift)
	assert.Zero(t, calls.Load())
}

func TestFilterOptions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/shifts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []core.ShiftOption{{ShiftID: "A"}, {ShiftID: "B"}})
	})
	mux.HandleFunc("GET /api/lines", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []core.LineOption{{Line: "L1"}})
	})

	c := newTestClient(t, mux)
	shifts, lines, err := c.FilterOptions(context.Background())
	require.NoError(t, err)
	assert.Len(t, shifts, 2)
	assert.Equal(t, "L1", lines[0].Line)
}

func TestFilterOptions_OneFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/shifts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []core.ShiftOption{{ShiftID: "A"}})
	})
	mux.HandleFunc("GET /api/lines", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "database unavailable"})
	})

	c := newTestClient(t, mux)
	_, _, err := c.FilterOptions(context.Background())
	assert.Equal(t, "Server error: database unavailable", UserMessage(err))
}

func TestDownloadTemplate(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/download-template", r.URL.Path)
		w.Header().Set("Content-Disposition", `attachment; filename="UserShiftsTemplate.xlsx"`)
		_, _ = w.Write([]byte("PK\x03\x04"))
	}))

	var buf bytes.Buffer
	name, err := c.DownloadTemplate(context.Background(), core.KindUserShifts, &buf)
	require.NoError(t, err)
	assert.Equal(t, "UserShiftsTemplate.xlsx", name)
	assert.Equal(t, "PK\x03\x04", buf.String())
}
