package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"controlling_shade/internal/models"
	"controlling_shade/internal/service"
)

func getWithAuth(t *testing.T, s *service.Service, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := newTestRouter(s)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

func TestLogsHandler_ListAndValidation(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	events := []models.ShadeEvent{
		{EventID: "e1", OccurredAt: now, Type: "HOMING_STARTED", Description: "Homing started"},
		{EventID: "e2", OccurredAt: now.Add(time.Second), Type: "MOVE_FINISHED", Description: "Reached step 2000"},
	}
	logs := &mockEventLog{resp: events}
	s := &service.Service{Authorization: &mockAuth{parseID: 99}, EventLog: logs}

	w := getWithAuth(t, s, "/api/v1/logs/?from=notatime")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid 'from', got %d", w.Code)
	}

	q := "/api/v1/logs/?from=" + now.Format(time.RFC3339) + "&to=" + now.Add(2*time.Second).Format(time.RFC3339) + "&type=move_finished&limit=5"
	w = getWithAuth(t, s, q)
	if w.Code != http.StatusOK {
		t.Fatalf("logs status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int                 `json:"count"`
		Events []models.ShadeEvent `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Events) != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}
	f := logs.lastFilter
	if f.Type != "MOVE_FINISHED" || f.Limit != 5 || !f.From.Equal(now) {
		t.Fatalf("filter=%+v", f)
	}
}

func TestLogsHandler_QueryParsing(t *testing.T) {
	cases := []struct {
		name      string
		query     string
		wantCode  int
		wantLimit int
		wantTo    time.Time
	}{
		{name: "date-only to is end of day", query: "?to=2025-08-31", wantCode: http.StatusOK,
			wantTo: time.Date(2025, 8, 31, 23, 59, 59, 999999999, time.UTC)},
		{name: "datetime to is exact", query: "?to=2025-08-31%2010:00:00", wantCode: http.StatusOK,
			wantTo: time.Date(2025, 8, 31, 10, 0, 0, 0, time.UTC)},
		{name: "limit capped", query: "?limit=5000", wantCode: http.StatusOK, wantLimit: 1000},
		{name: "zero limit", query: "?limit=0", wantCode: http.StatusBadRequest},
		{name: "bad limit", query: "?limit=ten", wantCode: http.StatusBadRequest},
		{name: "bad to", query: "?to=yesterday", wantCode: http.StatusBadRequest},
		{name: "reversed range", query: "?from=2025-09-01&to=2025-08-01", wantCode: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logs := &mockEventLog{}
			s := &service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: logs}
			w := getWithAuth(t, s, "/api/v1/logs/"+tc.query)
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			if logs.lastFilter.Limit != tc.wantLimit {
				t.Fatalf("limit=%d, want %d", logs.lastFilter.Limit, tc.wantLimit)
			}
			if !logs.lastFilter.To.Equal(tc.wantTo) {
				t.Fatalf("to=%v, want %v", logs.lastFilter.To, tc.wantTo)
			}
		})
	}
}

func TestLogsHandler_ServiceError(t *testing.T) {
	s := &service.Service{
		Authorization: &mockAuth{parseID: 1},
		EventLog:      &mockEventLog{err: errors.New("db locked")},
	}
	w := getWithAuth(t, s, "/api/v1/logs/")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", w.Code)
	}
}
