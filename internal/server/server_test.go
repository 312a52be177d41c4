package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/doctopus/leavewatch/internal/utils"
	"github.com/doctopus/leavewatch/pkg/dashboard"
	"github.com/doctopus/leavewatch/pkg/report"
	"github.com/doctopus/leavewatch/pkg/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixture = &report.Dataset{
	Source: "http://metabase.test/report.csv",
	Records: []report.StaffRecord{
		{ID: "10101234567", Name: "Jean Dupont", Week: "2024-W01", ContractType: "CDI", CSM: "Nord", PlannedHours: 35, ContractualHours: 35},
		{ID: "10109876543", Name: "Marie Curie", Week: "2024-W02", ContractType: "CDD", CSM: "Sud", PlannedHours: 17.5, ContractualHours: 35},
	},
}

type fakeFetcher struct {
	ds  *report.Dataset
	err error
}

func (f *fakeFetcher) Fetch(context.Context, string) (*report.Dataset, error) {
	return f.ds, f.err
}

func newTestServer(t *testing.T, cfg Config) (*Server, *fakeFetcher, tracking.Store) {
	t.Helper()
	store, err := tracking.OpenFile(filepath.Join(t.TempDir(), "tracking_data.json"))
	require.NoError(t, err)
	f := &fakeFetcher{ds: fixture}
	s := New(cfg, store, f)
	s.now = func() time.Time { return time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, s.Refresh(context.Background()))
	return s, f, store
}

func do(t *testing.T, h http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndexRendersRoster(t *testing.T) {
	s, _, _ := newTestServer(t, Config{ReportURL: "http://metabase.test/report.csv"})
	h := s.Routes()

	rec := do(t, h, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Suivi des congés - Doctopus")
	assert.Contains(t, body, "Jean Dupont")
	assert.Contains(t, body, "Marie Curie")
	assert.Contains(t, body, "URL Metabase: http://metabase.test/report.csv")

	rec = do(t, h, http.MethodGet, "/?search=curie", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Jean Dupont")
	assert.Contains(t, rec.Body.String(), "Marie Curie")

	rec = do(t, h, http.MethodGet, "/?search=nobody", nil)
	assert.Contains(t, rec.Body.String(), "Aucun médecin ne correspond aux filtres.")
}

func TestToggleLifecycle(t *testing.T) {
	s, _, store := newTestServer(t, Config{})
	h := s.Routes()
	ctx := context.Background()
	key := tracking.Key{ID: "10101234567", Week: "2024-W01"}

	rec := do(t, h, http.MethodPost, "/tracking/toggle", url.Values{
		"id": {key.ID}, "week": {key.Week}, "checked": {"on"}, "return": {"/?search=jean"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?search=jean", rec.Header().Get("Location"))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Contains(t, got, key)
	assert.Equal(t, "2024-01-04", got[key].Date)
	assert.Equal(t, "Jean Dupont", got[key].Name)
	assert.Equal(t, "Nord", got[key].CSM)

	rec = do(t, h, http.MethodPost, "/tracking/replacement", url.Values{
		"id": {key.ID}, "week": {key.Week}, "replacement_by": {"Dr Martin"}, "return": {"https://evil.example"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Dr Martin", got[key].ReplacementBy)

	rec = do(t, h, http.MethodGet, "/", nil)
	assert.Contains(t, rec.Body.String(), "Marqué comme remplacé le: 2024-01-04")
	assert.Contains(t, rec.Body.String(), `value="Dr Martin"`)

	rec = do(t, h, http.MethodPost, "/tracking/toggle", url.Values{"id": {key.ID}, "week": {key.Week}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestToggleUnknownStaff(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})
	rec := do(t, s.Routes(), http.MethodPost, "/tracking/toggle", url.Values{
		"id": {"999"}, "week": {"2024-W01"}, "checked": {"on"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleCollidingKey(t *testing.T) {
	store, err := tracking.OpenFile(filepath.Join(t.TempDir(), "tracking_data.json"))
	require.NoError(t, err)
	s := New(Config{}, store, &fakeFetcher{ds: &report.Dataset{Records: []report.StaffRecord{
		{ID: "A_1", Name: "Jean Dupont", Week: "W"},
		{ID: "A", Name: "Marie Curie", Week: "1_W"},
	}}})
	require.NoError(t, s.Refresh(context.Background()))
	h := s.Routes()

	rec := do(t, h, http.MethodPost, "/tracking/toggle", url.Values{"id": {"A_1"}, "week": {"W"}, "checked": {"on"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = do(t, h, http.MethodPost, "/tracking/toggle", url.Values{"id": {"A"}, "week": {"1_W"}, "checked": {"on"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Has(tracking.Key{ID: "A_1", Week: "W"}))
	assert.Len(t, got, 1)
}

func TestToggleValidation(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})
	rec := do(t, s.Routes(), http.MethodPost, "/tracking/toggle", url.Values{"week": {"2024-W01"}, "checked": {"on"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid id")

	rec = do(t, s.Routes(), http.MethodPost, "/tracking/replacement", url.Values{
		"id": {"1"}, "week": {"w"}, "replacement_by": {strings.Repeat("x", 201)},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplacementOnUntrackedRow(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})
	rec := do(t, s.Routes(), http.MethodPost, "/tracking/replacement", url.Values{
		"id": {"10101234567"}, "week": {"2024-W01"}, "replacement_by": {"Dr Martin"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExport(t *testing.T) {
	s, _, store := newTestServer(t, Config{})
	h := s.Routes()

	rec := do(t, h, http.MethodGet, "/export.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "staff_replacements.csv")
	assert.Equal(t, "RPPS,Name,Replacement Date,Contract Type,CSM,Week\n", rec.Body.String())

	require.NoError(t, store.Put(context.Background(), tracking.NewRecord(fixture.Records[1], s.now())))
	rec = do(t, h, http.MethodGet, "/export.csv", nil)
	assert.Equal(t, "RPPS,Name,Replacement Date,Contract Type,CSM,Week\n10109876543,Marie Curie,2024-01-04,CDD,Sud,2024-W02\n", rec.Body.String())
}

func TestRefreshFailureKeepsDataset(t *testing.T) {
	s, f, _ := newTestServer(t, Config{})
	h := s.Routes()

	f.ds, f.err = nil, errors.New("connection refused")
	rec := do(t, h, http.MethodPost, "/refresh", url.Values{"return": {"/?week=2024-W01"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?week=2024-W01", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/", nil)
	assert.Contains(t, rec.Body.String(), "Error fetching data: connection refused")
	assert.Contains(t, rec.Body.String(), "Jean Dupont")

	f.ds, f.err = fixture, nil
	do(t, h, http.MethodPost, "/refresh", nil)
	rec = do(t, h, http.MethodGet, "/", nil)
	assert.NotContains(t, rec.Body.String(), "Error fetching data")
}

func TestIndexWithoutDataset(t *testing.T) {
	store, err := tracking.OpenFile(filepath.Join(t.TempDir(), "tracking_data.json"))
	require.NoError(t, err)
	s := New(Config{}, store, FetcherFunc(func(context.Context, string) (*report.Dataset, error) {
		return nil, errors.New("no route to host")
	}))
	require.Error(t, s.Refresh(context.Background()))

	rec := do(t, s.Routes(), http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "no route to host")
	assert.NotContains(t, rec.Body.String(), "Tableau de bord")
}

func TestAPISummary(t *testing.T) {
	s, _, store := newTestServer(t, Config{})
	require.NoError(t, store.Put(context.Background(), tracking.NewRecord(fixture.Records[0], s.now())))

	rec := do(t, s.Routes(), http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got dashboard.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.TotalStaff)
	assert.Equal(t, 1, got.TotalTracked)
	assert.Equal(t, 50.0, got.ReplacementRate)
	assert.Equal(t, []dashboard.WeekCount{
		{Week: "2024-W01", Total: 1, Tracked: 1},
		{Week: "2024-W02", Total: 1, Tracked: 0},
	}, got.Weeks)
}

func TestAPIRosterAndTracking(t *testing.T) {
	s, _, store := newTestServer(t, Config{})
	require.NoError(t, store.Put(context.Background(), tracking.NewRecord(fixture.Records[1], s.now())))
	h := s.Routes()

	rec := do(t, h, http.MethodGet, "/api/roster?csm=Sud", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []struct {
		Staff   report.StaffRecord `json:"staff"`
		Tracked bool               `json:"tracked"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Marie Curie", rows[0].Staff.Name)
	assert.True(t, rows[0].Tracked)

	rec = do(t, h, http.MethodGet, "/api/tracking", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"10109876543","date":"2024-01-04","name":"Marie Curie","contract_type":"CDD","csm":"Sud","week":"2024-W02"}]`, rec.Body.String())
}

func TestBasicAuth(t *testing.T) {
	s, _, _ := newTestServer(t, Config{Username: "admin", Password: "secret"})
	h := s.Routes()

	rec := do(t, h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("admin", "secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rec = do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRecovererLogsStack(t *testing.T) {
	var logs bytes.Buffer
	utils.Log.SetOutput(&logs)
	t.Cleanup(func() { utils.Log.SetOutput(os.Stderr) })

	s, _, _ := newTestServer(t, Config{})
	h := s.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := do(t, h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, logs.String(), "Recovered from panic: boom")
	assert.Contains(t, logs.String(), "stack=")
}
