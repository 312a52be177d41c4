package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/doctopus/leavewatch/internal/utils"
	"github.com/doctopus/leavewatch/pkg/dashboard"
	"github.com/doctopus/leavewatch/pkg/report"
	"github.com/doctopus/leavewatch/pkg/roster"
	"github.com/doctopus/leavewatch/pkg/tracking"
	"github.com/go-playground/validator/v10"
)

type toggleForm struct {
	ID      string `validate:"required,max=64"`
	Week    string `validate:"required,max=64"`
	Checked bool
	Return  string
}

type replacementForm struct {
	ID            string `validate:"required,max=64"`
	Week          string `validate:"required,max=64"`
	ReplacementBy string `validate:"max=200"`
	Return        string
}

func filterFromQuery(q url.Values) roster.Filter {
	return roster.Filter{
		Search:   strings.TrimSpace(q.Get("search")),
		OrgUnits: nonEmpty(q["csm"]),
		Weeks:    nonEmpty(q["week"]),
	}
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ds, fetchErr := s.snapshot()
	t, err := s.store.Load(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	page := indexPage{
		ReportURL: s.cfg.ReportURL,
		Return:    r.URL.RequestURI(),
		Dataset:   ds,
		FetchErr:  fetchErr,
		Filter:    filterFromQuery(r.URL.Query()),
	}
	if ds != nil {
		page.Summary = dashboard.Summarize(ds, t)
		page.OrgUnits, page.Weeks = roster.Options(ds.Records)
		page.Rows = roster.Rows(roster.Apply(ds.Records, page.Filter), t)
	}

	var buf bytes.Buffer
	if err := renderIndex(page).Render(&buf); err != nil {
		s.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	// The error is kept on the server and rendered as a banner.
	_ = s.Refresh(r.Context())
	http.Redirect(w, r, utils.LocalRedirect(r.FormValue("return")), http.StatusSeeOther)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := toggleForm{
		ID:      strings.TrimSpace(r.PostForm.Get("id")),
		Week:    strings.TrimSpace(r.PostForm.Get("week")),
		Checked: r.PostForm.Get("checked") != "",
		Return:  r.PostForm.Get("return"),
	}
	if err := s.validate.Struct(form); err != nil {
		s.badRequest(w, err)
		return
	}

	staff := report.StaffRecord{ID: form.ID, Week: form.Week}
	if form.Checked {
		ds, _ := s.snapshot()
		found, ok := ds.Find(form.ID, form.Week)
		if !ok {
			http.Error(w, roster.ErrUnknownStaff.Error(), http.StatusNotFound)
			return
		}
		staff = found
	}

	if _, err := roster.Toggle(r.Context(), s.store, staff, form.Checked, s.now()); err != nil {
		if errors.Is(err, tracking.ErrKeyCollision) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		s.internalError(w, r, err)
		return
	}
	utils.Log.WithField("key", tracking.Key{ID: form.ID, Week: form.Week}.String()).WithField("replaced", form.Checked).Info("Tracking toggled")
	http.Redirect(w, r, utils.LocalRedirect(form.Return), http.StatusSeeOther)
}

func (s *Server) handleReplacement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := replacementForm{
		ID:            strings.TrimSpace(r.PostForm.Get("id")),
		Week:          strings.TrimSpace(r.PostForm.Get("week")),
		ReplacementBy: r.PostForm.Get("replacement_by"),
		Return:        r.PostForm.Get("return"),
	}
	if err := s.validate.Struct(form); err != nil {
		s.badRequest(w, err)
		return
	}

	key := tracking.Key{ID: form.ID, Week: form.Week}
	if _, err := roster.SetReplacementBy(r.Context(), s.store, key, form.ReplacementBy); err != nil {
		if errors.Is(err, tracking.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		s.internalError(w, r, err)
		return
	}
	http.Redirect(w, r, utils.LocalRedirect(form.Return), http.StatusSeeOther)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.Load(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := tracking.WriteCSV(&buf, t); err != nil {
		s.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", tracking.ExportFilename))
	buf.WriteTo(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ds, _ := s.snapshot()
	t, err := s.store.Load(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, dashboard.Summarize(ds, t))
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	ds, _ := s.snapshot()
	t, err := s.store.Load(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	var records []report.StaffRecord
	if ds != nil {
		records = ds.Records
	}
	s.writeJSON(w, r, http.StatusOK, roster.Rows(roster.Apply(records, filterFromQuery(r.URL.Query())), t))
}

type trackingEntry struct {
	ID string `json:"id"`
	tracking.Record
}

func (s *Server) handleTracking(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.Load(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	out := []trackingEntry{}
	for _, rec := range t.Sorted() {
		out = append(out, trackingEntry{ID: rec.ID, Record: rec})
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		http.Error(w, fmt.Sprintf("invalid %s: failed %q check", strings.ToLower(fe.Field()), fe.Tag()), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}
