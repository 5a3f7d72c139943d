// Package api serves the import pipeline and ledger over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shamba-dev/shamba/internal/importer"
	"github.com/shamba-dev/shamba/internal/ledger"
	"github.com/shamba-dev/shamba/internal/model"
	"github.com/shamba-dev/shamba/internal/plots"
	"github.com/shamba-dev/shamba/internal/reconcile"
	"github.com/shamba-dev/shamba/internal/store"
	"github.com/shamba-dev/shamba/internal/week"
	"github.com/shamba-dev/shamba/internal/workbook"
)

const maxUpload = 32 << 20

// Ledger is the read side the handlers query.
type Ledger interface {
	ListPlots(ctx context.Context) ([]model.Plot, error)
	ListExpenses(ctx context.Context, f store.ExpenseFilter) ([]model.WeeklyExpense, error)
}

// Server holds the handler dependencies.
type Server struct {
	imports *importer.Service
	ledger  Ledger
	cache   *ledger.Cache
	tasks   []string
	log     *zap.Logger
}

// NewServer creates a Server. cache should be the Refresher of the committer behind imports.
func NewServer(imports *importer.Service, l Ledger, cache *ledger.Cache, tasks []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(tasks) == 0 {
		tasks = workbook.DefaultTasks()
	}
	return &Server{imports: imports, ledger: l, cache: cache, tasks: tasks, log: logger}
}

// Router returns the route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/imports/preview", s.handlePreview).Methods(http.MethodPost)
	router.HandleFunc("/api/imports/commit", s.handleCommit).Methods(http.MethodPost)
	router.HandleFunc("/api/plots", s.handlePlots).Methods(http.MethodGet)
	router.HandleFunc("/api/expenses", s.handleExpenses).Methods(http.MethodGet)
	router.HandleFunc("/api/summary", s.handleSummary).Methods(http.MethodGet)
	router.HandleFunc("/api/template", s.handleTemplate).Methods(http.MethodGet)

	return router
}

type plotJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Acreage     string `json:"acreage"`
	CropVariety string `json:"crop_variety"`
}

type entryJSON struct {
	PlotLabel       string  `json:"plot_label"`
	MatchedPlotID   *string `json:"matched_plot_id"`
	MatchedPlotName string  `json:"matched_plot_name,omitempty"`
	Amount          string  `json:"amount"`
	IsMatch         bool    `json:"is_match"`
}

type previewJSON struct {
	FileName     string      `json:"file_name"`
	Entries      []entryJSON `json:"entries"`
	Matched      int         `json:"matched"`
	Unmatched    int         `json:"unmatched"`
	MatchedTotal string      `json:"matched_total"`
}

type resultJSON struct {
	UpdatedCount    int      `json:"updated_count"`
	ZeroEntryCount  int      `json:"zero_entry_count"`
	UnmatchedLabels []string `json:"unmatched_labels"`
	RolledBack      bool     `json:"rolled_back,omitempty"`
	Error           string   `json:"error,omitempty"`
}

type expenseJSON struct {
	ID         string `json:"id"`
	PlotID     string `json:"plot_id"`
	PlotName   string `json:"plot_name"`
	WeekEnding string `json:"week_ending"`
	Amount     string `json:"amount"`
	Notes      string `json:"notes"`
}

type plotTotalJSON struct {
	PlotID   string `json:"plot_id"`
	PlotName string `json:"plot_name"`
	Total    string `json:"total"`
	Share    string `json:"share"`
	Entries  int    `json:"entries"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func toPreviewJSON(pv *importer.Preview) previewJSON {
	out := previewJSON{
		FileName:     pv.FileName,
		Entries:      make([]entryJSON, len(pv.Entries)),
		Matched:      pv.Summary.Matched,
		Unmatched:    pv.Summary.Unmatched,
		MatchedTotal: money(pv.Summary.MatchedTotal),
	}
	for i, e := range pv.Entries {
		ej := entryJSON{
			PlotLabel:       e.PlotLabel,
			MatchedPlotName: e.MatchedPlotName,
			Amount:          money(e.Amount),
			IsMatch:         e.IsMatch,
		}
		if e.IsMatch {
			id := e.MatchedPlotID
			ej.MatchedPlotID = &id
		}
		out.Entries[i] = ej
	}
	return out
}

func toResultJSON(res reconcile.Result) resultJSON {
	labels := res.UnmatchedLabels
	if labels == nil {
		labels = []string{}
	}
	return resultJSON{
		UpdatedCount:    res.UpdatedCount,
		ZeroEntryCount:  res.ZeroEntryCount,
		UnmatchedLabels: labels,
	}
}

// readUpload returns the multipart "file" field.
func readUpload(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return "", nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}
	file, fh, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("missing file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("reading upload: %w", err)
	}
	return filepath.Base(fh.Filename), data, nil
}

func (s *Server) previewStatus(err error) int {
	var perr *workbook.ParseError
	if errors.As(err, &perr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(r)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	pv, err := s.imports.Preview(r.Context(), name, data)
	if err != nil {
		s.respondWithError(w, s.previewStatus(err), err.Error())
		return
	}
	s.respondWithPayload(w, http.StatusOK, toPreviewJSON(pv))
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(r)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	weekEnding, err := week.Parse(r.FormValue("week_ending"))
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, reconcile.ErrNoWeekEnding.Error()+": "+err.Error())
		return
	}
	atomic := false
	if v := r.FormValue("atomic"); v != "" {
		atomic, err = strconv.ParseBool(v)
		if err != nil {
			s.respondWithError(w, http.StatusBadRequest, "invalid atomic flag: "+err.Error())
			return
		}
	}

	pv, err := s.imports.Preview(r.Context(), name, data)
	if err != nil {
		s.respondWithError(w, s.previewStatus(err), err.Error())
		return
	}

	res, err := s.imports.Commit(r.Context(), pv, importer.CommitOptions{WeekEnding: weekEnding, Atomic: atomic})
	var ierr *reconcile.ImportError
	switch {
	case err == nil:
		s.respondWithPayload(w, http.StatusOK, toResultJSON(res))
	case errors.Is(err, importer.ErrImportInFlight):
		s.respondWithError(w, http.StatusConflict, err.Error())
	case errors.As(err, &ierr):
		s.log.Error("import commit failed", zap.String("file", name), zap.Error(err))
		body := toResultJSON(res)
		body.RolledBack = ierr.RolledBack
		body.Error = err.Error()
		s.respond(w, http.StatusBadGateway, map[string]any{"success": false, "error": err.Error(), "rows": body})
	case errors.Is(err, reconcile.ErrNoWeekEnding):
		s.respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handlePlots(w http.ResponseWriter, r *http.Request) {
	list, err := s.ledger.ListPlots(r.Context())
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]plotJSON, len(list))
	for i, p := range list {
		out[i] = plotJSON{ID: p.ID, Name: p.Name, Acreage: money(p.Acreage), CropVariety: p.CropVariety}
	}
	s.respondWithPayload(w, http.StatusOK, out)
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	filter := store.ExpenseFilter{PlotID: r.URL.Query().Get("plot")}
	if v := r.URL.Query().Get("week"); v != "" {
		t, err := week.Parse(v)
		if err != nil {
			s.respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.WeekEnding = t
	}

	list, err := s.ledger.ListPlots(r.Context())
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	idx := plots.NewIndex(list)
	if filter.PlotID != "" && !idx.Exists(filter.PlotID) {
		s.respondWithError(w, http.StatusNotFound, fmt.Sprintf("%s: %s", store.ErrPlotNotFound, filter.PlotID))
		return
	}
	entries, err := s.ledger.ListExpenses(r.Context(), filter)
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]expenseJSON, len(entries))
	for i, e := range entries {
		out[i] = expenseJSON{
			ID:         e.ID,
			PlotID:     e.PlotID,
			PlotName:   idx.Name(e.PlotID),
			WeekEnding: week.Format(e.WeekEnding),
			Amount:     money(e.Amount),
			Notes:      e.Notes,
		}
	}
	s.respondWithPayload(w, http.StatusOK, out)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	weekEnding := week.ThisMonday(time.Now())
	if v := r.URL.Query().Get("week"); v != "" {
		t, err := week.Parse(v)
		if err != nil {
			s.respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		weekEnding = t
	}

	sum, err := s.cache.Week(r.Context(), weekEnding)
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]plotTotalJSON, len(sum.Plots))
	for i, pt := range sum.Plots {
		out[i] = plotTotalJSON{PlotID: pt.PlotID, PlotName: pt.PlotName, Total: money(pt.Total), Share: money(pt.Share), Entries: pt.Entries}
	}
	s.respond(w, http.StatusOK, map[string]any{
		"success":     true,
		"week_ending": week.Format(weekEnding),
		"total":       money(sum.Total),
		"rows":        out,
	})
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	list, err := s.ledger.ListPlots(r.Context())
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="expense-template.xlsx"`)
	if err := workbook.WriteTemplate(w, list, s.tasks); err != nil {
		s.log.Error("writing template", zap.Error(err))
	}
}
