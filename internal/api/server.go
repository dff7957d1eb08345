// Package api implements the HTTP solve API served by "pivot serve".
//
// The API accepts model text in request bodies, runs the same engines as
// the CLI, and exposes saved sessions. All responses are JSON.
package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/pivot/pkg/buildinfo"
	"github.com/matzehuels/pivot/pkg/cache"
	"github.com/matzehuels/pivot/pkg/errors"
	"github.com/matzehuels/pivot/pkg/lp"
	"github.com/matzehuels/pivot/pkg/milp"
	"github.com/matzehuels/pivot/pkg/sensitivity"
	"github.com/matzehuels/pivot/pkg/session"
	"github.com/matzehuels/pivot/pkg/simplex"
)

// requestTimeout bounds a single solve request end to end.
const requestTimeout = 60 * time.Second

// Server holds the dependencies shared by all handlers.
type Server struct {
	logger *log.Logger
	cache  cache.Cache
	store  session.Store
	solver lp.SolverOptions
	search milp.Options
}

// Options configures a Server. Cache and Store may be nil; solving then
// runs uncached and session endpoints return 503.
type Options struct {
	Logger *log.Logger
	Cache  cache.Cache
	Store  session.Store
	Solver lp.SolverOptions
	Search milp.Options
}

// NewServer creates a Server from the given options.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	store := opts.Cache
	if store == nil {
		store = cache.NewNullCache()
	}
	return &Server{
		logger: logger,
		cache:  store,
		store:  opts.Store,
		solver: opts.Solver.Normalized(),
		search: opts.Search.Normalized(),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Post("/solve", s.handleSolve)
	r.Post("/analyze", s.handleAnalyze)
	r.Get("/sessions", s.handleListSessions)
	r.Get("/sessions/{id}", s.handleGetSession)

	return r
}

// solveRequest is the body of POST /solve and POST /analyze.
type solveRequest struct {
	// Model is the model text, same format as the CLI reads from files.
	Model string `json:"model"`
	// Engine selects the solver: simplex (default), revised, bnb or cuts.
	Engine string `json:"engine,omitempty"`
	// Save records the run in the session store when true.
	Save bool `json:"save,omitempty"`

	MaxIterations int     `json:"max_iterations,omitempty"`
	Tolerance     float64 `json:"tolerance,omitempty"`
	MaxDepth      int     `json:"max_depth,omitempty"`
	MaxNodes      int     `json:"max_nodes,omitempty"`
	MaxCuts       int     `json:"max_cuts,omitempty"`
}

type solveResponse struct {
	Name       string    `json:"name"`
	Engine     string    `json:"engine"`
	Status     string    `json:"status"`
	Objective  *float64  `json:"objective,omitempty"`
	X          []float64 `json:"x,omitempty"`
	Iterations int       `json:"iterations,omitempty"`
	Nodes      int       `json:"nodes,omitempty"`
	Cuts       int       `json:"cuts,omitempty"`
	Truncated  bool      `json:"truncated,omitempty"`
	Rounded    bool      `json:"rounded,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	Cached     bool      `json:"cached,omitempty"`
}

type analyzeResponse struct {
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	Objective       *float64  `json:"objective,omitempty"`
	Conflict        string    `json:"conflict,omitempty"`
	Degenerate      bool      `json:"degenerate"`
	RecommendBland  bool      `json:"recommend_bland"`
	AlternateOptima bool      `json:"alternate_optima"`
	Ray             []float64 `json:"ray,omitempty"`
	ShadowPrices    []float64 `json:"shadow_prices,omitempty"`
	ReducedCosts    []float64 `json:"reduced_costs,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	req, m, ok := s.decodeModel(w, r)
	if !ok {
		return
	}
	solver, search := s.requestOptions(req)
	ctx := r.Context()

	resp := solveResponse{Name: m.Name, Engine: req.Engine}
	modelText := lp.Format(m)
	key := cache.NewDefaultKeyer().SolveKey(modelText, cache.KeyOpts{
		Engine:        req.Engine,
		MaxIterations: solver.MaxIterations,
		Tolerance:     solver.Tolerance,
		MaxDepth:      search.MaxDepth,
		MaxNodes:      search.MaxNodes,
		MaxCuts:       search.MaxCuts,
	})
	if data, hit, err := s.cache.Get(ctx, key); err == nil && hit {
		var cached solveResponse
		if json.Unmarshal(data, &cached) == nil {
			cached.Cached = true
			cached.SessionID = ""
			if req.Save {
				cached.SessionID = s.save(ctx, m, modelText, &cached)
			}
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	switch req.Engine {
	case "", "simplex", "revised":
		if req.Engine == "" {
			resp.Engine = "simplex"
		}
		var (
			res *simplex.Result
			err error
		)
		if req.Engine == "revised" {
			res, err = simplex.SolveRevised(ctx, m, &solver)
		} else {
			res, err = simplex.Solve(ctx, m, &solver)
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.Status = res.Status.String()
		resp.X = res.X
		resp.Iterations = res.Iterations
		resp.Objective = finite(res.Objective)
	case "bnb", "cuts":
		var (
			out *milp.Outcome
			err error
		)
		if req.Engine == "cuts" {
			out, err = milp.SolveWithCuts(ctx, m, &search)
		} else {
			out, err = milp.Solve(ctx, m, &search)
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.Status = out.Status.String()
		resp.X = out.X
		resp.Nodes = out.NodesExplored
		resp.Cuts = out.CutsApplied
		resp.Truncated = out.Truncated
		resp.Rounded = out.Rounded
		resp.Objective = finite(out.Objective)
	default:
		s.writeError(w, errors.New(errors.ErrCodeInvalidOptions, "unknown engine %q", req.Engine))
		return
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := s.cache.Set(ctx, key, data, cache.SolveTTL); err != nil {
			s.logger.Debug("cache write failed", "err", err)
		}
	}
	if req.Save {
		resp.SessionID = s.save(ctx, m, modelText, &resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, m, ok := s.decodeModel(w, r)
	if !ok {
		return
	}
	solver, _ := s.requestOptions(req)

	a, err := simplex.Analyze(r.Context(), m, &solver)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := analyzeResponse{
		Name:            m.Name,
		Status:          a.Result.Status.String(),
		Objective:       finite(a.Result.Objective),
		Degenerate:      a.Degenerate,
		RecommendBland:  a.RecommendBland,
		AlternateOptima: a.AlternateOptima,
		Ray:             a.Ray,
	}
	if a.Conflict != nil {
		resp.Conflict = a.Conflict.Reason
	}
	if a.Result.Status == simplex.StatusOptimal {
		if rep, err := sensitivity.Analyze(m, a.Result); err == nil {
			resp.ShadowPrices = rep.ShadowPrices
			resp.ReducedCosts = rep.ReducedCosts
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Code: string(errors.ErrCodeUnsupported), Message: "session store not configured",
		})
		return
	}
	sessions, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Code: string(errors.ErrCodeUnsupported), Message: "session store not configured",
		})
		return
	}
	id := chi.URLParam(r, "id")
	if err := errors.ValidateSessionName(id); err != nil {
		s.writeError(w, err)
		return
	}
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sess == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Code: string(errors.ErrCodeSessionNotFound), Message: "session " + id + " not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// decodeModel parses the request body and model text. On failure it has
// already written the error response.
func (s *Server) decodeModel(w http.ResponseWriter, r *http.Request) (*solveRequest, *lp.Model, bool) {
	var req solveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code: string(errors.ErrCodeInvalidFormat), Message: "invalid JSON body: " + err.Error(),
		})
		return nil, nil, false
	}
	if req.Model == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code: string(errors.ErrCodeInvalidModel), Message: "model text is required",
		})
		return nil, nil, false
	}
	m, err := lp.Parse(strings.NewReader(req.Model))
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeParse, err, "parse model"))
		return nil, nil, false
	}
	return &req, m, true
}

// requestOptions merges per-request overrides onto the server defaults.
func (s *Server) requestOptions(req *solveRequest) (lp.SolverOptions, milp.Options) {
	solver := s.solver
	if req.MaxIterations > 0 {
		solver.MaxIterations = req.MaxIterations
	}
	if req.Tolerance > 0 {
		solver.Tolerance = req.Tolerance
	}
	search := s.search
	search.Solver = solver
	if req.MaxDepth > 0 {
		search.MaxDepth = req.MaxDepth
	}
	if req.MaxNodes > 0 {
		search.MaxNodes = req.MaxNodes
	}
	if req.MaxCuts > 0 {
		search.MaxCuts = req.MaxCuts
	}
	return solver, search
}

func (s *Server) save(ctx context.Context, m *lp.Model, modelText string, resp *solveResponse) string {
	if s.store == nil {
		return ""
	}
	obj := math.NaN()
	if resp.Objective != nil {
		obj = *resp.Objective
	}
	sess := session.New(m.Name, modelText, resp.Engine, resp.Status, obj, resp.X)
	if err := s.store.Set(ctx, sess); err != nil {
		s.logger.Warn("session save failed", "err", err)
		return ""
	}
	return sess.ID
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeInvalidModel, errors.ErrCodeInvalidOptions,
		errors.ErrCodeInvalidFormat, errors.ErrCodeParse:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound, errors.ErrCodeSessionNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeTimeout:
		status = http.StatusGatewayTimeout
	case errors.ErrCodeUnsupported:
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResponse{Code: string(code), Message: errors.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// finite returns a pointer to v when it is representable in JSON.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
