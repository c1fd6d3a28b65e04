package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/allowlist"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
	"github.com/BrandonDHaskell/Janus/server/internal/metrics"
)

type Dependencies struct {
	Logger      *log.Logger
	Addr        string
	Coordinator *service.Coordinator
	Machine     *service.StatusMachine
	Events      store.StatusEventStore
	AllowList   *allowlist.Store
	Syncer      *allowlist.Syncer // nil disables POST /v1/allowlist/sync

	// NearbyWindow bounds GET /v1/networks/nearby. Defaults to 5 minutes.
	NearbyWindow time.Duration

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // nil disables /metrics
}

type Server struct {
	httpServer   *http.Server
	logger       *log.Logger
	mux          *http.ServeMux
	coordinator  *service.Coordinator
	machine      *service.StatusMachine
	events       store.StatusEventStore
	allowList    *allowlist.Store
	syncer       *allowlist.Syncer
	nearbyWindow time.Duration
	now          func() time.Time
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:       d.Logger,
		mux:          mux,
		coordinator:  d.Coordinator,
		machine:      d.Machine,
		events:       d.Events,
		allowList:    d.AllowList,
		syncer:       d.Syncer,
		nearbyWindow: d.NearbyWindow,
		now:          func() time.Time { return time.Now().UTC() },
	}
	if s.nearbyWindow <= 0 {
		s.nearbyWindow = 5 * time.Minute
	}

	mux.HandleFunc("POST /v1/scans", s.handleScan)
	mux.HandleFunc("GET /v1/networks", s.handleListNetworks)
	mux.HandleFunc("DELETE /v1/networks", s.handleClearNetworks)
	mux.HandleFunc("GET /v1/networks/nearby", s.handleNearby)
	mux.HandleFunc("GET /v1/networks/{target}", s.handleGetNetwork)
	mux.HandleFunc("GET /v1/networks/{target}/events", s.handleNetworkEvents)
	mux.HandleFunc("POST /v1/networks/{target}/{action}", s.handleAction)
	mux.HandleFunc("GET /v1/overrides/export", s.handleExport)
	mux.HandleFunc("POST /v1/overrides/import", s.handleImport)
	mux.HandleFunc("GET /v1/allowlist/status", s.handleAllowListStatus)
	mux.HandleFunc("POST /v1/allowlist/sync", s.handleAllowListSync)
	if d.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(d.Gatherer))
	}

	var handler http.Handler = mux
	handler = d.Metrics.Instrument(handler)
	handler = loggingMiddleware(d.Logger, handler)
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(d.Logger),
		handlers.PrintRecoveryStack(true),
	)(handler)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ScanRequest is the body of POST /v1/scans: one complete batch from the
// radio plus whether the user asked for it.
type ScanRequest struct {
	Manual       bool                `json:"manual"`
	Observations []types.Observation `json:"observations"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_body", "invalid request body")
		return
	}

	res, err := s.coordinator.RunCycle(r.Context(), req.Observations, req.Manual)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusServiceUnavailable, "cycle_cancelled", "scan cycle was cancelled; no records changed")
			return
		}
		s.logger.Printf("scan cycle error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	s.respond(w, r, http.StatusOK, res)
}

// NetworkList is the response of the list endpoints.
type NetworkList struct {
	Networks []types.NetworkSnapshot `json:"networks"`
}

func snapshots(recs []types.NetworkRecord) NetworkList {
	out := NetworkList{Networks: make([]types.NetworkSnapshot, 0, len(recs))}
	for _, r := range recs {
		out.Networks = append(out.Networks, r.Snapshot())
	}
	return out
}

func (s *Server) handleListNetworks(w http.ResponseWriter, r *http.Request) {
	recs, err := s.machine.List(r.Context())
	if err != nil {
		s.internalError(w, "list networks", err)
		return
	}
	s.respond(w, r, http.StatusOK, snapshots(recs))
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	window := s.nearbyWindow
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_window", "window must be a positive duration")
			return
		}
		window = d
	}

	recs, err := s.machine.Nearby(r.Context(), s.now().Add(-window))
	if err != nil {
		s.internalError(w, "nearby networks", err)
		return
	}
	s.respond(w, r, http.StatusOK, snapshots(recs))
}

func (s *Server) handleGetNetwork(w http.ResponseWriter, r *http.Request) {
	rec, err := s.machine.Get(r.Context(), r.PathValue("target"))
	if err != nil {
		s.serviceError(w, "get network", err)
		return
	}
	s.respond(w, r, http.StatusOK, rec)
}

type eventView struct {
	From       types.NetworkStatus `json:"from"`
	To         types.NetworkStatus `json:"to"`
	Reason     string              `json:"reason"`
	CycleID    string              `json:"cycle_id,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}

func (s *Server) handleNetworkEvents(w http.ResponseWriter, r *http.Request) {
	key, err := service.ParseTarget(r.PathValue("target"))
	if err != nil {
		s.serviceError(w, "network events", err)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	evs, err := s.events.ListEvents(r.Context(), key, limit)
	if err != nil {
		s.internalError(w, "network events", err)
		return
	}
	out := make([]eventView, 0, len(evs))
	for _, ev := range evs {
		out = append(out, eventView{From: ev.From, To: ev.To, Reason: ev.Reason, CycleID: ev.CycleID, OccurredAt: ev.OccurredAt})
	}
	s.respond(w, r, http.StatusOK, map[string]any{"key": key, "events": out})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	action, err := types.ParseUserAction(r.PathValue("action"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_action", err.Error())
		return
	}
	res, err := s.machine.Apply(r.Context(), r.PathValue("target"), action)
	if err != nil {
		s.serviceError(w, "user action", err)
		return
	}
	s.respond(w, r, http.StatusOK, res.Report())
}

func (s *Server) handleClearNetworks(w http.ResponseWriter, r *http.Request) {
	n, err := s.machine.ClearAll(r.Context())
	if err != nil {
		s.internalError(w, "clear networks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	exp, err := s.machine.Export(r.Context())
	if err != nil {
		s.internalError(w, "export overrides", err)
		return
	}
	s.respond(w, r, http.StatusOK, exp)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var exp types.OverrideExport
	if err := decodeBody(r, &exp); err != nil {
		writeError(w, http.StatusBadRequest, "bad_body", "invalid override backup")
		return
	}
	report, err := s.machine.Import(r.Context(), exp)
	if err != nil {
		s.internalError(w, "import overrides", err)
		return
	}
	s.respond(w, r, http.StatusOK, report)
}

func (s *Server) handleAllowListStatus(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, s.allowList.Status(s.now()))
}

func (s *Server) handleAllowListSync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, http.StatusNotImplemented, "no_source", "no allow-list source configured")
		return
	}
	if err := s.syncer.SyncNow(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "sync_failed", err.Error())
		return
	}
	s.respond(w, r, http.StatusOK, s.allowList.Status(s.now()))
}

// serviceError maps engine sentinels to HTTP status codes.
func (s *Server) serviceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrInvalidTarget),
		errors.Is(err, types.ErrInvalidBSSID),
		errors.Is(err, types.ErrInvalidSSID),
		errors.Is(err, types.ErrMalformedObservation):
		writeError(w, http.StatusBadRequest, "invalid_target", err.Error())
	case errors.Is(err, types.ErrUnknownAction):
		writeError(w, http.StatusBadRequest, "unknown_action", err.Error())
	default:
		s.internalError(w, op, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Printf("%s error: %v", op, err)
	writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
}
