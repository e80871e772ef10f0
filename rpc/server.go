package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lendnet/core/ledger"
)

// Server exposes the ledger over JSON-RPC 2.0 on a single POST endpoint,
// plus health and metrics endpoints for operators.
type Server struct {
	ledger   *ledger.Ledger
	secret   []byte
	limiters *limiters
	log      *slog.Logger
	now      func() time.Time

	mutations map[string]handlerFunc
	queries   map[string]handlerFunc
}

// Options configures a Server.
type Options struct {
	JWTSecret         []byte
	RequestsPerSecond float64
	Burst             int
	Logger            *slog.Logger
	NowFunc           func() time.Time
}

func NewServer(l *ledger.Ledger, opts Options) (*Server, error) {
	if l == nil {
		return nil, errors.New("rpc: ledger required")
	}
	if len(opts.JWTSecret) == 0 {
		return nil, errors.New("rpc: jwt secret required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 20
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 40
	}
	nowFn := opts.NowFunc
	if nowFn == nil {
		nowFn = time.Now
	}
	s := &Server{
		ledger:   l,
		secret:   opts.JWTSecret,
		limiters: newLimiters(rps, burst),
		log:      logger,
		now:      nowFn,
	}
	s.mutations = s.mutationTable()
	s.queries = s.queryTable()
	return s, nil
}

// Router assembles the HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Method(http.MethodPost, "/", s.observe("rpc", s.rateLimit(http.HandlerFunc(s.handle))))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

type handlerFunc func(w http.ResponseWriter, caller common.Address, req *RPCRequest)

// handle decodes the JSON-RPC envelope and routes to the method handler.
// Mutating methods authenticate first so the ledger can attribute the
// operation; queries are open.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	if handler, ok := s.mutations[req.Method]; ok {
		caller, authErr := s.requireAuth(r)
		if authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		handler(w, caller, req)
		return
	}
	if handler, ok := s.queries[req.Method]; ok {
		handler(w, common.Address{}, req)
		return
	}
	writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
}

func (s *Server) mutationTable() map[string]handlerFunc {
	return map[string]handlerFunc{
		"pool_deposit":  s.handlePoolDeposit,
		"pool_withdraw": s.handlePoolWithdraw,

		"lend_requestLoan":     s.handleRequestLoan,
		"lend_approveLoan":     s.handleApproveLoan,
		"lend_rejectLoan":      s.handleRejectLoan,
		"lend_disburseLoan":    s.handleDisburseLoan,
		"lend_makePayment":     s.handleMakePayment,
		"lend_markAsDefaulted": s.handleMarkAsDefaulted,

		"circle_create":          s.handleCircleCreate,
		"circle_join":            s.handleCircleJoin,
		"circle_removeMember":    s.handleCircleRemoveMember,
		"circle_proposeLoan":     s.handleCircleProposeLoan,
		"circle_vote":            s.handleCircleVote,
		"circle_executeProposal": s.handleCircleExecuteProposal,
		"circle_depositTreasury": s.handleCircleDepositTreasury,
		"circle_vouch":           s.handleCircleVouch,

		"admin_setGlobalPause":   s.handleSetGlobalPause,
		"admin_setModulePause":   s.handleSetModulePause,
		"admin_whitelistAsset":   s.handleWhitelistAsset,
		"admin_createPool":       s.handleCreatePool,
		"admin_grantRole":        s.handleGrantRole,
		"admin_revokeRole":       s.handleRevokeRole,
		"admin_withdrawReserves": s.handleWithdrawReserves,
		"admin_setCreditScore":   s.handleSetCreditScore,
		"admin_mint":             s.handleMint,
	}
}

func (s *Server) queryTable() map[string]handlerFunc {
	return map[string]handlerFunc{
		"pool_get":        s.handlePoolGet,
		"pool_position":   s.handlePoolPosition,
		"pool_borrowRate": s.handlePoolBorrowRate,

		"lend_getLoan":        s.handleGetLoan,
		"lend_listByBorrower": s.handleLoansByBorrower,
		"lend_listActive":     s.handleActiveLoans,
		"lend_latePenalty":    s.handleLatePenalty,

		"circle_get":         s.handleCircleGet,
		"circle_getProposal": s.handleCircleGetProposal,

		"credit_getScore": s.handleCreditScore,
		"bank_getBalance": s.handleBalance,
		"audit_list":      s.handleAuditList,
	}
}
