package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stakevault/core"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	rateLimitWindow = time.Minute
	maxTxPerWindow  = 5
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// authTokenEnv names the environment variable carrying the bearer token
// required for mutating methods.
const authTokenEnv = "SVT_RPC_TOKEN"

type rateLimiter struct {
	count       int
	windowStart time.Time
}

type Server struct {
	node *core.Node

	mu           sync.Mutex
	rateLimiters map[string]*rateLimiter
	authToken    string
}

func NewServer(node *core.Node) *Server {
	token := strings.TrimSpace(os.Getenv(authTokenEnv))
	return &Server{
		node:         node,
		rateLimiters: make(map[string]*rateLimiter),
		authToken:    token,
	}
}

func (s *Server) Start(addr string) error {
	fmt.Printf("Starting JSON-RPC server on %s\n", addr)
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "failed to read request body", err.Error())
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON-RPC request", err.Error())
		return
	}

	switch req.Method {
	case "stake_deposit":
		s.mutating(w, r, &req, s.handleStakeDeposit)
	case "stake_extend":
		s.mutating(w, r, &req, s.handleStakeExtend)
	case "stake_withdraw":
		s.mutating(w, r, &req, s.handleStakeWithdraw)
	case "stake_emergencyWithdraw":
		s.mutating(w, r, &req, s.handleStakeEmergencyWithdraw)
	case "stake_claim":
		s.mutating(w, r, &req, s.handleStakeClaim)
	case "stake_topUpPool":
		s.mutating(w, r, &req, s.handleStakePoolTopUp)
	case "stake_getInfo":
		s.handleStakeInfo(w, &req)
	case "stake_availableRewards":
		s.handleStakeAvailableRewards(w, &req)
	case "stake_passedPeriods":
		s.handleStakePassedPeriods(w, &req)
	case "stake_nextRewardDate":
		s.handleStakeNextRewardDate(w, &req)
	case "stake_stakingPeriod":
		s.handleStakingPeriod(w, &req)
	case "stake_pool":
		s.handleStakePool(w, &req)
	case "stake_events":
		s.handleStakeEvents(w, &req)
	case "svt_getBalance":
		s.handleGetBalance(w, &req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
	}
}

type handlerFunc func(w http.ResponseWriter, req *RPCRequest)

// mutating applies the auth and rate-limit gates shared by every
// state-changing method before dispatching to the handler.
func (s *Server) mutating(w http.ResponseWriter, r *http.Request, req *RPCRequest, next handlerFunc) {
	if err := s.requireAuth(r); err != nil {
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, err.Error(), nil)
		return
	}
	if !s.allowMutation(clientAddr(r)) {
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
		return
	}
	next(w, req)
}

func (s *Server) requireAuth(r *http.Request) error {
	if s.authToken == "" {
		// No token configured: open dev mode.
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return fmt.Errorf("missing bearer token")
	}
	supplied := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.authToken)) != 1 {
		return fmt.Errorf("invalid bearer token")
	}
	return nil
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) allowMutation(client string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	limiter, ok := s.rateLimiters[client]
	if !ok || now.Sub(limiter.windowStart) >= rateLimitWindow {
		s.rateLimiters[client] = &rateLimiter{count: 1, windowStart: now}
		return true
	}
	if limiter.count >= maxTxPerWindow {
		return false
	}
	limiter.count++
	return true
}
