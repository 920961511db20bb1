package rpc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/LeJamon/goDCA/internal/logging"
	"github.com/LeJamon/goDCA/internal/metrics"
	"github.com/LeJamon/goDCA/internal/rpc/rpc_types"
)

// maxRequestBody bounds a JSON-RPC request body.
const maxRequestBody = 1 << 20

// Server handles HTTP JSON-RPC requests.
// Format: {"method": "method_name", "params": [{...}]}
type Server struct {
	registry *rpc_types.MethodRegistry
	services *rpc_types.ServiceContainer
	admin    map[string]struct{}
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithAdmin grants the admin role to requests from ips.
func WithAdmin(ips []string) Option {
	return func(s *Server) {
		for _, ip := range ips {
			s.admin[ip] = struct{}{}
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates an RPC server over services. timeout bounds each
// request; zero means no bound.
func NewServer(services *rpc_types.ServiceContainer, timeout time.Duration, opts ...Option) *Server {
	s := &Server{
		registry: rpc_types.NewMethodRegistry(),
		services: services,
		admin:    make(map[string]struct{}),
		timeout:  timeout,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerAllMethods()

	return s
}

// Registry returns the method registry.
func (s *Server) Registry() *rpc_types.MethodRegistry { return s.registry }

// Request is a JSON-RPC request. Params holds at most one object.
type Request struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		s.handleGetRequest(w, r)
	case http.MethodPost:
		s.handlePostRequest(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetRequest serves ?command=name with no params.
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Query().Get("command")
	if method == "" {
		method = "server_info"
	}

	result, rpcErr := s.execute(r.Context(), "http", method, nil, s.roleFor(r.RemoteAddr), clientIP(r.RemoteAddr))
	s.writeResponse(w, map[string]interface{}{"command": method}, result, rpcErr)
}

func (s *Server) handlePostRequest(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		s.writeResponse(w, nil, nil, rpc_types.RpcErrorInternal("Failed to read request body"))
		return
	}

	var request Request
	if err := json.Unmarshal(body, &request); err != nil {
		s.writeResponse(w, nil, nil, rpc_types.NewRpcError(rpc_types.RpcPARSE_ERROR, "jsonInvalid", "Invalid JSON: "+err.Error()))
		return
	}
	if request.Method == "" {
		s.writeResponse(w, nil, nil, rpc_types.RpcErrorMissingCommand())
		return
	}

	var params json.RawMessage
	if len(request.Params) > 0 {
		params = request.Params[0]
	}

	result, rpcErr := s.execute(r.Context(), "http", request.Method, params, s.roleFor(r.RemoteAddr), clientIP(r.RemoteAddr))

	var requestObj interface{}
	if rpcErr != nil {
		reqMap := map[string]interface{}{}
		if params != nil {
			_ = json.Unmarshal(params, &reqMap)
		}
		reqMap["command"] = request.Method
		requestObj = reqMap
	}
	s.writeResponse(w, requestObj, result, rpcErr)
}

// execute runs method with the caller's role. transport labels the
// request in metrics.
func (s *Server) execute(ctx context.Context, transport, method string, params json.RawMessage, role rpc_types.Role, ip string) (interface{}, *rpc_types.RpcError) {
	result, rpcErr := s.executeMethod(ctx, method, params, role, ip)

	var err error
	if rpcErr != nil {
		err = rpcErr
		s.logger.Debug("rpc request failed", "transport", transport, "method", method, "error", rpcErr.ErrorString, "message", rpcErr.Message)
	}
	if _, known := s.registry.Get(method); !known {
		method = "unknown"
	}
	s.metrics.ObserveRPC(transport, method, err)
	return result, rpcErr
}

func (s *Server) executeMethod(ctx context.Context, method string, params json.RawMessage, role rpc_types.Role, ip string) (interface{}, *rpc_types.RpcError) {
	handler, exists := s.registry.Get(method)
	if !exists {
		return nil, rpc_types.RpcErrorMethodNotFound(method)
	}
	if role < handler.RequiredRole() {
		return nil, rpc_types.RpcErrorCommandUntrusted(method)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	return handler.Handle(&rpc_types.RpcContext{
		Context:  ctx,
		Role:     role,
		ClientIP: ip,
		Services: s.services,
	}, params)
}

// writeResponse writes result, or rpcErr when set. Both carry a status
// field inside result.
func (s *Server) writeResponse(w http.ResponseWriter, request interface{}, result interface{}, rpcErr *rpc_types.RpcError) {
	var resultObj map[string]interface{}
	if rpcErr != nil {
		resultObj = map[string]interface{}{
			"status":        "error",
			"error":         rpcErr.ErrorString,
			"error_code":    rpcErr.Code,
			"error_message": rpcErr.Message,
		}
		if request != nil {
			resultObj["request"] = request
		}
	} else if m, ok := result.(map[string]interface{}); ok {
		resultObj = m
		resultObj["status"] = "success"
	} else {
		resultObj = map[string]interface{}{
			"status": "success",
			"data":   result,
		}
	}

	data, err := json.Marshal(map[string]interface{}{"result": resultObj})
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// roleFor grants admin to configured peer addresses. Forwarding headers are
// ignored: they are set by the client.
func (s *Server) roleFor(remoteAddr string) rpc_types.Role {
	if _, ok := s.admin[clientIP(remoteAddr)]; ok {
		return rpc_types.RoleAdmin
	}
	return rpc_types.RoleGuest
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
