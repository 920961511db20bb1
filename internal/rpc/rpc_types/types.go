package rpc_types

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/LeJamon/goDCA/internal/core/oracle"
	"github.com/LeJamon/goDCA/internal/core/tx"
	"github.com/LeJamon/goDCA/internal/core/tx/market"
	"github.com/LeJamon/goDCA/internal/storage/journal"
	"github.com/LeJamon/goDCA/internal/swapper"
)

// Role-based access control
type Role int

const (
	RoleGuest Role = iota
	RoleAdmin
)

// ServiceContainer holds references to the services RPC handlers use.
// Only Engine is required.
type ServiceContainer struct {
	Engine     *tx.Engine
	Feed       oracle.Feed
	Dispatcher *swapper.Dispatcher
	Market     *market.Market
	Journal    *journal.Journal

	// Version is reported by server_info
	Version string
}

// RPC Context contains request-specific information
type RpcContext struct {
	Context  context.Context
	Role     Role
	ClientIP string
	Services *ServiceContainer
}

// IsAdmin reports whether the caller has the admin role.
func (c *RpcContext) IsAdmin() bool { return c.Role >= RoleAdmin }

// Method handler interface - all RPC methods implement this
type MethodHandler interface {
	Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError)
	RequiredRole() Role
}

// Method registry for dynamic method registration
type MethodRegistry struct {
	methods map[string]MethodHandler
}

func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{
		methods: make(map[string]MethodHandler),
	}
}

func (r *MethodRegistry) Register(name string, handler MethodHandler) {
	r.methods[name] = handler
}

func (r *MethodRegistry) Get(name string) (MethodHandler, bool) {
	handler, exists := r.methods[name]
	return handler, exists
}

// List returns the registered method names in sorted order.
func (r *MethodRegistry) List() []string {
	methods := make([]string, 0, len(r.methods))
	for name := range r.methods {
		methods = append(methods, name)
	}
	sort.Strings(methods)
	return methods
}

// ParseParams decodes params into v. Missing params decode as an empty
// object.
func ParseParams(params json.RawMessage, v interface{}) *RpcError {
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return RpcErrorInvalidParams("Invalid parameters: " + err.Error())
	}
	return nil
}
