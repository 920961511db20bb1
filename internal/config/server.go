package config

import (
	"fmt"
	"net"
	"time"
)

// ServerConfig represents the [server] section. JSON-RPC, the websocket
// event stream and, when enabled, metrics share one listener.
type ServerConfig struct {
	Address         string        `toml:"address" mapstructure:"address"`
	ReadTimeout     time.Duration `toml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// Admin lists the client IPs allowed to call governor methods
	Admin []string `toml:"admin" mapstructure:"admin"`

	// WebSocket specific settings
	SendQueueLimit         int           `toml:"send_queue_limit" mapstructure:"send_queue_limit"`
	WebsocketPingFrequency time.Duration `toml:"websocket_ping_frequency" mapstructure:"websocket_ping_frequency"`
}

// GRPCConfig represents the [grpc] section
type GRPCConfig struct {
	Enabled        bool   `toml:"enabled" mapstructure:"enabled"`
	Address        string `toml:"address" mapstructure:"address"`
	MaxRecvMsgSize int    `toml:"max_recv_msg_size" mapstructure:"max_recv_msg_size"`
	MaxSendMsgSize int    `toml:"max_send_msg_size" mapstructure:"max_send_msg_size"`
}

// IsAdmin reports whether ip may call governor methods.
func (s *ServerConfig) IsAdmin(ip string) bool {
	for _, a := range s.Admin {
		if a == ip {
			return true
		}
	}
	return false
}

// Validate performs validation on the server configuration
func (s *ServerConfig) Validate() error {
	if err := validateAddress(s.Address); err != nil {
		return fmt.Errorf("address: %w", err)
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 {
		return fmt.Errorf("timeouts must be non-negative")
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %s", s.ShutdownTimeout)
	}
	for _, ip := range s.Admin {
		if net.ParseIP(ip) == nil {
			return fmt.Errorf("invalid admin IP: %s", ip)
		}
	}
	if s.SendQueueLimit <= 0 {
		return fmt.Errorf("send_queue_limit must be positive, got %d", s.SendQueueLimit)
	}
	if s.WebsocketPingFrequency < 0 {
		return fmt.Errorf("websocket_ping_frequency must be non-negative")
	}
	return nil
}

// Validate performs validation on the gRPC configuration
func (g *GRPCConfig) Validate() error {
	if !g.Enabled {
		return nil
	}
	if err := validateAddress(g.Address); err != nil {
		return fmt.Errorf("address: %w", err)
	}
	if g.MaxRecvMsgSize <= 0 {
		return fmt.Errorf("max_recv_msg_size must be positive")
	}
	if g.MaxSendMsgSize <= 0 {
		return fmt.Errorf("max_send_msg_size must be positive")
	}
	return nil
}

func validateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address is required")
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format: %w", err)
	}
	if port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	return nil
}
