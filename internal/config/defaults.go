package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/LeJamon/goDCA/internal/core/tx"
	"github.com/LeJamon/goDCA/internal/storage/journal"
)

// setDefaults sets all default values
func setDefaults(v *viper.Viper) {
	// 1. Listeners
	v.SetDefault("server.address", "127.0.0.1:5005")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.admin", []string{"127.0.0.1"})
	v.SetDefault("server.send_queue_limit", 500)
	v.SetDefault("server.websocket_ping_frequency", 30*time.Second)

	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.address", "127.0.0.1:50051")
	v.SetDefault("grpc.max_recv_msg_size", 4*1024*1024) // 4MB
	v.SetDefault("grpc.max_send_msg_size", 4*1024*1024) // 4MB

	// 2. Persistence
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.compression", "lz4")
	v.SetDefault("storage.cache_size", 4096)

	jc := journal.NewConfig()
	v.SetDefault("journal.driver", jc.Driver)
	v.SetDefault("journal.dsn", jc.DSN)
	v.SetDefault("journal.max_open_conns", jc.MaxOpenConns)
	v.SetDefault("journal.max_idle_conns", jc.MaxIdleConns)
	v.SetDefault("journal.conn_max_lifetime", jc.ConnMaxLifetime)
	v.SetDefault("journal.timeout", jc.Timeout)

	// 3. Protocol
	v.SetDefault("protocol.swap_fee", tx.DefaultSwapFee)
	v.SetDefault("protocol.loan_fee", tx.DefaultLoanFee)
	v.SetDefault("protocol.allowed_intervals", []uint32{3600, 86400, 604800})
	v.SetDefault("protocol.paused", false)
	v.SetDefault("protocol.allow_one_sided_swaps", false)

	v.SetDefault("oracle.kind", OracleStatic)
	v.SetDefault("oracle.twap_window", 30*time.Minute)

	// 4. Keeper
	v.SetDefault("swapper.enabled", false)
	v.SetDefault("swapper.poll_interval", 15*time.Second)
	v.SetDefault("swapper.quote_cache_size", 256)
	v.SetDefault("swapper.quote_ttl", 10*time.Second)
	v.SetDefault("swapper.max_concurrent_quotes", 8)

	v.SetDefault("market.enabled", false)

	// 5. Diagnostics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "dcad")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.source", false)
}
