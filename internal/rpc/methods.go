package rpc

import (
	"github.com/LeJamon/goDCA/internal/core/tx"
	"github.com/LeJamon/goDCA/internal/rpc/rpc_handlers"
)

// registerAllMethods registers every RPC method. Each transaction type gets
// a method named after it, such as deposit or withdraw_swapped_many.
func (s *Server) registerAllMethods() {
	// Server
	s.registry.Register("ping", &rpc_handlers.PingMethod{})
	s.registry.Register("server_info", &rpc_handlers.ServerInfoMethod{})
	s.registry.Register("events", &rpc_handlers.EventsMethod{})

	// Ledger queries
	s.registry.Register("parameters", &rpc_handlers.ParametersMethod{})
	s.registry.Register("token", &rpc_handlers.TokenMethod{})
	s.registry.Register("balance", &rpc_handlers.BalanceMethod{})
	s.registry.Register("pair", &rpc_handlers.PairMethod{})
	s.registry.Register("pairs", &rpc_handlers.PairsMethod{})
	s.registry.Register("position", &rpc_handlers.PositionMethod{})
	s.registry.Register("next_swap_info", &rpc_handlers.NextSwapInfoMethod{})
	s.registry.Register("seconds_until_next_swap", &rpc_handlers.SecondsUntilNextSwapMethod{})

	// Transactions
	s.registry.Register("submit", &rpc_handlers.SubmitMethod{})
	for _, t := range tx.Types() {
		s.registry.Register(rpc_handlers.MethodName(t), &rpc_handlers.TransactionMethod{Type: t})
	}

	// Swapper
	s.registry.Register("swap_due_pairs", &rpc_handlers.SwapDuePairsMethod{})
	s.registry.Register("execute_swaps", &rpc_handlers.ExecuteSwapsMethod{})
	s.registry.Register("watch_pairs", &rpc_handlers.WatchPairsMethod{})
	s.registry.Register("unwatch_pairs", &rpc_handlers.WatchPairsMethod{Stop: true})
	s.registry.Register("watched_pairs", &rpc_handlers.WatchedPairsMethod{})
	s.registry.Register("swapper_set_pending_governor", &rpc_handlers.SwapperGovernorMethod{})
	s.registry.Register("swapper_accept_pending_governor", &rpc_handlers.SwapperGovernorMethod{Accept: true})

	// Market and oracle
	s.registry.Register("pool", &rpc_handlers.PoolMethod{})
	s.registry.Register("market_quote", &rpc_handlers.MarketQuoteMethod{})
	s.registry.Register("oracle_quote", &rpc_handlers.OracleQuoteMethod{})
	s.registry.Register("set_price", &rpc_handlers.SetPriceMethod{})
}
