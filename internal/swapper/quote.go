package swapper

//go:generate mockgen -source=quote.go -destination=mock_quote.go -package=swapper

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// QuoteRequest asks a venue what selling SellAmount of SellToken for
// BuyToken would yield.
type QuoteRequest struct {
	SellToken  common.Address `json:"sellToken"`
	BuyToken   common.Address `json:"buyToken"`
	SellAmount *uint256.Int   `json:"sellAmount"`
}

// Quote is a venue's answer to a QuoteRequest. Payload is opaque to the
// dispatcher; it is handed to Executor, the swap callee that fills the
// order during the swap callback.
type Quote struct {
	SellAmount *uint256.Int   `json:"sellAmount"`
	BuyAmount  *uint256.Int   `json:"buyAmount"`
	Payload    []byte         `json:"payload"`
	Executor   common.Address `json:"executor"`
}

// QuoteProvider prices the sale of a swap reward.
type QuoteProvider interface {
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
}
