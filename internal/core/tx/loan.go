package tx

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/amount"
)

// Loan lends a pair's idle and owed funds to a callee for the duration of
// one callback. The callee must return the amounts plus the loan fee.
type Loan struct {
	Pair    common.Address `json:"pair"`
	AmountA *uint256.Int   `json:"amountA,omitempty"`
	AmountB *uint256.Int   `json:"amountB,omitempty"`
	Callee  common.Address `json:"callee"`
	Data    []byte         `json:"data,omitempty"`
}

func (t *Loan) TxType() Type                { return TypeLoan }
func (t *Loan) PairAddress() common.Address { return t.Pair }

func (t *Loan) Validate() error {
	if t.Pair == (common.Address{}) || t.Callee == (common.Address{}) {
		return Errorf(ZeroAddress, "loan pair and callee")
	}
	if amount.OrZero(t.AmountA).IsZero() && amount.OrZero(t.AmountB).IsZero() {
		return Errorf(ZeroLoan, "nothing to lend")
	}
	return nil
}

func (t *Loan) Apply(ctx *ApplyContext) error {
	pair, err := loadPair(ctx.View, t.Pair)
	if err != nil {
		return err
	}
	tokens := [2]common.Address{pair.TokenA, pair.TokenB}
	amounts := [2]*uint256.Int{amount.OrZero(t.AmountA), amount.OrZero(t.AmountB)}

	var before [2]*uint256.Int
	for i, tok := range tokens {
		if before[i], err = ctx.BalanceOf(tok, pair.Address); err != nil {
			return err
		}
		if amounts[i].Gt(before[i]) {
			return Errorf(InsufficientLiquidity, "pair holds %s of %s, asked %s", before[i], tok, amounts[i])
		}
	}
	params, err := ctx.Parameters()
	if err != nil {
		return err
	}
	if params.Paused {
		return Errorf(Paused, "protocol is paused")
	}
	callee, err := ctx.loanCallee(t.Callee)
	if err != nil {
		return err
	}

	var fees [2]*uint256.Int
	for i, tok := range tokens {
		fees[i] = amount.Fee(amounts[i], params.LoanFee)
		if err := ctx.Move(tok, pair.Address, t.Callee, amounts[i]); err != nil {
			return err
		}
	}

	cb := &LoanCallback{
		Pair:     pair.Address,
		TokenA:   pair.TokenA,
		TokenB:   pair.TokenB,
		AmountA:  amounts[0],
		AmountB:  amounts[1],
		FeeA:     fees[0],
		FeeB:     fees[1],
		Borrower: ctx.Caller,
		Data:     t.Data,
	}
	if err := callee.OnLoan(ctx.as(t.Callee), cb); err != nil {
		return err
	}

	for i, tok := range tokens {
		after, err := ctx.BalanceOf(tok, pair.Address)
		if err != nil {
			return err
		}
		required, err := amount.Add(before[i], fees[i])
		if err != nil {
			return Wrap(Internal, err, "required balance")
		}
		if after.Lt(required) {
			return Errorf(LoanNotRepaid, "pair holds %s of %s, needs %s", after, tok, required)
		}
		// fee plus any excess repayment
		if err := ctx.Move(tok, pair.Address, params.FeeRecipient, new(uint256.Int).Sub(after, before[i])); err != nil {
			return err
		}
	}

	ctx.Emit(EventLoaned, pair.Address, &LoanedEvent{
		Borrower: ctx.Caller,
		Callee:   t.Callee,
		AmountA:  amounts[0],
		AmountB:  amounts[1],
		FeeA:     fees[0],
		FeeB:     fees[1],
	})
	return nil
}
