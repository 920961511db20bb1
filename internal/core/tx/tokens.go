package tx

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/amount"
	"github.com/LeJamon/goDCA/internal/core/ledger"
	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
	"github.com/LeJamon/goDCA/internal/core/ledger/keylet"
)

func loadToken(v ledger.View, token common.Address) (*entry.Token, error) {
	var t entry.Token
	found, err := ledger.Get(v, keylet.Token(token), &t)
	if err != nil {
		return nil, Wrap(Internal, err, "read token")
	}
	if !found {
		return nil, Errorf(InvalidToken, "unknown token %s", token)
	}
	return &t, nil
}

func readBalance(v ledger.View, token, holder common.Address) (*uint256.Int, error) {
	var b entry.Balance
	found, err := ledger.Get(v, keylet.Balance(token, holder), &b)
	if err != nil {
		return nil, Wrap(Internal, err, "read balance")
	}
	if !found {
		return amount.Zero(), nil
	}
	return b.Amount, nil
}

// writeBalance stores a balance; a zero balance removes the entry.
func writeBalance(v ledger.View, token, holder common.Address, value *uint256.Int) error {
	k := keylet.Balance(token, holder)
	if value.IsZero() {
		exists, err := v.Exists(k)
		if err != nil {
			return Wrap(Internal, err, "read balance")
		}
		if exists {
			if err := v.Erase(k); err != nil {
				return Wrap(Internal, err, "erase balance")
			}
		}
		return nil
	}
	b := &entry.Balance{Token: token, Holder: holder, Amount: value}
	if err := ledger.Put(v, k, b); err != nil {
		return Wrap(Internal, err, "write balance")
	}
	return nil
}

func move(v ledger.View, token, from, to common.Address, value *uint256.Int) error {
	if value == nil || value.IsZero() || from == to {
		return nil
	}
	if to == (common.Address{}) {
		return Errorf(ZeroAddress, "transfer recipient")
	}
	if _, err := loadToken(v, token); err != nil {
		return err
	}
	fromBal, err := readBalance(v, token, from)
	if err != nil {
		return err
	}
	if fromBal.Lt(value) {
		return Errorf(InsufficientBalance, "%s holds %s of %s, needs %s", from, fromBal, token, value)
	}
	toBal, err := readBalance(v, token, to)
	if err != nil {
		return err
	}
	newTo, err := amount.Add(toBal, value)
	if err != nil {
		return Wrap(InvalidAmount, err, "credit")
	}
	if err := writeBalance(v, token, from, new(uint256.Int).Sub(fromBal, value)); err != nil {
		return err
	}
	return writeBalance(v, token, to, newTo)
}

// TokenCreate registers a token. Only the governor may create tokens.
type TokenCreate struct {
	Token    common.Address `json:"token"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}

func (t *TokenCreate) TxType() Type { return TypeTokenCreate }

func (t *TokenCreate) Validate() error {
	if t.Token == (common.Address{}) {
		return Errorf(ZeroAddress, "token")
	}
	if t.Decimals > amount.MaxDecimals {
		return Errorf(InvalidToken, "decimals %d above %d", t.Decimals, amount.MaxDecimals)
	}
	return nil
}

func (t *TokenCreate) Apply(ctx *ApplyContext) error {
	if err := onlyGovernor(ctx); err != nil {
		return err
	}
	exists, err := ctx.View.Exists(keylet.Token(t.Token))
	if err != nil {
		return Wrap(Internal, err, "read token")
	}
	if exists {
		return Errorf(TokenExists, "token %s", t.Token)
	}
	tok := &entry.Token{Address: t.Token, Symbol: t.Symbol, Decimals: t.Decimals}
	if err := ledger.Put(ctx.View, keylet.Token(t.Token), tok); err != nil {
		return Wrap(Internal, err, "write token")
	}
	ctx.Emit(EventTokenCreated, common.Address{}, &TokenCreatedEvent{
		Token:    t.Token,
		Symbol:   t.Symbol,
		Decimals: t.Decimals,
	})
	return nil
}

// TokenMint credits new units of a token. Only the governor may mint.
type TokenMint struct {
	Token  common.Address `json:"token"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

func (t *TokenMint) TxType() Type { return TypeTokenMint }

func (t *TokenMint) Validate() error {
	if t.Token == (common.Address{}) || t.To == (common.Address{}) {
		return Errorf(ZeroAddress, "mint token and recipient")
	}
	if t.Amount == nil || t.Amount.IsZero() {
		return Errorf(InvalidAmount, "mint amount")
	}
	return nil
}

func (t *TokenMint) Apply(ctx *ApplyContext) error {
	if err := onlyGovernor(ctx); err != nil {
		return err
	}
	if _, err := loadToken(ctx.View, t.Token); err != nil {
		return err
	}
	bal, err := readBalance(ctx.View, t.Token, t.To)
	if err != nil {
		return err
	}
	next, err := amount.Add(bal, t.Amount)
	if err != nil {
		return Wrap(InvalidAmount, err, "mint")
	}
	if err := writeBalance(ctx.View, t.Token, t.To, next); err != nil {
		return err
	}
	ctx.Emit(EventMinted, common.Address{}, &MintedEvent{
		Token:   t.Token,
		To:      t.To,
		Amount:  t.Amount,
		Balance: next,
	})
	return nil
}

// Transfer moves tokens from the caller to another account.
type Transfer struct {
	Token  common.Address `json:"token"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

func (t *Transfer) TxType() Type { return TypeTransfer }

func (t *Transfer) Validate() error {
	if t.Token == (common.Address{}) || t.To == (common.Address{}) {
		return Errorf(ZeroAddress, "transfer token and recipient")
	}
	if t.Amount == nil || t.Amount.IsZero() {
		return Errorf(InvalidAmount, "transfer amount")
	}
	return nil
}

func (t *Transfer) Apply(ctx *ApplyContext) error {
	if err := ctx.Transfer(t.Token, t.To, t.Amount); err != nil {
		return err
	}
	ctx.Emit(EventTransferred, common.Address{}, &TransferredEvent{
		Token:  t.Token,
		From:   ctx.Caller,
		To:     t.To,
		Amount: t.Amount,
	})
	return nil
}
