package testing

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account is a named test account. Using the same name always produces the
// same address, making tests reproducible.
type Account struct {
	// Name is a human-readable identifier for the account (used for debugging).
	Name string

	// Address is the account address.
	Address common.Address
}

// NewAccount creates a test account whose address is derived from name.
func NewAccount(name string) *Account {
	hash := crypto.Keccak256([]byte("account:" + name))
	return &Account{
		Name:    name,
		Address: common.BytesToAddress(hash[12:]),
	}
}

// String returns the account name and address.
func (a *Account) String() string {
	return a.Name + "(" + a.Address.Hex() + ")"
}
