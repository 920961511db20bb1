package ledger

import (
	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
	"github.com/LeJamon/goDCA/internal/core/ledger/keylet"
)

// Get reads and decodes the entry at k into e. It reports false, with no
// error, when the entry does not exist.
func Get(v View, k keylet.Keylet, e entry.Entry) (bool, error) {
	data, err := v.Read(k)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := entry.Decode(data, e); err != nil {
		return false, err
	}
	return true, nil
}

// Put encodes e and inserts or updates it at k.
func Put(v View, k keylet.Keylet, e entry.Entry) error {
	data, err := entry.Encode(e)
	if err != nil {
		return err
	}
	exists, err := v.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return v.Update(k, data)
	}
	return v.Insert(k, data)
}
