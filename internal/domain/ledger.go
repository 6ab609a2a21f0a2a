package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// WeiPerEther is the number of base units per display unit on the ledger.
var WeiPerEther = decimal.New(1, 18)

// LedgerTransaction is one record from the external ledger-explorer API.
// From/To/Value arrive as strings; Value is a base-unit integer that may
// exceed the 64-bit range, so it is only ever converted through decimal.
type LedgerTransaction struct {
	Hash      string `json:"hash"`
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
	TimeStamp string `json:"timeStamp"`
}

// ValueDecimal parses the base-unit value and converts it to display units.
// Values beyond 2^63 are handled exactly.
func (t LedgerTransaction) ValueDecimal() (decimal.Decimal, error) {
	raw, err := decimal.NewFromString(t.Value)
	if err != nil {
		return decimal.Zero, err
	}
	return raw.Div(WeiPerEther), nil
}

// Timestamp parses the record's unix-seconds timestamp.
func (t LedgerTransaction) Timestamp() (int64, error) {
	return strconv.ParseInt(t.TimeStamp, 10, 64)
}
