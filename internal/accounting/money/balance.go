package money

import "fmt"

// Side is the debit/credit orientation of a balance.
type Side string

const (
	Debit  Side = "Dr"
	Credit Side = "Cr"
)

// Valid reports whether s is Dr or Cr.
func (s Side) Valid() bool {
	return s == Debit || s == Credit
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Debit {
		return Credit
	}
	return Debit
}

// Balance is a non-negative magnitude with the side carrying the sign.
type Balance struct {
	Amount Amount `json:"amount"`
	Side   Side   `json:"side"`
}

// NewBalance builds a balance; negative magnitudes are folded onto the opposite side.
func NewBalance(amount Amount, side Side) Balance {
	if amount < 0 {
		return Balance{Amount: -amount, Side: side.Opposite()}
	}
	return Balance{Amount: amount, Side: side}
}

// Signed returns the balance with debit positive and credit negative.
func (b Balance) Signed() Amount {
	if b.Side == Credit {
		return -b.Amount
	}
	return b.Amount
}

// SignedFor returns the balance positive on the given natural side.
func (b Balance) SignedFor(natural Side) Amount {
	if natural == Credit {
		return -b.Signed()
	}
	return b.Signed()
}

// BalanceFromSigned converts a debit-positive value back into magnitude and side.
// A zero value keeps the account's natural side.
func BalanceFromSigned(v Amount, natural Side) Balance {
	switch {
	case v > 0:
		return Balance{Amount: v, Side: Debit}
	case v < 0:
		return Balance{Amount: -v, Side: Credit}
	default:
		return Balance{Amount: 0, Side: natural}
	}
}

// Apply posts a debit/credit pair against the balance. It fails with
// ErrOutOfRange instead of wrapping past MaxAmount.
func (b Balance) Apply(debit, credit Amount, natural Side) (Balance, error) {
	if debit < 0 || credit < 0 {
		return b, fmt.Errorf("%w: negative movement", ErrInvalidAmount)
	}
	v, err := Add(b.Signed(), debit)
	if err != nil {
		return b, err
	}
	if v, err = Add(v, -credit); err != nil {
		return b, err
	}
	return BalanceFromSigned(v, natural), nil
}

// IsZero reports a zero magnitude.
func (b Balance) IsZero() bool { return b.Amount == 0 }

func (b Balance) String() string {
	return fmt.Sprintf("%s %s", b.Amount, b.Side)
}
