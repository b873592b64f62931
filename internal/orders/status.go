package orders

import "fmt"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PayPending PaymentStatus = "pending"
	PayPaid    PaymentStatus = "paid"
	PayFailed  PaymentStatus = "failed"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// SettleTarget resolves the (order_status, payment_status) pair a verified
// gateway verdict moves an order to. Replaying a success against an already
// confirmed/paid order re-yields the same terminal pair, so reconciliation
// is idempotent by construction.
func SettleTarget(cur Status, curPay PaymentStatus, success bool) (Status, PaymentStatus, error) {
	if success {
		if cur == StatusConfirmed && curPay == PayPaid {
			return StatusConfirmed, PayPaid, nil
		}
		if cur == StatusPending {
			return StatusConfirmed, PayPaid, nil
		}
		return "", "", fmt.Errorf("%w: cannot settle %s/%s order", ErrInvalidTransition, cur, curPay)
	}
	// A failed attempt leaves the order pending; a fresh payment attempt
	// may follow for the same order.
	if cur == StatusPending {
		return StatusPending, PayFailed, nil
	}
	return "", "", fmt.Errorf("%w: cannot record failed payment on %s order", ErrInvalidTransition, cur)
}
