package types

import "time"

// ComputeRentStatus derives a rent's payment status from its amounts and due
// date. The status is a pure function of its inputs:
//
//   - paid      when amountPaid >= amountDue, regardless of dates
//   - late      when now is past the due date and nothing was paid
//   - partial   when something (but not everything) was paid, before or
//     after the due date
//   - pending   when nothing was paid and the due date has not passed
//
// Both the recalculation task and the payment-recording path use this
// function so stored statuses can never drift from the formula.
func ComputeRentStatus(amountDue, amountPaid float64, dueDate, now time.Time) RentStatus {
	if amountPaid >= amountDue {
		return RentPaid
	}
	if now.After(dueDate) {
		if amountPaid > 0 {
			return RentPartial
		}
		return RentLate
	}
	if amountPaid > 0 {
		return RentPartial
	}
	return RentPending
}
