package schedule

// =============================================================================
// RECURRING INSTALLMENT PROJECTOR
// =============================================================================

// ProjectedInstallment is a future installment of a recurring deposit.
type ProjectedInstallment struct {
	InstallmentNumber int  `json:"installment_number"`
	DueDate           Date `json:"due_date"`
}

// ProjectForward tops up an account's future installments to
// minimumFutureCount. It returns max(0, minimumFutureCount-currentFutureCount)
// installments after lastDueDate, numbered from installmentNumber+1.
// The result is empty when the account already has enough.
func ProjectForward(lastDueDate Date, installmentNumber int, rec Recurrence, currentFutureCount, minimumFutureCount int) ([]ProjectedInstallment, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if lastDueDate.IsZero() {
		return nil, configError("last_due_date", "", ErrInvalidTerms)
	}
	missing := minimumFutureCount - currentFutureCount
	if missing <= 0 {
		return nil, nil
	}

	if rec.DayOfMonth == 0 {
		rec = rec.AnchoredAt(lastDueDate)
	}
	out := make([]ProjectedInstallment, 0, missing)
	for i := 1; i <= missing; i++ {
		due, err := rec.Advance(lastDueDate, i)
		if err != nil {
			return nil, err
		}
		out = append(out, ProjectedInstallment{
			InstallmentNumber: installmentNumber + i,
			DueDate:           due,
		})
	}
	return out, nil
}
