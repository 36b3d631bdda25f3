/*
status.go - Increase status state machine

PURPOSE:
  Classifies where a contract stands in its adjustment cycle relative to
  a reference date. There is no stored state: every call recomputes from
  scratch, so the classifier is safe to invoke repeatedly and from
  concurrent call sites.

STATES:
  NotStarted          reference date precedes the current cycle start
  OnSchedule          the next increase is already staged (a record exists
                      effective exactly at the next boundary)
  UpcomingFinalMonth  inside the last month of the cycle, nothing staged
  Overdue             past the cycle end, nothing staged
  Current             mid-cycle, nothing pending
*/
package engine

type IncreaseState string

const (
	IncreaseNotStarted         IncreaseState = "not_started"
	IncreaseOnSchedule         IncreaseState = "on_schedule"
	IncreaseUpcomingFinalMonth IncreaseState = "upcoming_final_month"
	IncreaseOverdue            IncreaseState = "overdue"
	IncreaseCurrent            IncreaseState = "current"
)

// IncreaseStatus is the classifier's full output, including the derived
// cycle boundaries so callers can render them without recomputing.
type IncreaseStatus struct {
	State           IncreaseState
	CycleStart      Date
	NextIncrease    Date
	CurrentCycleEnd Date
	FinalMonthStart Date
}

// ClassifyIncrease evaluates the state machine for one contract.
// cycleStart is the date since which the current price has been in effect
// (normally EffectiveSinceDate). A zero referenceDate means today.
func ClassifyIncrease(contract *Contract, cycleStart Date, records []AdjustmentRecord, referenceDate Date) IncreaseStatus {
	if referenceDate.IsZero() {
		referenceDate = Today()
	}
	period := contract.Period
	if !period.Valid() {
		period = PeriodMonthly
	}
	anchor := contract.AnchorDay()

	next := AlignedDateAfter(cycleStart, int(period), anchor)
	status := IncreaseStatus{
		CycleStart:      cycleStart,
		NextIncrease:    next,
		CurrentCycleEnd: next.AddDays(-1),
		FinalMonthStart: AlignedDateAfter(cycleStart, int(period)-1, anchor),
	}

	switch {
	case referenceDate.Before(cycleStart):
		status.State = IncreaseNotStarted
	case hasStagedIncrease(records, next):
		status.State = IncreaseOnSchedule
	case referenceDate.After(status.CurrentCycleEnd):
		status.State = IncreaseOverdue
	case referenceDate.AfterOrEqual(status.FinalMonthStart):
		status.State = IncreaseUpcomingFinalMonth
	default:
		status.State = IncreaseCurrent
	}
	return status
}

// hasStagedIncrease reports whether a record becomes effective exactly at
// the next boundary. One day off either way is not staged.
func hasStagedIncrease(records []AdjustmentRecord, nextIncrease Date) bool {
	for i := range records {
		if records[i].EffectiveStart().Equal(nextIncrease) {
			return true
		}
	}
	return false
}
