package pipeline

// Status is the overall outcome of one batch run. Partial failure is a
// first-class result: one employee can fully reconcile while another fails.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial-failure"
	StatusFailed  Status = "failure"
)

// EmployeeReport counts one employee's decisions and failures for the run.
type EmployeeReport struct {
	Employee           string
	Inserted           int
	Updated            int
	Deleted            int
	Duplicates         int
	RejectedValidation int
	CalendarFailures   int
	Err                error
}

func (r EmployeeReport) failed() bool { return r.Err != nil }

// RunReport is the exit contract of a batch run.
type RunReport struct {
	Employees []EmployeeReport
	DryRun    bool
}

// Status derives the overall outcome from the per-employee reports.
func (r RunReport) Status() Status {
	if len(r.Employees) == 0 {
		return StatusSuccess
	}

	failures := 0
	degraded := false
	for _, employee := range r.Employees {
		if employee.failed() {
			failures++
		}
		if employee.CalendarFailures > 0 {
			degraded = true
		}
	}

	switch {
	case failures == len(r.Employees):
		return StatusFailed
	case failures > 0 || degraded:
		return StatusPartial
	default:
		return StatusSuccess
	}
}
