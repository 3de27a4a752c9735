package submission

import "errors"

var (
	// ErrBusy is returned by Supervisor.Start while another task runs.
	ErrBusy = errors.New("a submission is already in progress")

	ErrMissingSender = errors.New("record has no sender")

	ErrNoProducts = errors.New("record has no products")

	// ErrTotalMismatch is returned when the summary total differs from the
	// sum of line totals by more than 0.001.
	ErrTotalMismatch = errors.New("summary total does not match line totals")

	ErrMissingSeries = errors.New("record has no series assigned")
)
