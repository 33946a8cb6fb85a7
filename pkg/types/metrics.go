package types

// Aggregate row markers used by HAProxy in the svname column.
const (
	SvnameFrontend = "FRONTEND"
	SvnameBackend  = "BACKEND"
)

// BackendMetrics is the health summary for one server row of "show stat".
type BackendMetrics struct {
	Name   string
	Status string

	TotalSessions int64

	// Uptime is lastchg rendered as "{H}h {M}m".
	Uptime string

	FailedChecks int64
	CurrentQueue int64
	MaxQueue     int64

	// ResponseTime is the average response time in milliseconds (rtime).
	ResponseTime int64
}

// IsUp reports whether HAProxy considers the server healthy.
func (b BackendMetrics) IsUp() bool {
	return b.Status == "UP"
}

// ErrorBreakdown holds the error counters summed over every parsed row,
// aggregate rows included.
type ErrorBreakdown struct {
	ConnectionErrors int64
	ResponseErrors   int64
	RequestErrors    int64
}

// ErrorCategory is one labelled entry of an ErrorBreakdown.
type ErrorCategory struct {
	Key   string // "connection_errors" | "response_errors" | "request_errors"
	Count int64
}

// Categories returns the breakdown in its canonical order.
func (e ErrorBreakdown) Categories() []ErrorCategory {
	return []ErrorCategory{
		{Key: "connection_errors", Count: e.ConnectionErrors},
		{Key: "response_errors", Count: e.ResponseErrors},
		{Key: "request_errors", Count: e.RequestErrors},
	}
}

// Total is the sum of the three categories.
func (e ErrorBreakdown) Total() int64 {
	return e.ConnectionErrors + e.ResponseErrors + e.RequestErrors
}

// Metrics is the result of parsing one stats payload.
type Metrics struct {
	// Backends holds one entry per non-aggregate row, in input order.
	Backends []BackendMetrics

	// TotalErrors always equals ErrorBreakdown.Total().
	TotalErrors    int64
	ErrorBreakdown ErrorBreakdown

	// Rows is the number of data rows read, aggregate rows included.
	// Rows == 0 with no backends means the payload carried no stats at all.
	Rows int
}
