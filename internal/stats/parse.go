package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/haproxy-monitor/haproxy-monitor/pkg/types"
)

// HAProxy "show stat" column names read by Parse.
const (
	colSvname  = "svname"
	colStatus  = "status"
	colStot    = "stot"
	colLastchg = "lastchg"
	colChkfail = "chkfail"
	colQcur    = "qcur"
	colQmax    = "qmax"
	colRtime   = "rtime"
	colEcon    = "econ"
	colEresp   = "eresp"
	colEreq    = "ereq"
)

const unknown = "unknown"

// Parse converts "show stat" CSV into Metrics.
//
// Parse never fails. Missing columns, short rows and non-numeric values all
// read as zero; text that is not CSV at all yields a Metrics with no
// backends and no errors. Rows whose svname is FRONTEND or BACKEND add to
// the error breakdown but produce no backend entry.
func Parse(raw string) types.Metrics {
	var m types.Metrics

	r := csv.NewReader(strings.NewReader(raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return m
	}
	t := newTable(header)

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Malformed line; csv.Reader resumes at the next record.
			continue
		}
		m.Rows++

		if t.hasSvname {
			name := t.str(rec, colSvname)
			if !isAggregate(name) {
				m.Backends = append(m.Backends, t.backend(rec))
			}
		}

		m.ErrorBreakdown.ConnectionErrors += t.num(rec, colEcon)
		m.ErrorBreakdown.ResponseErrors += t.num(rec, colEresp)
		m.ErrorBreakdown.RequestErrors += t.num(rec, colEreq)
	}

	m.TotalErrors = m.ErrorBreakdown.Total()
	return m
}

// FormatUptime renders seconds since the last state change as "{H}h {M}m".
func FormatUptime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
}

func isAggregate(svname string) bool {
	return svname == types.SvnameFrontend || svname == types.SvnameBackend
}

// table maps header names to column positions.
type table struct {
	cols      map[string]int
	hasSvname bool
}

func newTable(header []string) table {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			// HAProxy prefixes the header line with "# ".
			h = strings.TrimPrefix(strings.TrimSpace(h), "#")
		}
		h = strings.TrimSpace(h)
		if _, dup := cols[h]; !dup && h != "" {
			cols[h] = i
		}
	}
	_, ok := cols[colSvname]
	return table{cols: cols, hasSvname: ok}
}

// str returns the trimmed value of column name in rec, or "" when the
// column is unknown or the row is too short.
func (t table) str(rec []string, name string) string {
	i, ok := t.cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// num reads column name as a non-negative integer; anything else is 0.
func (t table) num(rec []string, name string) int64 {
	v, err := strconv.ParseInt(t.str(rec, name), 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func (t table) backend(rec []string) types.BackendMetrics {
	return types.BackendMetrics{
		Name:          orUnknown(t.str(rec, colSvname)),
		Status:        orUnknown(t.str(rec, colStatus)),
		TotalSessions: t.num(rec, colStot),
		Uptime:        FormatUptime(t.num(rec, colLastchg)),
		FailedChecks:  t.num(rec, colChkfail),
		CurrentQueue:  t.num(rec, colQcur),
		MaxQueue:      t.num(rec, colQmax),
		ResponseTime:  t.num(rec, colRtime),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
