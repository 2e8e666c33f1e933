package trace

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// Record is one per-event statistics row: the cycle/instruction counters a
// Core reports immediately after processing a Bbl callback.
type Record struct {
	Tid     int
	BblAddr uint64
	Cycles  uint64
	Instrs  uint64
}

// CSVSink is the concrete realisation of the ambient trace/statistics sink:
// a flat CSV file of per-event Records, grounded on the akita analysis
// package's CSVBackend (encoding/csv writer over an *os.File, header row on
// creation, and a flush registered with atexit, which runs when the program
// exits through atexit.Exit; a plain os.Exit skips it).
type CSVSink struct {
	runID  xid.ID
	file   *os.File
	writer *csv.Writer
}

// NewCSVSink creates (truncating any existing) path and writes the header
// row. It mints a run ID with xid (the same globally-unique, sortable ID
// scheme akita's idgenerator.go uses for events and components), stamped on
// every row so CSVs from separate invocations can be concatenated and
// disambiguated without a database. It registers an atexit flush so
// buffered rows are written when the program exits through atexit.Exit.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"run_id", "tid", "bbl_addr", "cycles", "instrs"}); err != nil {
		f.Close()
		return nil, err
	}

	s := &CSVSink{runID: xid.New(), file: f, writer: w}
	atexit.Register(func() { s.Flush() })
	return s, nil
}

// Write appends one Record as a CSV row.
func (s *CSVSink) Write(r Record) error {
	return s.writer.Write([]string{
		s.runID.String(),
		strconv.Itoa(r.Tid),
		strconv.FormatUint(r.BblAddr, 16),
		strconv.FormatUint(r.Cycles, 10),
		strconv.FormatUint(r.Instrs, 10),
	})
}

// Flush pushes any buffered rows to the underlying file.
func (s *CSVSink) Flush() {
	s.writer.Flush()
}

// Close flushes and closes the underlying file.
func (s *CSVSink) Close() error {
	s.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
