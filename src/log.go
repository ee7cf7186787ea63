package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	Structured run-time logging plus a daily-rotating CSV bus
 *		event log.
 *
 * Description:	charmbracelet/log backs the run-time log. This package
 *		emits three domain entries, each as an Info entry whose
 *		message names it: REC for a successful receive, DECODED for
 *		a parsed RxFields, XMIT for a transmitted word. Nothing in
 *		the core logs at Debug level or logs other state
 *		transitions. textcolor.go's DW_COLOR_* levels are the
 *		teacher's analog; this plays the same role against a real
 *		structured logger instead of raw ANSI codes.
 *
 *		EventLog is grounded on log.go's daily_names CSV writer: one
 *		file per calendar day, named by strftime pattern. The
 *		scheduler records bus-failure transitions in it; clipping
 *		and spool transitions are not recorded.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

// Logger levels beyond charmbracelet/log's built-ins, mirroring
// textcolor.go's DW_COLOR_REC / DW_COLOR_DECODED / DW_COLOR_XMIT.
const (
	levelRec     = "REC"
	levelDecoded = "DECODED"
	levelXmit    = "XMIT"
)

// NewLogger returns a charmbracelet/log logger configured for the core:
// timestamps on, level reported, a "component" prefix field expected from
// callers via .With("component", ...).
func NewLogger(out *os.File) *log.Logger {
	return log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		ReportCaller:    false,
		TimeFormat:      time.RFC3339,
	})
}

// LogRec logs a successful receive at the REC level. A nil logger is a
// no-op, so callers that hold an optional *log.Logger need no guard.
func LogRec(l *log.Logger, label ArincLabel, word uint32) {
	if l == nil {
		return
	}
	l.With("label", fmt.Sprintf("%02X", label)).Info(levelRec, "word", fmt.Sprintf("%08X", word))
}

// LogDecoded logs a parsed RxFields at the DECODED level.
func LogDecoded(l *log.Logger, label ArincLabel, fields RxFields) {
	if l == nil {
		return
	}
	l.With("label", fmt.Sprintf("%02X", label)).Info(levelDecoded, "eng", fields.EngFloat, "ssm", fields.SSM)
}

// LogXmit logs a transmitted word at the XMIT level.
func LogXmit(l *log.Logger, label ArincLabel, word uint32) {
	if l == nil {
		return
	}
	l.With("label", fmt.Sprintf("%02X", label)).Info(levelXmit, "word", fmt.Sprintf("%08X", word))
}

// eventLogNamePattern is an strftime pattern producing one file per
// calendar day, the way log.go's daily_names mode names its CSV logs.
const eventLogNamePattern = "arincbridge-%Y%m%d.csv"

// EventLog appends event rows (the scheduler's bus-failure transitions) to a
// daily-rotating CSV file in dir.
type EventLog struct {
	dir       string
	clock     Clock
	openDay   string
	fp        *os.File
	csvWriter *csv.Writer
}

// NewEventLog builds an EventLog writing under dir. dir must already exist;
// NewEventLog does not create it (matching log.go's log_init, which treats
// a missing directory as a configuration error rather than silently
// falling back).
func NewEventLog(dir string, clock Clock) (*EventLog, error) {
	stat, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: NewEventLog: %w", ErrConfiguration, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("%w: NewEventLog: %s is not a directory", ErrConfiguration, dir)
	}
	return &EventLog{dir: dir, clock: clock}, nil
}

// rotate opens today's file if it isn't already open, closing yesterday's
// first.
func (e *EventLog) rotate(now time.Time) error {
	name, err := strftime.Format(eventLogNamePattern, now)
	if err != nil {
		return fmt.Errorf("%w: EventLog: formatting log file name: %w", ErrInternal, err)
	}
	if name == e.openDay && e.fp != nil {
		return nil
	}
	if e.csvWriter != nil {
		e.csvWriter.Flush()
	}
	if e.fp != nil {
		e.fp.Close()
	}

	path := filepath.Join(e.dir, name)
	fp, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: EventLog: opening %s: %w", ErrInternal, path, err)
	}
	e.fp = fp
	e.openDay = name
	e.csvWriter = csv.NewWriter(fp)
	return nil
}

// Record appends one CSV row: wall-clock time, event kind, and freeform
// fields describing it.
func (e *EventLog) Record(kind string, fields ...string) error {
	now := time.Now()
	if err := e.rotate(now); err != nil {
		return err
	}
	row := append([]string{now.Format(time.RFC3339), kind}, fields...)
	if err := e.csvWriter.Write(row); err != nil {
		return fmt.Errorf("%w: EventLog.Record: %w", ErrInternal, err)
	}
	e.csvWriter.Flush()
	return e.csvWriter.Error()
}

// Close flushes and closes the currently open file, if any.
func (e *EventLog) Close() error {
	if e.fp == nil {
		return nil
	}
	e.csvWriter.Flush()
	err := e.fp.Close()
	e.fp = nil
	return err
}
