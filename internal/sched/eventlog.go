package sched

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Printer logs one line per scheduler event. Ticks and idle passes are
// skipped for the brevity of output.
type Printer struct {
	log *log.Logger
}

// NewPrinter returns a Printer writing to l, or to the standard logger if l is nil.
func NewPrinter(l *log.Logger) *Printer {
	if l == nil {
		l = log.Default()
	}
	return &Printer{log: l}
}

func (p *Printer) HandleEvent(ev StatusEvent) {
	if ev.Kind == StatusTick || ev.Kind == StatusIdle {
		return
	}

	// an auxiliary function to center the event kind in the output
	center := func(str string, width int) string {
		if len(str) >= width {
			return str
		}
		spaces := (width - len(str)) / 2
		return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
	}

	p.log.Printf("%s = Tick: %07d [%s] => Task: %02d %-*s elapsed=%dms",
		ev.Time.Format("Jan 02 15:04:05.000"),
		ev.Tick,
		center(ev.Kind.String(), 10),
		ev.Task,
		MaxTaskName-1, ev.Name,
		ev.Elapsed.Milliseconds(),
	)
}

// CSVLog writes scheduler events as CSV rows.
type CSVLog struct {
	c io.Closer
	w *csv.Writer
}

var csvHeader = []string{"timestamp", "tick", "event", "task_id", "name", "elapsed_ms"}

// OpenCSVLog creates the file at path and writes the header.
func OpenCSVLog(path string) (*CSVLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open csv log: %w", err)
	}
	l, err := NewCSVLog(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	l.c = f
	return l, nil
}

// NewCSVLog writes the header to w and returns a log writing rows to it.
func NewCSVLog(w io.Writer) (*CSVLog, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	cw.Flush()
	return &CSVLog{w: cw}, cw.Error()
}

func (l *CSVLog) HandleEvent(ev StatusEvent) {
	if ev.Kind == StatusTick {
		return
	}
	rec := []string{
		ev.Time.Format(time.RFC3339Nano),
		strconv.FormatInt(ev.Tick, 10),
		ev.Kind.String(),
		strconv.Itoa(int(ev.Task)),
		ev.Name,
		strconv.FormatInt(ev.Elapsed.Milliseconds(), 10),
	}
	// write errors surface on Close
	_ = l.w.Write(rec)
	l.w.Flush()
}

// Close flushes pending rows and closes the underlying file, if any.
func (l *CSVLog) Close() error {
	l.w.Flush()
	err := l.w.Error()
	if l.c != nil {
		if cerr := l.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
