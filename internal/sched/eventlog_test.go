package sched

import (
	"bytes"
	"context"
	"encoding/csv"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(log.New(&buf, "", 0))

	p.HandleEvent(StatusEvent{Time: time.Now(), Kind: StatusTick})
	p.HandleEvent(StatusEvent{Time: time.Now(), Kind: StatusIdle})
	assert.Empty(t, buf.String())

	p.HandleEvent(StatusEvent{Time: time.Now(), Kind: StatusDispatch, Task: 3, Name: "worker", Tick: 12})
	out := buf.String()
	assert.Contains(t, out, "Dispatch")
	assert.Contains(t, out, "Task: 03 worker")
	assert.Contains(t, out, "Tick: 0000012")
}

func TestCSVLogFromScheduler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	l, err := OpenCSVLog(path)
	require.NoError(t, err)

	s := newTestScheduler(t, cooperative(3))
	s.Observe(l)
	_, err = s.Create(func(s *Scheduler) {}, "once")
	require.NoError(t, err)
	require.NoError(t, s.StartScheduler(context.Background()))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 5)
	assert.Equal(t, csvHeader, rows[0])
	var kinds []string
	for _, row := range rows[1:] {
		kinds = append(kinds, row[2])
	}
	assert.Equal(t, []string{"Create", "Dispatch", "Finish", "Dispatch"}, kinds)
	assert.Equal(t, "once", rows[1][4])
}

func TestStatusKindString(t *testing.T) {
	assert.Equal(t, "Preempt", StatusPreempt.String())
	assert.Equal(t, "Deadlock", StatusDeadlock.String())
	assert.Equal(t, "Unknown", StatusKind(99).String())
}
