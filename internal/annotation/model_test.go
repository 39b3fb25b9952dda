package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	kinds []ChangeKind
}

func (r *recordingObserver) OnModelChanged(m *Base, kind ChangeKind) {
	r.kinds = append(r.kinds, kind)
}

func TestCompletionMonotonic(t *testing.T) {
	b := NewBase(48000)
	b.SetCompletion(10)
	b.SetCompletion(5) // ignored: completion never decreases
	assert.Equal(t, 10, b.Completion())
	b.SetCompletion(50)
	assert.Equal(t, 50, b.Completion())
}

func TestReadyEmittedExactlyOnce(t *testing.T) {
	b := NewBase(48000)
	obs := &recordingObserver{}
	b.AddObserver(obs)

	b.SetCompletion(100)
	b.SetCompletion(100) // idempotent: no further emissions

	readyCount := 0
	for _, k := range obs.kinds {
		if k == ChangeReady {
			readyCount++
		}
	}
	assert.Equal(t, 1, readyCount)

	pct, ready := b.IsReady()
	assert.Equal(t, 100, pct)
	assert.True(t, ready)
}

func TestDeferOnAddSwitchesToNotifyOnAddAtCompletion(t *testing.T) {
	sp := NewSparseOneDimensional(48000)
	obs := &recordingObserver{}
	sp.AddObserver(obs)

	require.NoError(t, sp.Point(0, "a"))
	assert.Empty(t, obs.kinds, "edits before completion=100 are deferred, not emitted")

	sp.SetCompletion(100)
	obs.kinds = nil

	require.NoError(t, sp.Point(100, "b"))
	assert.Contains(t, obs.kinds, ChangeGeneric, "edits after completion=100 notify immediately")
}

func TestOutOfRangeValueForcesNotificationEvenWhileDeferred(t *testing.T) {
	m := NewSparseTimeValue(48000)
	obs := &recordingObserver{}
	m.AddObserver(obs)

	require.NoError(t, m.Point(0, 1.0, ""))
	assert.Contains(t, obs.kinds, ChangeGeneric, "the first valued event always widens the range")

	obs.kinds = nil
	require.NoError(t, m.Point(1, 1.0, ""))
	assert.Empty(t, obs.kinds, "a repeated in-range value causes no extra notification while deferred")

	require.NoError(t, m.Point(2, 5.0, ""))
	assert.Contains(t, obs.kinds, ChangeGeneric, "widening the value range forces notification regardless of defer-on-add")
}

func TestSetExtentWidensOnly(t *testing.T) {
	b := NewBase(48000)
	b.SetExtent(10, 20)
	start, end := b.Extent()
	assert.Equal(t, 10, int(start))
	assert.Equal(t, 20, int(end))

	b.SetExtent(15, 18)
	start, end = b.Extent()
	assert.Equal(t, 10, int(start), "extent never shrinks")
	assert.Equal(t, 20, int(end))

	b.SetExtent(5, 30)
	start, end = b.Extent()
	assert.Equal(t, 5, int(start))
	assert.Equal(t, 30, int(end))
}

func TestRemoveObserverStopsNotifications(t *testing.T) {
	b := NewBase(48000)
	obs := &recordingObserver{}
	b.AddObserver(obs)
	b.RemoveObserver(obs)

	b.SetCompletion(100)
	assert.Empty(t, obs.kinds)
}
