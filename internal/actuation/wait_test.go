package actuation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValuesMatch(t *testing.T) {
	tests := []struct {
		name     string
		observed any
		expected any
		want     bool
	}{
		{"IntEqual", int64(1), int64(1), true},
		{"IntDiffer", int64(1), int64(0), false},
		{"IntVsFloat", int64(3), 3.0, true},
		{"FloatNear", 2.5000001, 2.5, true},
		{"FloatFar", 2.51, 2.5, false},
		{"IntegralNoTolerance", 1.0, 1.0000001, true},
		{"BoolVsInt", true, int64(1), true},
		{"NumericString", "1", int64(1), true},
		{"Strings", "ON", "ON", true},
		{"StringsDiffer", "ON", "OFF", false},
		{"StringVsNumber", "ON", int64(1), false},
		{"NaNAsString", "NaN", "NaN", true},
		{"NaNVsZero", "NaN", int64(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValuesMatch(tt.observed, tt.expected))
		})
	}
}

func TestWaitForValueSustained(t *testing.T) {
	b := newBench(t)
	b.cache.Update(0x300, "K1State", int64(1), time.Now())

	ok, detail := b.engine.WaitForValue(context.Background(),
		Feedback{Signal: "K1State"}, int64(1), 50*time.Millisecond)

	assert.True(t, ok)
	assert.Equal(t, "K1State sustained 1", detail)
}

func TestWaitForValueLateMatchSustained(t *testing.T) {
	b := newBench(t)
	b.cache.Update(0x300, "K1State", int64(0), time.Now())
	time.AfterFunc(20*time.Millisecond, func() {
		b.cache.Update(0x300, "K1State", int64(1), time.Now())
	})

	ok, detail := b.engine.WaitForValue(context.Background(),
		Feedback{Signal: "K1State"}, int64(1), 100*time.Millisecond)

	assert.True(t, ok, detail)
}

func TestWaitForValueChangedDuringDwell(t *testing.T) {
	b := newBench(t)
	b.cache.Update(0x300, "K1State", int64(1), time.Now())
	time.AfterFunc(30*time.Millisecond, func() {
		b.cache.Update(0x300, "K1State", int64(0), time.Now())
	})

	start := time.Now()
	ok, detail := b.engine.WaitForValue(context.Background(),
		Feedback{Signal: "K1State"}, int64(1), 300*time.Millisecond)

	assert.False(t, ok)
	assert.Equal(t, "Value changed during dwell (last=0)", detail)
	assert.Less(t, time.Since(start), 250*time.Millisecond, "should fail without waiting out the window")
}

func TestWaitForValueNeverMatched(t *testing.T) {
	b := newBench(t)
	b.cache.Update(0x300, "K1State", int64(0), time.Now())

	ok, detail := b.engine.WaitForValue(context.Background(),
		Feedback{Signal: "K1State"}, int64(1), 40*time.Millisecond)

	assert.False(t, ok)
	assert.Equal(t, "Did not observe expected value 1", detail)
}

func TestWaitForValueWithoutFeedbackSpendsWindow(t *testing.T) {
	b := newBench(t)

	start := time.Now()
	ok, detail := b.engine.WaitForValue(context.Background(), Feedback{}, int64(1), 40*time.Millisecond)

	assert.False(t, ok)
	assert.Equal(t, "Did not observe expected value 1", detail)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestWaitForValuePinnedMessage(t *testing.T) {
	b := newBench(t)
	b.cache.Update(0x300, "K1State", int64(1), time.Now().Add(-time.Second))
	b.cache.Update(0x301, "K1State", int64(0), time.Now())

	pinned := uint32(0x300)
	ok, _ := b.engine.WaitForValue(context.Background(),
		Feedback{Signal: "K1State", MessageID: &pinned}, int64(1), 20*time.Millisecond)
	assert.True(t, ok, "pinned message id reads that exact key")

	ok, _ = b.engine.WaitForValue(context.Background(),
		Feedback{Signal: "K1State"}, int64(1), 20*time.Millisecond)
	assert.False(t, ok, "unpinned lookup uses the most recent message")
}

func TestWaitForValueCancelled(t *testing.T) {
	b := newBench(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, detail := b.engine.WaitForValue(ctx, Feedback{Signal: "K1State"}, int64(1), time.Second)

	assert.False(t, ok)
	assert.Contains(t, detail, "Wait cancelled")
}
