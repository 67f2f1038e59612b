package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickReportsPerInterval(t *testing.T) {
	clock := time.Unix(0, 0)
	p := NewProfiler(WithUpdateInterval(time.Second), WithClock(func() time.Time { return clock }))

	p.CountBuild()
	for range 3 {
		p.CountDraw()
		p.CountDraw()
		clock = clock.Add(250 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	clock = clock.Add(250 * time.Millisecond)
	assert.True(t, p.Tick())

	s := p.Last()
	assert.Equal(t, 4, s.Frames)
	assert.Equal(t, 6, s.Draws)
	assert.Equal(t, 1, s.Builds)
	assert.InDelta(t, 4.0, s.FPS, 1e-9)

	clock = clock.Add(time.Second)
	assert.True(t, p.Tick())
	assert.Equal(t, 1, p.Last().Frames)
	assert.Zero(t, p.Last().Draws)
}
