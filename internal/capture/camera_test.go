package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock returns a time source that yields the given instants in order
// and then repeats the last one.
func stepClock(ms ...int64) func() time.Time {
	i := 0
	return func() time.Time {
		t := time.UnixMilli(ms[i])
		if i < len(ms)-1 {
			i++
		}
		return t
	}
}

func TestClock_Next(t *testing.T) {
	tests := []struct {
		name string
		wall []int64
		want []int64
	}{
		{"advancing wall clock", []int64{100, 166, 233}, []int64{100, 166, 233}},
		{"same millisecond", []int64{100, 100, 100}, []int64{100, 101, 102}},
		{"wall clock steps back", []int64{500, 200, 501, 900}, []int64{500, 501, 502, 900}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClock(stepClock(tt.wall...))
			assert.Zero(t, c.Last())

			var got []int64
			for range tt.wall {
				got = append(got, c.Next())
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want[len(tt.want)-1], c.Last())
		})
	}
}

func TestClock_DefaultsToWallClock(t *testing.T) {
	before := time.Now().UnixMilli()
	ts := NewClock(nil).Next()
	assert.GreaterOrEqual(t, ts, before)
}

func TestFrame_CloseNil(t *testing.T) {
	var f *Frame
	assert.NoError(t, f.Close())
	assert.NoError(t, (&Frame{}).Close())
}

func TestNewCamera(t *testing.T) {
	tests := []struct {
		name    string
		fps     int
		wantFPS int
	}{
		{"zero fps uses default", 0, DefaultFPS},
		{"explicit fps", 30, 30},
		{"negative fps uses default", -1, DefaultFPS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(0, tt.fps, nil)
			require.NotNil(t, cam)
			assert.Equal(t, tt.wantFPS, cam.FPS())
			assert.False(t, cam.IsOpen())
		})
	}
}

func TestCamera_SetFPSIgnoresNonPositive(t *testing.T) {
	cam := NewCamera(0, 0, nil)

	cam.SetFPS(10)
	cam.SetFPS(0)
	cam.SetFPS(-5)

	assert.Equal(t, 10, cam.FPS())
}

func TestCamera_NotOpened(t *testing.T) {
	cam := NewCamera(0, 0, nil)

	_, err := cam.ReadFrame()
	assert.ErrorIs(t, err, ErrCameraNotOpen)
	assert.NoError(t, cam.Close())
}

func TestCamera_OpenRead_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	clock := NewClock(stepClock(1000))
	cam := NewCamera(0, 0, clock)
	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}
	defer cam.Close()
	assert.True(t, cam.IsOpen())

	first, err := cam.ReadFrame()
	require.NoError(t, err)
	defer first.Close()
	second, err := cam.ReadFrame()
	require.NoError(t, err)
	defer second.Close()

	assert.False(t, first.Image.Empty())
	assert.Equal(t, int64(1000), first.TimestampMs)
	assert.Equal(t, int64(1001), second.TimestampMs)

	require.NoError(t, cam.Close())
	assert.False(t, cam.IsOpen())
}
