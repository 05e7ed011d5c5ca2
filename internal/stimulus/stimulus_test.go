package stimulus

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenalab/ethotrack/internal/arena"
	"github.com/arenalab/ethotrack/internal/hardware"
)

// fakeSubject is an in-test tracking unit history.
type fakeSubject struct {
	positions []arena.Position
	times     []int64
	roi       arena.ROI
}

func (f *fakeSubject) Positions() []arena.Position { return f.positions }
func (f *fakeSubject) Times() []int64              { return f.times }
func (f *fakeSubject) ROI() arena.ROI              { return f.roi }

func (f *fakeSubject) add(timeMs int64, x, y float64, logDist int) {
	f.positions = append(f.positions, arena.Position{
		TimeMs: timeMs, X: x, Y: y, XYDistLog10x1000: logDist,
	})
	f.times = append(f.times, timeMs)
}

func newFakeSubject() *fakeSubject {
	return &fakeSubject{roi: arena.NewROI(1, image.Rect(0, 0, 100, 100))}
}

func TestSleepDepInteractor(t *testing.T) {
	t.Parallel()

	t.Run("unbound apply fails fast", func(t *testing.T) {
		t.Parallel()
		inter := NewSleepDepInteractor(3, nil, 0, 0)
		_, err := inter.Apply()
		require.ErrorIs(t, err, ErrNotBound)
	})

	t.Run("no decision with fewer than two records", func(t *testing.T) {
		t.Parallel()
		sub := newFakeSubject()
		inter := NewSleepDepInteractor(3, nil, 0, 0)
		inter.Bind(sub)

		res, err := inter.Apply()
		require.NoError(t, err)
		assert.False(t, res.Interacted)

		sub.add(0, 0, 0, 0)
		res, err = inter.Apply()
		require.NoError(t, err)
		assert.False(t, res.Interacted)
	})

	t.Run("fires once after inactivity threshold and resets", func(t *testing.T) {
		t.Parallel()
		dep := hardware.NewMockDepriver()
		sub := newFakeSubject()
		inter := NewSleepDepInteractor(3, dep, 0.01, 90*time.Second)
		inter.Bind(sub)

		// streak begins: two coincident detections at t=0
		sub.add(0, 0, 0, 0)
		sub.add(0, 0, 0, 0)
		res, err := inter.Apply()
		require.NoError(t, err)
		assert.False(t, res.Interacted, "streak start must not fire")

		// 95s later, displacement ~0.0014 < 0.01: streak older than 90s
		sub.add(95_000, 0.001, 0.001, 0)
		res, err = inter.Apply()
		require.NoError(t, err)
		assert.True(t, res.Interacted)
		assert.Equal(t, 3, res.Params.Channel)

		require.Eventually(t, func() bool {
			return len(dep.Actions()) == 1
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, hardware.Action{Channel: 3}, dep.Actions()[0])

		// edge-triggered: the next still frame starts a fresh streak instead
		// of refiring
		sub.add(96_000, 0.001, 0.001, 0)
		res, err = inter.Apply()
		require.NoError(t, err)
		assert.False(t, res.Interacted)
	})

	t.Run("movement resets the streak", func(t *testing.T) {
		t.Parallel()
		sub := newFakeSubject()
		inter := NewSleepDepInteractor(0, nil, 0.01, 90*time.Second)
		inter.Bind(sub)

		sub.add(0, 0, 0, 0)
		sub.add(0, 0, 0, 0)
		_, err := inter.Apply()
		require.NoError(t, err)

		// a real move at t=50s clears t0
		sub.add(50_000, 5, 5, 0)
		res, err := inter.Apply()
		require.NoError(t, err)
		assert.False(t, res.Interacted)

		// stillness again at t=95s: streak restarted at 95s, so no fire even
		// though 95s have passed since the original streak began
		sub.add(95_000, 5.001, 5.001, 0)
		res, err = inter.Apply()
		require.NoError(t, err)
		assert.False(t, res.Interacted)

		// and only after a fresh 90s of stillness does it fire
		sub.add(186_000, 5.002, 5.002, 0)
		res, err = inter.Apply()
		require.NoError(t, err)
		assert.True(t, res.Interacted)
	})
}

func TestIsMovingInteractor(t *testing.T) {
	t.Parallel()

	t.Run("unbound apply fails fast", func(t *testing.T) {
		t.Parallel()
		inter := NewIsMovingInteractor(0)
		_, err := inter.Apply()
		require.ErrorIs(t, err, ErrNotBound)
	})

	t.Run("insufficient history reports not interacted", func(t *testing.T) {
		t.Parallel()
		sub := newFakeSubject()
		sub.add(0, 0, 0, 0)
		inter := NewIsMovingInteractor(0)
		inter.Bind(sub)

		res, err := inter.Apply()
		require.NoError(t, err)
		assert.False(t, res.Interacted)
	})

	t.Run("large displacement metric means moving", func(t *testing.T) {
		t.Parallel()
		sub := newFakeSubject()
		sub.add(0, 0, 0, 0)
		// 10^(3000/1000) = 1000, far above the 0.0025 threshold
		sub.add(1000, 10, 10, 3000)
		inter := NewIsMovingInteractor(0.0025)
		inter.Bind(sub)

		res, err := inter.Apply()
		require.NoError(t, err)
		assert.False(t, res.Interacted)
		assert.Equal(t, int64(1000), inter.LastActive(), "movement must update last_active")
	})

	t.Run("small displacement metric means sleeping", func(t *testing.T) {
		t.Parallel()
		sub := newFakeSubject()
		sub.add(0, 0, 0, 0)
		// 10^(-4000/1000) = 0.0001, below the threshold
		sub.add(1000, 0, 0, -4000)
		inter := NewIsMovingInteractor(0.0025)
		inter.Bind(sub)

		res, err := inter.Apply()
		require.NoError(t, err)
		assert.True(t, res.Interacted)
		assert.Zero(t, inter.LastActive(), "sleeping must not update last_active")
	})
}

func TestDispatcher(t *testing.T) {
	t.Parallel()

	t.Run("at most one action in flight", func(t *testing.T) {
		t.Parallel()
		dep := hardware.NewMockDepriver()
		dep.Latency = 100 * time.Millisecond
		d := &dispatcher{dep: dep}

		d.dispatch(hardware.Action{Channel: 1})
		d.dispatch(hardware.Action{Channel: 2}) // dropped: first still running

		require.Eventually(t, func() bool { return !d.busy() }, time.Second, 5*time.Millisecond)
		require.Len(t, dep.Actions(), 1)
		assert.Equal(t, 1, dep.Actions()[0].Channel)

		// once the first completes, a new action goes through
		d.dispatch(hardware.Action{Channel: 3})
		require.Eventually(t, func() bool { return len(dep.Actions()) == 2 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, 3, dep.Actions()[1].Channel)
	})

	t.Run("hardware failure is absorbed", func(t *testing.T) {
		t.Parallel()
		dep := hardware.NewMockDepriver()
		dep.Err = assert.AnError
		d := &dispatcher{dep: dep}

		d.dispatch(hardware.Action{Channel: 1})
		require.Eventually(t, func() bool { return !d.busy() }, time.Second, 5*time.Millisecond)
		assert.Empty(t, dep.Actions())
	})

	t.Run("nil depriver is a no-op", func(t *testing.T) {
		t.Parallel()
		d := &dispatcher{}
		d.dispatch(hardware.Action{Channel: 1})
		assert.False(t, d.busy())
	})
}
