package scroller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeOrientation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   OrientationInput
		want Orientation
	}{
		{
			name: "empty list reads naturally",
			in:   OrientationInput{Empty: true, UserHasScrolled: true, Reading: ReadingUp, ViewportKnown: true},
			want: Natural,
		},
		{
			name: "reading down after scrolling",
			in:   OrientationInput{UserHasScrolled: true, Reading: ReadingDown, ViewportKnown: true},
			want: Natural,
		},
		{
			name: "reading up after scrolling",
			in:   OrientationInput{UserHasScrolled: true, Reading: ReadingUp, ViewportKnown: true, Scrollable: true, HasTarget: true},
			want: Inverted,
		},
		{
			name: "reading direction ignored before scrolling",
			in:   OrientationInput{Reading: ReadingDown, ViewportKnown: true, Scrollable: true},
			want: Inverted,
		},
		{
			name: "content shorter than the viewport",
			in:   OrientationInput{ViewportKnown: true, HasTarget: true},
			want: Inverted,
		},
		{
			name: "unknown viewport with a target",
			in:   OrientationInput{HasTarget: true},
			want: Natural,
		},
		{
			name: "jump target outside a thread",
			in:   OrientationInput{ViewportKnown: true, Scrollable: true, HasTarget: true},
			want: Natural,
		},
		{
			name: "jump target inside a thread",
			in:   OrientationInput{ViewportKnown: true, Scrollable: true, HasTarget: true, InThread: true},
			want: Inverted,
		},
		{
			name: "default",
			in:   OrientationInput{ViewportKnown: true, Scrollable: true},
			want: Inverted,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ComputeOrientation(tc.in))
		})
	}
}

func TestDirectionInferencer(t *testing.T) {
	t.Parallel()

	sample := func(offset float64, o Orientation, dir ScrollDirection) ScrollSample {
		return ScrollSample{Offset: offset, Scrolling: true, UserHasScrolled: true, Orientation: o, Direction: dir}
	}

	t.Run("should read up on forward travel when inverted", func(t *testing.T) {
		t.Parallel()
		d := NewDirectionInferencer(30)
		assert.False(t, d.Observe(sample(100, Inverted, ScrollForward)))
		assert.True(t, d.Observe(sample(145, Inverted, ScrollForward)))
		assert.Equal(t, ReadingUp, d.Reading())
	})

	t.Run("should read down on backward travel when inverted", func(t *testing.T) {
		t.Parallel()
		d := NewDirectionInferencer(30)
		d.Observe(sample(500, Inverted, ScrollBackward))
		assert.True(t, d.Observe(sample(400, Inverted, ScrollBackward)))
		assert.Equal(t, ReadingDown, d.Reading())
	})

	t.Run("should follow the offset when natural", func(t *testing.T) {
		t.Parallel()
		d := NewDirectionInferencer(30)
		d.Observe(sample(500, Natural, ScrollForward))
		d.Observe(sample(600, Natural, ScrollForward))
		assert.Equal(t, ReadingDown, d.Reading())
		d.Observe(sample(500, Natural, ScrollBackward))
		assert.Equal(t, ReadingUp, d.Reading())
	})

	t.Run("should ignore travel within the noise threshold", func(t *testing.T) {
		t.Parallel()
		d := NewDirectionInferencer(30)
		d.Observe(sample(100, Inverted, ScrollForward))
		d.Observe(sample(145, Inverted, ScrollForward))
		assert.False(t, d.Observe(sample(125, Inverted, ScrollBackward)))
		assert.False(t, d.Observe(sample(105, Inverted, ScrollBackward)))
		assert.Equal(t, ReadingUp, d.Reading())
	})

	t.Run("should read up when resting at the exact end", func(t *testing.T) {
		t.Parallel()
		d := NewDirectionInferencer(30)
		d.Observe(sample(100, Natural, ScrollForward))
		s := sample(200, Natural, ScrollNone)
		s.Scrolling = false
		s.AtExactEnd = true
		assert.True(t, d.Observe(s))
		assert.Equal(t, ReadingUp, d.Reading())
	})

	t.Run("should ignore samples before the user scrolled or while forcing", func(t *testing.T) {
		t.Parallel()
		d := NewDirectionInferencer(30)
		d.Observe(sample(0, Natural, ScrollForward))

		s := sample(100, Natural, ScrollForward)
		s.UserHasScrolled = false
		assert.False(t, d.Observe(s))

		s = sample(200, Natural, ScrollForward)
		s.Forcing = true
		assert.False(t, d.Observe(s))
		assert.Equal(t, ReadingUnknown, d.Reading())
	})

	t.Run("should forget the direction on reset", func(t *testing.T) {
		t.Parallel()
		d := NewDirectionInferencer(30)
		d.Observe(sample(0, Natural, ScrollForward))
		d.Observe(sample(100, Natural, ScrollForward))
		d.Reset()
		assert.Equal(t, ReadingUnknown, d.Reading())
		assert.False(t, d.Observe(sample(500, Natural, ScrollForward)))
	})
}
