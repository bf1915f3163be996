package radiolink

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueEnqueueDequeueFIFO(t *testing.T) {
	q := NewQueue(4)
	require.NoError(t, q.Enqueue('a'))
	require.NoError(t, q.Enqueue('b'))

	b, ok := q.Dequeue()
	require.True(t, ok)
	require.Equal(t, byte('a'), b)

	b, ok = q.Dequeue()
	require.True(t, ok)
	require.Equal(t, byte('b'), b)

	_, ok = q.Dequeue()
	require.False(t, ok)
}

func TestQueueFullRejectsData(t *testing.T) {
	q := NewQueue(2)
	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	require.ErrorIs(t, q.Enqueue(3), ErrQueueFull)
}

func TestQueueControlBypassesFullRing(t *testing.T) {
	q := NewQueue(2)
	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	require.True(t, q.IsFull())

	q.injectControl(XOFF)
	b, ok := q.Dequeue()
	require.True(t, ok)
	require.Equal(t, XOFF, b)

	// The two data bytes enqueued earlier are still there, FIFO order intact.
	b, ok = q.Dequeue()
	require.True(t, ok)
	require.Equal(t, byte(1), b)
}

func TestQueueDrainUpTo(t *testing.T) {
	q := NewQueue(8)
	for _, b := range []byte("hello") {
		require.NoError(t, q.Enqueue(b))
	}
	out := q.DrainUpTo(3)
	require.Equal(t, []byte("hel"), out)
	require.Equal(t, 2, q.Len())

	out = q.DrainUpTo(10)
	require.Equal(t, []byte("lo"), out)
	require.True(t, q.IsEmpty())
}

func TestQueueFlowControlXoffAtHigh(t *testing.T) {
	// capacity 8: high=4, low=2
	q := NewQueue(8)
	other := NewQueue(8)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(byte(i)))
	}
	q.FlowControl(other)

	b, ok := other.Dequeue()
	require.True(t, ok)
	require.Equal(t, XOFF, b)
}

func TestQueueFlowControlXonAtLow(t *testing.T) {
	q := NewQueue(8)
	other := NewQueue(8)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(byte(i)))
	}
	q.FlowControl(other)
	other.Dequeue() // consume the XOFF

	q.DrainUpTo(4) // count drops to 1, below low=2
	q.FlowControl(other)

	b, ok := other.Dequeue()
	require.True(t, ok)
	require.Equal(t, XON, b)
}

func TestQueueFlowControlNoRepeatXoff(t *testing.T) {
	q := NewQueue(8)
	other := NewQueue(8)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(byte(i)))
	}
	q.FlowControl(other)
	other.Dequeue()

	// Still above high; a second FlowControl call must not inject again.
	q.FlowControl(other)
	require.True(t, other.IsEmpty())
}

func TestQueueCapAndLen(t *testing.T) {
	q := NewQueue(16)
	require.Equal(t, 16, q.Cap())
	require.Equal(t, 0, q.Len())
	q.Enqueue('x')
	require.Equal(t, 1, q.Len())
}
