package chrome

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJoinContextPropagatesCancellation(t *testing.T) {
	call, stop := context.WithCancel(context.Background())
	joined, cancel := joinContext(context.Background(), call)
	defer cancel()

	select {
	case <-joined.Done():
		t.Fatal("joined context ended before the call was cancelled")
	default:
	}

	stop()
	select {
	case <-joined.Done():
	case <-time.After(time.Second):
		t.Fatal("cancelling the call did not end the joined context")
	}
	require.ErrorIs(t, joined.Err(), context.Canceled)
}

func TestJoinContextPropagatesDeadline(t *testing.T) {
	call, stop := context.WithTimeout(context.Background(), time.Millisecond*10)
	defer stop()

	joined, cancel := joinContext(context.Background(), call)
	defer cancel()

	deadline, ok := joined.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(time.Millisecond*10), deadline, time.Second)

	select {
	case <-joined.Done():
	case <-time.After(time.Second):
		t.Fatal("deadline did not end the joined context")
	}
}

func TestJoinContextEndsWithBrowserContext(t *testing.T) {
	base, stop := context.WithCancel(context.Background())
	joined, cancel := joinContext(base, context.Background())
	defer cancel()

	stop()
	select {
	case <-joined.Done():
	case <-time.After(time.Second):
		t.Fatal("cancelling the browser context did not end the joined context")
	}
}
