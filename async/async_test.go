package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/certify/async"
)

func TestGoResolves(t *testing.T) {
	release := make(chan struct{})
	f := async.Go(context.Background(), func(context.Context) (string, error) {
		<-release
		return "sent", nil
	})
	assert.False(t, f.IsComplete())
	close(release)

	got, err := f.Await()
	require.NoError(t, err)
	assert.Equal(t, "sent", got)
	assert.True(t, f.IsComplete())
}

func TestGoPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	f := async.Go(context.Background(), func(context.Context) (int, error) { return 0, boom })
	_, err := f.Await()
	assert.ErrorIs(t, err, boom)
}

func TestGoCanceledContextSkipsWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	f := async.Go(ctx, func(context.Context) (int, error) {
		called = true
		return 1, nil
	})
	_, err := f.Await()
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestAwaitWithTimeout(t *testing.T) {
	f := async.Go(context.Background(), func(context.Context) (int, error) {
		time.Sleep(200 * time.Millisecond)
		return 1, nil
	})
	_, err := f.AwaitWithTimeout(10 * time.Millisecond)
	assert.ErrorIs(t, err, async.ErrTimeout)

	v, err := async.Resolved(7, nil).AwaitWithTimeout(time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	select {
	case <-f.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("future never completed")
	}
}
