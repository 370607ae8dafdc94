package futures

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAsync_ReturnsValue(t *testing.T) {
	f := RunAsync(func() (int, error) { return 42, nil })
	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRunAsync_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	f := RunAsync(func() (int, error) { return 0, boom })
	_, err := f.Get()
	assert.ErrorIs(t, err, boom)
}

func TestRunAsync_SyncOverride(t *testing.T) {
	restore := SetDisableAsyncForTesting(true)
	defer restore()

	f := RunAsync(func() (int, error) { return 7, nil })
	// Under sync override, the value must already be available without
	// needing a separate goroutine to have run.
	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestBulk_PreservesInputOrder(t *testing.T) {
	args := []int{5, 4, 3, 2, 1}
	results, err := Bulk(args, func(n int) (int, error) { return n * n, nil })
	require.NoError(t, err)
	assert.Equal(t, []int{25, 16, 9, 4, 1}, results)
}

func TestBulk_SyncOverride(t *testing.T) {
	restore := SetDisableAsyncForTesting(true)
	defer restore()

	args := []int{1, 2, 3}
	results, err := Bulk(args, func(n int) (int, error) { return n + 1, nil })
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, results)
}

func TestBulk_PropagatesFirstError(t *testing.T) {
	boom := errors.New("boom")
	args := []int{1, 2, 3}
	_, err := Bulk(args, func(n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})
	assert.ErrorIs(t, err, boom)
}
