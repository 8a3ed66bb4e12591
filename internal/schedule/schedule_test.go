package schedule

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chir/internal/chir"
)

func TestQueuePopsHighestWeightFirst(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.Submit(Task{Weight: 1, Run: func() error { return nil }}))
	require.NoError(t, q.Submit(Task{Weight: 5, Run: func() error { return nil }}))
	require.NoError(t, q.Submit(Task{Weight: 3, Run: func() error { return nil }}))

	var order []int
	for {
		task, ok := q.pop()
		if !ok {
			break
		}
		order = append(order, task.Weight)
	}
	assert.Equal(t, []int{5, 3, 1}, order)
}

func TestQueueRejectsSubmitAfterStart(t *testing.T) {
	q := NewQueue()
	q.start()
	err := q.Submit(Task{Weight: 0, Run: func() error { return nil }})
	assert.ErrorIs(t, err, ErrQueueStarted)
}

func TestPoolRunsEveryTask(t *testing.T) {
	pool := NewPool(4)
	var mu sync.Mutex
	count := 0
	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(Task{Weight: i, Run: func() error {
			mu.Lock()
			count++
			mu.Unlock()
			return nil
		}}))
	}
	errs := pool.Run()
	assert.Empty(t, errs)
	assert.Equal(t, 20, count)
}

func TestPoolCollectsTaskErrorsAndPanics(t *testing.T) {
	pool := NewPool(2)
	require.NoError(t, pool.Submit(Task{Weight: 1, Run: func() error { return assertErr }}))
	require.NoError(t, pool.Submit(Task{Weight: 2, Run: func() error { panic("boom") }}))
	errs := pool.Run()
	require.Len(t, errs, 2)
}

var assertErr = errFixture{}

type errFixture struct{}

func (errFixture) Error() string { return "fixture failure" }

func TestDispatchFuncsRunsBodiesAndSkipsDecls(t *testing.T) {
	small := &chir.Func{Name: "small", Body: &chir.BlockGroup{Blocks: []*chir.Block{{}}}}
	big := &chir.Func{Name: "big", Body: &chir.BlockGroup{Blocks: []*chir.Block{{}, {}, {}}}}
	noBody := &chir.Func{Name: "decl"}

	var mu sync.Mutex
	seen := map[string]bool{}
	errs := DispatchFuncs(2, []*chir.Func{small, big, noBody}, func(f *chir.Func) error {
		mu.Lock()
		seen[f.Name] = true
		mu.Unlock()
		return nil
	})
	assert.Empty(t, errs)
	assert.True(t, seen["small"])
	assert.True(t, seen["big"])
	assert.False(t, seen["decl"], "functions without a body are declarations, not scheduled")
}

func TestDispatchDeclsRunsEveryItem(t *testing.T) {
	items := []string{"a", "b", "c"}
	var mu sync.Mutex
	seen := map[string]bool{}
	errs := DispatchDecls(0, items, func(s string) error {
		mu.Lock()
		seen[s] = true
		mu.Unlock()
		return nil
	})
	assert.Empty(t, errs)
	for _, s := range items {
		assert.True(t, seen[s])
	}
}
