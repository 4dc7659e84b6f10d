package algo_test

import (
	"container/heap"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valentinpasche/transnetmap-impacts/analysis/algo"
)

func TestPriorityQueue(t *testing.T) {
	pq := make(algo.PriorityQueue, 0)
	pq.Push(&algo.Item{Value: 4, Time: 4})
	pq.Push(&algo.Item{Value: 2, Time: 2})
	pq.Push(&algo.Item{Value: 1, Time: 1})
	pq.Push(&algo.Item{Value: 3, Time: 3})

	heap.Init(&pq)

	item := heap.Pop(&pq).(*algo.Item)
	assert.Equal(t, 1, item.Value)
	assert.Equal(t, 1.0, item.Time)
	item = heap.Pop(&pq).(*algo.Item)
	assert.Equal(t, 2, item.Value)
	assert.Equal(t, 2.0, item.Time)
}

func TestPriorityQueueLengthTieBreak(t *testing.T) {
	pq := make(algo.PriorityQueue, 0)
	pq.Push(&algo.Item{Value: 1, Time: 5, Length: 30})
	pq.Push(&algo.Item{Value: 2, Time: 5, Length: 10})
	pq.Push(&algo.Item{Value: 3, Time: 5, Length: 20})

	heap.Init(&pq)

	// equal times pop in ascending length order
	assert.Equal(t, 2, heap.Pop(&pq).(*algo.Item).Value)
	assert.Equal(t, 3, heap.Pop(&pq).(*algo.Item).Value)
	assert.Equal(t, 1, heap.Pop(&pq).(*algo.Item).Value)
}

func TestPriorityQueueFix(t *testing.T) {
	pq := make(algo.PriorityQueue, 0)
	pq.Push(&algo.Item{Value: 4, Time: 4})
	pq.Push(&algo.Item{Value: 2, Time: 2})
	pq.Push(&algo.Item{Value: 1, Time: 1})
	pq.Push(&algo.Item{Value: 3, Time: 3})

	heap.Init(&pq)

	// lower Value==3 to the front
	for _, item := range pq {
		if item.Value == 3 {
			item.Time = 0
			heap.Fix(&pq, item.Index)
		}
	}

	item := heap.Pop(&pq).(*algo.Item)
	assert.Equal(t, 3, item.Value)
	assert.Equal(t, 0.0, item.Time)

	item = heap.Pop(&pq).(*algo.Item)
	assert.Equal(t, 1, item.Value)

	item = heap.Pop(&pq).(*algo.Item)
	assert.Equal(t, 2, item.Value)

	item = heap.Pop(&pq).(*algo.Item)
	assert.Equal(t, 4, item.Value)

	assert.Equal(t, 0, pq.Len())
}
