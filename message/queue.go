package message

import "container/heap"

// Message is a deferred call of Method on every receiver
type Message struct {
	Receivers []Receiver
	Method    string
	Timestamp float64
	Args      []any

	seq   uint64 // Schedule order, breaks timestamp ties
	index int    // Heap position, -1 once popped
}

// queue is a min-heap ordered by (Timestamp, seq)
type queue struct {
	items []*Message
}

func (q *queue) Len() int { return len(q.items) }

func (q *queue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.seq < b.seq
}

func (q *queue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

func (q *queue) Push(x any) {
	m := x.(*Message)
	m.index = len(q.items)
	q.items = append(q.items, m)
}

func (q *queue) Pop() any {
	old := q.items
	n := len(old)
	m := old[n-1]
	old[n-1] = nil // avoid memory leak
	m.index = -1
	q.items = old[:n-1]
	return m
}

func (q *queue) peek() *Message {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

func (q *queue) push(m *Message) { heap.Push(q, m) }

func (q *queue) pop() *Message { return heap.Pop(q).(*Message) }

func (q *queue) remove(m *Message) {
	if m.index >= 0 {
		heap.Remove(q, m.index)
	}
}
