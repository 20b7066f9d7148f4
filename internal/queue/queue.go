// Package queue provides the priority queue used by streaming tree search.
package queue

// NodeRef references a tree node and the level it sits on.
type NodeRef struct {
	Node  int64 // Node is the index of the node in storage order.
	Level int   // Level is the tree level, 0 for leaves.
}

// NodeQueue is a min-heap of node references ordered by node index, so nodes
// are visited in storage order and a sequential reader only moves forward.
// Value-based storage keeps pushes allocation free once the slice has grown.
type NodeQueue struct {
	items []NodeRef
}

// NewNodeQueue creates an empty queue with the given capacity.
func NewNodeQueue(capacity int) *NodeQueue {
	return &NodeQueue{items: make([]NodeRef, 0, capacity)}
}

// PushRef inserts a reference while maintaining the heap invariant.
func (q *NodeQueue) PushRef(r NodeRef) {
	q.items = append(q.items, r)
	q.siftUp(len(q.items) - 1)
}

// PopRef removes and returns the reference with the smallest node index.
func (q *NodeQueue) PopRef() (NodeRef, bool) {
	n := len(q.items)
	if n == 0 {
		return NodeRef{}, false
	}
	root := q.items[0]
	q.items[0] = q.items[n-1]
	q.items = q.items[:n-1]
	if len(q.items) > 1 {
		q.siftDown(0)
	}
	return root, true
}

// Len returns the number of references in the queue.
func (q *NodeQueue) Len() int { return len(q.items) }

func (q *NodeQueue) less(i, j int) bool { return q.items[i].Node < q.items[j].Node }

func (q *NodeQueue) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.less(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *NodeQueue) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && q.less(r, l) {
			best = r
		}
		if !q.less(best, i) {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
