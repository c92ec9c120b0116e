/******************************************************************************************[Heap.h]
Copyright (c) 2003-2006, Niklas Een, Niklas Sorensson
Copyright (c) 2007-2010, Niklas Sorensson

Permission is hereby granted, free of charge, to any person obtaining a copy of this software and
associated documentation files (the "Software"), to deal in the Software without restriction,
including without limitation the rights to use, copy, modify, merge, publish, distribute,
sublicense, and/or sell copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all copies or
substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT
NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM,
DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT
OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
**************************************************************************************************/

package lra

// queue is a min-heap of variable handles with membership test, used to
// pick the smallest violating basic variable first (Bland's rule). Strongly
// inspired from Minisat's mtl/Heap.h.
type queue struct {
	heap []VarRef
	pos  []int // Position of each handle in heap, -1 if absent
}

func (q *queue) less(i, j int) bool { return q.heap[i] < q.heap[j] }

func (q *queue) swap(i, j int) {
	q.heap[i], q.heap[j] = q.heap[j], q.heap[i]
	q.pos[q.heap[i]] = i
	q.pos[q.heap[j]] = j
}

// up moves the item at i toward the root until the heap order holds.
func (q *queue) up(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.less(i, p) {
			return
		}
		q.swap(i, p)
		i = p
	}
}

// down moves the item at i toward the leaves until the heap order holds.
func (q *queue) down(i int) {
	n := len(q.heap)
	for {
		min := i
		if l := 2*i + 1; l < n && q.less(l, min) {
			min = l
		}
		if r := 2*i + 2; r < n && q.less(r, min) {
			min = r
		}
		if min == i {
			return
		}
		q.swap(i, min)
		i = min
	}
}

func (q *queue) len() int    { return len(q.heap) }
func (q *queue) empty() bool { return q.len() == 0 }

func (q *queue) contains(v VarRef) bool {
	return int(v) < len(q.pos) && q.pos[v] >= 0
}

// insert adds v, unless it is already present.
func (q *queue) insert(v VarRef) {
	for int(v) >= len(q.pos) {
		q.pos = append(q.pos, -1)
	}
	if q.contains(v) {
		return
	}
	q.pos[v] = len(q.heap)
	q.heap = append(q.heap, v)
	q.up(q.pos[v])
}

// removeMin pops the smallest handle. The queue must not be empty.
func (q *queue) removeMin() VarRef {
	last := len(q.heap) - 1
	q.swap(0, last)
	v := q.heap[last]
	q.heap = q.heap[:last]
	q.pos[v] = -1
	if last > 0 {
		q.down(0)
	}
	return v
}

func (q *queue) clear() {
	for _, v := range q.heap {
		q.pos[v] = -1
	}
	q.heap = q.heap[:0]
}
