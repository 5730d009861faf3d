package registry

import "container/heap"

// pendingHeap is a max-heap of pending handlers keyed by priority.
// Tie-breaking among equal priorities is unspecified, matching the
// source's own caution against relying on FIFO among ties.
type pendingHeap []*handler

func (h pendingHeap) Len() int { return len(h) }

func (h pendingHeap) Less(i, j int) bool { return h[i].priority > h[j].priority }

func (h pendingHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *pendingHeap) Push(x any) {
	hd := x.(*handler)
	hd.heapIndex = len(*h)
	*h = append(*h, hd)
}

func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	hd := old[n-1]
	old[n-1] = nil
	hd.heapIndex = -1
	*h = old[:n-1]
	return hd
}

// removeHandler drains the heap into a scratch slice, filters out h,
// and rebuilds. This is the registry's only way to remove an arbitrary
// element, since container/heap does not support it directly; it is
// O(n) but these mutation paths (Pause and Cancel on a pending
// handler) are rare compared to Push/Pop.
func (ph *pendingHeap) removeHandler(target *handler) {
	kept := make(pendingHeap, 0, len(*ph))
	for _, hd := range *ph {
		if hd != target {
			kept = append(kept, hd)
		}
	}
	*ph = kept
	heap.Init(ph)
}

// rebuild reinitializes heap ordering, used after a priority change on
// a handler already present in the heap.
func (ph *pendingHeap) rebuild() {
	heap.Init(ph)
}
