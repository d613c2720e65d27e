package sfnt

// PlanLookup retrieves the cached value for key (compared with ==), or
// calls build and installs its result via a lock-free compare-and-swap
// prepend onto the plan list (spec §5: the shape-plan cache is keyed
// per-face and shared read-only across goroutines once the face is
// immutable). A lost race against a concurrent builder for the same
// key simply discards the loser's value and returns the winner's.
func (f *Face) PlanLookup(key any, build func() any) any {
	for n := f.plans.Load(); n != nil; n = n.next {
		if n.key == key {
			return n.plan
		}
	}
	node := &planNode{key: key, plan: build()}
	for {
		head := f.plans.Load()
		node.next = head
		if f.plans.CompareAndSwap(head, node) {
			return node.plan
		}
		for n := f.plans.Load(); n != head; n = n.next {
			if n.key == key {
				return n.plan
			}
		}
	}
}
