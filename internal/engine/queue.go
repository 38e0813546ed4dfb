package engine

// pageQueue is the FIFO of listing pages for one category traversal.
// Pushing is deduplicated against everything ever queued, so a page is
// visited at most once per traversal even when its fetch fails.
type pageQueue struct {
	items []string
	seen  map[string]struct{}
}

func newPageQueue() *pageQueue {
	return &pageQueue{seen: make(map[string]struct{})}
}

// Push appends a URL unless it was already queued during this traversal.
func (q *pageQueue) Push(url string) bool {
	if _, dup := q.seen[url]; dup {
		return false
	}
	q.seen[url] = struct{}{}
	q.items = append(q.items, url)
	return true
}

// Pop removes and returns the oldest queued URL.
func (q *pageQueue) Pop() (string, bool) {
	if len(q.items) == 0 {
		return "", false
	}
	url := q.items[0]
	q.items = q.items[1:]
	return url, true
}

// Len returns the number of URLs still queued.
func (q *pageQueue) Len() int {
	return len(q.items)
}
