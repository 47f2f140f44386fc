package services

// partition splits items into consecutive batches holding at most maxCount
// items and, when maxBytes > 0, at most maxBytes of estimated size. An item
// larger than maxBytes on its own is sent alone rather than dropped; the
// provider decides whether to accept it.
func partition[T any](items []T, maxCount, maxBytes int, size func(T) int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if maxCount <= 0 {
		maxCount = len(items)
	}

	var (
		batches [][]T
		start   int
		bytes   int
	)
	for i, item := range items {
		n := 0
		if size != nil {
			n = size(item)
		}
		count := i - start
		full := count >= maxCount
		tooBig := maxBytes > 0 && count > 0 && bytes+n > maxBytes
		if full || tooBig {
			batches = append(batches, items[start:i:i])
			start = i
			bytes = 0
		}
		bytes += n
	}
	return append(batches, items[start:len(items):len(items)])
}
