package rewind

import "github.com/rotisserie/eris"

var _ Cache[any] = &SimpleCache[any]{}

func (c *SimpleCache[T]) GetIndex(key string) (int, bool) {
	index, ok := c.itemIndices[key]
	return index, ok
}

func (c *SimpleCache[T]) GetItem(index int) *T {
	return &c.items[index]
}

func (c *SimpleCache[T]) GetItem32(index uint32) *T {
	return &c.items[index]
}

// Register stores item under key and returns its index. Indices start at zero.
func (c *SimpleCache[T]) Register(key string, item T) (int, error) {
	if len(c.itemIndices) >= c.maxCapacity {
		return -1, eris.Wrapf(errCacheFull, "capacity %d", c.maxCapacity)
	}
	idx := len(c.items)
	c.itemIndices[key] = idx
	c.items = append(c.items, item)
	return idx, nil
}

func (c *SimpleCache[T]) Len() int {
	return len(c.items)
}

func (c *SimpleCache[T]) Clear() {
	c.items = c.items[:0]
	clear(c.itemIndices)
}
