package optimizer

// TabuList 禁忌表，键为通道集合的哈希
// 只由单次搜索使用，不加锁
type TabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
}

// NewTabuList 创建禁忌表，size <= 0 时不限容量
func NewTabuList(size int) *TabuList {
	capacity := size
	if capacity <= 0 {
		capacity = 64
	}
	return &TabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, capacity),
		maxSize: size,
	}
}

// Add 添加到禁忌表
func (t *TabuList) Add(key uint64) {
	if _, exists := t.items[key]; exists {
		return
	}

	// 超出容量时移除最旧的
	if t.maxSize > 0 && len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}

	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains 检查是否在禁忌表中
func (t *TabuList) Contains(key uint64) bool {
	_, exists := t.items[key]
	return exists
}
