package qrs

// PeakQueue 峰值索引输出队列
// 定容环形缓冲，保存确认 R 峰的全局样本索引。
// 溢出策略可选：覆盖最旧条目 (嵌入式有界内存模式) 或拒绝新条目并计数。
// 无论哪种策略，逐样本的布尔分类流都不受队列状态影响。
type PeakQueue struct {
	entries []uint64
	head    int // 最旧条目的位置
	length  int
	policy  int
	dropped uint64 // 拒绝策略下被丢弃的条目数
}

// NewPeakQueue 创建容量为 capacity 的队列
func NewPeakQueue(capacity, policy int) *PeakQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &PeakQueue{
		entries: make([]uint64, capacity),
		policy:  policy,
	}
}

// Push 追加一个峰值索引
// 队列满时按策略处理：覆盖策略丢弃最旧的未读条目并返回 true，
// 拒绝策略丢弃新条目、计数并返回 false
func (q *PeakQueue) Push(index uint64) bool {
	if q.length < len(q.entries) {
		q.entries[(q.head+q.length)%len(q.entries)] = index
		q.length++
		return true
	}

	if q.policy == OverflowReject {
		q.dropped++
		return false
	}

	// 覆盖最旧条目
	q.entries[q.head] = index
	q.head = (q.head + 1) % len(q.entries)
	return true
}

// Pop 取出最旧的峰值索引
func (q *PeakQueue) Pop() (uint64, bool) {
	if q.length == 0 {
		return 0, false
	}
	index := q.entries[q.head]
	q.head = (q.head + 1) % len(q.entries)
	q.length--
	return index, true
}

// Drain 取出并返回队列中的全部索引 (从旧到新)
func (q *PeakQueue) Drain() []uint64 {
	out := make([]uint64, 0, q.length)
	for {
		index, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, index)
	}
}

// Len 返回当前条目数
func (q *PeakQueue) Len() int {
	return q.length
}

// Cap 返回队列容量
func (q *PeakQueue) Cap() int {
	return len(q.entries)
}

// Dropped 返回拒绝策略下被丢弃的条目总数
func (q *PeakQueue) Dropped() uint64 {
	return q.dropped
}
