package Filters

// MovingAverage 定长滑动平均基线估计器
// 维护最近 K 个原始样本的 FIFO，用于在信号进入滤波器链之前
// 减去短时基线估计，抑制呼吸等慢漂移。
// 在看到至少 K+1 个样本之前没有输出 (避免用残缺窗口估计基线)。
type MovingAverage struct {
	window []float64 // 最近 K 个样本
	seen   uint64    // 已输入的样本总数
}

// NewMovingAverage 创建窗口长度为 size 的估计器
// R 峰持续时间很短，size 取 5 左右即可，窗口太长反而会削弱峰值
func NewMovingAverage(size int) *MovingAverage {
	if size < 1 {
		size = 1
	}
	return &MovingAverage{
		window: make([]float64, size),
	}
}

// Push 输入一个原始样本
// 返回当前的基线估计值 (最近 K 个样本的均值) 以及估计是否已预热完成
func (m *MovingAverage) Push(sample float64) (baseline float64, ok bool) {
	copy(m.window, m.window[1:])
	m.window[len(m.window)-1] = sample
	m.seen++

	if m.seen <= uint64(len(m.window)) {
		return 0, false
	}

	sum := 0.0
	for _, v := range m.window {
		sum += v
	}
	return sum / float64(len(m.window)), true
}

// Seen 返回已输入的样本总数
func (m *MovingAverage) Seen() uint64 {
	return m.seen
}

// Reset 清空窗口和计数，重新开始预热
func (m *MovingAverage) Reset() {
	for i := range m.window {
		m.window[i] = 0
	}
	m.seen = 0
}
