package qrs

// NoSample 输入流结束的哨兵值
// 归一化后的 ECG 信号不可能取到这个值，参考嵌入式 DAQ 的约定
const NoSample float64 = -32000

// SampleWindow 滑动信号窗口
// 八条并行的定长序列共享同一个游标：原始信号和每一级滤波器的输出，
// 以及延迟输出用的分类序列。缓冲未满时 Push 依次追加；
// 满了之后八条序列同步左移一格（最旧的样本被丢弃），游标固定在 N-1。
// 检测逻辑必须每次重新读取游标，不能跨越 Push 缓存窗口内位置。
type SampleWindow struct {
	signal     []float64 // 基线修正后的原始信号
	dcblock    []float64 // DC 阻断输出
	lowpass    []float64 // 低通输出
	highpass   []float64 // 高通 (带通) 输出
	derivative []float64 // 微分输出
	squared    []float64 // 平方输出
	integral   []float64 // 滑窗积分输出
	output     []bool    // 每个样本的延迟分类结果 (回溯搜索可以在出窗前改写)

	size   int // 容量 N
	length int // 当前占用长度
}

// NewSampleWindow 创建容量为 size 的窗口，容量校验由 NewDetector 负责
func NewSampleWindow(size int) *SampleWindow {
	return &SampleWindow{
		signal:     make([]float64, size),
		dcblock:    make([]float64, size),
		lowpass:    make([]float64, size),
		highpass:   make([]float64, size),
		derivative: make([]float64, size),
		squared:    make([]float64, size),
		integral:   make([]float64, size),
		output:     make([]bool, size),
		size:       size,
	}
}

// Full 返回窗口是否已满 (下一次 Push 将触发移位)
func (w *SampleWindow) Full() bool {
	return w.length >= w.size
}

// Len 返回当前占用长度
func (w *SampleWindow) Len() int {
	return w.length
}

// Cap 返回窗口容量 N
func (w *SampleWindow) Cap() int {
	return w.size
}

// Push 写入一个新的原始样本并返回它所在的游标位置
// 未满：写入下一个空位。已满：八条序列同步左移，新样本写在 N-1
func (w *SampleWindow) Push(raw float64) int {
	if w.length < w.size {
		cursor := w.length
		w.signal[cursor] = raw
		w.length++
		return cursor
	}

	// 同步移位，保持八条序列的索引空间一致
	for i := 0; i < w.size-1; i++ {
		w.signal[i] = w.signal[i+1]
		w.dcblock[i] = w.dcblock[i+1]
		w.lowpass[i] = w.lowpass[i+1]
		w.highpass[i] = w.highpass[i+1]
		w.derivative[i] = w.derivative[i+1]
		w.squared[i] = w.squared[i+1]
		w.integral[i] = w.integral[i+1]
		w.output[i] = w.output[i+1]
	}
	cursor := w.size - 1
	w.signal[cursor] = raw
	return cursor
}
