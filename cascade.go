package qrs

import (
	"qrs/Filters"
)

// FilterCascade 级联滤波器链
// 对窗口游标位置依次执行：基线修正、DC 阻断、低通、高通、微分、平方、滑窗积分。
// 全部是因果滤波器，单遍执行，不引用未来样本。
// 滤波器拓扑和系数由 1985 年论文的设计固定，不提供替换接口。
type FilterCascade struct {
	baseline   *Filters.MovingAverage
	windowSize int // 积分窗口 W
}

// NewFilterCascade 创建滤波器链
func NewFilterCascade(movingAvgLen, windowSize int) *FilterCascade {
	return &FilterCascade{
		baseline:   Filters.NewMovingAverage(movingAvgLen),
		windowSize: windowSize,
	}
}

// PrepareRaw 基线修正：从新样本中减去最近 K 个原始样本的均值
// 预热完成 (至少 K+1 个样本) 之前原样返回
func (fc *FilterCascade) PrepareRaw(raw float64) float64 {
	baseline, ok := fc.baseline.Push(raw)
	if !ok {
		return raw
	}
	return raw - baseline
}

// Apply 对窗口中 cursor 位置的样本执行 DC 阻断之后的全部级联滤波
// 引用窗口起点之前的历史项时按"不存在"处理 (条件跳过，而不是按零参与运算)
func (fc *FilterCascade) Apply(w *SampleWindow, cursor int) {
	// DC 阻断
	// y[n] = x[n] - x[n-1] + 0.995*y[n-1]
	if cursor >= 1 {
		w.dcblock[cursor] = w.signal[cursor] - w.signal[cursor-1] + 0.995*w.dcblock[cursor-1]
	} else {
		w.dcblock[cursor] = 0
	}

	// 低通
	// y(nT) = 2y(nT-T) - y(nT-2T) + x(nT) - 2x(nT-6T) + x(nT-12T)
	w.lowpass[cursor] = w.dcblock[cursor]
	if cursor >= 1 {
		w.lowpass[cursor] += 2 * w.lowpass[cursor-1]
	}
	if cursor >= 2 {
		w.lowpass[cursor] -= w.lowpass[cursor-2]
	}
	if cursor >= 6 {
		w.lowpass[cursor] -= 2 * w.dcblock[cursor-6]
	}
	if cursor >= 12 {
		w.lowpass[cursor] += w.dcblock[cursor-12]
	}

	// 高通
	// y(nT) = 32x(nT-16T) - [y(nT-T) + x(nT) - x(nT-32T)]
	w.highpass[cursor] = -w.lowpass[cursor]
	if cursor >= 1 {
		w.highpass[cursor] -= w.highpass[cursor-1]
	}
	if cursor >= 16 {
		w.highpass[cursor] += 32 * w.lowpass[cursor-16]
	}
	if cursor >= 32 {
		w.highpass[cursor] += w.lowpass[cursor-32]
	}

	// 微分 (单步差分)
	w.derivative[cursor] = w.highpass[cursor]
	if cursor > 0 {
		w.derivative[cursor] -= w.highpass[cursor-1]
	}

	// 平方：去掉负值，强调高频能量
	w.squared[cursor] = w.derivative[cursor] * w.derivative[cursor]

	// 滑窗积分
	// 除数必须等于实际参与求和的项数：流的开头不足 W 项时，
	// 按固定 W 去除会系统性压低早期的峰值
	sum := 0.0
	terms := 0
	for i := 0; i < fc.windowSize; i++ {
		if cursor < i {
			break
		}
		sum += w.squared[cursor-i]
		terms++
	}
	w.integral[cursor] = sum / float64(terms)
}

// ResetBaseline 清空基线估计器，重新预热
func (fc *FilterCascade) ResetBaseline() {
	fc.baseline.Reset()
}
