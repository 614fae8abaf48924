package qrs

// FilterState 检测器自适应状态的平面快照
// 保存/恢复 RR 统计、阈值和峰值估计，用于遇到一段严重损坏的信号时
// 回滚学习状态，或者在分块输入之间暂停/续传。
// 字段顺序对持久化和跨端交换有意义，不要调整。
//
// 快照不包含信号窗口和样本计数：需要完整回滚的调用方
// 要自行重置这两者 (通常是重建一个检测器再 Restore)。
type FilterState struct {
	RR1    [8]int
	RR2    [8]int
	RRAvg1 int
	RRAvg2 int
	RRLow  int
	RRHigh int
	RRMiss int

	PeakI       float64
	PeakF       float64
	ThresholdI1 float64
	ThresholdI2 float64
	ThresholdF1 float64
	ThresholdF2 float64
	SPKI        float64
	SPKF        float64
	NPKI        float64
	NPKF        float64
}

// Snapshot 导出当前自适应状态的副本
func (d *Detector) Snapshot() FilterState {
	return FilterState{
		RR1:    d.rr1,
		RR2:    d.rr2,
		RRAvg1: d.rravg1,
		RRAvg2: d.rravg2,
		RRLow:  d.rrlow,
		RRHigh: d.rrhigh,
		RRMiss: d.rrmiss,

		PeakI:       d.peakI,
		PeakF:       d.peakF,
		ThresholdI1: d.thresholdI1,
		ThresholdI2: d.thresholdI2,
		ThresholdF1: d.thresholdF1,
		ThresholdF2: d.thresholdF2,
		SPKI:        d.spkI,
		SPKF:        d.spkF,
		NPKI:        d.npkI,
		NPKF:        d.npkF,
	}
}

// Restore 用快照完整替换 RR 统计、阈值和峰值估计
// 不触碰信号窗口、样本计数和 lastQRS
func (d *Detector) Restore(fs FilterState) {
	d.rr1 = fs.RR1
	d.rr2 = fs.RR2
	d.rravg1 = fs.RRAvg1
	d.rravg2 = fs.RRAvg2
	d.rrlow = fs.RRLow
	d.rrhigh = fs.RRHigh
	d.rrmiss = fs.RRMiss

	d.peakI = fs.PeakI
	d.peakF = fs.PeakF
	d.thresholdI1 = fs.ThresholdI1
	d.thresholdI2 = fs.ThresholdI2
	d.thresholdF1 = fs.ThresholdF1
	d.thresholdF2 = fs.ThresholdF2
	d.spkI = fs.SPKI
	d.spkF = fs.SPKF
	d.npkI = fs.NPKI
	d.npkF = fs.NPKF
}

// SaveState 把当前自适应状态存入检测器的内部槽位
func (d *Detector) SaveState() {
	d.saved = d.Snapshot()
}

// LoadState 从内部槽位恢复自适应状态
func (d *Detector) LoadState() {
	d.Restore(d.saved)
}

// ExportSavedState 把内部槽位的内容复制到外部变量
func (d *Detector) ExportSavedState(fs *FilterState) {
	if fs == nil {
		return
	}
	*fs = d.saved
}

// SetSavedState 用外部变量的内容覆盖内部槽位
func (d *Detector) SetSavedState(fs *FilterState) {
	if fs == nil {
		return
	}
	d.saved = *fs
}
