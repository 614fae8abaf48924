package qrs

import (
	"fmt"
)

// Detector 实时 QRS (R 峰) 检测器，Pan-Tompkins 算法的流式实现
// 每次调用处理一个样本：级联滤波 → 双域自适应阈值判定 → RR 间期统计，
// 长时间无峰时触发回溯搜索。所有可变状态由实例独占，
// 多导联/多病人场景各建一个实例即可，实例之间零共享。
//
// 峰值确认的依据：积分信号和带通信号必须同时超过各自的一号阈值，
// 并通过 200ms 硬不应期和 360ms T 波区的斜率检查。
// 被丢弃的候选用于更新噪声估计，阈值随之自适应下调。
type Detector struct {
	cfg     *Config
	window  *SampleWindow
	cascade *FilterCascade
	queue   *PeakQueue

	// 样本计数。sample 是已处理的样本总数，
	// lastQRS 是最近一次确认 R 峰时的 sample 值
	sample  uint64
	lastQRS uint64

	// lastSlope 记录最近一次确认 R 峰时的平方斜率局部最大值
	lastSlope float64

	// RR 间期统计
	// rr1 保存最近 8 个 RR 间期；rr2 只保存落在 [rrlow, rrhigh] 内的
	rr1     [8]int
	rr2     [8]int
	rravg1  int
	rravg2  int
	rrlow   int
	rrhigh  int
	rrmiss  int
	regular bool

	// 自适应阈值状态
	// _i 后缀对应积分信号域，_f 后缀对应带通 (滤波) 信号域
	// peak 是候选锁存值，spk/npk 是信号峰/噪声峰的滑动估计
	peakI, peakF               float64
	thresholdI1, thresholdI2   float64
	thresholdF1, thresholdF2   float64
	spkI, spkF                 float64
	npkI, npkF                 float64

	// 不应期 (采样点数)
	hardRefractory int
	softRefractory int

	// 状态快照的内部槽位
	saved FilterState

	// OnOutput 延迟输出回调：样本离开窗口时其分类结果最终化
	// (回溯搜索可能在此之前改写它)。前 FilterDelay 个样本被丢弃以对齐滤波延迟
	OnOutput func(index uint64, isPeak bool)

	// OnBeat 峰值确认回调，参数是 R 峰的全局样本索引 (从 0 开始)
	OnBeat func(index uint64)

	// 窗口尾部是否已经被 Drain 交付过，新样本进来时清除
	drained bool

	debugger StageDebugger
}

// NewDetector 创建检测器实例
// 配置错误在这里拒绝，而不是留到流处理中途才暴露
func NewDetector(cfg *Config) (*Detector, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	fs := cfg.Sampling.FS
	if fs <= 0 {
		return nil, fmt.Errorf("invalid sampling frequency: %d", fs)
	}

	// 缓冲必须装得下 1.66 倍的预期 RR 间期 (约 1 秒)，
	// 否则合法的峰值可能在回溯确认之前就被挤出窗口
	minBuff := int(1.66 * float64(fs))
	if cfg.Sampling.BuffSize < minBuff {
		return nil, fmt.Errorf("buffer size %d too small: need at least %d (1.66*FS)", cfg.Sampling.BuffSize, minBuff)
	}
	if cfg.Sampling.WindowSize < 1 || cfg.Sampling.WindowSize > cfg.Sampling.BuffSize {
		return nil, fmt.Errorf("integration window %d out of range [1, %d]", cfg.Sampling.WindowSize, cfg.Sampling.BuffSize)
	}
	if cfg.Sampling.MovingAvgLen < 1 {
		return nil, fmt.Errorf("moving average length must be >= 1, got %d", cfg.Sampling.MovingAvgLen)
	}
	if cfg.Sampling.FilterDelay < 0 {
		return nil, fmt.Errorf("filter delay must be >= 0, got %d", cfg.Sampling.FilterDelay)
	}
	if cfg.Queue.Capacity < 1 {
		return nil, fmt.Errorf("queue capacity must be >= 1, got %d", cfg.Queue.Capacity)
	}
	if cfg.Detector.HardRefractorySec <= 0 || cfg.Detector.SoftRefractorySec <= cfg.Detector.HardRefractorySec {
		return nil, fmt.Errorf("refractory periods invalid: hard=%v soft=%v", cfg.Detector.HardRefractorySec, cfg.Detector.SoftRefractorySec)
	}

	return &Detector{
		cfg:            cfg,
		window:         NewSampleWindow(cfg.Sampling.BuffSize),
		cascade:        NewFilterCascade(cfg.Sampling.MovingAvgLen, cfg.Sampling.WindowSize),
		queue:          NewPeakQueue(cfg.Queue.Capacity, cfg.Queue.Policy),
		regular:        true,
		hardRefractory: int(cfg.Detector.HardRefractorySec * float64(fs)),
		softRefractory: int(cfg.Detector.SoftRefractorySec * float64(fs)),
		debugger:       &NoOpDebugger{},
	}, nil
}

// SetDebugger 挂接各级滤波信号的调试记录器，nil 恢复为空实现
func (d *Detector) SetDebugger(dbg StageDebugger) {
	if dbg == nil {
		dbg = &NoOpDebugger{}
	}
	d.debugger = dbg
}

// ProcessOne 处理一个原始样本，返回本步是否确认了 R 峰
// (回溯搜索确认的峰位置在过去，但同样在本步返回 true，
// 精确索引以 Peaks 队列和 OnBeat 回调为准)。
// 输入哨兵值 NoSample 表示流结束，不做任何处理，调用方随后应 Drain
func (d *Detector) ProcessOne(raw float64) bool {
	if raw == NoSample {
		return false
	}
	d.drained = false

	// 窗口即将移位时，先把最旧样本的分类结果最终化
	if d.window.Full() {
		d.finalizeOldest()
	}

	x := d.cascade.PrepareRaw(raw)
	cursor := d.window.Push(x)
	d.sample++

	d.cascade.Apply(d.window, cursor)

	qrs := d.classify(cursor)

	d.debugger.Record(raw, d.window.highpass[cursor], d.window.integral[cursor], d.thresholdI1, d.thresholdF1, qrs)
	return qrs
}

// ProcessAll 批量处理一段样本，遇到 NoSample 哨兵时排空缓冲输出并停止
// 这只是 ProcessOne 的循环包装，不是独立算法
func (d *Detector) ProcessAll(samples []float64) {
	for _, s := range samples {
		if s == NoSample {
			d.Drain()
			return
		}
		d.ProcessOne(s)
	}
}

// Drain 流结束时调用：把窗口里尚未最终化的分类结果全部交给 OnOutput
// 重复调用是空操作，窗口尾部不会被交付两次；处理新样本后重新生效
func (d *Detector) Drain() {
	if d.drained {
		return
	}
	d.drained = true
	if d.OnOutput == nil {
		return
	}
	length := d.window.Len()
	for i := 0; i < length; i++ {
		index := d.sample - uint64(length) + uint64(i)
		if index < uint64(d.cfg.Sampling.FilterDelay) {
			continue
		}
		d.OnOutput(index, d.window.output[i])
	}
}

// classify 对游标位置执行自适应阈值判定，必要时触发回溯搜索
func (d *Detector) classify(cursor int) bool {
	w := d.window
	integral := w.integral[cursor]
	highpass := w.highpass[cursor]

	qrs := false

	// 任一信号超过一号阈值就锁存候选峰值
	if integral >= d.thresholdI1 || highpass >= d.thresholdF1 {
		d.peakI = integral
		d.peakF = highpass
	}

	// 两个信号同时超过一号阈值才是峰值候选
	if integral >= d.thresholdI1 && highpass >= d.thresholdF1 {
		if d.sample > d.lastQRS+uint64(d.hardRefractory) {
			if d.sample <= d.lastQRS+uint64(d.softRefractory) {
				// T 波区：平方斜率是 M 形的，取附近 10 个样本的最大值，
				// 必须超过上一个 R 峰斜率的一半才确认
				slope := d.localSlopeMax(cursor)
				if slope <= d.lastSlope/2 {
					qrs = false
				} else {
					d.confirmDirect(cursor, slope)
					qrs = true
				}
			} else {
				// 超出 360ms：两个阈值都满足且不在任何不应期内，确认
				slope := d.localSlopeMax(cursor)
				d.confirmDirect(cursor, slope)
				qrs = true
			}
		} else {
			// 200ms 硬不应期内的候选一定是噪声 (T 波)，只更新噪声估计
			d.noiseUpdate(integral, highpass)
			w.output[cursor] = false
			return false
		}
	}

	if !qrs {
		// 距离上一个峰太久：降低到二号阈值做回溯搜索
		elapsed := d.sample - d.lastQRS
		if elapsed > uint64(d.rrmiss) && elapsed > uint64(d.hardRefractory) {
			if d.backSearch(cursor, elapsed) {
				w.output[cursor] = false
				return true
			}
		}

		// 确认没有峰。之前超过任一阈值的样本按噪声峰折算，
		// 这是长时间无峰时阈值向下衰减的唯一通道
		if integral >= d.thresholdI1 || highpass >= d.thresholdF1 {
			d.noiseUpdate(integral, highpass)
		}
	}

	w.output[cursor] = qrs
	return qrs
}

// confirmDirect 在游标位置直接确认 R 峰：信号峰估计按 0.125/0.875 融合
func (d *Detector) confirmDirect(cursor int, slope float64) {
	d.spkI = 0.125*d.peakI + 0.875*d.spkI
	d.spkF = 0.125*d.peakF + 0.875*d.spkF
	d.recomputeThresholds()
	d.lastSlope = slope

	interval := int(d.sample - d.lastQRS)
	d.lastQRS = d.sample
	d.updateRR(interval)

	d.recordPeak(d.sample - 1)
}

// backSearch 回溯搜索：用二号阈值重新扫描窗口尾部，找回漏掉的峰
// 扫描范围是 [cursor-elapsed+硬不应期, cursor)，首个命中即停，
// 不会继续寻找更晚的或者更好的匹配
func (d *Detector) backSearch(cursor int, elapsed uint64) bool {
	w := d.window

	start := 0
	if from := int64(cursor) - int64(elapsed) + int64(d.hardRefractory); from > 0 {
		start = int(from)
	}

	// 扫描索引和斜率窗口索引必须是两个变量，
	// 原型实现里复用同一个迭代变量导致过一类难查的混叠问题
	for scan := start; scan < cursor; scan++ {
		if w.integral[scan] <= d.thresholdI2 || w.highpass[scan] <= d.thresholdF2 {
			continue
		}

		slope := d.localSlopeMax(scan)
		candidate := d.sample - uint64(cursor-scan)

		// 接受条件：斜率足够，或者候选已经远离上一个峰的 T 波区。
		// 斜率不足且仍在 T 波区内的命中跳过，继续向后扫
		inTWaveZone := candidate <= d.lastQRS+uint64(d.softRefractory)
		if slope < d.lastSlope/2 && inTWaveZone {
			continue
		}

		// 回溯找回的峰置信度较低，信号峰估计用更快的 0.25/0.75 融合
		d.peakI = w.integral[scan]
		d.peakF = w.highpass[scan]
		d.spkI = 0.25*d.peakI + 0.75*d.spkI
		d.spkF = 0.25*d.peakF + 0.75*d.spkF
		d.recomputeThresholds()
		d.lastSlope = slope

		interval := int(candidate - d.lastQRS)
		d.lastQRS = candidate
		d.updateRR(interval)

		// 改写窗口内尚未最终化的分类结果，已出窗的输出不受影响
		w.output[scan] = true
		d.recordPeak(candidate - 1)
		return true
	}
	return false
}

// updateRR 确认峰之后更新 RR 间期统计和规律性标志
// 间期落在 [rrlow, rrhigh] 内才会进入 rr2 并重新推导边界；
// 心律从规律转为不规律的瞬间把两个一号阈值减半 (只减一次)
func (d *Detector) updateRR(interval int) {
	d.rravg1 = 0
	for i := 0; i < 7; i++ {
		d.rr1[i] = d.rr1[i+1]
		d.rravg1 += d.rr1[i]
	}
	d.rr1[7] = interval
	d.rravg1 += d.rr1[7]
	d.rravg1 = int(float64(d.rravg1) * 0.125)

	if d.rr1[7] >= d.rrlow && d.rr1[7] <= d.rrhigh {
		d.rravg2 = 0
		for i := 0; i < 7; i++ {
			d.rr2[i] = d.rr2[i+1]
			d.rravg2 += d.rr2[i]
		}
		d.rr2[7] = d.rr1[7]
		d.rravg2 += d.rr2[7]
		d.rravg2 = int(float64(d.rravg2) * 0.125)
		d.rrlow = int(0.92 * float64(d.rravg2))
		d.rrhigh = int(1.16 * float64(d.rravg2))
		d.rrmiss = int(1.66 * float64(d.rravg2))
	}

	prevRegular := d.regular
	d.regular = d.rravg1 == d.rravg2
	if !d.regular && prevRegular {
		d.thresholdI1 /= 2
		d.thresholdF1 /= 2
	}
}

// noiseUpdate 把当前样本按噪声峰折算，更新两个域的噪声估计和阈值
func (d *Detector) noiseUpdate(integral, highpass float64) {
	d.peakI = integral
	d.npkI = 0.125*d.peakI + 0.875*d.npkI
	d.peakF = highpass
	d.npkF = 0.125*d.peakF + 0.875*d.npkF
	d.recomputeThresholds()
}

// recomputeThresholds 阈值重算，所有改变阈值的路径都走这里
// threshold1 = npk + 0.25*(spk-npk)，threshold2 恒为 threshold1 的一半
func (d *Detector) recomputeThresholds() {
	d.thresholdI1 = d.npkI + 0.25*(d.spkI-d.npkI)
	d.thresholdI2 = 0.5 * d.thresholdI1
	d.thresholdF1 = d.npkF + 0.25*(d.spkF-d.npkF)
	d.thresholdF2 = 0.5 * d.thresholdF1
}

// localSlopeMax 取平方信号在 [pos-10, pos] 范围内的最大值
func (d *Detector) localSlopeMax(pos int) float64 {
	from := pos - 10
	if from < 0 {
		from = 0
	}
	max := 0.0
	for j := from; j <= pos; j++ {
		if d.window.squared[j] > max {
			max = d.window.squared[j]
		}
	}
	return max
}

// recordPeak 把确认峰的全局索引写入输出队列并触发回调
func (d *Detector) recordPeak(index uint64) {
	d.queue.Push(index)
	if d.OnBeat != nil {
		d.OnBeat(index)
	}
}

// finalizeOldest 窗口移位前把槽位 0 的分类结果交给 OnOutput
func (d *Detector) finalizeOldest() {
	if d.OnOutput == nil {
		return
	}
	index := d.sample - uint64(d.window.Cap())
	if index < uint64(d.cfg.Sampling.FilterDelay) {
		return
	}
	d.OnOutput(index, d.window.output[0])
}

// PrimeThresholds 用校准阶段估算出的信号峰/噪声峰预置阈值，
// 让检测器跳过大部分从零开始的学习暂态
func (d *Detector) PrimeThresholds(spkI, npkI, spkF, npkF float64) {
	d.spkI = spkI
	d.npkI = npkI
	d.spkF = spkF
	d.npkF = npkF
	d.recomputeThresholds()
}

// Sample 返回已处理的样本总数
func (d *Detector) Sample() uint64 {
	return d.sample
}

// Regular 返回当前心律是否规律 (rravg1 == rravg2)
func (d *Detector) Regular() bool {
	return d.regular
}

// AverageRR 返回最近 8 个 RR 间期的平均值 (采样点数)，尚未学到时为 0
func (d *Detector) AverageRR() int {
	return d.rravg1
}

// HeartRate 返回 rravg1 折算的心率估计 (BPM)，尚未学到时为 0
func (d *Detector) HeartRate() float64 {
	if d.rravg1 <= 0 {
		return 0
	}
	return 60.0 * float64(d.cfg.Sampling.FS) / float64(d.rravg1)
}

// Queue 返回峰值输出队列
func (d *Detector) Queue() *PeakQueue {
	return d.queue
}

// DroppedPeaks 返回拒绝策略下被队列丢弃的峰值总数
func (d *Detector) DroppedPeaks() uint64 {
	return d.queue.Dropped()
}
