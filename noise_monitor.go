package qrs

import (
	"context"
	"fmt"
	"time"
)

// PowerlineMonitor 在后台异步运行，使用 Welch 法计算原始 ECG 信号的平均功率谱，
// 检测 50/60Hz 市电干扰。电极接触不良或屏蔽失效时工频能量会显著上升，
// 此时检测阈值会被污染，监控器通过回调提醒上层提示用户检查导联。
type PowerlineMonitor struct {
	// 配置
	cfg *Config // 引用全局配置

	// 配置 (从 cfg 中读取)
	sampleRate     float64
	fftSize        int
	overlap        int
	updateInterval time.Duration

	// 通信
	sampleInChan   chan []float64                    // 从采样线程接收原始信号
	OnInterference func(freq float64, ratio float64) // 回调函数，通知系统工频超标

	// 内部状态
	analyzer   *SpectrumAnalyzer // Welch 谱和频段峰值搜索
	screeners  []*MainsDetector  // Goertzel 预筛，每个待检工频一个
	ringBuffer []float64         // 环形缓冲区，存储足够进行 Welch 计算的数据
	ringPos    int               // 当前写入位置
	ctx        context.Context
	cancel     context.CancelFunc

	// 告警抑制状态
	alerted bool // 上一个周期是否已告警，避免每个周期刷屏
}

// NewPowerlineMonitor 创建实例
func NewPowerlineMonitor(sampleRate float64, cfg *Config, onInterference func(freq, ratio float64)) *PowerlineMonitor {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	fftSize := cfg.Monitor.FFTSize
	overlap := fftSize / 2
	numSegments := 4
	bufferSize := fftSize + (numSegments-1)*(fftSize-overlap)

	screeners := make([]*MainsDetector, 0, len(cfg.Monitor.MainsFreqs))
	for _, f := range cfg.Monitor.MainsFreqs {
		screeners = append(screeners, NewMainsDetector(sampleRate, f))
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &PowerlineMonitor{
		cfg:            cfg,
		sampleRate:     sampleRate,
		fftSize:        fftSize,
		overlap:        overlap,
		updateInterval: cfg.Monitor.UpdateInterval,
		sampleInChan:   make(chan []float64, 100),
		OnInterference: onInterference,
		analyzer:       NewSpectrumAnalyzer(sampleRate, fftSize),
		screeners:      screeners,
		ringBuffer:     make([]float64, bufferSize),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start 启动后台监控 goroutine
func (pm *PowerlineMonitor) Start() {
	if pm.cfg.Monitor.Enabled {
		go pm.run()
	}
}

// Stop 停止监控
func (pm *PowerlineMonitor) Stop() {
	pm.cancel()
}

// PushSamples 采样线程调用此方法，将原始信号推送到监控器
func (pm *PowerlineMonitor) PushSamples(samples []float64) {
	if !pm.cfg.Monitor.Enabled {
		return
	}
	select {
	case pm.sampleInChan <- samples:
		// 数据成功发送
	default:
		// 缓冲区已满，丢弃数据以避免阻塞采样线程
	}
}

// run 是后台运行的主循环
func (pm *PowerlineMonitor) run() {
	ticker := time.NewTicker(pm.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-pm.ctx.Done():
			return // 收到停止信号
		case samples := <-pm.sampleInChan:
			// 将新数据写入环形缓冲区
			for _, s := range samples {
				pm.ringBuffer[pm.ringPos] = s
				pm.ringPos = (pm.ringPos + 1) % len(pm.ringBuffer)
			}
		case <-ticker.C:
			pm.analyze()
		}
	}
}

// analyze 执行一轮工频检测
// 先用 Goertzel 对每个目标工频做廉价预筛，任一超过总能量比例时
// 再用 Welch 平均谱复核真实的峰值频率和能量占比
func (pm *PowerlineMonitor) analyze() {
	worstFreq, worstRatio := pm.screenGoertzel()
	if worstRatio < pm.cfg.Monitor.RequiredRatio {
		pm.alerted = false
		return
	}

	freq, ratio := pm.confirmWelch()
	if ratio < pm.cfg.Monitor.RequiredRatio {
		pm.alerted = false
		return
	}

	// Welch 复核确认的峰值不在任何目标工频 +-2Hz 内时视为其它噪声
	matched := false
	for _, f := range pm.cfg.Monitor.MainsFreqs {
		if freq > f-2.0 && freq < f+2.0 {
			matched = true
			break
		}
	}
	if !matched {
		pm.alerted = false
		return
	}

	if !pm.alerted {
		fmt.Printf("[MONITOR] Powerline interference: %.1f Hz (%.0f%% of band energy, screen %.1f Hz)\n",
			freq, ratio*100, worstFreq)
	}
	pm.alerted = true

	if pm.OnInterference != nil {
		pm.OnInterference(freq, ratio)
	}
}

// screenGoertzel 返回占比最高的目标工频及其能量占比
func (pm *PowerlineMonitor) screenGoertzel() (float64, float64) {
	total := 0.0
	for _, s := range pm.ringBuffer {
		total += s * s
	}
	if total < 1e-12 {
		return 0, 0
	}

	worstFreq := 0.0
	worstRatio := 0.0
	for _, g := range pm.screeners {
		g.Reset()
		g.ProcessBlock(pm.ringBuffer)
		mag := g.Magnitude()
		// Goertzel 的幅度与块长相关，归一化成能量占比
		ratio := mag * mag / (total * float64(len(pm.ringBuffer)))
		if ratio > worstRatio {
			worstRatio = ratio
			worstFreq = g.TargetFreq()
		}
	}
	return worstFreq, worstRatio
}

// confirmWelch 用 Welch 平均谱复核
// 工频搜索范围固定在 45~65Hz，避开 QRS 自身的低频能量
// 返回: 频段内的峰值频率, 峰值能量占整个频段能量的比例
func (pm *PowerlineMonitor) confirmWelch() (float64, float64) {
	avgSpectrum := pm.analyzer.WelchSpectrum(pm.ringBuffer, pm.overlap)
	if avgSpectrum == nil {
		return 0, 0
	}
	return pm.analyzer.BandPeak(avgSpectrum, 45.0, 65.0)
}
