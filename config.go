package qrs

import "time"

// 队列溢出策略
const (
	// OverflowOverwrite 覆盖最旧的条目 (嵌入式场景的有界内存模式)
	OverflowOverwrite = iota
	// OverflowReject 拒绝新条目并计数，分类流本身不受影响
	OverflowReject
)

// Config 结构体用于集中管理检测器的所有可调参数和阈值
// 构造后不可变：所有字段在 NewDetector 时校验并固定
type Config struct {
	// --- 采样与缓冲 (Sampling) ---
	Sampling struct {
		FS           int // 采样率 (Hz)。MIT-BIH 为 360，嵌入式 DAQ 常用 250
		BuffSize     int // 信号缓冲区长度 (采样点数)。必须大于 1.66 倍的预期 RR 间期，否则峰值可能在确认前被挤出窗口
		WindowSize   int // 积分窗口长度 (采样点数)。论文建议 150ms，即 FS*0.15 左右
		MovingAvgLen int // 基线漂移滑动平均窗口长度。R 峰很窄，5 个点足够
		FilterDelay  int // 滤波器链引入的群延迟 (采样点数)。延迟输出流会丢弃最前面的这些样本以对齐原始信号，设 0 则保留
	}

	// --- 检测逻辑 (Detector) ---
	Detector struct {
		HardRefractorySec float64 // 硬不应期 (秒)。距上一个 R 峰小于此时长的候选一律按噪声处理 (默认 0.20)
		SoftRefractorySec float64 // 软不应期 / T 波区 (秒)。该区间内的候选必须通过斜率检查 (默认 0.36)
	}

	// --- 峰值输出队列 (Queue) ---
	Queue struct {
		Capacity int // 队列容量 (条目数)
		Policy   int // 溢出策略: OverflowOverwrite 或 OverflowReject
	}

	// --- 工频干扰监控 (PowerlineMonitor) ---
	// 负责在后台分析原始信号频谱，发现 50/60Hz 市电干扰时回调告警
	Monitor struct {
		Enabled        bool          // 是否启用后台频谱监控
		UpdateInterval time.Duration // 分析周期 (例如 2s)
		FFTSize        int           // FFT 点数。ECG 采样率低，512 已经足够分辨 50/60Hz
		MainsFreqs     []float64     // 待检测的工频频率列表 (Hz)
		RequiredRatio  float64       // 告警所需的 工频能量/整体能量 比值 (线性值)
	}
}

// DefaultConfig 返回嵌入式参考实现使用的默认参数
func DefaultConfig() *Config {
	cfg := &Config{}

	// --- 采样与缓冲 ---
	cfg.Sampling.FS = 250
	cfg.Sampling.BuffSize = 415 // > 1.66s @ 250Hz
	cfg.Sampling.WindowSize = 40
	cfg.Sampling.MovingAvgLen = 5
	cfg.Sampling.FilterDelay = 14

	// --- 检测逻辑 ---
	cfg.Detector.HardRefractorySec = 0.20
	cfg.Detector.SoftRefractorySec = 0.36

	// --- 峰值输出队列 ---
	cfg.Queue.Capacity = 64
	cfg.Queue.Policy = OverflowOverwrite

	// --- 工频干扰监控 ---
	cfg.Monitor.Enabled = true
	cfg.Monitor.UpdateInterval = 2 * time.Second
	cfg.Monitor.FFTSize = 512
	cfg.Monitor.MainsFreqs = []float64{50.0, 60.0}
	cfg.Monitor.RequiredRatio = 0.25

	return cfg
}
