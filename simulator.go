package qrs

import (
	"math"
	"math/rand"
)

// Simulator 合成 ECG 信号发生器
// 每个心动周期由三个高斯波组成 (P 波、QRS 波群、T 波)，叠加呼吸引起的
// 基线漂移和少量白噪声。不追求生理学上的精确，只求让检测链有东西可测：
// 波形窄而高的 QRS、宽而矮的 T 波、固定可调的心率。
type Simulator struct {
	FS        int     // 采样率 (Hz)
	HeartRate float64 // 心率 (BPM)
	Amplitude float64 // QRS 峰值幅度
	NoiseAmp  float64 // 白噪声幅度
	WanderAmp float64 // 基线漂移幅度

	rng *rand.Rand
	pos int // 当前采样位置
}

// NewSimulator 创建发生器，seed 固定时输出完全可复现
func NewSimulator(fs int, heartRate float64, seed int64) *Simulator {
	return &Simulator{
		FS:        fs,
		HeartRate: heartRate,
		Amplitude: 1.0,
		NoiseAmp:  0.02,
		WanderAmp: 0.08,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// gauss 以 center 为中心、width 为标准差的高斯波 (单位: 秒)
func gauss(t, center, width, amp float64) float64 {
	d := (t - center) / width
	return amp * math.Exp(-0.5*d*d)
}

// Next 生成下一个采样点
func (s *Simulator) Next() float64 {
	beatPeriod := 60.0 / s.HeartRate
	t := float64(s.pos) / float64(s.FS)
	s.pos++

	// 周期内相位 (秒)
	phase := math.Mod(t, beatPeriod)

	// P 波: QRS 前 160ms，宽 25ms，幅度 15%
	// QRS:  周期中点，宽 10ms (窄尖峰)
	// T 波: QRS 后 200ms，宽 60ms，幅度 30%
	qrsCenter := beatPeriod / 2
	v := gauss(phase, qrsCenter-0.16, 0.025, 0.15*s.Amplitude)
	v += gauss(phase, qrsCenter, 0.010, s.Amplitude)
	v += gauss(phase, qrsCenter+0.20, 0.060, 0.30*s.Amplitude)

	// 呼吸基线漂移 (0.25Hz) + 白噪声
	v += s.WanderAmp * math.Sin(2*math.Pi*0.25*t)
	v += s.NoiseAmp * (s.rng.Float64()*2 - 1)

	return v
}

// NextBlock 生成 n 个采样点
func (s *Simulator) NextBlock(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = s.Next()
	}
	return out
}

// AddMains 在后续输出上叠加工频干扰，用于演示监控告警
// 设 0 关闭。叠加在 Next 的返回值之外实现太绕，直接并进噪声幅度里简单些，
// 所以这里返回一个包装后的取样函数
func (s *Simulator) AddMains(freq, amp float64) func() float64 {
	return func() float64 {
		t := float64(s.pos) / float64(s.FS)
		return s.Next() + amp*math.Sin(2*math.Pi*freq*t)
	}
}
