package qrs

import (
	"math"
)

// MainsDetector 用 Goertzel 算法检测特定工频 (50/60Hz) 的能量
// 比整块 FFT 便宜得多，适合作为工频监控的逐块预筛
type MainsDetector struct {
	sampleRate float64
	targetFreq float64
	coeff      float64
	q1         float64
	q2         float64
	count      int
}

// NewMainsDetector 初始化算法
// coeff = 2 * cos(2 * PI * targetFreq / sampleRate)
func NewMainsDetector(sampleRate, targetFreq float64) *MainsDetector {
	normalizedFreq := targetFreq / sampleRate
	coeff := 2.0 * math.Cos(2.0*math.Pi*normalizedFreq)

	return &MainsDetector{
		sampleRate: sampleRate,
		targetFreq: targetFreq,
		coeff:      coeff,
	}
}

// Reset 重置状态，处理完一个块之后调用
func (g *MainsDetector) Reset() {
	g.q1 = 0
	g.q2 = 0
	g.count = 0
}

// ProcessSample 处理单个采样点
func (g *MainsDetector) ProcessSample(sample float64) {
	q0 := g.coeff*g.q1 - g.q2 + sample
	g.q2 = g.q1
	g.q1 = q0
	g.count++
}

// ProcessBlock 处理一整块信号
func (g *MainsDetector) ProcessBlock(samples []float64) {
	for _, s := range samples {
		g.ProcessSample(s)
	}
}

// Magnitude 计算当前块在目标频率上的能量幅度
// magnitude^2 = q1^2 + q2^2 - q1*q2*coeff
func (g *MainsDetector) Magnitude() float64 {
	magnitudeSquared := g.q1*g.q1 + g.q2*g.q2 - g.q1*g.q2*g.coeff
	if magnitudeSquared < 0 {
		return 0
	}
	return math.Sqrt(magnitudeSquared)
}

// TargetFreq 返回检测的目标频率 (Hz)
func (g *MainsDetector) TargetFreq() float64 {
	return g.targetFreq
}

// BlockLen 返回当前块已累积的样本数
func (g *MainsDetector) BlockLen() int {
	return g.count
}
