package Filters

import (
	"sort"
)

// ThresholdPrimer 维护一段历史时长的积分信号，用于估算初始检测阈值
// 自适应阈值从零开始学习需要几个心动周期，预先用几秒钟的信号
// 估算出信号峰和噪声底，可以让检测器跳过大部分学习暂态。
type ThresholdPrimer struct {
	buffer     []float64 // 环形缓冲区
	head       int       // 写入位置
	isFull     bool      // 缓冲区是否已满
	downSample int       // 降采样倍率
	counter    int       // 降采样计数器
}

// NewThresholdPrimer 创建实例
// historyDuration: 历史时长 (秒)，建议 5.0 以上以覆盖多个心动周期
// sampleRate: ECG 采样率，如 250
func NewThresholdPrimer(historyDuration float64, sampleRate float64) *ThresholdPrimer {
	// 目标：每秒存储 50 个点，对分析积分包络的分位点足够了
	targetRate := 50.0
	downSample := int(sampleRate / targetRate)
	if downSample < 1 {
		downSample = 1
	}

	bufferSize := int(historyDuration * targetRate)
	if bufferSize < 8 {
		bufferSize = 8
	}

	return &ThresholdPrimer{
		buffer:     make([]float64, bufferSize),
		downSample: downSample,
	}
}

// Push 输入当前的积分信号值
func (p *ThresholdPrimer) Push(value float64) {
	p.counter++
	if p.counter < p.downSample {
		return
	}
	p.counter = 0

	p.buffer[p.head] = value
	p.head = (p.head + 1) % len(p.buffer)
	if p.head == 0 {
		p.isFull = true
	}
}

// Ready 返回历史数据是否足够给出有意义的估计
func (p *ThresholdPrimer) Ready() bool {
	return p.isFull || p.head >= len(p.buffer)/2
}

// Suggest 根据历史数据估算信号峰和噪声底
// 返回值: (信号峰估计 spk, 噪声底估计 npk, 是否有效)
func (p *ThresholdPrimer) Suggest() (float64, float64, bool) {
	var data []float64
	if p.isFull {
		// 必须复制一份数据进行排序，不能打乱原 buffer
		data = make([]float64, len(p.buffer))
		copy(data, p.buffer)
	} else {
		if p.head == 0 {
			return 0, 0, false
		}
		data = make([]float64, p.head)
		copy(data, p.buffer[:p.head])
	}

	sort.Float64s(data)
	count := len(data)

	// 噪声底取低位 50% 处的值
	// ECG 的积分包络大部分时间处于基线水平，中位数是稳健的底噪代表
	noiseFloor := data[count/2]

	// 信号峰取高位 95% 处的值，排除极端的运动伪迹
	signalIndex := int(float64(count) * 0.95)
	if signalIndex >= count {
		signalIndex = count - 1
	}
	signalPeak := data[signalIndex]

	// 峰值和底噪几乎一样说明没有可辨认的 QRS，放弃预置
	if signalPeak < noiseFloor*2.0 {
		return 0, 0, false
	}

	return signalPeak, noiseFloor, true
}
