package qrs

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// SampleCallback 定义采样数据回调函数类型
type SampleCallback func(samples []float64)

// AudioCapture 通过声卡线路输入采集 ECG 信号
// 面向把 ECG 前端接在音频口上的便携方案。声卡最低也要 8kHz 采样，
// 远高于检测器需要的 250Hz，所以这里按整数因子抽取：
// 每 decim 个点做一次平均再输出，顺带起到抗混叠低通的作用。
type AudioCapture struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	SampleRate int // 设备采样率 (Hz)
	TargetRate int // 输出采样率 (Hz)
	Callback   SampleCallback

	decim    int
	accum    float64
	accumLen int
}

// NewAudioCapture 创建新的音频采集实例
// deviceRate 必须是 targetRate 的整数倍
func NewAudioCapture(deviceRate, targetRate int, targetDeviceName string, callback SampleCallback) (*AudioCapture, error) {
	if targetRate <= 0 || deviceRate%targetRate != 0 {
		return nil, fmt.Errorf("device rate %d is not an integer multiple of target rate %d", deviceRate, targetRate)
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init malgo context: %v", err)
	}

	ac := &AudioCapture{
		ctx:        ctx,
		SampleRate: deviceRate,
		TargetRate: targetRate,
		Callback:   callback,
		decim:      deviceRate / targetRate,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(deviceRate)
	deviceConfig.Alsa.NoMMap = 1

	if targetDeviceName != "" {
		infos, err := ctx.Devices(malgo.Capture)
		if err == nil {
			for _, info := range infos {
				if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(targetDeviceName)) {
					deviceConfig.Capture.DeviceID = info.ID.Pointer()
					fmt.Printf("Selected Audio Device: %s\n", info.Name())
					break
				}
			}
		}
	}

	onRecvFrames := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		if ac.Callback == nil {
			return
		}
		if len(pInputSamples) == 0 {
			return
		}
		samples := unsafe.Slice((*float32)(unsafe.Pointer(&pInputSamples[0])), int(framecount))
		ac.decimate(samples)
	}

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: onRecvFrames,
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to init device: %v", err)
	}
	ac.device = device

	fmt.Printf("Audio Device Initialized. Rate: %d Hz -> %d Hz (decim %d)\n",
		device.SampleRate(), targetRate, ac.decim)

	return ac, nil
}

// decimate 把设备速率的数据块平均抽取到目标速率后回调
// 累加器跨数据块保持，块边界不丢样本
func (ac *AudioCapture) decimate(samples []float32) {
	out := make([]float64, 0, len(samples)/ac.decim+1)
	for _, s := range samples {
		ac.accum += float64(s)
		ac.accumLen++
		if ac.accumLen == ac.decim {
			out = append(out, ac.accum/float64(ac.decim))
			ac.accum = 0
			ac.accumLen = 0
		}
	}
	if len(out) > 0 {
		ac.Callback(out)
	}
}

// Start 启动采集
func (ac *AudioCapture) Start() error {
	if ac.device == nil {
		return fmt.Errorf("device not initialized")
	}
	return ac.device.Start()
}

// Stop 停止采集并释放资源
func (ac *AudioCapture) Stop() {
	if ac.device != nil {
		ac.device.Uninit()
		ac.device = nil
	}
	if ac.ctx != nil {
		_ = ac.ctx.Uninit()
		ac.ctx.Free()
		ac.ctx = nil
	}
}
