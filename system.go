package qrs

import (
	"fmt"
	"log"
	"time"

	"qrs/Filters"
)

// ECGSystem 管理整个采集 + 检测系统的生命周期
// 信号来源四选一：串口 ADC 前端、声卡线路输入、记录文件回放、内置模拟器。
// 所有来源最终都汇入同一个检测器实例。
type ECGSystem struct {
	// 配置
	cfg             *Config
	AudioDeviceName string
	AudioDeviceRate int
	SerialPort      string
	BaudRate        int
	SerialGain      float64 // ADC 计数 -> 归一化幅度

	// 组件
	detector  *Detector
	adcClient *ADCClient
	capture   *AudioCapture
	reader    *RecordingReader
	writer    *RecordingWriter
	monitor   *PowerlineMonitor
	simulator *Simulator

	// 校准状态
	calibrated bool
	primerI    *Filters.ThresholdPrimer
	primerF    *Filters.ThresholdPrimer

	// 模式
	replayFile string
	recordFile string
	csvFile    string
	simulate   bool

	stopChan chan struct{}
	doneChan chan struct{}

	// OnBeat 每次确认 R 峰时回调，参数是峰的全局样本索引和当前心率估计
	OnBeat func(index uint64, bpm float64)
}

// NewECGSystem 创建系统实例
func NewECGSystem() *ECGSystem {
	return &ECGSystem{
		cfg:             DefaultConfig(),
		AudioDeviceName: "USB Audio CODEC",
		AudioDeviceRate: 8000,
		SerialPort:      "/dev/ttyUSB0",
		BaudRate:        115200,
		SerialGain:      1.0 / 2048.0, // 12-bit ADC 半量程
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Config 返回系统持有的配置，Start 之前可以修改
func (s *ECGSystem) Config() *Config {
	return s.cfg
}

// EnableRecording 开启信号记录
func (s *ECGSystem) EnableRecording(filename string) {
	s.recordFile = filename
}

// EnableCsvDebug 开启逐样本的滤波级 CSV 输出
func (s *ECGSystem) EnableCsvDebug(filename string) {
	s.csvFile = filename
}

// SetReplayFile 设置回放文件 (设置后将进入回放模式)
func (s *ECGSystem) SetReplayFile(filename string) {
	s.replayFile = filename
}

// EnableSimulator 使用内置模拟器作为信号源
func (s *ECGSystem) EnableSimulator(heartRate float64) {
	s.simulate = true
	s.simulator = NewSimulator(s.cfg.Sampling.FS, heartRate, time.Now().UnixNano())
}

// Start 启动系统
func (s *ECGSystem) Start() error {
	// 1. 确定信号源和采样率
	if s.replayFile != "" {
		var err error
		s.reader, err = NewRecordingReader(s.replayFile)
		if err != nil {
			return fmt.Errorf("failed to open replay file: %v", err)
		}
		s.cfg.Sampling.FS = s.reader.SampleRate
		fmt.Printf("Mode: REPLAY (%s, %dHz)\n", s.replayFile, s.cfg.Sampling.FS)
	} else if s.simulate {
		fmt.Printf("Mode: SIMULATOR (%dHz, %.0f BPM)\n", s.cfg.Sampling.FS, s.simulator.HeartRate)
	} else if s.SerialPort != "" {
		s.adcClient = NewADCClient(s.SerialPort, s.BaudRate)
		fmt.Printf("Connecting to ECG front-end on %s...\n", s.SerialPort)
		if err := s.adcClient.Open(); err != nil {
			log.Printf("Warning: Could not open serial port: %v, falling back to audio input\n", err)
			s.adcClient = nil
		} else {
			fmt.Println("Serial port opened.")
		}
	}

	// 2. 初始化检测器
	detector, err := NewDetector(s.cfg)
	if err != nil {
		return err
	}
	s.detector = detector
	s.detector.OnBeat = s.handleBeat

	if s.csvFile != "" {
		dbg, err := NewCsvStageDebugger(s.csvFile)
		if err != nil {
			return fmt.Errorf("failed to create csv debug file: %v", err)
		}
		s.detector.SetDebugger(dbg)
	}

	// 3. 校准：用前几秒的积分/带通包络估算初始阈值
	fs := float64(s.cfg.Sampling.FS)
	s.primerI = Filters.NewThresholdPrimer(5.0, fs)
	s.primerF = Filters.NewThresholdPrimer(5.0, fs)
	s.detector.SetDebugger(&calibrationTap{system: s, inner: s.detector.debugger})

	// 4. 工频监控
	s.monitor = NewPowerlineMonitor(fs, s.cfg, s.handleInterference)
	s.monitor.Start()

	// 5. 信号记录 (仅在实时模式)
	if s.recordFile != "" && s.replayFile == "" {
		s.writer, err = NewRecordingWriter(s.recordFile, s.cfg.Sampling.FS)
		if err != nil {
			return fmt.Errorf("failed to create recording file: %v", err)
		}
		fmt.Printf("Recording signal to %s\n", s.recordFile)
	}

	// 6. 启动信号流
	switch {
	case s.replayFile != "":
		go s.runReplayLoop()
	case s.simulate:
		go s.runSimulatorLoop()
	case s.adcClient != nil:
		if err := s.adcClient.SetSampleRate(s.cfg.Sampling.FS); err != nil {
			return fmt.Errorf("failed to set sample rate: %v", err)
		}
		if err := s.adcClient.Start(); err != nil {
			return fmt.Errorf("failed to start acquisition: %v", err)
		}
		go s.runSerialLoop()
	default:
		if err := s.startAudioCapture(); err != nil {
			return err
		}
	}

	return nil
}

// Stop 停止系统并释放资源
func (s *ECGSystem) Stop() {
	close(s.stopChan)
	if s.capture != nil {
		s.capture.Stop()
	}
	if s.adcClient != nil {
		_ = s.adcClient.Stop()
		s.adcClient.Close()
	}
	if s.monitor != nil {
		s.monitor.Stop()
	}
	if s.detector != nil {
		s.detector.Drain()
		s.detector.debugger.Close()
	}
	if s.writer != nil {
		fmt.Println("\nSaving recording...")
		s.writer.Close()
		fmt.Println("Recording saved.")
	}
	if s.reader != nil {
		s.reader.Close()
	}
}

// Detector 返回底层检测器，供测试和上层查询状态
func (s *ECGSystem) Detector() *Detector {
	return s.detector
}

// Done 在信号源自然耗尽 (回放到文件末尾) 时关闭
// 调用方收到后负责调用 Stop 完成排空和资源释放
func (s *ECGSystem) Done() <-chan struct{} {
	return s.doneChan
}

// 内部：处理一块归一化后的信号
func (s *ECGSystem) processChunk(samples []float64) {
	if s.writer != nil {
		_ = s.writer.WriteSamples(samples)
	}
	s.monitor.PushSamples(samples)
	s.detector.ProcessAll(samples)
}

// 内部：峰值确认回调
func (s *ECGSystem) handleBeat(index uint64) {
	bpm := s.detector.HeartRate()
	if s.OnBeat != nil {
		s.OnBeat(index, bpm)
		return
	}
	if bpm > 0 {
		fmt.Printf("[BEAT] sample %d  %.0f BPM\n", index, bpm)
	} else {
		fmt.Printf("[BEAT] sample %d\n", index)
	}
}

// 内部：工频告警回调
func (s *ECGSystem) handleInterference(freq, ratio float64) {
	log.Printf("[WARN] powerline interference at %.1f Hz (%.0f%% of band energy), check electrode contact", freq, ratio*100)
}

// 内部：启动声卡采集
func (s *ECGSystem) startAudioCapture() error {
	var err error
	s.capture, err = NewAudioCapture(s.AudioDeviceRate, s.cfg.Sampling.FS, s.AudioDeviceName, s.processChunk)
	if err != nil {
		return fmt.Errorf("failed to init audio capture: %v", err)
	}
	return s.capture.Start()
}

// 内部：串口读取循环
func (s *ECGSystem) runSerialLoop() {
	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		samples, err := s.adcClient.ReadSamples()
		if err != nil {
			// 半帧和超时是常态，安静地继续
			continue
		}
		for i := range samples {
			samples[i] *= s.SerialGain
		}
		s.processChunk(samples)
	}
}

// 内部：回放循环
func (s *ECGSystem) runReplayLoop() {
	chunkSize := 256
	// 计算 ticker 间隔以模拟实时速度
	interval := time.Second * time.Duration(chunkSize) / time.Duration(s.cfg.Sampling.FS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fmt.Println("Replay started...")
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			samples, err := s.reader.ReadSamples(chunkSize)
			if err != nil {
				// 文件读完只通知上层，排空和关闭统一走 Stop，
				// 否则 CSV 调试器和记录文件不会被正确落盘
				fmt.Println("\nEnd of file.")
				close(s.doneChan)
				return
			}
			s.processChunk(samples)
		}
	}
}

// 内部：模拟器循环
func (s *ECGSystem) runSimulatorLoop() {
	chunkSize := 256
	interval := time.Second * time.Duration(chunkSize) / time.Duration(s.cfg.Sampling.FS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fmt.Println("Simulator started...")
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.processChunk(s.simulator.NextBlock(chunkSize))
		}
	}
}

// calibrationTap 校准阶段插在调试器链上的分流器
// 把每个样本的积分/带通包络送进阈值估算器，估算成功后预置检测器阈值
// 并把自己从链上摘除
type calibrationTap struct {
	system *ECGSystem
	inner  StageDebugger
}

func (t *calibrationTap) Record(raw, bandpass, integral, thresholdI, thresholdF float64, isPeak bool) {
	t.inner.Record(raw, bandpass, integral, thresholdI, thresholdF, isPeak)

	s := t.system
	if s.calibrated {
		return
	}
	s.primerI.Push(integral)
	s.primerF.Push(bandpass)

	if !s.primerI.Ready() {
		return
	}
	spkI, npkI, okI := s.primerI.Suggest()
	spkF, npkF, okF := s.primerF.Suggest()
	if okI && okF {
		s.detector.PrimeThresholds(spkI, npkI, spkF, npkF)
		fmt.Printf("[CALIB] thresholds primed: spkI=%.4f npkI=%.4f spkF=%.4f npkF=%.4f\n", spkI, npkI, spkF, npkF)
	} else {
		fmt.Println("[CALIB] no usable QRS envelope found, keeping adaptive warm-up")
	}
	s.calibrated = true
	s.primerI = nil
	s.primerF = nil
	s.detector.SetDebugger(t.inner)
}

func (t *calibrationTap) Close() {
	t.inner.Close()
}
