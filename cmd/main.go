package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"qrs"
)

func main() {
	// 1. 解析命令行参数
	inputFile := flag.String("file", "", "Input wav recording for replay")
	serialPort := flag.String("serial", "", "Serial port of the ECG front-end (e.g. /dev/ttyUSB0)")
	record := flag.String("record", "", "Record incoming signal to the given wav file")
	csvDebug := flag.String("csv", "", "Dump per-sample filter stages to the given csv file")
	simulate := flag.Bool("sim", false, "Use the built-in ECG simulator as signal source")
	simRate := flag.Float64("bpm", 72, "Simulator heart rate (BPM)")
	flag.Parse()

	// 2. 初始化系统
	system := qrs.NewECGSystem()
	if *inputFile != "" {
		system.SetReplayFile(*inputFile)
	}
	if *serialPort != "" {
		system.SerialPort = *serialPort
	} else if *inputFile == "" && !*simulate {
		// 没有明确指定信号源时不要默认去碰串口
		system.SerialPort = ""
	}
	if *record != "" {
		system.EnableRecording(*record)
	}
	if *csvDebug != "" {
		system.EnableCsvDebug(*csvDebug)
	}
	if *simulate {
		system.EnableSimulator(*simRate)
	}

	// 3. 启动系统
	if err := system.Start(); err != nil {
		log.Fatalf("System start failed: %v", err)
	}
	defer system.Stop()

	// 4. 阻塞等待退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	fmt.Println("System Ready. (Ctrl+C to quit)")
	select {
	case <-sigChan:
		fmt.Println("\nShutting down...")
	case <-system.Done():
		// 回放到文件末尾，deferred Stop 负责排空和落盘
	}
}
