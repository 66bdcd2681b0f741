package main

import (
	"bufio"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/zoeyai/regionclicker/internal/logger"
	"github.com/zoeyai/regionclicker/pkg/auto/screen"
	"github.com/zoeyai/regionclicker/pkg/capture"
	"github.com/zoeyai/regionclicker/pkg/config"
	"github.com/zoeyai/regionclicker/pkg/executor"
	"github.com/zoeyai/regionclicker/pkg/runner"
	"github.com/zoeyai/regionclicker/pkg/store"
	"github.com/zoeyai/regionclicker/pkg/vision/cv"
	"github.com/zoeyai/regionclicker/pkg/vision/ocr"
)

// 版本信息 (可通过 ldflags 注入)
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "version", "-version", "--version":
		printVersion()
		return
	case "help", "-help", "--help":
		printHelp()
		return
	}

	manager := config.GetDefaultManager()
	cfg, err := manager.Load()
	if err != nil {
		logger.Warn("加载配置失败，使用默认配置: %v", err)
	}

	logger.Default().SetLevel(logger.ParseLevel(cfg.LogLevel))
	if cfg.LogFile != "" {
		if err := logger.Default().SetFile(cfg.LogFile); err != nil {
			logger.Warn("打开日志文件失败: %v", err)
		}
	}

	initOCRConfig(cfg)

	st := store.NewStore(manager.DefaultStoreFile(cfg))
	if err := st.Load(); err != nil {
		logger.Warn("读取存档失败，已重置为空列表: %v", err)
	}

	if err := dispatch(cmd, args, cfg, st); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func dispatch(cmd string, args []string, cfg *config.AppConfig, st *store.Store) error {
	switch cmd {
	case "add":
		return cmdAdd(args, st)
	case "list":
		return cmdList(st)
	case "show":
		return cmdShow(args, st)
	case "annotate":
		return cmdAnnotate(args, st)
	case "remove":
		return cmdRemove(args, st)
	case "cycle":
		return cmdCycle(args, st)
	case "clear":
		return cmdClear(args, st)
	case "run":
		return cmdRun(cfg, st)
	case "run-one":
		return cmdRunOne(args, cfg, st)
	case "locate":
		return cmdLocate(args, st)
	case "watch":
		return cmdWatch(args, cfg, st)
	default:
		printHelp()
		return fmt.Errorf("未知命令: %s", cmd)
	}
}

// cmdAdd 擷取新区域并自动 OCR
func cmdAdd(args []string, st *store.Store) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	region := fs.String("region", "", "显式边界 x,y,w,h (不指定则使用交互式框选)")
	fs.Parse(args)

	var selector capture.Selector
	var err error
	if *region != "" {
		selector, err = capture.ParseBounds(*region)
	} else {
		selector, err = capture.NewInteractiveSelector()
	}
	if err != nil {
		return err
	}

	selection, err := selector.Select()
	if err != nil {
		return err
	}
	if selection == nil {
		fmt.Println("已取消擷取")
		return nil
	}

	recognizer, err := ocr.GetGlobalRecognizer()
	if err != nil {
		return fmt.Errorf("初始化 OCR 失败: %w", err)
	}
	text, err := recognizer.GetAllText(selection.Image)
	if err != nil {
		return fmt.Errorf("OCR 识别失败: %w", err)
	}

	r, err := st.Add(selection.X, selection.Y, selection.Width, selection.Height, selection.Image, text)
	if err != nil {
		return err
	}

	fmt.Printf("已新增区域 #%d: %s @ (%d,%d) %dx%d\n",
		st.Len(), r, r.X, r.Y, r.Width, r.Height)
	return nil
}

// cmdList 列出所有区域
func cmdList(st *store.Store) error {
	regions := st.Regions()
	if len(regions) == 0 {
		fmt.Println("没有已保存的区域")
		return nil
	}

	for i, r := range regions {
		fmt.Printf("#%d  %s @ (%d,%d) %dx%d\n", i+1, r, r.X, r.Y, r.Width, r.Height)
	}
	return nil
}

// cmdShow 导出区域的参考图像和缩略图
func cmdShow(args []string, st *store.Store) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	index := fs.Int("index", 0, "区域编号 (从 1 开始)")
	out := fs.String("out", ".", "输出目录")
	fs.Parse(args)

	r, err := st.Get(*index - 1)
	if err != nil {
		return err
	}

	base := filepath.Join(*out, fmt.Sprintf("region_%d", *index))
	if err := screen.SavePNG(r.Image, base+".png"); err != nil {
		return err
	}

	thumb := screen.Thumbnail(r.Image, 400, 300)
	if err := screen.SavePNG(thumb, base+"_thumb.png"); err != nil {
		return err
	}

	fmt.Printf("OCR 结果: %s\n", r.OCRText)
	fmt.Printf("已导出 %s.png 和 %s_thumb.png\n", base, base)
	return nil
}

// cmdAnnotate 截取全屏并标注所有区域
func cmdAnnotate(args []string, st *store.Store) error {
	fs := flag.NewFlagSet("annotate", flag.ExitOnError)
	out := fs.String("out", "annotated.png", "输出文件")
	fs.Parse(args)

	screenshot, err := screen.CaptureScreen()
	if err != nil {
		return err
	}

	var labels []screen.RegionLabel
	for _, r := range st.Regions() {
		labels = append(labels, screen.RegionLabel{
			X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, Text: r.OCRText,
		})
	}

	annotated := screen.Annotate(screenshot, labels)
	if err := screen.SavePNG(annotated, *out); err != nil {
		return err
	}

	fmt.Printf("已标注 %d 个区域到 %s\n", len(labels), *out)
	return nil
}

// cmdRemove 删除指定区域
func cmdRemove(args []string, st *store.Store) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	index := fs.Int("index", 0, "区域编号 (从 1 开始)")
	fs.Parse(args)

	if err := st.Remove(*index - 1); err != nil {
		return err
	}
	fmt.Printf("已删除区域 #%d\n", *index)
	return nil
}

// cmdCycle 推进区域的点击次数
func cmdCycle(args []string, st *store.Store) error {
	fs := flag.NewFlagSet("cycle", flag.ExitOnError)
	index := fs.Int("index", 0, "区域编号 (从 1 开始)")
	fs.Parse(args)

	count, err := st.CycleClickCount(*index - 1)
	if err != nil {
		return err
	}
	fmt.Printf("区域 #%d 的点击次数已调整为 %d\n", *index, count)
	return nil
}

// cmdClear 清空所有区域（需确认）
func cmdClear(args []string, st *store.Store) error {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	yes := fs.Bool("yes", false, "跳过确认")
	fs.Parse(args)

	if !*yes {
		fmt.Print("此操作将删除所有擷取与纪录，且无法复原。确定要删除吗？[y/N] ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(strings.ToLower(line)) != "y" {
			fmt.Println("已取消")
			return nil
		}
	}

	if err := st.ClearAll(); err != nil {
		return err
	}
	fmt.Println("已删除全部内容并重置。")
	return nil
}

// cmdRun 执行一次完整批次
func cmdRun(cfg *config.AppConfig, st *store.Store) error {
	exec := buildExecutor(cfg, st)

	fmt.Println("开始执行点击...")
	if err := exec.ExecuteAll(); err != nil {
		return err
	}
	fmt.Println("所有点击已完成")
	return nil
}

// cmdRunOne 只执行指定区域
func cmdRunOne(args []string, cfg *config.AppConfig, st *store.Store) error {
	fs := flag.NewFlagSet("run-one", flag.ExitOnError)
	index := fs.Int("index", 0, "区域编号 (从 1 开始)")
	fs.Parse(args)

	exec := buildExecutor(cfg, st)

	fmt.Println("开始执行单点...")
	if err := exec.ExecuteOne(*index - 1); err != nil {
		return err
	}
	fmt.Println("单点执行已完成")
	return nil
}

// cmdLocate 在当前屏幕中查找区域参考图像的位置
func cmdLocate(args []string, st *store.Store) error {
	fs := flag.NewFlagSet("locate", flag.ExitOnError)
	index := fs.Int("index", 0, "区域编号 (从 1 开始)")
	threshold := fs.Float64("threshold", cv.DefaultThreshold, "匹配阈值 (0-1)")
	fs.Parse(args)

	r, err := st.Get(*index - 1)
	if err != nil {
		return err
	}

	screenshot, err := screen.CaptureScreen()
	if err != nil {
		return err
	}

	match, err := cv.FindImage(r.Image, screenshot, *threshold)
	if err != nil {
		return err
	}
	if match == nil {
		fmt.Printf("未在屏幕中找到区域 #%d 的参考图像\n", *index)
		return nil
	}

	cx, cy := match.Center()
	fmt.Printf("区域 #%d 的参考图像位于 (%d,%d)，中心 (%d,%d)，置信度 %.2f\n",
		*index, match.X, match.Y, cx, cy, match.Confidence)
	if match.X != r.X || match.Y != r.Y {
		fmt.Printf("注意: 与记录位置 (%d,%d) 不一致，区域可能已移动\n", r.X, r.Y)
	}
	return nil
}

// cmdWatch 持续执行模式，按 Enter 或 Ctrl+C 结束
func cmdWatch(args []string, cfg *config.AppConfig, st *store.Store) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	interval := fs.Duration("interval", time.Duration(cfg.LoopIntervalMs)*time.Millisecond,
		"两轮批次之间的等待时间")
	fs.Parse(args)

	if st.Len() == 0 {
		fmt.Println("没有已保存的区域，请先使用 add 命令")
		return nil
	}

	exec := buildExecutor(cfg, st)
	run := runner.New(exec, *interval)

	if err := run.Start(); err != nil {
		return err
	}

	fmt.Println("此程序将不断地执行点击。")
	fmt.Println("按 Enter 键 (或 Ctrl+C) 结束！")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	enterCh := make(chan struct{})
	go func() {
		bufio.NewReader(os.Stdin).ReadString('\n')
		close(enterCh)
	}()

	select {
	case <-sigCh:
	case <-enterCh:
	}

	run.Stop()

	// 退出前再刷一次存档
	if err := st.Save(); err != nil {
		logger.Warn("退出时保存存档失败: %v", err)
	}
	return nil
}

// buildExecutor 按配置组装执行器
func buildExecutor(cfg *config.AppConfig, st *store.Store) *executor.Executor {
	opts := []executor.Option{
		executor.WithClickPause(time.Duration(cfg.ClickPauseMs) * time.Millisecond),
		executor.WithMismatchPause(time.Duration(cfg.MismatchPauseMs) * time.Millisecond),
		executor.WithSettleDelay(time.Duration(cfg.SettleDelayMs) * time.Millisecond),
	}

	if cfg.RequireProcess != "" {
		opts = append(opts, executor.WithRequireProcess(cfg.RequireProcess))
	}

	if cfg.DriftLocate {
		opts = append(opts, executor.WithLocator(driftLocator))
	}

	return executor.New(st, opts...)
}

// driftLocator 基于模板匹配的漂移定位
func driftLocator(template, screenshot image.Image) (int, int, float64, bool, error) {
	match, err := cv.FindImage(template, screenshot, cv.DefaultThreshold)
	if err != nil {
		return 0, 0, 0, false, err
	}
	if match == nil {
		return 0, 0, 0, false, nil
	}
	x, y := match.Center()
	return x, y, match.Confidence, true, nil
}

// initOCRConfig 配置中指定了模型路径时覆盖默认探测
func initOCRConfig(cfg *config.AppConfig) {
	if cfg.OnnxRuntimeLibPath == "" && cfg.DetModelPath == "" &&
		cfg.RecModelPath == "" && cfg.DictPath == "" {
		return
	}

	ocrConfig := ocr.DefaultConfig()
	if cfg.OnnxRuntimeLibPath != "" {
		ocrConfig.OnnxRuntimeLibPath = cfg.OnnxRuntimeLibPath
	}
	if cfg.DetModelPath != "" {
		ocrConfig.DetModelPath = cfg.DetModelPath
	}
	if cfg.RecModelPath != "" {
		ocrConfig.RecModelPath = cfg.RecModelPath
	}
	if cfg.DictPath != "" {
		ocrConfig.DictPath = cfg.DictPath
	}

	if err := ocr.InitGlobalRecognizer(ocrConfig); err != nil {
		logger.Warn("按配置初始化 OCR 失败: %v", err)
	}
}

func printVersion() {
	fmt.Printf("regionclicker v%s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git 提交: %s\n", GitCommit)
}

func printHelp() {
	fmt.Println("regionclicker - 多区域 OCR 自动点击器")
	fmt.Println()
	fmt.Println("用法: regionclicker <命令> [参数]")
	fmt.Println()
	fmt.Println("命令:")
	fmt.Println("  add [-region x,y,w,h]     擷取新区域并自动 OCR")
	fmt.Println("  list                      列出所有区域")
	fmt.Println("  show -index N [-out 目录]  导出区域的参考图像和缩略图")
	fmt.Println("  annotate [-out 文件]       截取全屏并标注所有区域")
	fmt.Println("  remove -index N           删除指定区域")
	fmt.Println("  cycle -index N            调整点击次数 (1→2→3→5→10 循环)")
	fmt.Println("  clear [-yes]              删除全部区域")
	fmt.Println("  run                       执行一次完整批次")
	fmt.Println("  run-one -index N          只对指定区域执行点击测试")
	fmt.Println("  locate -index N           在当前屏幕中查找参考图像")
	fmt.Println("  watch [-interval 1s]      持续执行，按 Enter 结束")
	fmt.Println("  version                   显示版本信息")
	fmt.Println()
	fmt.Println("配置文件: ~/.regionclicker/config.json")
	fmt.Println("区域存档: ~/.regionclicker/saved_captures.json")
}
