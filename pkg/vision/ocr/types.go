// Package ocr 提供基于 PaddleOCR 的文字识别功能
package ocr

import (
	"os"
	"path/filepath"
	"runtime"
)

// OcrResult OCR 识别结果
type OcrResult struct {
	// Text 识别的文字内容
	Text string `json:"text"`
	// Confidence 识别置信度 (0-1)
	Confidence float64 `json:"confidence"`
}

// Config OCR 配置
type Config struct {
	// OnnxRuntimeLibPath ONNX Runtime 动态库路径
	OnnxRuntimeLibPath string
	// DetModelPath 检测模型路径
	DetModelPath string
	// RecModelPath 识别模型路径
	RecModelPath string
	// DictPath 字典文件路径
	DictPath string
}

// DefaultConfig 默认配置，按约定目录自动探测模型文件
func DefaultConfig() Config {
	return Config{
		OnnxRuntimeLibPath: findOnnxRuntimeLib(),
		DetModelPath:       findModelFile("det.onnx"),
		RecModelPath:       findModelFile("rec.onnx"),
		DictPath:           findModelFile("dict.txt"),
	}
}

// searchDirs 模型搜索目录：可执行文件目录、用户配置目录、当前目录
func searchDirs() []string {
	var dirs []string

	if execPath, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
			execPath = resolved
		}
		dirs = append(dirs, filepath.Dir(execPath))
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(homeDir, ".regionclicker"))
	}

	dirs = append(dirs, ".")
	return dirs
}

// findModelFile 在约定目录中查找模型文件
func findModelFile(filename string) string {
	var first string
	for _, dir := range searchDirs() {
		p := filepath.Join(dir, "models", "paddle_weights", filename)
		if first == "" {
			first = p
		}
		if fileExists(p) {
			return p
		}
	}
	return first
}

// findOnnxRuntimeLib 查找 ONNX Runtime 动态库
func findOnnxRuntimeLib() string {
	var names []string
	switch runtime.GOOS {
	case "darwin":
		names = []string{"libonnxruntime.dylib", "onnxruntime_arm64.dylib", "onnxruntime_amd64.dylib"}
	case "windows":
		names = []string{"onnxruntime.dll"}
	default:
		names = []string{"libonnxruntime.so", "onnxruntime_arm64.so", "onnxruntime_amd64.so"}
	}

	var first string
	for _, dir := range searchDirs() {
		for _, name := range names {
			for _, p := range []string{
				filepath.Join(dir, name),
				filepath.Join(dir, "models", "lib", name),
			} {
				if first == "" {
					first = p
				}
				if fileExists(p) {
					return p
				}
			}
		}
	}
	return first
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsAvailable 检查 OCR 功能是否可用（模型文件是否齐全）
func IsAvailable() bool {
	config := DefaultConfig()
	return fileExists(config.OnnxRuntimeLibPath) &&
		fileExists(config.DetModelPath) &&
		fileExists(config.RecModelPath) &&
		fileExists(config.DictPath)
}
