// Package config 提供应用配置的加载与保存
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// AppConfig 应用配置
type AppConfig struct {
	// StoreFile 区域存档文件路径，空字符串表示使用配置目录下的默认文件
	StoreFile string `json:"store_file"`
	// LoopIntervalMs 持续执行模式下每轮之间的等待时间（毫秒）
	LoopIntervalMs int `json:"loop_interval_ms"`
	// ClickPauseMs 同一区域连续点击之间的等待时间（毫秒）
	ClickPauseMs int `json:"click_pause_ms"`
	// MismatchPauseMs OCR 不匹配跳过后的等待时间（毫秒）
	MismatchPauseMs int `json:"mismatch_pause_ms"`
	// SettleDelayMs 鼠标移动到位后点击前的等待时间（毫秒）
	SettleDelayMs int `json:"settle_delay_ms"`
	// RequireProcess 指定进程名时，仅在该进程存活时执行点击
	RequireProcess string `json:"require_process"`
	// DriftLocate OCR 不匹配时是否在全屏中查找参考图像的新位置
	DriftLocate bool `json:"drift_locate"`
	// LogLevel 日志级别 (DEBUG, INFO, WARN, ERROR)
	LogLevel string `json:"log_level"`
	// LogFile 日志文件路径，空字符串表示仅输出到控制台
	LogFile string `json:"log_file"`

	// OCR 模型路径，空字符串表示自动探测
	OnnxRuntimeLibPath string `json:"onnx_runtime_lib_path"`
	DetModelPath       string `json:"det_model_path"`
	RecModelPath       string `json:"rec_model_path"`
	DictPath           string `json:"dict_path"`
}

// DefaultAppConfig 默认配置
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		StoreFile:       "",
		LoopIntervalMs:  1000,
		ClickPauseMs:    200,
		MismatchPauseMs: 500,
		SettleDelayMs:   50,
		RequireProcess:  "",
		DriftLocate:     false,
		LogLevel:        "INFO",
		LogFile:         "",
	}
}

// Manager 配置管理器
type Manager struct {
	configDir  string
	configFile string
	mu         sync.RWMutex
}

// NewManager 创建配置管理器
func NewManager() *Manager {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := filepath.Join(homeDir, ".regionclicker")
	return &Manager{
		configDir:  configDir,
		configFile: filepath.Join(configDir, "config.json"),
	}
}

// NewManagerWithDir 使用指定目录创建配置管理器
func NewManagerWithDir(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configFile: filepath.Join(configDir, "config.json"),
	}
}

// ensureDir 确保配置目录存在
func (m *Manager) ensureDir() error {
	return os.MkdirAll(m.configDir, 0755)
}

// Load 加载配置，文件缺失时返回默认配置
func (m *Manager) Load() (*AppConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return DefaultAppConfig(), nil
	}

	data, err := os.ReadFile(m.configFile)
	if err != nil {
		return DefaultAppConfig(), fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := DefaultAppConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return DefaultAppConfig(), fmt.Errorf("解析配置文件失败: %w", err)
	}

	return config, nil
}

// Save 保存配置
func (m *Manager) Save(config *AppConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureDir(); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(m.configFile, data, 0600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// Clear 清除配置
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return nil
	}

	return os.Remove(m.configFile)
}

// Exists 检查配置文件是否存在
func (m *Manager) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := os.Stat(m.configFile)
	return err == nil
}

// GetConfigDir 获取配置目录
func (m *Manager) GetConfigDir() string {
	return m.configDir
}

// GetConfigFile 获取配置文件路径
func (m *Manager) GetConfigFile() string {
	return m.configFile
}

// DefaultStoreFile 返回配置对应的存档文件路径
func (m *Manager) DefaultStoreFile(config *AppConfig) string {
	if config.StoreFile != "" {
		return config.StoreFile
	}
	return filepath.Join(m.configDir, "saved_captures.json")
}

// 全局配置管理器
var defaultManager = NewManager()

// GetDefaultManager 获取默认配置管理器
func GetDefaultManager() *Manager {
	return defaultManager
}

// Load 使用默认管理器加载配置
func Load() (*AppConfig, error) {
	return defaultManager.Load()
}

// Save 使用默认管理器保存配置
func Save(config *AppConfig) error {
	return defaultManager.Save(config)
}
