package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/zoeyai/regionclicker/internal/logger"
)

// ErrIndexOutOfRange 索引越界
var ErrIndexOutOfRange = errors.New("区域索引越界")

// Store 有序的区域集合，插入顺序即显示和执行顺序。
// 每次变更后整体重写存档文件。
type Store struct {
	mu      sync.RWMutex
	file    string
	regions []*Region
}

// NewStore 创建存储，file 为存档文件路径
func NewStore(file string) *Store {
	return &Store{file: file}
}

// File 返回存档文件路径
func (s *Store) File() string {
	return s.file
}

// Load 从存档文件加载区域列表。
// 文件缺失视为空存储；内容损坏时重置为空并返回错误供调用方告警。
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.regions = nil

	data, err := os.ReadFile(s.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("读取存档文件失败: %w", err)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("解析存档文件失败: %w", err)
	}

	regions := make([]*Region, 0, len(records))
	for i, rec := range records {
		region, err := fromRecord(rec)
		if err != nil {
			s.regions = nil
			return fmt.Errorf("还原第 %d 条区域记录失败: %w", i, err)
		}
		regions = append(regions, region)
	}

	s.regions = regions
	return nil
}

// Save 将当前区域列表整体写入存档文件
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked()
}

// saveLocked 持锁状态下写存档
func (s *Store) saveLocked() error {
	records := make([]record, 0, len(s.regions))
	for _, region := range s.regions {
		rec, err := region.toRecord()
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化存档失败: %w", err)
	}

	if dir := filepath.Dir(s.file); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建存档目录失败: %w", err)
		}
	}

	if err := os.WriteFile(s.file, data, 0644); err != nil {
		return fmt.Errorf("写入存档文件失败: %w", err)
	}
	return nil
}

// Add 追加新区域并持久化，点击次数初始为 1
func (s *Store) Add(x, y, width, height int, img image.Image, ocrText string) (*Region, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("区域尺寸无效: %dx%d", width, height)
	}

	region := &Region{
		X:          x,
		Y:          y,
		Width:      width,
		Height:     height,
		Image:      img,
		OCRText:    ocrText,
		ClickCount: 1,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.regions = append(s.regions, region)
	if err := s.saveLocked(); err != nil {
		// 回滚追加，保持内存与存档一致
		s.regions = s.regions[:len(s.regions)-1]
		return nil, err
	}
	return region, nil
}

// Remove 删除指定索引的区域并持久化
func (s *Store) Remove(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.regions) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	removed := s.regions[index]
	s.regions = append(s.regions[:index], s.regions[index+1:]...)
	if err := s.saveLocked(); err != nil {
		return err
	}

	logger.Info("已删除区域 #%d: %s", index+1, removed)
	return nil
}

// CycleClickCount 将点击次数推进到预设循环的下一个值并持久化，返回新值
func (s *Store) CycleClickCount(index int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.regions) {
		return 0, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	region := s.regions[index]
	old := region.ClickCount
	region.ClickCount = region.NextClickCount()
	if err := s.saveLocked(); err != nil {
		region.ClickCount = old
		return 0, err
	}
	return region.ClickCount, nil
}

// ClearAll 清空所有区域。先删除存档文件，删除失败时退而写入空数组；
// 随后无论如何重写一次空数组，保证存档存在且为空。
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.regions = nil

	if err := os.Remove(s.file); err != nil && !os.IsNotExist(err) {
		logger.Warn("删除存档文件失败，改为重置为空内容: %v", err)
	}

	return s.saveLocked()
}

// Len 返回区域数量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.regions)
}

// Get 返回指定索引的区域
func (s *Store) Get(index int) (*Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.regions) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return s.regions[index], nil
}

// Regions 返回区域列表的快照（切片副本，元素共享）
func (s *Store) Regions() []*Region {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]*Region, len(s.regions))
	copy(snapshot, s.regions)
	return snapshot
}
