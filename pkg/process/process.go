// Package process 提供进程查询功能
package process

import (
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// Info 进程信息
type Info struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
}

// Find 按名称查找进程 (不区分大小写，支持部分匹配)
func Find(name string) ([]Info, error) {
	pids, err := process.Pids()
	if err != nil {
		return nil, fmt.Errorf("获取进程列表失败: %w", err)
	}

	name = strings.ToLower(name)
	var matches []Info

	for _, pid := range pids {
		proc, err := process.NewProcess(pid)
		if err != nil {
			continue
		}

		procName, err := proc.Name()
		if err != nil {
			continue
		}

		if strings.Contains(strings.ToLower(procName), name) {
			matches = append(matches, Info{
				PID:  int(pid),
				Name: procName,
			})
		}
	}

	return matches, nil
}

// Exists 检查指定名称的进程是否存活
func Exists(name string) (bool, error) {
	matches, err := Find(name)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}
