// 包 notify：面向操作员的逐文件完成提示，与结构化日志分开输出
package notify

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/term"
)

const (
	colorReset   = "\x1b[0m"
	colorStatus  = "\x1b[36m"
	colorSuccess = "\x1b[32m"
	colorError   = "\x1b[31m"
)

// Console：并发安全；仅在终端上输出颜色
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// New：f 为终端时启用颜色
func New(f *os.File) *Console {
	return &Console{w: f, color: term.IsTerminal(int(f.Fd()))}
}

func NewWriter(w io.Writer, color bool) *Console { return &Console{w: w, color: color} }

func (c *Console) LabelsFound(n int) {
	c.printf(colorStatus, "Found %d unique labels across all files\n", n)
}

func (c *Console) Saved(path string) {
	c.printf(colorSuccess, "✅ XML saved for: %s\n", filepath.Base(path))
}

func (c *Console) Failed(path string, err error) {
	c.printf(colorError, "❌ Failed to convert: %s\n\tReason: %v\n", filepath.Base(path), err)
}

func (c *Console) printf(color, format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	if c.color {
		s = color + s + colorReset
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, s)
}
