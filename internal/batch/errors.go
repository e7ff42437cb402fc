package batch

import (
	"errors"
	"fmt"
)

// ErrLabelScan：严格模式下发现或标签扫描阶段有文件失败，批次未写出任何结果
var ErrLabelScan = errors.New("label scan failed")

// 失败阶段
const (
	StageDiscover = "discover"
	StageLabels   = "labels"
	StageDecode   = "decode"
	StageAssemble = "assemble"
	StageEncode   = "encode"
	StageWrite    = "write"
)

// FileError：带文件标识与阶段的转换失败
type FileError struct {
	Path  string
	Stage string
	Err   error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s [%s]: %v", e.Path, e.Stage, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }
