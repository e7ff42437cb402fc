package batch

import (
	"geojson2xml/internal/labelcache"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Input：批次中的一个输入文件
type Input struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// 文档注释：列出目录下扩展名匹配的常规文件
// 背景：只扫描当前目录不递归；输出文件与输入同目录，扩展名不同，因此不会被再次当作输入。
// 约束：
//   - 扩展名区分大小写；按文件名排序，保证日志与审计顺序稳定；
//   - 单个条目无法 stat（悬空符号链接、无权限）时记为 StageDiscover 失败并继续，只有目录本身不可读才返回 error。
func Discover(dir, ext string) ([]Input, []*FileError, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	var out []Input
	var failed []*FileError
	for _, ent := range entries {
		if !strings.HasSuffix(ent.Name(), ext) {
			continue
		}
		path := filepath.Join(dir, ent.Name())
		// 符号链接按目标判定
		info, err := os.Stat(path)
		if err != nil {
			failed = append(failed, &FileError{Path: path, Stage: StageDiscover, Err: err})
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		out = append(out, Input{
			Path:    path,
			Name:    ent.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, failed, nil
}

// OutputPath：同目录、同基名，替换扩展名
func OutputPath(in, inExt, outExt string) string {
	return strings.TrimSuffix(in, inExt) + outExt
}

func fingerprint(ext string, ins []Input) string {
	es := make([]labelcache.Entry, len(ins))
	for i, in := range ins {
		es[i] = labelcache.Entry{Name: in.Name, Size: in.Size, ModTime: in.ModTime}
	}
	return labelcache.Fingerprint(ext, es)
}
