// 包 labelcache：按批次指纹缓存 LabelOrder，多台机器处理同一共享目录时跳过重复的标签扫描
package labelcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"geojson2xml/internal/labels"
	"geojson2xml/internal/utils"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "geojson2xml:labels:"

// Client：缓存所需的最小 Redis 命令集，*redis.Client 直接满足
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type Cache struct {
	c   Client
	ttl time.Duration
}

// New：ttl 为 0 表示不过期
func New(c Client, ttl time.Duration) *Cache { return &Cache{c: c, ttl: ttl} }

// Entry：参与指纹计算的文件元信息
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// 文档注释：计算批次指纹
// 背景：任一文件增删、大小或修改时间变化都会改变指纹，旧缓存自然失效。
// 约束：与条目顺序无关；扩展名参与计算，不同输入类型的批次互不复用。
func Fingerprint(ext string, entries []Entry) string {
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	h := sha256.New()
	fmt.Fprintf(h, "ext=%s\n", ext)
	for _, e := range sorted {
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", e.Name, e.Size, e.ModTime.UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get：未命中或缓存内容不是合法的升序去重序列时返回 ok=false 且 err=nil
func (c *Cache) Get(ctx context.Context, fingerprint string) (labels.LabelOrder, bool, error) {
	s, err := c.c.Get(ctx, keyPrefix+fingerprint).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var order labels.LabelOrder
	if err := json.Unmarshal([]byte(s), &order); err != nil {
		return nil, false, fmt.Errorf("decode cached labels: %w", err)
	}
	// 非法序列按未命中处理，随后的 Put 会覆盖它
	if !order.Valid() {
		return nil, false, nil
	}
	return order, true, nil
}

func (c *Cache) Put(ctx context.Context, fingerprint string, order labels.LabelOrder) error {
	if order == nil {
		order = labels.LabelOrder{}
	}
	b, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return c.c.Set(ctx, keyPrefix+fingerprint, string(b), c.ttl).Err()
}

// Open：按 REDIS_* 环境变量连接并探活；调用方负责关闭返回的客户端
func Open(ctx context.Context, ttl time.Duration) (*Cache, *redis.Client, error) {
	rc := utils.OpenRedisFromEnv()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, nil, err
	}
	return New(rc, ttl), rc, nil
}
