package navigator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// QueryCache хранит сериализованные ответы Query между вызовами и узлами
type QueryCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// WithQueryCache кеширует ответы Query. Ключ содержит номер последнего
// изменения, поэтому ответ живёт, пока реестр и местность не менялись.
func WithQueryCache(c QueryCache, ttl time.Duration) Option {
	return func(n *Navigator) {
		n.cache = c
		n.cacheTTL = ttl
	}
}

func queryKey(seq uint64, q PathQuery) string {
	return fmt.Sprintf("path:%d:%d:%d:%d:%d:%d,%d:%d,%d:%d,%d-%d,%d:%t",
		seq, q.Index, q.Link, q.Move, q.Coll,
		q.Start.X, q.Start.Y, q.End.X, q.End.Y,
		q.Window.Min.X, q.Window.Min.Y, q.Window.Max.X, q.Window.Max.Y, q.Avoid)
}

func (n *Navigator) cachedQuery(ctx context.Context, key string) (PathResult, bool) {
	data, err := n.cache.Get(ctx, key)
	if err != nil {
		return PathResult{}, false
	}
	var res PathResult
	if err := json.Unmarshal(data, &res); err != nil {
		n.logger.Warn("Повреждённый ответ в кеше %s: %v", key, err)
		return PathResult{}, false
	}
	return res, true
}

func (n *Navigator) storeQuery(ctx context.Context, key string, res PathResult) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := n.cache.Set(ctx, key, data, n.cacheTTL); err != nil {
		n.logger.Warn("Ответ не сохранён в кеш: %v", err)
	}
}
