package service

import (
	"context"
	"sync"
	"time"

	"f2fpay/pkg/logger"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// KeyLocker 按业务键串行化临界区
type KeyLocker interface {
	// Lock 阻塞直到获得锁或 ctx 结束，返回的 unlock 只能调用一次
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// MemoryKeyLocker 进程内按键加锁，无人持有的键会被回收
type MemoryKeyLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func NewMemoryKeyLocker() *MemoryKeyLocker {
	return &MemoryKeyLocker{locks: make(map[string]*keyLock)}
}

func (l *MemoryKeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(key, kl)
		})
	}, nil
}

func (l *MemoryKeyLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// size 当前持有或等待中的键数量
func (l *MemoryKeyLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

const (
	redisLockPrefix     = "f2fpay:lock:"
	defaultLockTTL      = 10 * time.Second
	defaultRetryBackoff = 50 * time.Millisecond
)

// 只有持有者才能释放
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockTimeout 等待分布式锁超时
var ErrLockTimeout = errors.New("acquire lock timeout")

// lockClient *redis.Client 与 *redis.ClusterClient 均满足
type lockClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisKeyLocker 多实例部署时使用的分布式锁
// SET NX PX 加锁，Lua 脚本校验 token 后释放
type RedisKeyLocker struct {
	client  lockClient
	ttl     time.Duration
	backoff time.Duration
	l       *zap.Logger
}

type RedisLockOption func(*RedisKeyLocker)

func WithLockLogger(l *zap.Logger) RedisLockOption {
	return func(k *RedisKeyLocker) {
		k.l = l
	}
}

func NewRedisKeyLocker(client lockClient, ttl time.Duration, opts ...RedisLockOption) *RedisKeyLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	k := &RedisKeyLocker{client: client, ttl: ttl, backoff: defaultRetryBackoff, l: logger.L()}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Lock 最多等待一个 TTL
func (l *RedisKeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := redisLockPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.ttl)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, errors.Wrap(err, "acquire lock")
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		timer := time.NewTimer(l.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// 调用方的 ctx 可能已取消，释放锁使用独立的超时
			releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			// 释放失败时锁在 TTL 到期后自动失效
			if err := unlockScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
				l.l.Warn("Failed to release order lock",
					zap.String("key", redisKey),
					zap.Duration("ttl", l.ttl),
					zap.Error(err),
				)
			}
		})
	}, nil
}
