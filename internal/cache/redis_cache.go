package cache

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"roblox-license-platform/configs"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
)

const verifyChannel = "verify_events"

// CacheManager wraps redis with a local in-process fallback. It is used
// for login throttling counters and for fanning verification events out
// to dashboard websocket listeners; whitelist and ledger reads never go
// through it.
type CacheManager struct {
	redisClient *redis.Client
	localCache  *cache.Cache
	pubSub      *redis.PubSub
	ctx         context.Context
	mu          sync.RWMutex
}

// VerifyEvent is the payload published for every verification call.
type VerifyEvent struct {
	ProductID uint   `json:"product_id"`
	PlaceID   string `json:"place_id"`
	GameName  string `json:"game_name"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

func NewCacheManager() *CacheManager {
	cm := &CacheManager{
		ctx:        context.Background(),
		localCache: cache.New(5*time.Minute, 10*time.Minute),
	}
	cm.initialize()
	return cm
}

func (cm *CacheManager) initialize() {
	opts, err := redis.ParseURL(configs.AppConfig.RedisURL)
	if err != nil {
		opts = &redis.Options{
			Addr: configs.AppConfig.RedisURL,
		}
	}

	cm.redisClient = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(cm.ctx, 5*time.Second)
	defer cancel()

	if err := cm.redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection failed, using local cache only: %v", err)
		cm.redisClient = nil
	} else {
		log.Println("Redis connection established successfully")
	}
}

// SubscribeVerifyEvents delivers every published verification event to
// handler on a background goroutine. No-op without redis.
func (cm *CacheManager) SubscribeVerifyEvents(handler func(event VerifyEvent)) {
	if cm.redisClient == nil {
		return
	}

	cm.pubSub = cm.redisClient.Subscribe(cm.ctx, verifyChannel)
	go func() {
		for msg := range cm.pubSub.Channel() {
			var event VerifyEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("Failed to parse verify event: %v", err)
				continue
			}
			handler(event)
		}
	}()
}

// PublishVerify broadcasts a verification event to subscribers.
func (cm *CacheManager) PublishVerify(event VerifyEvent) {
	if cm.redisClient == nil {
		return
	}

	data, _ := json.Marshal(event)
	ctx, cancel := context.WithTimeout(cm.ctx, 5*time.Second)
	defer cancel()

	cm.redisClient.Publish(ctx, verifyChannel, data)
}

// Increment bumps a counter, falling back to the local cache when redis
// is unavailable.
func (cm *CacheManager) Increment(key string, value int64) (int64, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.redisClient != nil {
		ctx, cancel := context.WithTimeout(cm.ctx, 5*time.Second)
		defer cancel()
		return cm.redisClient.IncrBy(ctx, key, value).Result()
	}

	var current int64
	if val, found := cm.localCache.Get(key); found {
		current = val.(int64)
	}
	current += value
	cm.localCache.Set(key, current, cache.DefaultExpiration)
	return current, nil
}

// Expire sets a TTL on a counter key.
func (cm *CacheManager) Expire(key string, ttl time.Duration) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.redisClient != nil {
		ctx, cancel := context.WithTimeout(cm.ctx, 5*time.Second)
		defer cancel()
		return cm.redisClient.Expire(ctx, key, ttl).Err()
	}

	if val, found := cm.localCache.Get(key); found {
		cm.localCache.Set(key, val, ttl)
	}
	return nil
}

func (cm *CacheManager) IsAvailable() bool {
	return cm.redisClient != nil
}

// Close tears down the pub/sub subscription and the redis connection.
func (cm *CacheManager) Close() {
	if cm.pubSub != nil {
		cm.pubSub.Close()
	}
	if cm.redisClient != nil {
		cm.redisClient.Close()
	}
}
