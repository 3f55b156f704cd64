package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"servidor_ocr/internal/repository"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ocr:text:"

var _ repository.OCRTextCache = (*OCRTextCache)(nil)

type OCRTextCache struct {
	client *redis.Client
}

func NewOCRTextCache(addr, password string, db int) *OCRTextCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &OCRTextCache{client: rdb}
}

func (c *OCRTextCache) Get(ctx context.Context, imageHash string) (string, error) {
	text, err := c.client.Get(ctx, keyPrefix+imageHash).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrCacheMiss
		}
		return "", fmt.Errorf("OCRTextCache.Get: %w", err)
	}
	return text, nil
}

func (c *OCRTextCache) Set(ctx context.Context, imageHash string, text string, ttl time.Duration) error {
	if err := c.client.Set(ctx, keyPrefix+imageHash, text, ttl).Err(); err != nil {
		return fmt.Errorf("OCRTextCache.Set: %w", err)
	}
	log.Printf("OCRTextCache: stored text for %s (ttl %v)", imageHash, ttl)
	return nil
}

func (c *OCRTextCache) Close() error {
	return c.client.Close()
}
