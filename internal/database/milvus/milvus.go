package milvus

import (
	"context"
	"fmt"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"

	"ragchatbot/internal/config"
)

var (
	instance client.Client
	once     sync.Once
	initErr  error
)

// GetClient initializes and returns a singleton Milvus client.
func GetClient(ctx context.Context, cfg *config.MilvusConfig) (client.Client, error) {
	once.Do(func() {
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			initErr = fmt.Errorf("failed to connect to Milvus: %w", err)
			return
		}
		instance = c
	})
	return instance, initErr
}

// Close safely closes the Milvus connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}
