package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ledgerdesk/aegis/internal/infra/fallback"
	"github.com/ledgerdesk/aegis/internal/infra/redis"
)

func main() {
	url := os.Getenv("AEGIS_REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}

	client, err := redis.NewClient(redis.Config{URL: url, Password: os.Getenv("AEGIS_REDIS_PASSWORD")})
	if err != nil {
		panic(err)
	}

	store := fallback.NewRedisStore(client, fallback.Config{})
	defer store.Close()

	content, err := os.ReadFile("scripts/warm_cache.json")
	if err != nil {
		panic(err)
	}

	var snapshots map[string]any
	if err := json.Unmarshal(content, &snapshots); err != nil {
		panic(err)
	}

	ctx := context.Background()
	for key, payload := range snapshots {
		if err := store.Put(ctx, key, payload); err != nil {
			panic(err)
		}
	}

	fmt.Printf("Successfully warmed %d fallback snapshots from scripts/warm_cache.json\n", len(snapshots))
}
