/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Action is one applied game command, as published to the history queue.
type Action struct {
	GameID    string        `json:"game_id"`
	Index     int           `json:"action_index"`
	PlayerID  string        `json:"player_id"`
	Type      string        `json:"action_type"`
	Payload   ClientMessage `json:"action_payload"`
	Timestamp int64         `json:"timestamp"`
}

// Historian receives every command a game applied successfully.
type Historian interface {
	Record(ctx context.Context, action Action) error
	Close() error
}

type nopHistorian struct{}

func (nopHistorian) Record(context.Context, Action) error { return nil }

func (nopHistorian) Close() error { return nil }

type redisHistorian struct {
	client *redis.Client
	queue  string
}

// newHistorian connects to redis when an address is configured.
func newHistorian(ctx context.Context, cfg *Config) (Historian, error) {
	if cfg.redisAddr == "" {
		return nopHistorian{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.redisAddr,
		DB:   cfg.redisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.redisAddr, err)
	}

	return &redisHistorian{client: client, queue: cfg.historyQueue}, nil
}

func (r *redisHistorian) Record(ctx context.Context, action Action) error {
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to marshal action: %w", err)
	}

	if err := r.client.RPush(ctx, r.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to push to redis list %q: %w", r.queue, err)
	}
	return nil
}

func (r *redisHistorian) Close() error {
	return r.client.Close()
}
