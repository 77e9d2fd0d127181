package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/agentportal/aserver/internal/config"
	"github.com/agentportal/aserver/internal/telephony"
)

// buildNotifier wires the telephony sinks named by notifier.driver. The
// returned closer releases every connection it opened.
func buildNotifier(cfg config.Config, log *zap.Logger) (telephony.Notifier, func(), error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Notifier.Driver))

	var sinks telephony.Multi
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if driver == "ami" || driver == "both" {
		if cfg.AMI.Host == "" {
			return nil, closeAll, fmt.Errorf("notifier %q requires ami.host", driver)
		}
		client := telephony.NewAMIClient(telephony.AMIConfig{
			Host:     cfg.AMI.Host,
			Port:     cfg.AMI.Port,
			Username: cfg.AMI.Username,
			Secret:   cfg.AMI.Password,
			Timeout:  cfg.AMI.Timeout,
		}, log)
		sinks = append(sinks, client)
		closers = append(closers, func() { _ = client.Close() })
	}

	if driver == "redis" || driver == "both" {
		client, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			// The mirror is best-effort; run without it rather than refuse to start.
			log.Warn("redis unavailable, business hours will not be mirrored to redis", zap.Error(err))
		} else {
			sinks = append(sinks, telephony.NewRedisMirror(client, cfg.Notifier.RedisPrefix))
			closers = append(closers, func() { _ = client.Close() })
		}
	}

	switch driver {
	case "ami", "redis", "both":
	case "", "none":
		return telephony.Nop{}, closeAll, nil
	default:
		return nil, closeAll, fmt.Errorf("unknown notifier driver %q", cfg.Notifier.Driver)
	}

	switch len(sinks) {
	case 0:
		return telephony.Nop{}, closeAll, nil
	case 1:
		return sinks[0], closeAll, nil
	default:
		return sinks, closeAll, nil
	}
}

func newRedisClient(url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("REDIS_URL is not configured")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
