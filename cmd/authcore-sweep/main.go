// Command authcore-sweep periodically revokes expired sessions in a
// Redis-backed deployment. Run one instance per store, or several: the
// sweep is idempotent and concurrent-safe.
//
// Usage:
//
//	authcore-sweep -redis localhost:6379 -prefix ac -interval 5m
//
// With -once it sweeps a single time and exits, for cron-style
// scheduling.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/authcore-io/authcore/store/redisstore"
)

func main() {
	var (
		redisAddr = flag.String("redis", "localhost:6379", "redis address")
		prefix    = flag.String("prefix", "ac", "key prefix the store was configured with")
		interval  = flag.Duration("interval", 5*time.Minute, "sweep interval")
		once      = flag.Bool("once", false, "sweep once and exit")
	)
	flag.Parse()

	client := redis.NewClient(&redis.Options{Addr: *redisAddr})
	defer client.Close()

	sessions := redisstore.New(client, *prefix)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sessions.Ping(ctx); err != nil {
		log.Fatalf("redis unreachable: %v", err)
	}

	if *once {
		sweep(ctx, sessions)
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	log.Printf("sweeping every %s", *interval)
	for {
		select {
		case <-ticker.C:
			sweep(ctx, sessions)
		case <-ctx.Done():
			log.Println("shutting down")
			return
		}
	}
}

func sweep(ctx context.Context, s *redisstore.Store) {
	swept, err := s.SweepExpired(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("sweep failed: %v", err)
		return
	}
	if swept > 0 {
		log.Printf("revoked %d expired sessions", swept)
	}
}
