package utils

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"trio-driver/pkg/logger"
)

func TestLockScriptCompiles(t *testing.T) {
	if lockReleaseScript == nil {
		t.Fatalf("expected script to be initialized")
	}
}

func TestNewDeviceLock_Validation(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	if _, err := NewDeviceLock(nil, "10.0.0.5", time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := NewDeviceLock(rdb, "", time.Second); err == nil {
		t.Fatalf("expected error for empty host")
	}
	if _, err := NewDeviceLock(rdb, "10.0.0.5", 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
	if DeviceLockKey("10.0.0.5") != "trio:device-lock:10.0.0.5" {
		t.Fatalf("unexpected key %q", DeviceLockKey("10.0.0.5"))
	}
}

func TestDeviceLock_ReleaseFailureIsLogged(t *testing.T) {
	// nothing listens on port 1
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	l, err := NewDeviceLock(rdb, "10.0.0.5", time.Second)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := l.release("token"); err == nil {
		t.Fatalf("expected release error")
	}

	var buf bytes.Buffer
	ctx := logger.With(context.Background(), logger.NewWithWriter("local", &buf))
	l.unlocker(ctx, "token")()

	out := buf.String()
	if !strings.Contains(out, "device lock release failed") || !strings.Contains(out, `"level":"WARN"`) {
		t.Fatalf("expected warn log, got %q", out)
	}
	if !strings.Contains(out, DeviceLockKey("10.0.0.5")) {
		t.Fatalf("expected lock key in log, got %q", out)
	}
}

func TestOpenRedis_RequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

// Runs against a real server when TEST_REDIS_ADDR is set.
func TestDeviceLock_MutualExclusion(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb, err := OpenRedis(context.Background(), RedisConfig{Addr: addr})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rdb.Close()

	host := "lock-test-" + time.Now().Format("150405.000000")
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		// separate lock values model separate processes
		l, err := NewDeviceLock(rdb, host, 5*time.Second)
		if err != nil {
			t.Fatalf("lock: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background())
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}
			time.Sleep(20 * time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()
	if maxInside.Load() != 1 {
		t.Fatalf("expected exclusive access, saw %d holders", maxInside.Load())
	}
}
