package topology

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"dev.hon.one/l2scheme/util"
)

// Locker - Mutual exclusion of analysis passes over the same VLAN.
type Locker interface {
	// Lock blocks until the VLAN is held or the context ends. The returned function releases it.
	Lock(ctx context.Context, vlanID int) (func(), error)
}

// LocalLocker - In-process VLAN locks.
type LocalLocker struct {
	mutex sync.Mutex
	vlans map[int]chan struct{}
}

// NewLocalLocker - Create an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		vlans: make(map[int]chan struct{}),
	}
}

// Lock - Acquire the VLAN lock.
func (locker *LocalLocker) Lock(ctx context.Context, vlanID int) (func(), error) {
	locker.mutex.Lock()
	slot, ok := locker.vlans[vlanID]
	if !ok {
		slot = make(chan struct{}, 1)
		locker.vlans[vlanID] = slot
	}
	locker.mutex.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("locking vlan %d: %w", vlanID, ctx.Err())
	}
}

var releaseVlanLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendVlanLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker - VLAN locks shared by every process using the same Redis server.
// A held lock is refreshed every third of its TTL and expires after the TTL if the holder dies.
type RedisLocker struct {
	client    redis.Cmdable
	ttl       time.Duration
	retry     time.Duration
	keyPrefix string
}

// NewRedisLocker - Create a Redis locker.
func NewRedisLocker(client redis.Cmdable, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client:    client,
		ttl:       ttl,
		retry:     50 * time.Millisecond,
		keyPrefix: "l2scheme:vlan_lock:",
	}
}

// Lock - Acquire the VLAN lock, polling until it is free or the context ends.
func (locker *RedisLocker) Lock(ctx context.Context, vlanID int) (func(), error) {
	key := fmt.Sprintf("%s%d", locker.keyPrefix, vlanID)
	token, err := newLockToken()
	if err != nil {
		return nil, err
	}

	for {
		acquired, err := locker.client.SetNX(ctx, key, token, locker.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("locking vlan %d: %w", vlanID, err)
		}
		if acquired {
			break
		}
		select {
		case <-time.After(locker.retry):
		case <-ctx.Done():
			return nil, fmt.Errorf("locking vlan %d: %w: %w", vlanID, util.ErrLockTimeout, ctx.Err())
		}
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go locker.keepAlive(key, token, vlanID, stop, stopped)

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			close(stop)
			<-stopped
			locker.release(key, token, vlanID)
		})
	}
	return unlock, nil
}

// keepAlive extends the lock TTL until stop is closed or the lock is no longer ours.
func (locker *RedisLocker) keepAlive(key string, token string, vlanID int, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	interval := locker.ttl / 3
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		extended, err := extendVlanLockScript.Run(context.Background(), locker.client, []string{key}, token, locker.ttl.Milliseconds()).Int()
		if err != nil {
			log.WithError(err).WithField("vlan_id", vlanID).Warn("Failed to extend VLAN lock")
			continue
		}
		if extended == 0 {
			log.WithField("vlan_id", vlanID).Warn("VLAN lock lost before release")
			return
		}
	}
}

func (locker *RedisLocker) release(key string, token string, vlanID int) {
	// The caller context may already be done, release regardless.
	if err := releaseVlanLockScript.Run(context.Background(), locker.client, []string{key}, token).Err(); err != nil {
		log.WithError(err).WithField("vlan_id", vlanID).Warn("Failed to release VLAN lock")
	}
}

func newLockToken() (string, error) {
	buffer := make([]byte, 16)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("generating lock token: %w", err)
	}
	return hex.EncodeToString(buffer), nil
}
