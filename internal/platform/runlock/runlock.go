// Package runlock provides short-lived named locks that keep two digest runs
// of the same report from overlapping across triggers and processes.
//
// A held lock is renewed in the background every third of its ttl until
// released, so ttl bounds how long a crashed holder blocks others rather than
// how long a run may take.
package runlock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Shrey-sa/tree-tracker/internal/digest/domain"
)

var (
	_ domain.Locker = (*Redis)(nil)
	_ domain.Locker = (*Memory)(nil)
)

// Redis implements domain.Locker with SET NX PX and token-checked renew and
// delete, so an expired holder never touches a newer holder's lock.
type Redis struct {
	rc     *redis.Client
	prefix string
}

func NewRedis(rc *redis.Client) *Redis {
	return &Redis{rc: rc, prefix: "lock:"}
}

var luaRelease = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

var luaRenew = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`)

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	k := r.prefix + key
	token := uuid.NewString()
	ok, err := r.rc.SetNX(ctx, k, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	stop := keepAlive(ttl, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := luaRenew.Run(ctx, r.rc, []string{k}, token, ttl.Milliseconds()).Int64()
		if err != nil {
			// Transient; the next tick retries while the key is still live.
			return true
		}
		return n == 1
	})
	release := func() {
		stop()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = luaRelease.Run(ctx, r.rc, []string{k}, token).Err()
	}
	return release, true, nil
}

// Memory is a process-local lock used when Redis is disabled.
type Memory struct {
	mu   sync.Mutex
	held map[string]memLock
	now  func() time.Time
	seq  uint64
}

type memLock struct {
	id      uint64
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{held: make(map[string]memLock), now: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if l, ok := m.held[key]; ok && now.Before(l.expires) {
		return nil, false, nil
	}
	m.seq++
	id := m.seq
	m.held[key] = memLock{id: id, expires: now.Add(ttl)}
	stop := keepAlive(ttl, func() bool { return m.renew(key, id, ttl) })
	release := func() {
		stop()
		m.mu.Lock()
		defer m.mu.Unlock()
		if l, ok := m.held[key]; ok && l.id == id {
			delete(m.held, key)
		}
	}
	return release, true, nil
}

func (m *Memory) renew(key string, id uint64, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.held[key]
	if !ok || l.id != id {
		return false
	}
	l.expires = m.now().Add(ttl)
	m.held[key] = l
	return true
}

// keepAlive calls extend every ttl/3 until the returned stop is called or
// extend reports the lock lost. stop is idempotent.
func keepAlive(ttl time.Duration, extend func() bool) (stop func()) {
	every := ttl / 3
	if every <= 0 {
		every = time.Millisecond
	}
	done := make(chan struct{})
	var once sync.Once
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if !extend() {
					return
				}
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}
