package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Subject key prefixes. Message and reaction cooldowns never share a key, and
// the two sides of a reaction are tracked separately.
const (
	messageSubjectPrefix = "msg:"
	reactorSubjectPrefix = "react:reactor:"
	authorSubjectPrefix  = "react:author:"
)

// MessageSubject is the cooldown key for a user's message XP
func MessageSubject(userID int64) string {
	return messageSubjectPrefix + strconv.FormatInt(userID, 10)
}

// ReactorSubject is the cooldown key for XP earned by adding a reaction
func ReactorSubject(userID int64) string {
	return reactorSubjectPrefix + strconv.FormatInt(userID, 10)
}

// AuthorSubject is the cooldown key for XP earned by receiving a reaction
func AuthorSubject(userID int64) string {
	return authorSubjectPrefix + strconv.FormatInt(userID, 10)
}

type cooldownKey struct {
	guildID int64
	subject string
}

// CooldownGate rate-limits XP grants per (guild, subject)
type CooldownGate struct {
	mu   sync.Mutex
	last map[cooldownKey]time.Time
}

// NewCooldownGate creates an empty cooldown table
func NewCooldownGate() *CooldownGate {
	return &CooldownGate{last: make(map[cooldownKey]time.Time)}
}

// Eligible reports whether subject may earn XP at now
func (g *CooldownGate) Eligible(guildID int64, subject string, now time.Time, cooldown time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.eligibleLocked(cooldownKey{guildID, subject}, now, cooldown)
}

func (g *CooldownGate) eligibleLocked(key cooldownKey, now time.Time, cooldown time.Duration) bool {
	last, ok := g.last[key]
	return !ok || now.Sub(last) >= cooldown
}

// Record marks subject as having earned XP at now
func (g *CooldownGate) Record(guildID int64, subject string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last[cooldownKey{guildID, subject}] = now
}

// TryAcquire checks eligibility and records in one step, so concurrent events
// for the same subject cannot both pass
func (g *CooldownGate) TryAcquire(guildID int64, subject string, now time.Time, cooldown time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := cooldownKey{guildID, subject}
	if !g.eligibleLocked(key, now, cooldown) {
		return false
	}
	g.last[key] = now
	return true
}

// Prune drops entries last recorded more than maxAge before now and returns how many were removed
func (g *CooldownGate) Prune(now time.Time, maxAge time.Duration) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for key, last := range g.last {
		if now.Sub(last) > maxAge {
			delete(g.last, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked subjects
func (g *CooldownGate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.last)
}

// StartJanitor prunes stale entries every interval until ctx ends or the
// returned stop function is called
func (g *CooldownGate) StartJanitor(ctx context.Context, interval, maxAge time.Duration) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-ticker.C:
				if removed := g.Prune(time.Now(), maxAge); removed > 0 {
					log.WithFields(log.Fields{
						"removed":   removed,
						"remaining": g.Len(),
					}).Debug("Pruned cooldown entries")
				}
			case <-stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			ticker.Stop()
			close(stopChan)
		})
	}
}
