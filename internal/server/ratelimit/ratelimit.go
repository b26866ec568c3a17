// Package ratelimit implements an in-process fixed-window rate limiter keyed
// by client identifier and endpoint.
//
// Counters live in memory of a single process; several replicas behind a
// load balancer each enforce their own quota.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// DefaultSweepThreshold размер карты, при котором удаляются истекшие записи
const DefaultSweepThreshold = 1000

// Rule квота: Limit запросов за Window
type Rule struct {
	Limit  int
	Window time.Duration
}

// Config содержит настройки лимитера
type Config struct {
	// Overrides квоты для конкретных endpoint
	Overrides map[string]Rule
	// Default квота для остальных endpoint
	Default        Rule
	SweepThreshold int
}

// DefaultConfig возвращает квоты по умолчанию: 100/15m, вход 10/15m, регистрация 5/15m
func DefaultConfig() Config {
	return Config{
		Default: Rule{Limit: 100, Window: 15 * time.Minute},
		Overrides: map[string]Rule{
			"/api/auth/login":    {Limit: 10, Window: 15 * time.Minute},
			"/api/auth/register": {Limit: 5, Window: 15 * time.Minute},
		},
		SweepThreshold: DefaultSweepThreshold,
	}
}

// Decision результат проверки одного запроса
type Decision struct {
	ResetAt   time.Time
	Limit     int
	Remaining int
	Allowed   bool
}

// RetryAfter возвращает через сколько целых секунд (не меньше 1) окно сбросится
func (d Decision) RetryAfter(now time.Time) int {
	secs := int(math.Ceil(d.ResetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Stats снимок счетчика без его изменения
type Stats struct {
	ResetAt   time.Time
	Count     int
	Limit     int
	Remaining int
}

// entry счетчик одного ключа.
// removed выставляется под mu, когда запись вычищена из карты.
type entry struct {
	resetAt time.Time
	count   int
	removed bool
	mu      sync.Mutex
}

// Limiter fixed-window rate limiter.
//
// The map is guarded by mu; each entry has its own mutex so check-and-increment
// for one key never blocks other keys. Lock order is always map, then entry.
type Limiter struct {
	entries       map[string]*entry
	overrides     map[string]Rule
	now           func() time.Time
	def           Rule
	baseThreshold int
	threshold     int
	mu            sync.RWMutex
}

// New creates a new Limiter
func New(cfg Config) *Limiter {
	threshold := cfg.SweepThreshold
	if threshold <= 0 {
		threshold = DefaultSweepThreshold
	}

	overrides := make(map[string]Rule, len(cfg.Overrides))
	for endpoint, rule := range cfg.Overrides {
		overrides[endpoint] = rule
	}

	return &Limiter{
		entries:       make(map[string]*entry),
		overrides:     overrides,
		now:           time.Now,
		def:           cfg.Default,
		baseThreshold: threshold,
		threshold:     threshold,
	}
}

// WithClock подменяет источник времени (для тестов)
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Now возвращает текущее время по часам лимитера
func (l *Limiter) Now() time.Time {
	return l.now()
}

// Rule возвращает квоту для endpoint
func (l *Limiter) Rule(endpoint string) Rule {
	if rule, ok := l.overrides[endpoint]; ok {
		return rule
	}
	return l.def
}

// Key строит ключ счетчика: "identifier:endpoint" или identifier без endpoint
func Key(identifier, endpoint string) string {
	if endpoint == "" {
		return identifier
	}
	return identifier + ":" + endpoint
}

// Check учитывает запрос и возвращает решение.
// Счетчик продолжает расти и после превышения лимита.
func (l *Limiter) Check(identifier, endpoint string) Decision {
	rule := l.Rule(endpoint)
	key := Key(identifier, endpoint)

	for {
		e := l.getOrCreate(key)

		e.mu.Lock()
		if e.removed {
			// Запись вычищена между поиском и блокировкой, берем актуальную
			e.mu.Unlock()
			continue
		}

		now := l.now()
		if e.count == 0 || !now.Before(e.resetAt) {
			e.count = 1
			e.resetAt = now.Add(rule.Window)
		} else {
			e.count++
		}

		d := Decision{
			ResetAt:   e.resetAt,
			Limit:     rule.Limit,
			Remaining: max(0, rule.Limit-e.count),
			Allowed:   e.count <= rule.Limit,
		}
		e.mu.Unlock()

		return d
	}
}

// Reset удаляет счетчик ключа
func (l *Limiter) Reset(identifier, endpoint string) {
	key := Key(identifier, endpoint)

	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[key]; ok {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
		delete(l.entries, key)
	}
}

// Stats возвращает текущее состояние счетчика; false если окно не открыто или истекло
func (l *Limiter) Stats(identifier, endpoint string) (Stats, bool) {
	rule := l.Rule(endpoint)

	l.mu.RLock()
	e, ok := l.entries[Key(identifier, endpoint)]
	l.mu.RUnlock()
	if !ok {
		return Stats{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed || e.count == 0 || !l.now().Before(e.resetAt) {
		return Stats{}, false
	}

	return Stats{
		ResetAt:   e.resetAt,
		Count:     e.count,
		Limit:     rule.Limit,
		Remaining: max(0, rule.Limit-e.count),
	}, true
}

// Clear удаляет все счетчики
func (l *Limiter) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.entries {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}
	l.entries = make(map[string]*entry)
	l.threshold = l.baseThreshold
}

// Size возвращает количество счетчиков в памяти
func (l *Limiter) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *Limiter) getOrCreate(key string) *entry {
	l.mu.RLock()
	e, ok := l.entries[key]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Повторная проверка: запись могла появиться пока ждали write lock
	if e, ok := l.entries[key]; ok {
		return e
	}

	if len(l.entries) >= l.threshold {
		l.sweepLocked()
	}

	e = &entry{}
	l.entries[key] = e
	return e
}

// sweepLocked удаляет истекшие записи; вызывается под l.mu
func (l *Limiter) sweepLocked() {
	now := l.now()

	for key, e := range l.entries {
		e.mu.Lock()
		if e.count == 0 || !now.Before(e.resetAt) {
			e.removed = true
			delete(l.entries, key)
		}
		e.mu.Unlock()
	}

	// Порог растет вместе с числом живых записей, чтобы не чистить на каждой вставке
	l.threshold = max(l.baseThreshold, 2*len(l.entries))
}
