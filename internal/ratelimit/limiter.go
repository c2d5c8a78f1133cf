// Package ratelimit decides whether an identity may perform an action under a
// named sliding-window policy.
package ratelimit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Domenick1991/medlaw-booking/config"
)

// BookingPolicy guards booking creation.
const BookingPolicy = "booking"

type Policy struct {
	Name   string
	Window time.Duration
	Limit  int
}

type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long a denied caller should wait, measured from now.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || !d.ResetAt.After(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

type Limiter interface {
	Allow(ctx context.Context, policy Policy, identity string) (Decision, error)
}

type Registry struct {
	policies map[string]Policy
}

func NewRegistry(cfg config.RateLimitConfig) (*Registry, error) {
	r := &Registry{policies: make(map[string]Policy, len(cfg.Policies))}
	for name, pc := range cfg.Policies {
		if pc.Limit <= 0 || pc.WindowSeconds <= 0 {
			return nil, fmt.Errorf("rate limit policy %q: limit and window must be positive", name)
		}
		r.policies[name] = Policy{Name: name, Window: time.Duration(pc.WindowSeconds) * time.Second, Limit: pc.Limit}
	}
	if _, ok := r.policies[BookingPolicy]; !ok {
		return nil, fmt.Errorf("rate limit policy %q is not configured", BookingPolicy)
	}
	return r, nil
}

func (r *Registry) Get(name string) (Policy, bool) {
	p, ok := r.policies[name]
	return p, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
