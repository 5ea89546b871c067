// Package health runs periodic self-checks for the daemon: model
// freshness, journal integrity, and anything else a component
// registers.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Status is the outcome of a check or of the checker overall.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// CheckResult is one check's outcome.
type CheckResult struct {
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration_ns"`
	Error       string        `json:"error,omitempty"`
}

// Check performs one health probe.
type Check func(ctx context.Context) CheckResult

// Component is a named, registered check. Critical failures make the
// overall status unhealthy; non-critical ones only degrade it.
type Component struct {
	Name     string
	Critical bool
	Check    Check
	Timeout  time.Duration
}

// Checker runs registered checks and aggregates their results.
type Checker struct {
	mu         sync.RWMutex
	components map[string]*Component
	results    map[string]CheckResult
}

// NewChecker returns an empty checker.
func NewChecker() *Checker {
	return &Checker{
		components: make(map[string]*Component),
		results:    make(map[string]CheckResult),
	}
}

// Register adds a component. A zero timeout defaults to 5 seconds.
func (c *Checker) Register(component *Component) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if component.Timeout == 0 {
		component.Timeout = 5 * time.Second
	}
	c.components[component.Name] = component
	c.results[component.Name] = CheckResult{Status: StatusUnknown}
}

// RegisterFunc adds a check under a name.
func (c *Checker) RegisterFunc(name string, critical bool, check Check) {
	c.Register(&Component{Name: name, Critical: critical, Check: check})
}

// Check runs every registered check and caches the results.
func (c *Checker) Check(ctx context.Context) map[string]CheckResult {
	c.mu.RLock()
	components := make([]*Component, 0, len(c.components))
	for _, comp := range c.components {
		components = append(components, comp)
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(components))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, comp := range components {
		wg.Add(1)
		go func(comp *Component) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, comp.Timeout)
			defer cancel()

			start := time.Now()
			result := runChecked(checkCtx, comp.Check)
			result.LastChecked = start
			result.Duration = time.Since(start)

			mu.Lock()
			results[comp.Name] = result
			mu.Unlock()
		}(comp)
	}
	wg.Wait()

	c.mu.Lock()
	for name, r := range results {
		c.results[name] = r
	}
	c.mu.Unlock()
	return results
}

// runChecked runs a check, converting a panic into an unhealthy result.
func runChecked(ctx context.Context, check Check) (result CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			result = CheckResult{
				Status: StatusUnhealthy,
				Error:  fmt.Sprintf("check panicked: %v", r),
			}
		}
	}()
	return check(ctx)
}

// OverallStatus aggregates the latest cached results. A failing
// critical component is unhealthy; any other failure degrades.
func (c *Checker) OverallStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.results) == 0 {
		return StatusUnknown
	}

	overall := StatusHealthy
	for name, result := range c.results {
		if result.Status == StatusHealthy || result.Status == StatusUnknown {
			continue
		}
		comp, ok := c.components[name]
		if ok && comp.Critical && result.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
		overall = StatusDegraded
	}
	return overall
}

// JournalCheck probes the verdict journal's integrity chain.
func JournalCheck(verify func() error) Check {
	return func(ctx context.Context) CheckResult {
		if err := verify(); err != nil {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: "journal integrity check failed",
				Error:   err.Error(),
			}
		}
		return CheckResult{Status: StatusHealthy, Message: "journal chain verified"}
	}
}

// ModelCheck reports whether the detectors have a usable snapshot and
// how stale it is.
func ModelCheck(fittedAt func() (time.Time, bool), maxAge time.Duration) Check {
	return func(ctx context.Context) CheckResult {
		at, ok := fittedAt()
		if !ok {
			return CheckResult{Status: StatusUnhealthy, Message: "models not fitted"}
		}
		if maxAge > 0 && time.Since(at) > maxAge {
			return CheckResult{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("models fitted %s ago", time.Since(at).Round(time.Second)),
			}
		}
		return CheckResult{Status: StatusHealthy}
	}
}
