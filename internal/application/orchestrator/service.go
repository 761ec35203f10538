// Package orchestrator resolves feature invocations against an ordered provider
// chain with caching, per-provider retry and a local fallback, so callers always
// get an answer.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/ports"
)

// Dependencies are the collaborators an orchestrator is built from. Providers
// are tried in slice order.
type Dependencies struct {
	Providers   []ports.Provider
	Directions  ports.DirectionsProvider
	Cache       ports.ResultCache
	Ledger      ports.UsageLedger
	Memory      ports.InteractionMemory
	Credentials ports.CredentialChecker
	Metrics     ports.Metrics
	Logger      ports.Logger
}

// Options tune a Service. Zero values select the defaults.
type Options struct {
	Policy       Policy
	TTLs         map[domain.Feature]time.Duration
	FallbackTTL  time.Duration
	ContextLimit int
	// Timeouts bounds each call per provider ID; missing entries use DefaultProviderTimeout.
	Timeouts     map[string]time.Duration
	Coalesce     bool
	RecordFailed bool
	Now          func() time.Time
	Sleep        Sleeper
}

// Service is the orchestrator. It holds no global state; several may coexist.
type Service struct {
	deps         Dependencies
	metrics      ports.Metrics
	memory       ports.InteractionMemory
	log          ports.Logger
	now          func() time.Time
	sleep        Sleeper
	timeouts     map[string]time.Duration
	contextLimit int
	coalesce     bool
	recordFailed bool

	mu          sync.RWMutex
	policy      Policy
	ttls        map[domain.Feature]time.Duration
	fallbackTTL time.Duration

	flight singleflight.Group
}

var errNoRoutes = errors.New("no routes between origin and destination")

// New validates dependencies and applies defaults.
func New(deps Dependencies, opts Options) (*Service, error) {
	if deps.Cache == nil || deps.Ledger == nil || deps.Logger == nil {
		return nil, errors.New("orchestrator dependencies not satisfied")
	}

	s := &Service{
		deps:         deps,
		metrics:      deps.Metrics,
		memory:       deps.Memory,
		log:          deps.Logger,
		now:          opts.Now,
		sleep:        opts.Sleep,
		timeouts:     make(map[string]time.Duration, len(opts.Timeouts)),
		contextLimit: opts.ContextLimit,
		coalesce:     opts.Coalesce,
		recordFailed: opts.RecordFailed,
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.memory == nil {
		s.memory = nopMemory{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sleep == nil {
		s.sleep = sleepContext
	}
	if s.contextLimit <= 0 {
		s.contextLimit = domain.DefaultContextLimit
	}
	for id, d := range opts.Timeouts {
		s.timeouts[id] = d
	}

	policy := opts.Policy
	if policy == (Policy{}) {
		policy = DefaultPolicy()
	}
	s.SetPolicy(policy)
	s.SetTTLs(opts.TTLs, opts.FallbackTTL)
	return s, nil
}

// SetPolicy replaces the retry policy for subsequent invocations.
func (s *Service) SetPolicy(p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = p
}

// SetTTLs replaces the cache lifetimes. Features missing from ttls keep their defaults.
func (s *Service) SetTTLs(ttls map[domain.Feature]time.Duration, fallbackTTL time.Duration) {
	merged := domain.DefaultTTLs()
	for f, ttl := range ttls {
		merged[f] = ttl
	}
	if fallbackTTL <= 0 {
		fallbackTTL = domain.DefaultFallbackTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttls = merged
	s.fallbackTTL = fallbackTTL
}

func (s *Service) settings(feature domain.Feature) (Policy, time.Duration, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy, s.ttls[feature], s.fallbackTTL
}

// Invalidate drops one cached result by key.
func (s *Service) Invalidate(key string) {
	s.deps.Cache.Invalidate(key)
}

// InvalidateFeature drops every cached result of a feature and reports how many were removed.
func (s *Service) InvalidateFeature(feature domain.Feature) int {
	n := s.deps.Cache.InvalidateFeature(feature)
	s.log.Info("cache invalidated", map[string]interface{}{"feature": string(feature), "entries": n})
	return n
}

// Invoke answers a feature request. It never fails: when no provider can
// answer, the result is a locally computed value with Source "fallback".
// Cancelling ctx does not abort an invocation already in flight.
func (s *Service) Invoke(ctx context.Context, feature domain.Feature, payload map[string]any) domain.OrchestrationResult {
	started := s.now()
	ctx = context.WithoutCancel(ctx)
	req := domain.NewFeatureRequest(feature, payload, started)

	res := s.invoke(ctx, req)
	s.metrics.ObserveInvocation(feature, res.Source, s.now().Sub(started))
	return res
}

func (s *Service) invoke(ctx context.Context, req domain.FeatureRequest) domain.OrchestrationResult {
	if err := checkInput(req.Feature, req.Payload); err != nil {
		return s.shortCircuit(req, err)
	}
	key, err := domain.CacheKey(req.Feature, req.Payload)
	if err != nil {
		return s.shortCircuit(req, &domain.InvalidInputError{Feature: req.Feature, Reason: err.Error()})
	}

	if cached, ok := s.deps.Cache.Get(key); ok {
		s.metrics.ObserveCache(req.Feature, true)
		s.log.Debug("cache hit", map[string]interface{}{"feature": string(req.Feature), "source": cached.Source})
		return cached
	}
	s.metrics.ObserveCache(req.Feature, false)

	if !s.coalesce {
		return s.resolve(ctx, req, key)
	}
	v, _, shared := s.flight.Do(key, func() (any, error) {
		// a flight that just landed may already have filled the cache
		if cached, ok := s.deps.Cache.Get(key); ok {
			return cached, nil
		}
		return s.resolve(ctx, req, key), nil
	})
	res := v.(domain.OrchestrationResult)
	if shared {
		res.Value = domain.CloneMap(res.Value)
	}
	return res
}

func (s *Service) resolve(ctx context.Context, req domain.FeatureRequest, key string) domain.OrchestrationResult {
	policy, ttl, fallbackTTL := s.settings(req.Feature)

	payload := req.Payload
	if req.Feature == domain.FeatureRoute {
		withRoutes, err := s.attachRoutes(ctx, req, policy)
		switch {
		case errors.Is(err, errNoRoutes):
			return s.shortCircuit(req, &domain.InvalidInputError{Feature: req.Feature, Reason: err.Error(), Empty: true})
		case err != nil:
			return s.fallback(req, key, payload, fallbackTTL, err)
		}
		payload = withRoutes
	}

	preq := ports.ProviderRequest{
		Feature: req.Feature,
		Payload: payload,
		Context: s.memory.ContextFor(ctx, req.Feature, s.contextLimit),
	}

	var failures []error
	for _, provider := range s.deps.Providers {
		id := provider.ID()
		if s.deps.Credentials != nil && !s.deps.Credentials.IsAvailable(id) {
			s.log.Debug("skipping provider without credential", map[string]interface{}{
				"feature":  string(req.Feature),
				"provider": id,
			})
			failures = append(failures, fmt.Errorf("%s: %w", id, domain.ErrMissingCredential))
			continue
		}

		result, attempts := WithRetry(ctx, policy, s.sleep, func(ctx context.Context, attempt int) domain.ProviderResult {
			r := s.attempt(ctx, provider, preq)
			s.metrics.ObserveAttempt(id, req.Feature, r.Status)
			if !r.OK() {
				s.deps.Ledger.RecordFailure(id, req.Feature)
				s.logFailure(req.Feature, id, attempt, r)
			}
			return r
		})
		if result.OK() {
			return s.succeed(req, key, ttl, result)
		}
		failures = append(failures, fmt.Errorf("%s after %d attempt(s): %w", id, attempts, resultErr(result)))
	}

	return s.fallback(req, key, payload, fallbackTTL, errors.Join(failures...))
}

// attempt makes one bounded call. A provider that overruns its timeout or
// panics is reported as a failure instead of stalling or crashing the invocation.
func (s *Service) attempt(ctx context.Context, provider ports.Provider, req ports.ProviderRequest) domain.ProviderResult {
	id := provider.ID()
	timeout := s.timeoutFor(id)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req.Payload = domain.CloneMap(req.Payload)
	done := make(chan domain.ProviderResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- domain.Failed(id, domain.ErrorKindInternal, fmt.Errorf("provider panic: %v", r))
			}
		}()
		done <- provider.Call(ctx, req)
	}()

	var res domain.ProviderResult
	select {
	case res = <-done:
	case <-ctx.Done():
		return domain.Failed(id, domain.ErrorKindTimeout, fmt.Errorf("no answer within %s: %w", timeout, ctx.Err()))
	}

	if res.ProviderID == "" {
		res.ProviderID = id
	}
	if res.OK() && res.Value == nil {
		return domain.Failed(id, domain.ErrorKindMalformedResponse, domain.ErrMalformedResponse)
	}
	return res
}

func (s *Service) attachRoutes(ctx context.Context, req domain.FeatureRequest, policy Policy) (map[string]any, error) {
	var in domain.RouteInput
	if err := domain.DecodePayload(req.Payload, &in); err != nil {
		return nil, err
	}
	if len(in.Routes) > 0 || s.deps.Directions == nil {
		return req.Payload, nil
	}

	id := s.deps.Directions.ID()
	var routes []domain.Route
	res, attempts := WithRetry(ctx, policy, s.sleep, func(ctx context.Context, attempt int) domain.ProviderResult {
		found, err := s.fetchRoutes(ctx, id, in.Origin, in.Destination)
		if err != nil {
			r := domain.ResultFromError(id, err)
			s.metrics.ObserveAttempt(id, req.Feature, r.Status)
			s.deps.Ledger.RecordFailure(id, req.Feature)
			s.logFailure(req.Feature, id, attempt, r)
			return r
		}
		routes = found
		s.metrics.ObserveAttempt(id, req.Feature, domain.StatusSuccess)
		return domain.Succeeded(id, map[string]any{}, 0, 0)
	})
	if !res.OK() {
		return nil, fmt.Errorf("directions %s after %d attempt(s): %w", id, attempts, resultErr(res))
	}
	s.deps.Ledger.Record(id, req.Feature, 0, 0)
	if len(routes) == 0 {
		return nil, errNoRoutes
	}

	list := make([]any, 0, len(routes))
	for _, r := range routes {
		list = append(list, r.AsMap())
	}
	payload := domain.CloneMap(req.Payload)
	payload["routes"] = list
	return payload, nil
}

func (s *Service) fetchRoutes(ctx context.Context, id string, origin, destination domain.LatLng) (routes []domain.Route, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeoutFor(id))
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = &domain.ProviderError{ProviderID: id, Kind: domain.ErrorKindInternal, Err: fmt.Errorf("directions panic: %v", r)}
		}
	}()
	return s.deps.Directions.Routes(ctx, origin, destination)
}

func (s *Service) succeed(req domain.FeatureRequest, key string, ttl time.Duration, pr domain.ProviderResult) domain.OrchestrationResult {
	out := domain.OrchestrationResult{
		Feature:    req.Feature,
		Value:      pr.Value,
		Source:     pr.ProviderID,
		TokensUsed: pr.TokensUsed,
		Cost:       pr.Cost,
		ComputedAt: s.now(),
	}
	s.deps.Ledger.Record(pr.ProviderID, req.Feature, pr.TokensUsed, pr.Cost)
	s.deps.Cache.Put(key, out, ttl)
	s.remember(req, out)

	s.log.Info("feature answered", map[string]interface{}{
		"feature":  string(req.Feature),
		"provider": pr.ProviderID,
		"tokens":   pr.TokensUsed,
		"cost":     pr.Cost.String(),
	})
	return out
}

func (s *Service) fallback(req domain.FeatureRequest, key string, payload map[string]any, ttl time.Duration, cause error) domain.OrchestrationResult {
	out := domain.OrchestrationResult{
		Feature:    req.Feature,
		Value:      fallbackValue(req.Feature, payload),
		Source:     domain.SourceFallback,
		ComputedAt: s.now(),
	}
	s.deps.Cache.Put(key, out, ttl)
	if s.recordFailed {
		s.remember(req, out)
	}

	fields := map[string]interface{}{"feature": string(req.Feature), "error_kind": string(domain.ErrorKindNoProviderAvailable)}
	if cause != nil {
		fields["error"] = fmt.Errorf("%w: %w", domain.ErrNoProviderAvailable, cause).Error()
	}
	s.log.Warn("provider chain exhausted, serving fallback", fields)
	return out
}

// shortCircuit answers invalid input with a typed empty value. Nothing is
// cached, recorded or remembered.
func (s *Service) shortCircuit(req domain.FeatureRequest, err error) domain.OrchestrationResult {
	value := emptyValue(req.Feature)
	reason := err.Error()
	var inputErr *domain.InvalidInputError
	if errors.As(err, &inputErr) {
		reason = inputErr.Reason
		if !inputErr.Empty {
			value["invalid_input"] = true
			value["reason"] = reason
		}
	}
	s.metrics.ObserveShortCircuit(req.Feature)
	s.log.Info("request short-circuited", map[string]interface{}{
		"feature":    string(req.Feature),
		"error_kind": string(domain.ErrorKindInvalidInput),
		"reason":     reason,
	})
	return domain.OrchestrationResult{
		Feature:    req.Feature,
		Value:      value,
		Source:     domain.SourceFallback,
		ComputedAt: s.now(),
	}
}

func (s *Service) remember(req domain.FeatureRequest, out domain.OrchestrationResult) {
	s.memory.Append(domain.Interaction{
		Timestamp: out.ComputedAt,
		Feature:   req.Feature,
		Query:     queryText(req),
		Response:  responseText(req.Feature, out.Value),
		Metadata: map[string]string{
			domain.MetadataSource:     out.Source,
			domain.MetadataTokensUsed: strconv.Itoa(out.TokensUsed),
		},
	})
}

func (s *Service) logFailure(feature domain.Feature, providerID string, attempt int, r domain.ProviderResult) {
	fields := map[string]interface{}{
		"feature":    string(feature),
		"provider":   providerID,
		"attempt":    attempt + 1,
		"status":     string(r.Status),
		"error_kind": string(r.ErrorKind),
	}
	if r.Err != nil {
		fields["error"] = r.Err.Error()
	}
	s.log.Warn("provider attempt failed", fields)
}

func (s *Service) timeoutFor(providerID string) time.Duration {
	if d, ok := s.timeouts[providerID]; ok && d > 0 {
		return d
	}
	return domain.DefaultProviderTimeout
}

func resultErr(r domain.ProviderResult) error {
	if r.Err != nil {
		return r.Err
	}
	return errors.New(string(r.ErrorKind))
}

func queryText(req domain.FeatureRequest) string {
	if req.Feature == domain.FeatureChat {
		if msg, ok := req.Payload["message"].(string); ok {
			return msg
		}
	}
	raw, err := json.Marshal(req.Payload)
	if err != nil {
		return ""
	}
	return string(raw)
}

func responseText(feature domain.Feature, value map[string]any) string {
	if feature == domain.FeatureChat {
		if reply, ok := value["reply"].(string); ok {
			return reply
		}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(raw)
}

type nopMetrics struct{}

func (nopMetrics) ObserveInvocation(domain.Feature, string, time.Duration) {}
func (nopMetrics) ObserveAttempt(string, domain.Feature, domain.Status)    {}
func (nopMetrics) ObserveCache(domain.Feature, bool)                       {}
func (nopMetrics) ObserveShortCircuit(domain.Feature)                      {}

type nopMemory struct{}

func (nopMemory) Append(domain.Interaction)                              {}
func (nopMemory) ContextFor(context.Context, domain.Feature, int) string { return "" }
