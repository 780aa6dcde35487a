package application

import (
	"sync"
)

// EngineProvider hands out tenant-bound engines and resolution
// services, constructing each tenant's pair once. The builder closes
// over the shared repositories and adapter registry; engines share
// persistence but never locks or tenant scope.
type EngineProvider struct {
	mu        sync.RWMutex
	engines   map[string]*SyncEngine
	resolvers map[string]*ConflictResolutionService

	buildEngine   func(tenantID string) *SyncEngine
	buildResolver func(engine *SyncEngine) *ConflictResolutionService
}

// NewEngineProvider creates a provider over the given builders
func NewEngineProvider(
	buildEngine func(tenantID string) *SyncEngine,
	buildResolver func(engine *SyncEngine) *ConflictResolutionService,
) *EngineProvider {
	return &EngineProvider{
		engines:       make(map[string]*SyncEngine),
		resolvers:     make(map[string]*ConflictResolutionService),
		buildEngine:   buildEngine,
		buildResolver: buildResolver,
	}
}

// Engine returns the engine bound to tenantID, creating it on first use
func (p *EngineProvider) Engine(tenantID string) *SyncEngine {
	p.mu.RLock()
	engine, ok := p.engines[tenantID]
	p.mu.RUnlock()
	if ok {
		return engine
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if engine, ok := p.engines[tenantID]; ok {
		return engine
	}
	engine = p.buildEngine(tenantID)
	p.engines[tenantID] = engine
	p.resolvers[tenantID] = p.buildResolver(engine)
	return engine
}

// Resolver returns the conflict resolution service for tenantID
func (p *EngineProvider) Resolver(tenantID string) *ConflictResolutionService {
	p.Engine(tenantID)

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.resolvers[tenantID]
}
