package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/marianoInsa/ChatBot-RAG/internal/service"
)

// ChangeSource hands out pending tenant changes and takes back the ones that failed
type ChangeSource interface {
	PendingChanges() []service.TenantChange
	Requeue(changes []service.TenantChange)
}

// TenantStore persists tenant changes
type TenantStore interface {
	ApplyChanges(ctx context.Context, changes []service.TenantChange) error
}

// TenantSyncProcessor writes in-memory tenant metadata changes to the store
type TenantSyncProcessor struct {
	source ChangeSource
	store  TenantStore
}

// NewTenantSyncProcessor creates a new TenantSyncProcessor instance
func NewTenantSyncProcessor(source ChangeSource, store TenantStore) *TenantSyncProcessor {
	return &TenantSyncProcessor{source: source, store: store}
}

// Process implements the Processor interface
func (p *TenantSyncProcessor) Process(ctx context.Context) error {
	changes := p.source.PendingChanges()
	if len(changes) == 0 {
		return nil
	}

	if err := p.store.ApplyChanges(ctx, changes); err != nil {
		p.source.Requeue(changes)
		return fmt.Errorf("failed to sync %d tenant changes: %w", len(changes), err)
	}

	log.Printf("tenant sync: persisted %d changes", len(changes))
	return nil
}
