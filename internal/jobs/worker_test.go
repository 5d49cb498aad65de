package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/service"
)

// MockProcessor is a mock implementation of Processor
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Process(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockChangeSource is a mock implementation of ChangeSource
type MockChangeSource struct {
	mock.Mock
}

func (m *MockChangeSource) PendingChanges() []service.TenantChange {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]service.TenantChange)
}

func (m *MockChangeSource) Requeue(changes []service.TenantChange) {
	m.Called(changes)
}

// MockTenantStore is a mock implementation of TenantStore
type MockTenantStore struct {
	mock.Mock
}

func (m *MockTenantStore) ApplyChanges(ctx context.Context, changes []service.TenantChange) error {
	args := m.Called(ctx, changes)
	return args.Error(0)
}

func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockProcessor)
	mockProcessor.On("Process", mock.Anything).Return(nil)

	worker := NewWorker("test", mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	// two ticks plus the final flush
	assert.GreaterOrEqual(t, len(mockProcessor.Calls), 3)
}

func TestWorker_StopFlushesBeforeFirstTick(t *testing.T) {
	mockProcessor := new(MockProcessor)
	mockProcessor.On("Process", mock.Anything).Return(nil)

	worker := NewWorker("test", mockProcessor, time.Hour)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(context.Background())
	}()

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertNumberOfCalls(t, "Process", 1)
}

func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockProcessor)
	mockProcessor.On("Process", mock.Anything).Return(errors.New("db down"))

	worker := NewWorker("test", mockProcessor, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(120 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "Process", mock.Anything)
}

func TestTenantSyncProcessor_NoChanges(t *testing.T) {
	source := new(MockChangeSource)
	store := new(MockTenantStore)
	source.On("PendingChanges").Return(nil)

	err := NewTenantSyncProcessor(source, store).Process(context.Background())

	assert.NoError(t, err)
	store.AssertNotCalled(t, "ApplyChanges", mock.Anything, mock.Anything)
}

func TestTenantSyncProcessor_Success(t *testing.T) {
	source := new(MockChangeSource)
	store := new(MockTenantStore)
	ctx := context.Background()

	changes := []service.TenantChange{
		{TenantID: "a", Tenant: domain.NewTenant("a", "", domain.TenantConfig{}, time.Now())},
		{TenantID: "b"},
	}
	source.On("PendingChanges").Return(changes)
	store.On("ApplyChanges", ctx, changes).Return(nil)

	err := NewTenantSyncProcessor(source, store).Process(ctx)

	assert.NoError(t, err)
	store.AssertExpectations(t)
	source.AssertNotCalled(t, "Requeue", mock.Anything)
}

func TestTenantSyncProcessor_FailureRequeues(t *testing.T) {
	source := new(MockChangeSource)
	store := new(MockTenantStore)
	ctx := context.Background()

	changes := []service.TenantChange{{TenantID: "b"}}
	source.On("PendingChanges").Return(changes)
	source.On("Requeue", changes).Return()
	store.On("ApplyChanges", ctx, changes).Return(errors.New("connection refused"))

	err := NewTenantSyncProcessor(source, store).Process(ctx)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	source.AssertExpectations(t)
}
