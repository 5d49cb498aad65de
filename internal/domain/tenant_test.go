package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTenant(t *testing.T) {
	now := time.Now()
	cfg := TenantConfig{EmbeddingProvider: EmbeddingProviderDefault, ChunkSize: 1000, ChunkOverlap: 200}
	tenant := NewTenant("t1", "Acme", cfg, now)

	assert.Equal(t, "t1", tenant.ID)
	assert.Equal(t, "Acme", tenant.Name)
	assert.Equal(t, now, tenant.CreatedAt)
	assert.Equal(t, cfg, tenant.Config)
	assert.Zero(t, tenant.Stats.DocumentsCount)
	assert.Zero(t, tenant.Stats.ChunksCount)
	assert.Nil(t, tenant.Stats.LastUpdated)
}

func TestTenant_RecordIngestion(t *testing.T) {
	tenant := NewTenant("t1", "", TenantConfig{}, time.Now())
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tenant.RecordIngestion(3, 12, at)
	tenant.RecordIngestion(1, 0, at.Add(time.Minute))

	assert.Equal(t, 4, tenant.Stats.DocumentsCount)
	assert.Equal(t, 12, tenant.Stats.ChunksCount)
	require.NotNil(t, tenant.Stats.LastUpdated)
	assert.Equal(t, at.Add(time.Minute), *tenant.Stats.LastUpdated)
}

func TestTenant_CloneIsIndependent(t *testing.T) {
	tenant := NewTenant("t1", "", TenantConfig{}, time.Now())
	tenant.RecordIngestion(1, 2, time.Now())

	clone := tenant.Clone()
	clone.Stats.DocumentsCount = 99
	*clone.Stats.LastUpdated = time.Time{}

	assert.Equal(t, 1, tenant.Stats.DocumentsCount)
	assert.False(t, tenant.Stats.LastUpdated.IsZero())
	assert.Nil(t, (*Tenant)(nil).Clone())
}

func TestValidateTenant(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		tenant  *Tenant
		wantErr bool
		errMsg  string
	}{
		{name: "valid tenant", tenant: &Tenant{ID: "t1", CreatedAt: now}},
		{name: "nil tenant", tenant: nil, wantErr: true, errMsg: "nil"},
		{name: "missing ID", tenant: &Tenant{CreatedAt: now}, wantErr: true, errMsg: "ID"},
		{name: "missing CreatedAt", tenant: &Tenant{ID: "t1"}, wantErr: true, errMsg: "CreatedAt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTenant(tt.tenant)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSourceType_IsValid(t *testing.T) {
	assert.True(t, SourceTypePDF.IsValid())
	assert.True(t, SourceTypeWeb.IsValid())
	assert.False(t, SourceType("docx").IsValid())
	assert.False(t, SourceType("").IsValid())
}
