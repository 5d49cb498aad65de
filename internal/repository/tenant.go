package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/pagination"
	"github.com/marianoInsa/ChatBot-RAG/internal/service"
)

const tenantColumns = `id, name, created_at, config, documents_count, chunks_count, last_updated`

const upsertTenantSQL = `INSERT INTO tenants (id, name, created_at, config, documents_count, chunks_count, last_updated, synced_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		config = EXCLUDED.config,
		documents_count = EXCLUDED.documents_count,
		chunks_count = EXCLUDED.chunks_count,
		last_updated = EXCLUDED.last_updated,
		synced_at = NOW()`

type TenantPageResult struct {
	Items      []*domain.Tenant
	NextCursor string
	HasMore    bool
}

// TenantRepository persists tenant metadata. Vector indices are never stored.
type TenantRepository struct {
	pool *pgxpool.Pool
}

func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

func (r *TenantRepository) Upsert(ctx context.Context, t *domain.Tenant) error {
	args, err := tenantArgs(t)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, upsertTenantSQL, args...)
	return err
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`,
		id,
	)
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *TenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (r *TenantRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*TenantPageResult, error) {
	limit = pagination.NormalizeLimit(limit)

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.pool.Query(ctx,
			`SELECT `+tenantColumns+` FROM tenants
			 WHERE (created_at, id) > ($1, $2)
			 ORDER BY created_at ASC, id ASC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT `+tenantColumns+` FROM tenants
			 ORDER BY created_at ASC, id ASC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(tenants) > limit
	if hasMore {
		tenants = tenants[:limit]
	}

	var nextCursor string
	if hasMore && len(tenants) > 0 {
		last := tenants[len(tenants)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &TenantPageResult{
		Items:      tenants,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

// ApplyChanges writes a batch of pending changes in one transaction. Deleting
// an absent tenant is not an error here.
func (r *TenantRepository) ApplyChanges(ctx context.Context, changes []service.TenantChange) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, c := range changes {
		if c.Tenant == nil {
			batch.Queue(`DELETE FROM tenants WHERE id = $1`, c.TenantID)
			continue
		}
		args, err := tenantArgs(c.Tenant)
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		batch.Queue(upsertTenantSQL, args...)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("failed to apply tenant changes: %w", err)
	}

	return tx.Commit(ctx)
}

func tenantArgs(t *domain.Tenant) ([]any, error) {
	cfg, err := json.Marshal(t.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tenant config: %w", err)
	}
	return []any{t.ID, t.Name, t.CreatedAt, cfg, t.Stats.DocumentsCount, t.Stats.ChunksCount, t.Stats.LastUpdated}, nil
}

func scanTenant(row pgx.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	var cfg []byte
	var lastUpdated *time.Time
	if err := row.Scan(&t.ID, &t.Name, &t.CreatedAt, &cfg, &t.Stats.DocumentsCount, &t.Stats.ChunksCount, &lastUpdated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cfg, &t.Config); err != nil {
		return nil, fmt.Errorf("failed to decode tenant config: %w", err)
	}
	if lastUpdated != nil {
		lu := lastUpdated.UTC()
		lastUpdated = &lu
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.Stats.LastUpdated = lastUpdated
	return &t, nil
}
