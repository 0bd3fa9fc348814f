// Package postgres implements the role config store on PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merakitalent/fernando-format/internal/domain"
)

// NewPool creates a pgx pool with sane defaults.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = time.Hour
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return pool, nil
}

// RoleRepo reads role records. Implements domain.RoleSource.
type RoleRepo struct {
	pool *pgxpool.Pool
}

// NewRoleRepo constructs a RoleRepo.
func NewRoleRepo(pool *pgxpool.Pool) *RoleRepo { return &RoleRepo{pool: pool} }

// ListActiveRoles returns active roles in their configured order. Inactive
// records are filtered at the query so a deactivated role disappears on the
// next registry reload.
func (r *RoleRepo) ListActiveRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, display_name, trigger_keyword, aliases, instruction_template, output_kind
		FROM roles
		WHERE active
		ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var out []domain.Role
	for rows.Next() {
		var role domain.Role
		var output string
		if err := rows.Scan(&role.ID, &role.DisplayName, &role.Trigger, &role.Aliases, &role.Instruction, &output); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		role.Output = domain.OutputKind(output)
		role.Active = true
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return out, nil
}
