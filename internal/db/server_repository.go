package db

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ServerRow is one row of the servers table.
type ServerRow struct {
	ServerID       int
	CurrentPlayers int
	WorldName      string
	Land           int
}

// ServerRepository reads and writes channel population.
type ServerRepository struct {
	pool *pgxpool.Pool
}

// NewServerRepository creates a repository over pool.
func NewServerRepository(pool *pgxpool.Pool) *ServerRepository {
	return &ServerRepository{pool: pool}
}

// CurrentPlayers returns the player count of a channel server.
// Unknown servers report zero players.
func (r *ServerRepository) CurrentPlayers(ctx context.Context, serverID int) (uint16, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT current_players FROM servers WHERE server_id = $1`, serverID,
	).Scan(&n)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("querying players of server %d: %w", serverID, err)
	}
	return uint16(min(n, math.MaxUint16)), nil
}

// SetCurrentPlayers upserts the player count of a channel server.
func (r *ServerRepository) SetCurrentPlayers(ctx context.Context, serverID, players int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO servers (server_id, current_players)
		 VALUES ($1, $2)
		 ON CONFLICT (server_id) DO UPDATE SET current_players = EXCLUDED.current_players`,
		serverID, players,
	)
	if err != nil {
		return fmt.Errorf("updating players of server %d: %w", serverID, err)
	}
	return nil
}

// Register upserts a channel server row with its world metadata.
func (r *ServerRepository) Register(ctx context.Context, row ServerRow) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO servers (server_id, current_players, world_name, land)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (server_id) DO UPDATE
		 SET current_players = EXCLUDED.current_players,
		     world_name = EXCLUDED.world_name,
		     land = EXCLUDED.land`,
		row.ServerID, row.CurrentPlayers, row.WorldName, row.Land,
	)
	if err != nil {
		return fmt.Errorf("registering server %d: %w", row.ServerID, err)
	}
	return nil
}

// List returns every registered channel server ordered by id.
func (r *ServerRepository) List(ctx context.Context) ([]ServerRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT server_id, current_players, COALESCE(world_name, ''), COALESCE(land, 0)
		 FROM servers ORDER BY server_id`)
	if err != nil {
		return nil, fmt.Errorf("listing servers: %w", err)
	}
	defer rows.Close()

	var out []ServerRow
	for rows.Next() {
		var row ServerRow
		if err := rows.Scan(&row.ServerID, &row.CurrentPlayers, &row.WorldName, &row.Land); err != nil {
			return nil, fmt.Errorf("scanning server row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating servers: %w", err)
	}
	return out, nil
}
