package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrymomot/eventkit/pkg/pg"
)

// PostgresStateStore keeps states in the coordinator_states table.
type PostgresStateStore struct {
	db pg.DB
}

// NewPostgresStateStore creates a store on db.
func NewPostgresStateStore(db pg.DB) *PostgresStateStore {
	return &PostgresStateStore{db: db}
}

// Save implements StateStore.
func (p *PostgresStateStore) Save(ctx context.Context, s State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	_, err = p.db.Exec(ctx, `
		INSERT INTO coordinator_states (event_id, phase, generation, state, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO UPDATE SET
			phase = EXCLUDED.phase,
			generation = EXCLUDED.generation,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at`,
		s.EventID, string(s.Phase), s.Generation, data, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save state %s: %w", s.EventID, err)
	}
	return nil
}

// Load implements StateStore.
func (p *PostgresStateStore) Load(ctx context.Context, eventID string) (State, error) {
	var data []byte
	err := p.db.QueryRow(ctx, `SELECT state FROM coordinator_states WHERE event_id = $1`, eventID).Scan(&data)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return State{}, ErrStateNotFound
		}
		return State{}, fmt.Errorf("load state %s: %w", eventID, err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, errors.Join(fmt.Errorf("decode state %s", eventID), err)
	}
	return s, nil
}

// Delete implements StateStore.
func (p *PostgresStateStore) Delete(ctx context.Context, eventID string) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM coordinator_states WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("delete state %s: %w", eventID, err)
	}
	return nil
}

// ListActive implements StateStore.
func (p *PostgresStateStore) ListActive(ctx context.Context) ([]string, error) {
	rows, err := p.db.Query(ctx, `
		SELECT event_id FROM coordinator_states
		WHERE phase IN ('starting', 'active')
		ORDER BY event_id`)
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan state id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
