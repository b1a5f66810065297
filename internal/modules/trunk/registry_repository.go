package trunk

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RegistryRepository persists brain registrations and the weight change
// history, so the installed brain set survives restarts.
type RegistryRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRegistryRepository creates a new registry repository
func NewRegistryRepository(db *sql.DB, log zerolog.Logger) *RegistryRepository {
	return &RegistryRepository{
		db:  db,
		log: log.With().Str("service", "registry_repository").Logger(),
	}
}

// SaveRegistration inserts or updates a brain registration. The activation
// flag of an existing row is preserved; re-registering at startup must not
// undo a persisted deactivation.
func (r *RegistryRepository) SaveRegistration(reg BrainRegistration) error {
	query := `
		INSERT INTO brain_registry (brain_id, label, brain_type, version, role, horizon, default_weight, is_active, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(brain_id) DO UPDATE SET
			label = excluded.label,
			brain_type = excluded.brain_type,
			version = excluded.version,
			role = excluded.role,
			horizon = excluded.horizon,
			default_weight = excluded.default_weight,
			description = excluded.description
	`

	_, err := r.db.Exec(query,
		reg.BrainID, reg.Label, string(reg.BrainType), reg.Version,
		string(reg.Role), string(reg.Horizon), reg.DefaultWeight,
		boolToInt(reg.IsActive), reg.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to save brain registration: %w", err)
	}

	return nil
}

// LoadRegistrations returns all persisted brain registrations
func (r *RegistryRepository) LoadRegistrations() ([]BrainRegistration, error) {
	query := `
		SELECT brain_id, label, brain_type, version, role, horizon, default_weight, is_active, COALESCE(description, '')
		FROM brain_registry
		ORDER BY brain_id
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query brain registry: %w", err)
	}
	defer rows.Close()

	var regs []BrainRegistration
	for rows.Next() {
		var reg BrainRegistration
		var brainType, role, horizon string
		var isActive int

		err := rows.Scan(&reg.BrainID, &reg.Label, &brainType, &reg.Version,
			&role, &horizon, &reg.DefaultWeight, &isActive, &reg.Description)
		if err != nil {
			return nil, fmt.Errorf("failed to scan brain registration: %w", err)
		}

		reg.BrainType = BrainType(brainType)
		reg.Role = BrainRole(role)
		reg.Horizon = BrainHorizon(horizon)
		reg.IsActive = isActive != 0

		regs = append(regs, reg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating brain registry: %w", err)
	}

	return regs, nil
}

// SetActive updates only the activation flag of a persisted registration
func (r *RegistryRepository) SetActive(brainID string, active bool) error {
	result, err := r.db.Exec(`UPDATE brain_registry SET is_active = ? WHERE brain_id = ?`,
		boolToInt(active), brainID)
	if err != nil {
		return fmt.Errorf("failed to update brain activation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrBrainNotFound
	}

	return nil
}

// AppendWeightSnapshot appends one weight change to the history table
func (r *RegistryRepository) AppendWeightSnapshot(snap WeightSnapshot) error {
	weightsJSON, err := json.Marshal(snap.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO weight_history (weights_json, reason, updated_at) VALUES (?, ?, ?)`,
		string(weightsJSON), snap.Reason, snap.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append weight snapshot: %w", err)
	}

	return nil
}

// LoadWeightHistory returns the persisted weight history, oldest first
func (r *RegistryRepository) LoadWeightHistory() ([]WeightSnapshot, error) {
	rows, err := r.db.Query(`SELECT weights_json, reason, updated_at FROM weight_history ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query weight history: %w", err)
	}
	defer rows.Close()

	var history []WeightSnapshot
	for rows.Next() {
		var weightsJSON, reason, updatedAt string
		if err := rows.Scan(&weightsJSON, &reason, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan weight snapshot: %w", err)
		}

		var weights map[string]float64
		if err := json.Unmarshal([]byte(weightsJSON), &weights); err != nil {
			return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
		}

		ts, err := time.Parse(time.RFC3339, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse snapshot timestamp: %w", err)
		}

		history = append(history, WeightSnapshot{
			Weights:   weights,
			Reason:    reason,
			UpdatedAt: ts,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating weight history: %w", err)
	}

	return history, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
