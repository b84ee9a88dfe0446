package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/limaJavier/studyplan/pkg/model"
)

var ErrNotFound = errors.New("plan not found")

// PlanRecord is the stored identity of a plan.
type PlanRecord struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Inputs are the user-owned parts of a plan in persisted form: content codes
// instead of catalogue objects.
type Inputs struct {
	Selections  []string
	ForcedTimes map[string]model.Time
	Capacities  map[model.Time]int
}

// InputsOf captures the inputs of a plan.
func InputsOf(plan *model.Plan) Inputs {
	modelInputs := plan.Inputs()
	inputs := Inputs{
		Selections:  make([]string, 0, len(modelInputs.Selections)),
		ForcedTimes: make(map[string]model.Time, len(modelInputs.ForcedTimes)),
		Capacities:  maps.Clone(modelInputs.Capacities),
	}
	for _, content := range modelInputs.Selections {
		inputs.Selections = append(inputs.Selections, content.Code())
	}
	for subject, t := range modelInputs.ForcedTimes {
		inputs.ForcedTimes[subject.Code()] = t
	}
	if inputs.Capacities == nil {
		inputs.Capacities = make(map[model.Time]int)
	}
	return inputs
}

// Resolve looks every code up in registry.
func (inputs Inputs) Resolve(registry model.Registry) (model.Inputs, error) {
	resolved := model.Inputs{
		Selections:  make([]model.Content, 0, len(inputs.Selections)),
		ForcedTimes: make(map[*model.Subject]model.Time, len(inputs.ForcedTimes)),
		Capacities:  maps.Clone(inputs.Capacities),
	}
	for _, code := range inputs.Selections {
		content, ok := registry.Lookup(code)
		if !ok {
			return model.Inputs{}, fmt.Errorf("selection %v: %w", code, model.ErrUnknownContent)
		}
		resolved.Selections = append(resolved.Selections, content)
	}
	for _, code := range slices.Sorted(maps.Keys(inputs.ForcedTimes)) {
		content, ok := registry.Lookup(code)
		if !ok {
			return model.Inputs{}, fmt.Errorf("forced time of %v: %w", code, model.ErrUnknownContent)
		}
		subject, ok := content.(*model.Subject)
		if !ok {
			return model.Inputs{}, fmt.Errorf("forced time of %v: %w", code, model.ErrNotSubject)
		}
		resolved.ForcedTimes[subject] = inputs.ForcedTimes[code]
	}
	return resolved, nil
}

// Repo persists plans and their inputs in SQLite.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, name string) (PlanRecord, error) {
	now := time.Now().UTC().Truncate(time.Second)
	record := PlanRecord{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
	query := `INSERT INTO plans (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, record.ID, record.Name, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return PlanRecord{}, fmt.Errorf("inserting plan: %w", err)
	}
	return record, nil
}

// Get finds a plan by id or by a unique id prefix.
func (r *Repo) Get(ctx context.Context, id string) (PlanRecord, error) {
	query := `SELECT id, name, created_at, updated_at FROM plans WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id = ? DESC LIMIT 2`
	rows, err := r.db.QueryContext(ctx, query, id, escapeLike(id)+"%", id)
	if err != nil {
		return PlanRecord{}, fmt.Errorf("getting plan: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return PlanRecord{}, err
	}
	switch {
	case len(records) == 0 || id == "":
		return PlanRecord{}, fmt.Errorf("%w: %v", ErrNotFound, id)
	case records[0].ID == id || len(records) == 1:
		return records[0], nil
	default:
		return PlanRecord{}, fmt.Errorf("plan id %v is ambiguous", id)
	}
}

func (r *Repo) List(ctx context.Context) ([]PlanRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM plans ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting plan: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting plan: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %v", ErrNotFound, id)
	}
	return nil
}

// SaveInputs replaces the stored inputs of a plan.
func (r *Repo) SaveInputs(ctx context.Context, id string, inputs Inputs) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := tx.ExecContext(ctx, `UPDATE plans SET updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("touching plan: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: %v", ErrNotFound, id)
	}

	for _, table := range []string{"plan_selections", "plan_forced_times", "plan_capacities"} {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE plan_id = ?`, id); err != nil {
			return fmt.Errorf("clearing %v: %w", table, err)
		}
	}
	for position, code := range inputs.Selections {
		_, err = tx.ExecContext(ctx, `INSERT INTO plan_selections (plan_id, position, code) VALUES (?, ?, ?)`, id, position, code)
		if err != nil {
			return fmt.Errorf("inserting selection %v: %w", code, err)
		}
	}
	for code, t := range inputs.ForcedTimes {
		_, err = tx.ExecContext(ctx, `INSERT INTO plan_forced_times (plan_id, code, year, session) VALUES (?, ?, ?, ?)`,
			id, code, t.Year, t.Session.String())
		if err != nil {
			return fmt.Errorf("inserting forced time of %v: %w", code, err)
		}
	}
	for t, creditPoints := range inputs.Capacities {
		_, err = tx.ExecContext(ctx, `INSERT INTO plan_capacities (plan_id, year, session, credit_points) VALUES (?, ?, ?, ?)`,
			id, t.Year, t.Session.String(), creditPoints)
		if err != nil {
			return fmt.Errorf("inserting capacity of %v: %w", t, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing inputs: %w", err)
	}
	return nil
}

func (r *Repo) LoadInputs(ctx context.Context, id string) (Inputs, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return Inputs{}, err
	}
	inputs := Inputs{
		Selections:  make([]string, 0),
		ForcedTimes: make(map[string]model.Time),
		Capacities:  make(map[model.Time]int),
	}

	rows, err := r.db.QueryContext(ctx, `SELECT code FROM plan_selections WHERE plan_id = ? ORDER BY position`, id)
	if err != nil {
		return Inputs{}, fmt.Errorf("loading selections: %w", err)
	}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return Inputs{}, fmt.Errorf("scanning selection: %w", err)
		}
		inputs.Selections = append(inputs.Selections, code)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Inputs{}, fmt.Errorf("iterating selections: %w", err)
	}

	rows, err = r.db.QueryContext(ctx, `SELECT code, year, session FROM plan_forced_times WHERE plan_id = ?`, id)
	if err != nil {
		return Inputs{}, fmt.Errorf("loading forced times: %w", err)
	}
	for rows.Next() {
		var code string
		t, err := scanTime(rows, &code)
		if err != nil {
			rows.Close()
			return Inputs{}, err
		}
		inputs.ForcedTimes[code] = t
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Inputs{}, fmt.Errorf("iterating forced times: %w", err)
	}

	rows, err = r.db.QueryContext(ctx, `SELECT credit_points, year, session FROM plan_capacities WHERE plan_id = ?`, id)
	if err != nil {
		return Inputs{}, fmt.Errorf("loading capacities: %w", err)
	}
	for rows.Next() {
		var creditPoints int
		t, err := scanTime(rows, &creditPoints)
		if err != nil {
			rows.Close()
			return Inputs{}, err
		}
		inputs.Capacities[t] = creditPoints
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Inputs{}, fmt.Errorf("iterating capacities: %w", err)
	}

	return inputs, nil
}

// scanTime scans a row whose last two columns are a year and a session.
func scanTime(rows *sql.Rows, leading any) (model.Time, error) {
	var year int
	var sessionStr string
	if err := rows.Scan(leading, &year, &sessionStr); err != nil {
		return model.Time{}, fmt.Errorf("scanning time: %w", err)
	}
	session, err := model.ParseSession(sessionStr)
	if err != nil {
		return model.Time{}, fmt.Errorf("parsing session: %w", err)
	}
	return model.NewTime(year, session), nil
}

func scanRecords(rows *sql.Rows) ([]PlanRecord, error) {
	records := make([]PlanRecord, 0)
	for rows.Next() {
		var record PlanRecord
		var createdAtStr, updatedAtStr string
		if err := rows.Scan(&record.ID, &record.Name, &createdAtStr, &updatedAtStr); err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		var err error
		if record.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if record.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plans: %w", err)
	}
	return records, nil
}

// escapeLike makes value match literally in a LIKE pattern escaped by '\'.
func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(value)
}
