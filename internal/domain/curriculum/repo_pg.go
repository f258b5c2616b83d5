package curriculum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/psyhead/clinic/internal/platform/authz"
	"github.com/psyhead/clinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const programCols = `ap.id, ap.patient_id, ap.code, ap.name, ap.category, ap.description,
	ap.target_behavior, ap.current_criteria, ap.status, ap.created_at, ap.updated_at`

func scanProgram(row pgx.Row) (*Program, error) {
	var p Program
	err := row.Scan(&p.ID, &p.PatientID, &p.Code, &p.Name, &p.Category, &p.Description,
		&p.TargetBehavior, &p.CurrentCriteria, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) CreateProgram(ctx context.Context, p *Program) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO programs (id, patient_id, code, name, category, description,
			target_behavior, current_criteria, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.PatientID, p.Code, p.Name, p.Category, p.Description,
		p.TargetBehavior, p.CurrentCriteria, p.Status)
	return err
}

func (r *repoPG) GetProgram(ctx context.Context, id uuid.UUID) (*Program, error) {
	return scanProgram(r.conn(ctx).QueryRow(ctx,
		`SELECT `+programCols+` FROM programs ap WHERE ap.id = $1`, id))
}

func (r *repoPG) UpdateProgram(ctx context.Context, p *Program) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE programs SET
			patient_id = $2, code = $3, name = $4, category = $5, description = $6,
			target_behavior = $7, current_criteria = $8, status = $9, updated_at = now()
		WHERE id = $1`,
		p.ID, p.PatientID, p.Code, p.Name, p.Category, p.Description,
		p.TargetBehavior, p.CurrentCriteria, p.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authz.ErrNotFound
	}
	return nil
}

func (r *repoPG) DeleteProgram(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM programs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authz.ErrNotFound
	}
	return nil
}

func (r *repoPG) ListPrograms(ctx context.Context, scope authz.ScopePredicate, patientID *uuid.UUID) ([]*Program, error) {
	cond, args := db.ScopeCondition(scope, "p", nil)
	query := `
		SELECT ` + programCols + `, p.full_name
		FROM programs ap
		JOIN patients p ON p.id = ap.patient_id
		WHERE ` + cond
	if patientID != nil {
		args = append(args, *patientID)
		query += fmt.Sprintf(" AND ap.patient_id = $%d", len(args))
	}
	query += " ORDER BY ap.created_at DESC"

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var programs []*Program
	for rows.Next() {
		var p Program
		err := rows.Scan(&p.ID, &p.PatientID, &p.Code, &p.Name, &p.Category, &p.Description,
			&p.TargetBehavior, &p.CurrentCriteria, &p.Status, &p.CreatedAt, &p.UpdatedAt,
			&p.PatientName)
		if err != nil {
			return nil, err
		}
		programs = append(programs, &p)
	}
	return programs, rows.Err()
}

func (r *repoPG) CreateTarget(ctx context.Context, t *Target) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO targets (id, therapist_id, label)
		VALUES ($1, $2, $3)`,
		t.ID, t.TherapistID, t.Label)
	return err
}

func (r *repoPG) GetTarget(ctx context.Context, id uuid.UUID) (*Target, error) {
	var t Target
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, therapist_id, label, created_at FROM targets WHERE id = $1`, id).
		Scan(&t.ID, &t.TherapistID, &t.Label, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repoPG) DeleteTarget(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM targets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authz.ErrNotFound
	}
	return nil
}

func (r *repoPG) ListTargets(ctx context.Context) ([]*Target, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, therapist_id, label, created_at FROM targets ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []*Target
	for rows.Next() {
		var t Target
		if err := rows.Scan(&t.ID, &t.TherapistID, &t.Label, &t.CreatedAt); err != nil {
			return nil, err
		}
		targets = append(targets, &t)
	}
	return targets, rows.Err()
}

func (r *repoPG) CreatePlan(ctx context.Context, p *Plan) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO plans (id, patient_id, title, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.PatientID, p.Title, p.StartDate, p.EndDate, p.Status)
	return err
}

func (r *repoPG) GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error) {
	var p Plan
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT pt.id, pt.patient_id, pt.title, pt.start_date, pt.end_date, pt.status,
			pt.created_at, pt.updated_at,
			COALESCE(ARRAY_AGG(g.description ORDER BY g.position)
				FILTER (WHERE g.id IS NOT NULL), ARRAY[]::text[])
		FROM plans pt
		LEFT JOIN plan_goals g ON g.plan_id = pt.id
		WHERE pt.id = $1
		GROUP BY pt.id`, id).
		Scan(&p.ID, &p.PatientID, &p.Title, &p.StartDate, &p.EndDate, &p.Status,
			&p.CreatedAt, &p.UpdatedAt, &p.Goals)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) UpdatePlan(ctx context.Context, p *Plan) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE plans SET
			patient_id = $2, title = $3, start_date = $4, end_date = $5, status = $6,
			updated_at = now()
		WHERE id = $1`,
		p.ID, p.PatientID, p.Title, p.StartDate, p.EndDate, p.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authz.ErrNotFound
	}
	return nil
}

func (r *repoPG) DeletePlan(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authz.ErrNotFound
	}
	return nil
}

// ReplacePlanGoals rewrites a plan's goal list in order. Callers run it
// inside the same transaction as the plan write.
func (r *repoPG) ReplacePlanGoals(ctx context.Context, planID uuid.UUID, goals []string) error {
	q := r.conn(ctx)
	if _, err := q.Exec(ctx, `DELETE FROM plan_goals WHERE plan_id = $1`, planID); err != nil {
		return err
	}
	for i, goal := range goals {
		_, err := q.Exec(ctx, `
			INSERT INTO plan_goals (id, plan_id, position, description)
			VALUES ($1, $2, $3, $4)`,
			uuid.New(), planID, i+1, goal)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) ListPlans(ctx context.Context, scope authz.ScopePredicate, patientID *uuid.UUID) ([]*Plan, error) {
	cond, args := db.ScopeCondition(scope, "p", nil)
	query := `
		SELECT pt.id, pt.patient_id, pt.title, pt.start_date, pt.end_date, pt.status,
			pt.created_at, pt.updated_at,
			COALESCE(ARRAY_AGG(g.description ORDER BY g.position)
				FILTER (WHERE g.id IS NOT NULL), ARRAY[]::text[]) AS goals
		FROM plans pt
		JOIN patients p ON p.id = pt.patient_id
		LEFT JOIN plan_goals g ON g.plan_id = pt.id
		WHERE ` + cond
	if patientID != nil {
		args = append(args, *patientID)
		query += fmt.Sprintf(" AND pt.patient_id = $%d", len(args))
	}
	query += " GROUP BY pt.id ORDER BY pt.start_date DESC"

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*Plan
	for rows.Next() {
		var p Plan
		err := rows.Scan(&p.ID, &p.PatientID, &p.Title, &p.StartDate, &p.EndDate, &p.Status,
			&p.CreatedAt, &p.UpdatedAt, &p.Goals)
		if err != nil {
			return nil, err
		}
		plans = append(plans, &p)
	}
	return plans, rows.Err()
}

const dataRecordCols = `dr.id, dr.program_id, dr.patient_id, dr.therapist_id,
	dr.recorded_at, dr.trials, dr.successes, dr.notes, dr.created_at`

func scanDataRecord(row pgx.Row) (*DataRecord, error) {
	var rec DataRecord
	err := row.Scan(&rec.ID, &rec.ProgramID, &rec.PatientID, &rec.TherapistID,
		&rec.RecordedAt, &rec.Trials, &rec.Successes, &rec.Notes, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repoPG) CreateDataRecord(ctx context.Context, rec *DataRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO aba_sessions (id, program_id, patient_id, therapist_id,
			recorded_at, trials, successes, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.ProgramID, rec.PatientID, rec.TherapistID,
		rec.RecordedAt, rec.Trials, rec.Successes, rec.Notes)
	return err
}

func (r *repoPG) GetDataRecord(ctx context.Context, id uuid.UUID) (*DataRecord, error) {
	return scanDataRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+dataRecordCols+` FROM aba_sessions dr WHERE dr.id = $1`, id))
}

func (r *repoPG) DeleteDataRecord(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM aba_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authz.ErrNotFound
	}
	return nil
}

func (r *repoPG) ListDataRecords(ctx context.Context, scope authz.ScopePredicate, patientID, programID *uuid.UUID) ([]*DataRecord, error) {
	cond, args := db.ScopeCondition(scope, "p", nil)
	query := `
		SELECT ` + dataRecordCols + `
		FROM aba_sessions dr
		JOIN patients p ON p.id = dr.patient_id
		WHERE ` + cond
	if patientID != nil {
		args = append(args, *patientID)
		query += fmt.Sprintf(" AND dr.patient_id = $%d", len(args))
	}
	if programID != nil {
		args = append(args, *programID)
		query += fmt.Sprintf(" AND dr.program_id = $%d", len(args))
	}
	query += " ORDER BY dr.recorded_at DESC"

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*DataRecord
	for rows.Next() {
		var rec DataRecord
		err := rows.Scan(&rec.ID, &rec.ProgramID, &rec.PatientID, &rec.TherapistID,
			&rec.RecordedAt, &rec.Trials, &rec.Successes, &rec.Notes, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (r *repoPG) CreateCriterionChange(ctx context.Context, c *CriterionChange) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO criterion_changes (id, program_id, previous_criteria, new_criteria, reason, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.ProgramID, c.PreviousCriteria, c.NewCriteria, c.Reason, c.ChangedAt)
	return err
}

func (r *repoPG) ListCriterionChanges(ctx context.Context, scope authz.ScopePredicate, programID, patientID *uuid.UUID) ([]*CriterionChange, error) {
	cond, args := db.ScopeCondition(scope, "p", nil)
	query := `
		SELECT e.id, e.program_id, e.previous_criteria, e.new_criteria, e.reason,
			e.changed_at, e.created_at
		FROM criterion_changes e
		JOIN programs ap ON ap.id = e.program_id
		JOIN patients p ON p.id = ap.patient_id
		WHERE ` + cond
	if patientID != nil {
		args = append(args, *patientID)
		query += fmt.Sprintf(" AND ap.patient_id = $%d", len(args))
	}
	if programID != nil {
		args = append(args, *programID)
		query += fmt.Sprintf(" AND e.program_id = $%d", len(args))
	}
	query += " ORDER BY e.changed_at DESC"

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []*CriterionChange
	for rows.Next() {
		var c CriterionChange
		err := rows.Scan(&c.ID, &c.ProgramID, &c.PreviousCriteria, &c.NewCriteria, &c.Reason,
			&c.ChangedAt, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		changes = append(changes, &c)
	}
	return changes, rows.Err()
}

func (r *repoPG) CreateFolder(ctx context.Context, f *Folder) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO curriculum_folders (id, patient_id, name, created_by)
		VALUES ($1, $2, $3, $4)`,
		f.ID, f.PatientID, f.Name, f.CreatedBy)
	return err
}

const folderAggCols = `
	f.id, f.patient_id, f.name, f.created_by, f.created_at, f.updated_at,
	COALESCE(
		JSONB_AGG(DISTINCT JSONB_BUILD_OBJECT('id', ap.id, 'name', ap.name))
			FILTER (WHERE ap.id IS NOT NULL),
		'[]'::jsonb
	) AS programs,
	COALESCE(
		JSONB_AGG(DISTINCT JSONB_BUILD_OBJECT('id', a.id, 'label', a.label, 'program_id', fa.program_id))
			FILTER (WHERE a.id IS NOT NULL),
		'[]'::jsonb
	) AS targets`

const folderJoins = `
	FROM curriculum_folders f
	JOIN patients p ON p.id = f.patient_id
	LEFT JOIN folder_programs fp ON fp.folder_id = f.id
	LEFT JOIN programs ap ON ap.id = fp.program_id
	LEFT JOIN folder_targets fa ON fa.folder_id = f.id
	LEFT JOIN targets a ON a.id = fa.target_id`

func scanFolder(row pgx.Row) (*Folder, error) {
	var f Folder
	var programs, targets []byte
	err := row.Scan(&f.ID, &f.PatientID, &f.Name, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt,
		&programs, &targets)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(programs, &f.Programs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(targets, &f.Targets); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *repoPG) GetFolder(ctx context.Context, id uuid.UUID) (*Folder, error) {
	return scanFolder(r.conn(ctx).QueryRow(ctx,
		`SELECT`+folderAggCols+folderJoins+` WHERE f.id = $1 GROUP BY f.id`, id))
}

func (r *repoPG) ListFolders(ctx context.Context, scope authz.ScopePredicate, patientID *uuid.UUID) ([]*Folder, error) {
	cond, args := db.ScopeCondition(scope, "p", nil)
	query := `SELECT` + folderAggCols + folderJoins + ` WHERE ` + cond
	if patientID != nil {
		args = append(args, *patientID)
		query += fmt.Sprintf(" AND f.patient_id = $%d", len(args))
	}
	query += " GROUP BY f.id ORDER BY f.created_at DESC"

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func (r *repoPG) AttachProgram(ctx context.Context, folderID, programID uuid.UUID) error {
	q := r.conn(ctx)
	_, err := q.Exec(ctx, `
		INSERT INTO folder_programs (folder_id, program_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		folderID, programID)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx,
		`UPDATE curriculum_folders SET updated_at = now() WHERE id = $1`, folderID)
	return err
}

func (r *repoPG) AttachTarget(ctx context.Context, folderID, targetID uuid.UUID, programID *uuid.UUID) error {
	q := r.conn(ctx)
	var err error
	if programID != nil {
		// Re-attaching with a program rebinds the target to it.
		_, err = q.Exec(ctx, `
			INSERT INTO folder_targets (folder_id, target_id, program_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (folder_id, target_id)
			DO UPDATE SET program_id = EXCLUDED.program_id`,
			folderID, targetID, *programID)
	} else {
		_, err = q.Exec(ctx, `
			INSERT INTO folder_targets (folder_id, target_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			folderID, targetID)
	}
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx,
		`UPDATE curriculum_folders SET updated_at = now() WHERE id = $1`, folderID)
	return err
}

func (r *repoPG) ProgramAttached(ctx context.Context, folderID, programID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM folder_programs WHERE folder_id = $1 AND program_id = $2
		)`, folderID, programID).Scan(&exists)
	return exists, err
}
