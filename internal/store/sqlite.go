package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/geneflow-org/geneflow/internal/model"
)

// schema is applied once at store open. Every string column is
// NOT NULL DEFAULT '', the safer form for existing rows.
const schema = `
CREATE TABLE IF NOT EXISTS workflow (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	version TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	definition_json TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS app (
	id TEXT PRIMARY KEY,
	workflow_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	version TEXT NOT NULL DEFAULT '',
	implementation_json TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS job (
	id TEXT PRIMARY KEY,
	workflow_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	output_uri TEXT NOT NULL DEFAULT '',
	work_uri_json TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL DEFAULT '',
	finished_at TEXT NOT NULL DEFAULT '',
	inputs_json TEXT NOT NULL DEFAULT '',
	parameters_json TEXT NOT NULL DEFAULT '',
	execution_json TEXT NOT NULL DEFAULT '',
	final_output_json TEXT NOT NULL DEFAULT '',
	no_output_hash INTEGER NOT NULL DEFAULT 0,
	clean INTEGER NOT NULL DEFAULT 0,
	message TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS step_status (
	job_id TEXT NOT NULL DEFAULT '',
	step_name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	checkpoint TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (job_id, step_name)
);
CREATE TABLE IF NOT EXISTS map_item (
	job_id TEXT NOT NULL DEFAULT '',
	step_name TEXT NOT NULL DEFAULT '',
	filename TEXT NOT NULL DEFAULT '',
	template_json TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	attempt INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (job_id, step_name, filename)
);
CREATE TABLE IF NOT EXISTS run_attempt (
	job_id TEXT NOT NULL DEFAULT '',
	step_name TEXT NOT NULL DEFAULT '',
	filename TEXT NOT NULL DEFAULT '',
	attempt_index INTEGER NOT NULL DEFAULT 0,
	backend_json TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (job_id, step_name, filename, attempt_index)
);
`

// SQLite is a modernc.org/sqlite-backed Store (pure Go, no cgo),
// persisting at the path passed to OpenSQLite. Definition records
// round-trip as JSON blobs; dedicated columns are reserved for the
// queryable status fields (job.status, map_item.status, ...) that
// admin surfaces filter and sort on.
type SQLite struct {
	db *sql.DB
	tx *sql.Tx
}

// OpenSQLite opens (creating if necessary) a SQLite database at path and
// applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) exec(query string, args ...any) (sql.Result, error) {
	if s.tx != nil {
		return s.tx.Exec(query, args...)
	}
	return s.db.Exec(query, args...)
}

func (s *SQLite) queryRow(query string, args ...any) *sql.Row {
	if s.tx != nil {
		return s.tx.QueryRow(query, args...)
	}
	return s.db.QueryRow(query, args...)
}

func (s *SQLite) GetJobDef(_ context.Context, id string) (*model.Job, error) {
	var inputsJSON, paramsJSON, execJSON, finalJSON, workURIJSON, outputURI, name, workflowID string
	var noOutputHash, clean int
	row := s.queryRow(`SELECT workflow_id, name, output_uri, work_uri_json, inputs_json, parameters_json, execution_json, final_output_json, no_output_hash, clean FROM job WHERE id = ?`, id)
	if err := row.Scan(&workflowID, &name, &outputURI, &workURIJSON, &inputsJSON, &paramsJSON, &execJSON, &finalJSON, &noOutputHash, &clean); err != nil {
		return nil, fmt.Errorf("%w: job %s: %v", ErrNotFound, id, err)
	}

	job := &model.Job{
		JobID:        id,
		Name:         name,
		WorkflowID:   workflowID,
		OutputURI:    outputURI,
		NoOutputHash: noOutputHash != 0,
		Clean:        clean != 0,
	}
	if err := unmarshalIfSet(workURIJSON, &job.WorkURI); err != nil {
		return nil, err
	}
	if err := unmarshalIfSet(inputsJSON, &job.Inputs); err != nil {
		return nil, err
	}
	if err := unmarshalIfSet(paramsJSON, &job.Parameters); err != nil {
		return nil, err
	}
	if err := unmarshalIfSet(execJSON, &job.Execution); err != nil {
		return nil, err
	}
	if err := unmarshalIfSet(finalJSON, &job.FinalOutput); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *SQLite) GetWorkflowDef(_ context.Context, id string) (*model.Workflow, error) {
	var defJSON string
	row := s.queryRow(`SELECT definition_json FROM workflow WHERE id = ?`, id)
	if err := row.Scan(&defJSON); err != nil {
		return nil, fmt.Errorf("%w: workflow %s: %v", ErrNotFound, id, err)
	}
	var wf model.Workflow
	if err := json.Unmarshal([]byte(defJSON), &wf); err != nil {
		return nil, fmt.Errorf("store: decode workflow %s: %w", id, err)
	}
	return &wf, nil
}

func (s *SQLite) GetAppDefs(_ context.Context, workflowID string) (map[string]model.App, error) {
	rows, err := s.db.Query(`SELECT name, implementation_json FROM app WHERE workflow_id = ?`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("store: query apps for %s: %w", workflowID, err)
	}
	defer rows.Close()

	apps := map[string]model.App{}
	for rows.Next() {
		var name, defJSON string
		if err := rows.Scan(&name, &defJSON); err != nil {
			return nil, err
		}
		var app model.App
		if err := json.Unmarshal([]byte(defJSON), &app); err != nil {
			return nil, fmt.Errorf("store: decode app %s: %w", name, err)
		}
		apps[name] = app
	}
	if len(apps) == 0 {
		return nil, fmt.Errorf("%w: apps for workflow %s", ErrNotFound, workflowID)
	}
	return apps, rows.Err()
}

func (s *SQLite) ImportJobs(_ context.Context, jobs []model.Job) error {
	for _, j := range jobs {
		workURIJSON, _ := json.Marshal(j.WorkURI)
		inputsJSON, _ := json.Marshal(j.Inputs)
		paramsJSON, _ := json.Marshal(j.Parameters)
		execJSON, _ := json.Marshal(j.Execution)
		finalJSON, _ := json.Marshal(j.FinalOutput)
		noOutputHash := 0
		if j.NoOutputHash {
			noOutputHash = 1
		}
		clean := 0
		if j.Clean {
			clean = 1
		}
		_, err := s.exec(`INSERT OR REPLACE INTO job
			(id, workflow_id, name, output_uri, work_uri_json, status, inputs_json, parameters_json, execution_json, final_output_json, no_output_hash, clean)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			j.JobID, j.WorkflowID, j.Name, j.OutputURI, string(workURIJSON), model.StatusPending,
			string(inputsJSON), string(paramsJSON), string(execJSON), string(finalJSON), noOutputHash, clean)
		if err != nil {
			return fmt.Errorf("store: import job %s: %w", j.JobID, err)
		}
	}
	return nil
}

// ImportWorkflow registers a workflow definition under id, the write
// half of GetWorkflowDef.
func (s *SQLite) ImportWorkflow(_ context.Context, id string, wf model.Workflow) error {
	defJSON, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("store: encode workflow %s: %w", id, err)
	}
	_, err = s.exec(`INSERT OR REPLACE INTO workflow
		(id, name, version, description, definition_json, created_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))`,
		id, wf.Name, wf.Version, wf.Description, string(defJSON))
	if err != nil {
		return fmt.Errorf("store: import workflow %s: %w", id, err)
	}
	return nil
}

// ImportApps registers a workflow's app definitions, keyed the same way
// Workflow.Apps keys them; the write half of GetAppDefs.
func (s *SQLite) ImportApps(_ context.Context, workflowID string, apps map[string]model.App) error {
	for key, app := range apps {
		defJSON, err := json.Marshal(app)
		if err != nil {
			return fmt.Errorf("store: encode app %s: %w", key, err)
		}
		_, err = s.exec(`INSERT OR REPLACE INTO app
			(id, workflow_id, name, version, implementation_json)
			VALUES (?, ?, ?, ?, ?)`,
			workflowID+"/"+key, workflowID, key, app.Version, string(defJSON))
		if err != nil {
			return fmt.Errorf("store: import app %s: %w", key, err)
		}
	}
	return nil
}

func (s *SQLite) UpdateStepStatus(_ context.Context, jobID, stepName string, status model.Status, checkpoint model.Checkpoint) error {
	_, err := s.exec(`INSERT OR REPLACE INTO step_status (job_id, step_name, status, checkpoint) VALUES (?, ?, ?, ?)`,
		jobID, stepName, status, checkpoint)
	return err
}

func (s *SQLite) SaveMapItems(_ context.Context, jobID, stepName string, items []model.MapItem) error {
	for _, it := range items {
		tmplJSON, _ := json.Marshal(it.Template)
		_, err := s.exec(`INSERT OR REPLACE INTO map_item
			(job_id, step_name, filename, template_json, status, attempt)
			VALUES (?, ?, ?, ?, ?, ?)`,
			jobID, stepName, it.Filename, string(tmplJSON), it.Status, it.Attempt)
		if err != nil {
			return fmt.Errorf("store: save map item %s/%s: %w", stepName, it.Filename, err)
		}
		for i, run := range it.Run {
			backendJSON, _ := json.Marshal(run)
			_, err := s.exec(`INSERT OR REPLACE INTO run_attempt
				(job_id, step_name, filename, attempt_index, backend_json, status)
				VALUES (?, ?, ?, ?, ?, ?)`,
				jobID, stepName, it.Filename, i, string(backendJSON), run.Status)
			if err != nil {
				return fmt.Errorf("store: save run attempt %s/%s/%d: %w", stepName, it.Filename, i, err)
			}
		}
	}
	return nil
}

func (s *SQLite) SetJobStarted(_ context.Context, id string) error {
	_, err := s.exec(`UPDATE job SET started_at = datetime('now'), status = ? WHERE id = ?`, model.StatusRunning, id)
	return err
}

func (s *SQLite) SetJobFinished(_ context.Context, id string) error {
	_, err := s.exec(`UPDATE job SET finished_at = datetime('now') WHERE id = ?`, id)
	return err
}

func (s *SQLite) UpdateJobStatus(_ context.Context, id string, status model.Status, message string) error {
	_, err := s.exec(`UPDATE job SET status = ?, message = ? WHERE id = ?`, status, message, id)
	return err
}

func (s *SQLite) Commit(_ context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	return tx.Commit()
}

func (s *SQLite) Rollback(_ context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	return tx.Rollback()
}

func unmarshalIfSet(raw string, v any) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("store: decode: %w", err)
	}
	return nil
}
