package store

import (
	"context"
	"time"
)

type JobRun struct {
	ID        int64
	RunID     string
	Job       string
	Trigger   string
	StartedAt time.Time
	Duration  time.Duration
	Skipped   bool
	Detail    string
	Error     string
}

func (db *DB) AppendJobRun(ctx context.Context, r *JobRun) error {
	skipped := 0
	if r.Skipped {
		skipped = 1
	}
	_, err := db.ExecContext(ctx, db.Q(`INSERT INTO job_runs (run_id, job, trigger_kind, started_at, duration_ms, skipped, detail, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		r.RunID, r.Job, r.Trigger, formatTime(r.StartedAt), r.Duration.Milliseconds(), skipped, r.Detail, r.Error)
	return err
}

func (db *DB) ListJobRuns(ctx context.Context, limit int) ([]*JobRun, error) {
	rows, err := db.QueryContext(ctx, db.Q(`SELECT id, run_id, job, trigger_kind, started_at, duration_ms, skipped, detail, error
		FROM job_runs ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []*JobRun
	for rows.Next() {
		var r JobRun
		var started string
		var durMS int64
		var skipped int
		if err := rows.Scan(&r.ID, &r.RunID, &r.Job, &r.Trigger, &started, &durMS, &skipped, &r.Detail, &r.Error); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(started)
		r.Duration = time.Duration(durMS) * time.Millisecond
		r.Skipped = skipped != 0
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}
