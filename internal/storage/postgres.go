package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/ignatij/gostage/pkg/models"
)

// ErrNotFound is returned when no record exists for a task id.
var ErrNotFound = errors.New("task record not found")

type DBInterface interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	Exec(query string, args ...interface{}) (sql.Result, error)
	Close() error
}

// PostgresStore persists task records to postgres. It satisfies the
// records.Logger contract, so an engine can log straight into the
// database instead of a JSON Lines file.
type PostgresStore struct {
	db DBInterface
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

type recordRow struct {
	TaskID             string     `db:"task_id"`
	FunctionName       string     `db:"function_name"`
	ParentTaskIDs      []byte     `db:"parent_task_ids"`
	SubmitTime         time.Time  `db:"submit_time"`
	ReceivedTime       *time.Time `db:"received_time"`
	Success            *bool      `db:"success"`
	ExceptionType      *string    `db:"exception_type"`
	ExceptionMessage   *string    `db:"exception_message"`
	ExceptionTraceback *string    `db:"exception_traceback"`
	Execution          []byte     `db:"execution"`
}

func toRow(rec models.TaskRecord) (recordRow, error) {
	parents, err := json.Marshal(rec.ParentTaskIDs)
	if err != nil {
		return recordRow{}, errors.Wrap(err, "marshal parent task ids")
	}
	row := recordRow{
		TaskID:        rec.TaskID,
		FunctionName:  rec.FunctionName,
		ParentTaskIDs: parents,
		SubmitTime:    rec.SubmitTime,
		ReceivedTime:  rec.ReceivedTime,
		Success:       rec.Success,
	}
	if rec.Exception != nil {
		row.ExceptionType = &rec.Exception.Type
		row.ExceptionMessage = &rec.Exception.Message
		row.ExceptionTraceback = &rec.Exception.Traceback
	}
	if rec.Execution != nil {
		execution, err := json.Marshal(rec.Execution)
		if err != nil {
			return recordRow{}, errors.Wrap(err, "marshal execution info")
		}
		row.Execution = execution
	}
	return row, nil
}

func fromRow(row recordRow) (models.TaskRecord, error) {
	rec := models.TaskRecord{
		TaskID:       row.TaskID,
		FunctionName: row.FunctionName,
		SubmitTime:   row.SubmitTime,
		ReceivedTime: row.ReceivedTime,
		Success:      row.Success,
	}
	if len(row.ParentTaskIDs) > 0 {
		if err := json.Unmarshal(row.ParentTaskIDs, &rec.ParentTaskIDs); err != nil {
			return models.TaskRecord{}, errors.Wrap(err, "unmarshal parent task ids")
		}
	}
	if row.ExceptionType != nil {
		rec.Exception = &models.ExceptionInfo{
			Type:    *row.ExceptionType,
			Message: derefString(row.ExceptionMessage),
		}
		rec.Exception.Traceback = derefString(row.ExceptionTraceback)
	}
	if len(row.Execution) > 0 {
		var execution models.ExecutionInfo
		if err := json.Unmarshal(row.Execution, &execution); err != nil {
			return models.TaskRecord{}, errors.Wrap(err, "unmarshal execution info")
		}
		rec.Execution = &execution
	}
	return rec, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Log inserts one task record.
func (s *PostgresStore) Log(rec models.TaskRecord) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO task_records
		(task_id, function_name, parent_task_ids, submit_time, received_time,
		 success, exception_type, exception_message, exception_traceback, execution)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		row.TaskID, row.FunctionName, row.ParentTaskIDs, row.SubmitTime, row.ReceivedTime,
		row.Success, row.ExceptionType, row.ExceptionMessage, row.ExceptionTraceback, row.Execution)
	if err != nil {
		return errors.Wrapf(err, "save task record %s", rec.TaskID)
	}
	return nil
}

// List returns up to limit records, newest submissions first. A non-positive
// limit returns everything.
func (s *PostgresStore) List(limit int) ([]models.TaskRecord, error) {
	query := "SELECT * FROM task_records ORDER BY submit_time DESC"
	var rows []recordRow
	var err error
	if limit > 0 {
		err = s.db.Select(&rows, query+" LIMIT $1", limit)
	} else {
		err = s.db.Select(&rows, query)
	}
	if err != nil {
		return nil, errors.Wrap(err, "list task records")
	}
	out := make([]models.TaskRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Get returns the record for one task id.
func (s *PostgresStore) Get(taskID string) (models.TaskRecord, error) {
	var row recordRow
	err := s.db.Get(&row, "SELECT * FROM task_records WHERE task_id = $1", taskID)
	if err == sql.ErrNoRows {
		return models.TaskRecord{}, ErrNotFound
	}
	if err != nil {
		return models.TaskRecord{}, errors.Wrapf(err, "get task record %s", taskID)
	}
	return fromRow(row)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
