package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"fleetdocs/internal/model"
	"fleetdocs/internal/repository"
)

const (
	reportsTable = "commit_reports"
	itemsTable   = "commit_report_items"
)

var reportColumns = []string{"id", "session_id", "module", "entity_id", "succeeded", "failed", "started_at", "finished_at"}

// CommitReportPostgres is the PostgreSQL implementation of
// repository.CommitReportRepository.
type CommitReportPostgres struct {
	db *sql.DB
}

func NewCommitReportPostgres(db *sql.DB) *CommitReportPostgres {
	return &CommitReportPostgres{db: db}
}

var _ repository.CommitReportRepository = (*CommitReportPostgres)(nil)

func qb() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// Create inserts the report and its items in one transaction.
func (r *CommitReportPostgres) Create(ctx context.Context, rep *model.CommitReport) (*model.CommitReport, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sqlStr, args, err := qb().Insert(reportsTable).
		Columns("session_id", "module", "entity_id", "succeeded", "failed", "started_at", "finished_at").
		Values(rep.SessionID, rep.Module.String(), rep.EntityID, rep.Succeeded, rep.Failed, rep.StartedAt, rep.FinishedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, err
	}

	out := *rep
	if err := tx.QueryRowContext(ctx, sqlStr, args...).Scan(&out.ID); err != nil {
		return nil, fmt.Errorf("insert commit report: %w", err)
	}

	if len(rep.Items) > 0 {
		ins := qb().Insert(itemsTable).
			Columns("report_id", "position", "kind", "document_id", "document_type_id", "filename", "error")
		for i, it := range rep.Items {
			ins = ins.Values(out.ID, i, it.Kind, it.DocumentID, it.DocumentTypeID, it.Filename, it.Error)
		}
		sqlStr, args, err = ins.ToSql()
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return nil, fmt.Errorf("insert commit report items: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	out.Items = append([]model.CommitReportItem(nil), rep.Items...)
	return &out, nil
}

func (r *CommitReportPostgres) FindByID(ctx context.Context, id string) (*model.CommitReport, error) {
	sqlStr, args, err := qb().Select(reportColumns...).
		From(reportsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rep, err := scanReport(r.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	sqlStr, args, err = qb().Select("kind", "document_id", "document_type_id", "filename", "error").
		From(itemsTable).
		Where(sq.Eq{"report_id": id}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it model.CommitReportItem
		if err := rows.Scan(&it.Kind, &it.DocumentID, &it.DocumentTypeID, &it.Filename, &it.Error); err != nil {
			return nil, err
		}
		rep.Items = append(rep.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rep, nil
}

// List returns reports using LIMIT/OFFSET pagination and a total count.
func (r *CommitReportPostgres) List(ctx context.Context, f repository.ReportFilter) (*repository.PageResult[model.CommitReport], error) {
	where := sq.And{}
	if f.Module != "" {
		where = append(where, sq.Eq{"module": f.Module.String()})
	}
	if f.EntityID != "" {
		where = append(where, sq.Eq{"entity_id": f.EntityID})
	}

	countQ := qb().Select("COUNT(*)").From(reportsTable)
	listQ := qb().Select(reportColumns...).From(reportsTable).
		OrderBy("finished_at DESC", "id DESC")
	if f.Limit > 0 {
		listQ = listQ.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		listQ = listQ.Offset(uint64(f.Offset))
	}
	if len(where) > 0 {
		countQ = countQ.Where(where)
		listQ = listQ.Where(where)
	}

	sqlStr, args, err := countQ.ToSql()
	if err != nil {
		return nil, err
	}
	var total int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return nil, err
	}

	sqlStr, args, err = listQ.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.CommitReport, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.CommitReport]{Items: items, Total: total}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*model.CommitReport, error) {
	var (
		rep    model.CommitReport
		module string
	)
	if err := s.Scan(&rep.ID, &rep.SessionID, &module, &rep.EntityID,
		&rep.Succeeded, &rep.Failed, &rep.StartedAt, &rep.FinishedAt); err != nil {
		return nil, err
	}
	rep.Module = model.Module(module)
	return &rep, nil
}
