package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"tesoro/internal/core"
	"tesoro/internal/log"
	"tesoro/internal/repository"
)

// Repository is a repository.Store backed by database/sql.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	logger  *log.Logger
}

var _ repository.Store = (*Repository)(nil)

// NewSQLiteRepository opens (creating if needed) the database file at dbPath
// and applies migrations.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open(SQLite.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	return open(context.Background(), db, SQLite, logger)
}

// NewPostgresRepository connects through the pgx stdlib driver and applies migrations.
func NewPostgresRepository(ctx context.Context, databaseURL string, logger *log.Logger) (*Repository, error) {
	db, err := sql.Open(Postgres.DriverName, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return open(ctx, db, Postgres, logger)
}

func open(ctx context.Context, db *sql.DB, d Dialect, logger *log.Logger) (*Repository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(db, d); err != nil {
		db.Close()
		return nil, err
	}
	return &Repository{db: db, dialect: d, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) q(query string) string {
	return r.dialect.Rebind(query)
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func notFoundIfNoRows(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, repository.ErrNotFound)
	}
	return fmt.Errorf("get %s %d: %w", what, id, err)
}

func checkAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, repository.ErrNotFound)
	}
	return nil
}

// Expenses lists

const listColumns = "id, owner_id, name, description, status, currency, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanList(row rowScanner) (core.ExpensesList, error) {
	var (
		l      core.ExpensesList
		status string
	)
	if err := row.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Description, &status, &l.Currency, &l.CreatedAt); err != nil {
		return core.ExpensesList{}, err
	}
	l.Status = core.ListStatus(status)
	l.Currency = strings.TrimSpace(l.Currency)
	l.CreatedAt = l.CreatedAt.UTC()
	return l, nil
}

func (r *Repository) CreateList(ctx context.Context, l core.ExpensesList) (core.ExpensesList, error) {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
	err := r.db.QueryRowContext(ctx, r.q(`
		INSERT INTO expenses_lists (owner_id, name, description, status, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		l.OwnerID, l.Name, l.Description, string(l.Status), l.Currency, l.CreatedAt,
	).Scan(&l.ID)
	if err != nil {
		return core.ExpensesList{}, fmt.Errorf("create expenses list: %w", err)
	}

	r.logger.DebugContext(ctx, "Expenses list stored", log.FieldListID, int64(l.ID), log.FieldOwnerID, l.OwnerID)
	return l, nil
}

func (r *Repository) GetList(ctx context.Context, id core.ListID) (core.ExpensesList, error) {
	row := r.db.QueryRowContext(ctx, r.q("SELECT "+listColumns+" FROM expenses_lists WHERE id = ?"), int64(id))
	l, err := scanList(row)
	if err != nil {
		return core.ExpensesList{}, notFoundIfNoRows(err, "expenses list", int64(id))
	}
	return l, nil
}

func (r *Repository) ListLists(ctx context.Context, f repository.ListFilter, p repository.Pagination) (repository.Page[core.ExpensesList], error) {
	where := []string{"owner_id = ?"}
	args := []any{f.OwnerID}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, r.q("SELECT COUNT(*) FROM expenses_lists"+clause), args...).Scan(&total); err != nil {
		return repository.Page[core.ExpensesList]{}, fmt.Errorf("count expenses lists: %w", err)
	}

	query := "SELECT " + listColumns + " FROM expenses_lists" + clause + " ORDER BY id"
	query, args = paginate(query, args, p)

	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return repository.Page[core.ExpensesList]{}, fmt.Errorf("list expenses lists: %w", err)
	}
	defer rows.Close()

	var items []core.ExpensesList
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return repository.Page[core.ExpensesList]{}, fmt.Errorf("scan expenses list: %w", err)
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return repository.Page[core.ExpensesList]{}, fmt.Errorf("iterate expenses lists: %w", err)
	}

	return repository.NewPage(items, total, p), nil
}

func paginate(query string, args []any, p repository.Pagination) (string, []any) {
	p = p.Normalize()
	if p.Limit == 0 {
		return query, args
	}
	return query + " LIMIT ? OFFSET ?", append(args, p.Limit, p.Offset())
}

func (r *Repository) UpdateList(ctx context.Context, l core.ExpensesList) error {
	res, err := r.db.ExecContext(ctx, r.q(`
		UPDATE expenses_lists SET name = ?, description = ?, status = ?, currency = ?
		WHERE id = ?`),
		l.Name, l.Description, string(l.Status), l.Currency, int64(l.ID),
	)
	if err != nil {
		return fmt.Errorf("update expenses list %d: %w", l.ID, err)
	}
	return checkAffected(res, "expenses list", int64(l.ID))
}

func (r *Repository) DeleteList(ctx context.Context, id core.ListID) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		stmts := []string{
			"DELETE FROM expense_beneficiaries WHERE expense_id IN (SELECT id FROM expenses WHERE list_id = ?)",
			"DELETE FROM expenses WHERE list_id = ?",
			"DELETE FROM participants WHERE list_id = ?",
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, r.q(stmt), int64(id)); err != nil {
				return fmt.Errorf("delete expenses list %d: %w", id, err)
			}
		}
		res, err := tx.ExecContext(ctx, r.q("DELETE FROM expenses_lists WHERE id = ?"), int64(id))
		if err != nil {
			return fmt.Errorf("delete expenses list %d: %w", id, err)
		}
		return checkAffected(res, "expenses list", int64(id))
	})
}

// Participants

func (r *Repository) CreateParticipant(ctx context.Context, listID core.ListID, p core.Participant) (core.Participant, error) {
	if _, err := r.GetList(ctx, listID); err != nil {
		return core.Participant{}, err
	}
	err := r.db.QueryRowContext(ctx, r.q("INSERT INTO participants (list_id, name) VALUES (?, ?) RETURNING id"),
		int64(listID), p.Name,
	).Scan(&p.ID)
	if err != nil {
		if r.dialect.IsUniqueViolation(err) {
			return core.Participant{}, fmt.Errorf("participant %q: %w", p.Name, repository.ErrConflict)
		}
		return core.Participant{}, fmt.Errorf("create participant: %w", err)
	}
	return p, nil
}

func (r *Repository) ListParticipants(ctx context.Context, listID core.ListID) ([]core.Participant, error) {
	rows, err := r.db.QueryContext(ctx, r.q("SELECT id, name FROM participants WHERE list_id = ? ORDER BY id"), int64(listID))
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	out := []core.Participant{}
	for rows.Next() {
		var p core.Participant
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return out, nil
}

// Expenses

func (r *Repository) expenseColumns() string {
	return "id, list_id, name, " + r.dialect.DateColumn("expense_date") + ", amount_cents, paid_by"
}

func scanExpense(row rowScanner) (repository.Expense, error) {
	var (
		e    repository.Expense
		date sql.NullString
	)
	if err := row.Scan(&e.ID, &e.ListID, &e.Name, &date, &e.Amount.Cents, &e.PaidBy); err != nil {
		return repository.Expense{}, err
	}
	if date.Valid && date.String != "" {
		d, err := core.ParseDate(date.String)
		if err != nil {
			return repository.Expense{}, fmt.Errorf("expense %d date %q: %w", e.ID, date.String, err)
		}
		e.Date = d
	}
	return e, nil
}

func dateArg(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func (r *Repository) insertBeneficiaries(ctx context.Context, tx *sql.Tx, id core.ExpenseID, beneficiaries []core.ParticipantID) error {
	seen := make(map[core.ParticipantID]struct{}, len(beneficiaries))
	for _, pid := range beneficiaries {
		if _, dup := seen[pid]; dup {
			continue
		}
		seen[pid] = struct{}{}
		if _, err := tx.ExecContext(ctx, r.q("INSERT INTO expense_beneficiaries (expense_id, participant_id) VALUES (?, ?)"),
			int64(id), int64(pid)); err != nil {
			return fmt.Errorf("insert beneficiary %d of expense %d: %w", pid, id, err)
		}
	}
	return nil
}

func (r *Repository) CreateExpense(ctx context.Context, e repository.Expense) (repository.Expense, error) {
	if _, err := r.GetList(ctx, e.ListID); err != nil {
		return repository.Expense{}, err
	}
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, r.q(`
			INSERT INTO expenses (list_id, name, expense_date, amount_cents, paid_by)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`),
			int64(e.ListID), e.Name, dateArg(e.Date), e.Amount.Cents, int64(e.PaidBy),
		).Scan(&e.ID)
		if err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		return r.insertBeneficiaries(ctx, tx, e.ID, e.Beneficiaries)
	})
	if err != nil {
		return repository.Expense{}, err
	}

	r.logger.DebugContext(ctx, "Expense stored", log.NewFields().WithList(e.ListID).WithExpense(e.ExpenseRecord).ToSlice()...)
	return e, nil
}

func (r *Repository) GetExpense(ctx context.Context, id core.ExpenseID) (repository.Expense, error) {
	row := r.db.QueryRowContext(ctx, r.q("SELECT "+r.expenseColumns()+" FROM expenses WHERE id = ?"), int64(id))
	e, err := scanExpense(row)
	if err != nil {
		return repository.Expense{}, notFoundIfNoRows(err, "expense", int64(id))
	}

	rows, err := r.db.QueryContext(ctx, r.q("SELECT participant_id FROM expense_beneficiaries WHERE expense_id = ? ORDER BY participant_id"), int64(id))
	if err != nil {
		return repository.Expense{}, fmt.Errorf("load beneficiaries of expense %d: %w", id, err)
	}
	defer rows.Close()
	e.Beneficiaries = []core.ParticipantID{}
	for rows.Next() {
		var pid core.ParticipantID
		if err := rows.Scan(&pid); err != nil {
			return repository.Expense{}, fmt.Errorf("scan beneficiary: %w", err)
		}
		e.Beneficiaries = append(e.Beneficiaries, pid)
	}
	if err := rows.Err(); err != nil {
		return repository.Expense{}, fmt.Errorf("iterate beneficiaries: %w", err)
	}
	return e, nil
}

func (r *Repository) ListExpenses(ctx context.Context, listID core.ListID, f repository.ExpenseFilter, p repository.Pagination) (repository.Page[core.ExpenseRecord], error) {
	clause := " WHERE list_id = ?"
	args := []any{int64(listID)}
	if f.PaidBy != 0 {
		clause += " AND paid_by = ?"
		args = append(args, int64(f.PaidBy))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, r.q("SELECT COUNT(*) FROM expenses"+clause), args...).Scan(&total); err != nil {
		return repository.Page[core.ExpenseRecord]{}, fmt.Errorf("count expenses: %w", err)
	}

	query, args := paginate("SELECT "+r.expenseColumns()+" FROM expenses"+clause+" ORDER BY id", args, p)
	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return repository.Page[core.ExpenseRecord]{}, fmt.Errorf("list expenses: %w", err)
	}
	var items []core.ExpenseRecord
	index := make(map[core.ExpenseID]int)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return repository.Page[core.ExpenseRecord]{}, fmt.Errorf("scan expense: %w", err)
		}
		e.Beneficiaries = []core.ParticipantID{}
		index[e.ID] = len(items)
		items = append(items, e.ExpenseRecord)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return repository.Page[core.ExpenseRecord]{}, fmt.Errorf("iterate expenses: %w", err)
	}
	if len(items) == 0 {
		return repository.NewPage(items, total, p), nil
	}

	brows, err := r.db.QueryContext(ctx, r.q(`
		SELECT b.expense_id, b.participant_id
		FROM expense_beneficiaries b
		JOIN expenses e ON e.id = b.expense_id
		WHERE e.list_id = ?
		ORDER BY b.expense_id, b.participant_id`), int64(listID))
	if err != nil {
		return repository.Page[core.ExpenseRecord]{}, fmt.Errorf("load beneficiaries: %w", err)
	}
	defer brows.Close()
	for brows.Next() {
		var (
			eid core.ExpenseID
			pid core.ParticipantID
		)
		if err := brows.Scan(&eid, &pid); err != nil {
			return repository.Page[core.ExpenseRecord]{}, fmt.Errorf("scan beneficiary: %w", err)
		}
		if i, ok := index[eid]; ok {
			items[i].Beneficiaries = append(items[i].Beneficiaries, pid)
		}
	}
	if err := brows.Err(); err != nil {
		return repository.Page[core.ExpenseRecord]{}, fmt.Errorf("iterate beneficiaries: %w", err)
	}

	return repository.NewPage(items, total, p), nil
}

func (r *Repository) UpdateExpense(ctx context.Context, e repository.Expense) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.q(`
			UPDATE expenses SET name = ?, expense_date = ?, amount_cents = ?, paid_by = ?
			WHERE id = ?`),
			e.Name, dateArg(e.Date), e.Amount.Cents, int64(e.PaidBy), int64(e.ID),
		)
		if err != nil {
			return fmt.Errorf("update expense %d: %w", e.ID, err)
		}
		if err := checkAffected(res, "expense", int64(e.ID)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, r.q("DELETE FROM expense_beneficiaries WHERE expense_id = ?"), int64(e.ID)); err != nil {
			return fmt.Errorf("clear beneficiaries of expense %d: %w", e.ID, err)
		}
		return r.insertBeneficiaries(ctx, tx, e.ID, e.Beneficiaries)
	})
}

func (r *Repository) DeleteExpense(ctx context.Context, id core.ExpenseID) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, r.q("DELETE FROM expense_beneficiaries WHERE expense_id = ?"), int64(id)); err != nil {
			return fmt.Errorf("delete expense %d: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, r.q("DELETE FROM expenses WHERE id = ?"), int64(id))
		if err != nil {
			return fmt.Errorf("delete expense %d: %w", id, err)
		}
		return checkAffected(res, "expense", int64(id))
	})
}
