package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/todo-service/internal/domain"
)

// TaskFilter captures listing parameters. OwnerID is required.
type TaskFilter struct {
	OwnerID    string
	SearchTerm string
	Limit      int
	Offset     int
}

// CreateCheck is evaluated inside the insert transaction with the owner's row locked
// and the owner's current task count. A non-nil error aborts the insert.
type CreateCheck func(owner *domain.User, currentCount int) error

// TaskRepository encapsulates task persistence.
type TaskRepository interface {
	CreateChecked(ctx context.Context, task *domain.Task, check CreateCheck) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
	// List returns one page of tasks plus the total number of matches.
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, int, error)
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, owner_id, title, completed, created_at, updated_at`

func (r *taskRepository) CreateChecked(ctx context.Context, task *domain.Task, check CreateCheck) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create task: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Locking the owner row serializes concurrent creates for the same owner, so the
	// count below always reflects every committed insert.
	owner, err := scanUser(tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1 FOR UPDATE`, task.OwnerID))
	if err != nil {
		return err
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE owner_id=$1`, task.OwnerID).Scan(&count); err != nil {
		return fmt.Errorf("count tasks: %w", err)
	}
	if check != nil {
		if err := check(owner, count); err != nil {
			return err
		}
	}

	const insert = `
        INSERT INTO tasks (id, owner_id, title, completed)
        VALUES ($1, $2, $3, $4)
        RETURNING created_at, updated_at`
	if err := tx.QueryRow(ctx, insert,
		task.ID,
		task.OwnerID,
		task.Title,
		task.Completed,
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, id))
}

func (r *taskRepository) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	query := `
        UPDATE tasks SET title=COALESCE($2, title), completed=COALESCE($3, completed), updated_at=clock_timestamp()
        WHERE id=$1
        RETURNING ` + taskColumns
	return scanTask(r.pool.QueryRow(ctx, query, id, patch.Title, patch.Completed))
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]domain.Task, int, error) {
	clauses := []string{"owner_id=$1"}
	args := []any{filter.OwnerID}

	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(term))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		taskColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	if err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Completed,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &task, nil
}

func scanTasks(rows pgx.Rows) ([]domain.Task, error) {
	result := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *task)
	}
	return result, rows.Err()
}

// escapeLike neutralizes LIKE wildcards so the search term matches literally.
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}
