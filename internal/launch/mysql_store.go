package launch

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	xerrors "TrendMint/internal/errors"
)

// MySQLStore 使用 MySQL 记录发射任务状态。
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore 创建一个新的 MySQLStore。
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 MySQL 失败")
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到 MySQL")
	}

	store := &MySQLStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *MySQLStore) initSchema() error {
	const schema = `CREATE TABLE IF NOT EXISTS token_launches (
        id VARCHAR(64) PRIMARY KEY,
        trend VARCHAR(255) DEFAULT '',
        status VARCHAR(32) NOT NULL,
        attempts INT NOT NULL DEFAULT 0,
        max_retries INT NOT NULL DEFAULT 3,
        last_error TEXT,
        error_code VARCHAR(64) DEFAULT '',
        result_name VARCHAR(64) DEFAULT '',
        result_ticker VARCHAR(8) DEFAULT '',
        result_description TEXT,
        result_source_trend VARCHAR(255) DEFAULT '',
        result_mint_address VARCHAR(66) DEFAULT '',
        result_tx_hash VARCHAR(66) DEFAULT '',
        result_metadata_uri VARCHAR(255) DEFAULT '',
        result_launched_at BIGINT NOT NULL DEFAULT 0,
        created_at BIGINT NOT NULL,
        updated_at BIGINT NOT NULL,
        INDEX idx_launch_status (status),
        INDEX idx_launch_updated (updated_at)
)`

	if _, err := s.db.Exec(schema); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "初始化 token_launches 表失败")
	}
	return nil
}

const launchColumns = `id, trend, status, attempts, max_retries, last_error, error_code,
        result_name, result_ticker, result_description, result_source_trend,
        result_mint_address, result_tx_hash, result_metadata_uri, result_launched_at,
        created_at, updated_at`

// Create 插入新的发射任务记录。
func (s *MySQLStore) Create(ctx context.Context, launch *Launch) error {
	if launch == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "launch 不能为空")
	}
	if strings.TrimSpace(launch.ID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "发射任务 ID 不能为空")
	}

	now := time.Now().Unix()
	launch.CreatedAt = now
	launch.UpdatedAt = now

	const stmt = `INSERT INTO token_launches
        (id, trend, status, attempts, max_retries, last_error, error_code, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, '', '', ?, ?)`

	_, err := s.db.ExecContext(ctx, stmt,
		launch.ID,
		launch.Trend,
		launch.Status,
		launch.Attempts,
		launch.MaxRetries,
		launch.CreatedAt,
		launch.UpdatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if stdErrors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrLaunchConflict
		}
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "插入发射任务失败")
	}
	return nil
}

func scanLaunch(scan func(dest ...any) error) (*Launch, error) {
	var launch Launch
	var result Record
	if err := scan(
		&launch.ID,
		&launch.Trend,
		&launch.Status,
		&launch.Attempts,
		&launch.MaxRetries,
		&launch.LastError,
		&launch.ErrorCode,
		&result.Name,
		&result.Ticker,
		&result.Description,
		&result.SourceTrend,
		&result.MintAddress,
		&result.TxHash,
		&result.MetadataURI,
		&result.LaunchedAt,
		&launch.CreatedAt,
		&launch.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if !result.IsZero() {
		launch.Result = &result
	}
	return &launch, nil
}

// Get 查询指定发射任务。
func (s *MySQLStore) Get(ctx context.Context, id string) (*Launch, error) {
	query := `SELECT ` + launchColumns + ` FROM token_launches WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)

	launch, err := scanLaunch(row.Scan)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, ErrLaunchNotFound
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询发射任务失败")
	}
	return launch, nil
}

// Claim 将任务标记为运行中并返回最新状态。
func (s *MySQLStore) Claim(ctx context.Context, id string) (*Launch, error) {
	const updateStmt = `UPDATE token_launches SET status = ?, attempts = attempts + 1, updated_at = ?, last_error = '', error_code = ''
        WHERE id = ? AND status IN (?, ?) AND attempts < max_retries`

	now := time.Now().Unix()
	res, err := s.db.ExecContext(ctx, updateStmt,
		StatusRunning,
		now,
		id,
		StatusPending,
		StatusFailed,
	)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "更新发射任务状态失败")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "获取影响行数失败")
	}
	if affected == 0 {
		launch, getErr := s.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		switch launch.Status {
		case StatusSucceeded:
			return launch, ErrLaunchCompleted
		case StatusRunning:
			return launch, ErrLaunchConflict
		default:
			if launch.Attempts >= launch.MaxRetries {
				return launch, ErrLaunchExhausted
			}
			return launch, ErrLaunchConflict
		}
	}
	return s.Get(ctx, id)
}

// MarkSucceeded 将任务标记为成功。
func (s *MySQLStore) MarkSucceeded(ctx context.Context, id string, result Record) error {
	const stmt = `UPDATE token_launches SET status = ?, result_name = ?, result_ticker = ?, result_description = ?,
        result_source_trend = ?, result_mint_address = ?, result_tx_hash = ?, result_metadata_uri = ?,
        result_launched_at = ?, updated_at = ?, last_error = '', error_code = '' WHERE id = ?`

	now := time.Now().Unix()
	res, err := s.db.ExecContext(ctx, stmt,
		StatusSucceeded,
		result.Name,
		result.Ticker,
		result.Description,
		result.SourceTrend,
		result.MintAddress,
		result.TxHash,
		result.MetadataURI,
		result.LaunchedAt,
		now,
		id,
	)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "标记发射成功失败")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrLaunchNotFound
	}
	return nil
}

// MarkFailed 将任务标记为失败, 并在必要时终止重试。
func (s *MySQLStore) MarkFailed(ctx context.Context, id string, code xerrors.Code, lastError string, _ bool) error {
	const stmt = `UPDATE token_launches SET status = ?, last_error = ?, error_code = ?, updated_at = ? WHERE id = ?`

	now := time.Now().Unix()
	res, err := s.db.ExecContext(ctx, stmt,
		StatusFailed,
		lastError,
		string(code),
		now,
		id,
	)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "标记发射失败失败")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrLaunchNotFound
	}
	return nil
}

// List 返回最近的发射任务。
func (s *MySQLStore) List(ctx context.Context, opts ListOptions) ([]*Launch, error) {
	opts.applyDefaults()

	query := `SELECT ` + launchColumns + ` FROM token_launches`

	clause, filterArgs := buildFilterClause(opts)
	if clause != "" {
		query += " WHERE " + clause
	}

	order := " ORDER BY updated_at DESC, created_at DESC, id DESC"
	if opts.Order == SortByUpdatedAsc {
		order = " ORDER BY updated_at ASC, created_at ASC, id ASC"
	}
	query += order + " LIMIT ? OFFSET ?"

	args := append(filterArgs, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询发射任务列表失败")
	}
	defer rows.Close()

	launches := make([]*Launch, 0, opts.Limit)
	for rows.Next() {
		launch, err := scanLaunch(rows.Scan)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析发射任务记录失败")
		}
		launches = append(launches, launch)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历发射任务失败")
	}
	return launches, nil
}

// Stats 返回符合过滤条件的发射任务聚合信息。
func (s *MySQLStore) Stats(ctx context.Context, opts ListOptions) (LaunchStats, error) {
	opts.applyDefaults()

	query := `SELECT
        COUNT(*) AS total,
        SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS pending,
        SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS running,
        SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS succeeded,
        SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS failed,
        COALESCE(MIN(updated_at), 0) AS oldest,
        COALESCE(MAX(updated_at), 0) AS newest
        FROM token_launches`

	clause, filterArgs := buildFilterClause(opts)
	if clause != "" {
		query += " WHERE " + clause
	}

	args := []any{string(StatusPending), string(StatusRunning), string(StatusSucceeded), string(StatusFailed)}
	args = append(args, filterArgs...)

	row := s.db.QueryRowContext(ctx, query, args...)

	var stats LaunchStats
	if err := row.Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Running,
		&stats.Succeeded,
		&stats.Failed,
		&stats.OldestUpdatedAt,
		&stats.NewestUpdatedAt,
	); err != nil {
		return LaunchStats{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询发射统计失败")
	}
	if stats.Total == 0 {
		stats.OldestUpdatedAt = 0
		stats.NewestUpdatedAt = 0
	}
	return stats, nil
}

// Close 关闭底层数据库连接。
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildFilterClause(opts ListOptions) (string, []any) {
	conditions := make([]string, 0, 2)
	args := make([]any, 0, 4)

	if len(opts.Statuses) > 0 {
		placeholders := make([]string, 0, len(opts.Statuses))
		for range opts.Statuses {
			placeholders = append(placeholders, "?")
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
		for _, status := range opts.Statuses {
			args = append(args, status)
		}
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return strings.Join(conditions, " AND "), args
}

var _ Store = (*MySQLStore)(nil)
