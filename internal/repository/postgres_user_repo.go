package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/userman/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反を表すSQLSTATE。
const uniqueViolation = "23505"

// usersEmailUniqueIndex はlower(email)に対する一意インデックス名。
const usersEmailUniqueIndex = "users_email_lower_key"

const userColumns = `id, name, email, password, birth_date, phone, active, created_at, updated_at`

// PostgresUserStore はPostgreSQLを使用したユーザーストア。
type PostgresUserStore struct {
	db *sql.DB
}

// NewPostgresUserStore はPostgresUserStoreを生成する。
func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// Begin は新しいユニットオブワークを開始する。
func (s *PostgresUserStore) Begin() UserRepository {
	return &PostgresUserRepo{db: s.db}
}

type stagedKind int

const (
	stagedInsert stagedKind = iota
	stagedUpdate
)

type stagedChange struct {
	kind stagedKind
	user *model.User
}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
// 読み取りは即時に実行し、書き込みはCommitまでステージする。
// 1つのインスタンスを複数のgoroutineから同時に使用してはならない。
type PostgresUserRepo struct {
	db      *sql.DB
	pending []stagedChange
}

// ListActive はactive=trueのユーザーを作成順に取得する。
func (r *PostgresUserRepo) ListActive(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE active = TRUE ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return u, nil
}

// FindByEmail は正規化済みメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, normalizedEmail string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`,
		normalizedEmail,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return u, nil
}

// EmailExists は正規化済みメールアドレスを持つユーザーが存在するかを返す。
func (r *PostgresUserRepo) EmailExists(ctx context.Context, normalizedEmail string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`,
		normalizedEmail,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// Add はユーザーの新規作成をステージする。
func (r *PostgresUserRepo) Add(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("user must not be nil")
	}
	r.pending = append(r.pending, stagedChange{kind: stagedInsert, user: user})
	return nil
}

// Update はユーザーの更新をステージする。
func (r *PostgresUserRepo) Update(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("user must not be nil")
	}
	r.pending = append(r.pending, stagedChange{kind: stagedUpdate, user: user})
	return nil
}

// pendingCount はステージ済みで未反映の変更数を返す。
func (r *PostgresUserRepo) pendingCount() int {
	return len(r.pending)
}

// Commit はステージされた変更を1トランザクションで反映する。
// 失敗した場合はロールバックし、ステージ済みの変更は破棄しない。
func (r *PostgresUserRepo) Commit(ctx context.Context) (int, error) {
	if len(r.pending) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	affected := 0
	for _, c := range r.pending {
		switch c.kind {
		case stagedInsert:
			err = tx.QueryRowContext(ctx,
				`INSERT INTO users (name, email, password, birth_date, phone, active, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				 RETURNING id`,
				c.user.Name, c.user.Email, c.user.Password, c.user.BirthDate,
				nullString(c.user.Phone), c.user.Active, c.user.CreatedAt.UTC(), nullTime(c.user.UpdatedAt),
			).Scan(&c.user.ID)
			if err != nil {
				return 0, translateWriteError("insert user", err)
			}
			affected++
		case stagedUpdate:
			// id と created_at は作成後に変更しない
			result, err := tx.ExecContext(ctx,
				`UPDATE users
				 SET name = $2, email = $3, password = $4, birth_date = $5,
				     phone = $6, active = $7, updated_at = $8
				 WHERE id = $1`,
				c.user.ID, c.user.Name, c.user.Email, c.user.Password, c.user.BirthDate,
				nullString(c.user.Phone), c.user.Active, nullTime(c.user.UpdatedAt),
			)
			if err != nil {
				return 0, translateWriteError("update user", err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return 0, fmt.Errorf("failed to get rows affected: %w", err)
			}
			affected += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, translateWriteError("commit transaction", err)
	}

	r.pending = nil
	return affected, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u         model.User
		phone     sql.NullString
		updatedAt sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.BirthDate,
		&phone, &u.Active, &u.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		p := phone.String
		u.Phone = &p
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		u.UpdatedAt = &t
	}
	return &u, nil
}

// translateWriteError は書き込みエラーを変換する。
// メールアドレスの一意制約違反はErrDuplicateEmailとして返す。
func translateWriteError(op string, err error) error {
	if isEmailUniqueViolation(err) {
		return fmt.Errorf("failed to %s: %w", op, ErrDuplicateEmail)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isEmailUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == uniqueViolation && pqErr.Constraint == usersEmailUniqueIndex
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullTime はタイムゾーンなしのTIMESTAMPカラムに書き込むため、UTCに揃えて返す。
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// compile-time interface check
var _ UserStore = (*PostgresUserStore)(nil)
var _ UserRepository = (*PostgresUserRepo)(nil)
