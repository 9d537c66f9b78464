// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/userman/internal/model"
	"github.com/hitoshi/userman/internal/repository"
	"github.com/hitoshi/userman/internal/validation"
)

// Service はユーザー管理のサービス層。
// 作成・取得・更新・論理削除のビジネスルールを提供する。
// プロセス内に可変状態を持たず、すべての状態は永続化層に置く。
type Service struct {
	store repository.UserStore
	now   func() time.Time
}

// Option はServiceの生成オプション。
type Option func(*Service)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store repository.UserStore, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List はactive=trueのユーザーを返す。
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	users, err := s.store.Begin().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// Get は指定IDのユーザーを返す。
// 論理削除済みのユーザーも返す。見つからない場合はnilを返す（エラーではない）。
func (s *Service) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.store.Begin().FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return u, nil
}

// Create はユーザーを作成する。
// 入力検証 → メールアドレス重複確認 → 永続化の順に処理する。
func (s *Service) Create(ctx context.Context, in model.CreateUserInput) (*model.User, error) {
	now := s.timestamp()
	if vs := validation.ValidateCreate(in, now); len(vs) > 0 {
		return nil, model.NewValidationError(vs)
	}

	email := NormalizeEmail(in.Email)
	repo := s.store.Begin()

	exists, err := repo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("メールアドレスの重複確認に失敗しました: %w", err)
	}
	if exists {
		return nil, model.NewEmailConflictError(email)
	}

	u := &model.User{
		Name:      in.Name,
		Email:     email,
		Password:  in.Password,
		BirthDate: in.BirthDate,
		Phone:     normalizePhone(in.Phone),
		Active:    true,
		CreatedAt: now,
	}
	if err := repo.Add(ctx, u); err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	if err := s.commit(ctx, repo, email); err != nil {
		return nil, err
	}

	created := u.Clone()
	return &created, nil
}

// Update はユーザーの可変フィールドを上書き更新する。
// 存在しない場合はUSER_NOT_FOUND、別ユーザーが同じメールアドレスを保持している場合はEMAIL_CONFLICTを返す。
func (s *Service) Update(ctx context.Context, id int64, in model.UpdateUserInput) (*model.User, error) {
	now := s.timestamp()
	if vs := validation.ValidateUpdate(in, now); len(vs) > 0 {
		return nil, model.NewValidationError(vs)
	}

	repo := s.store.Begin()

	current, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if current == nil {
		return nil, model.NewUserNotFoundError(id)
	}

	email := NormalizeEmail(in.Email)
	if email != NormalizeEmail(current.Email) {
		owner, err := repo.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("メールアドレスの重複確認に失敗しました: %w", err)
		}
		if owner != nil && owner.ID != current.ID {
			return nil, model.NewEmailConflictError(email)
		}
	}

	updated := current.Clone()
	updated.Name = in.Name
	updated.Email = email
	updated.BirthDate = in.BirthDate
	updated.Phone = normalizePhone(in.Phone)
	updated.Active = in.Active
	updated.UpdatedAt = &now

	if err := repo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	if err := s.commit(ctx, repo, email); err != nil {
		return nil, err
	}

	result := updated.Clone()
	return &result, nil
}

// Deactivate はユーザーを論理削除する。
// activeをfalseにして更新日時を記録するのみで、レコードは削除しない。
// 対象が存在しない場合はfalseを返す。削除済みユーザーに対しても成功し、更新日時を再記録する。
func (s *Service) Deactivate(ctx context.Context, id int64) (bool, error) {
	repo := s.store.Begin()

	current, err := repo.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if current == nil {
		return false, nil
	}

	now := s.timestamp()
	deactivated := current.Clone()
	deactivated.Active = false
	deactivated.UpdatedAt = &now

	if err := repo.Update(ctx, &deactivated); err != nil {
		return false, fmt.Errorf("ユーザーの論理削除に失敗しました: %w", err)
	}
	if err := s.commit(ctx, repo, deactivated.Email); err != nil {
		return false, err
	}

	return true, nil
}

// timestamp は作成・更新日時として記録する現在時刻をUTCで返す。
// タイムゾーンを持たないカラムに保存するため、サーバーのローカルタイムゾーンに依存させない。
func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

// commit はステージした変更を反映する。
// 永続化層の一意制約違反は事前チェックと同じEMAIL_CONFLICTに変換する。
func (s *Service) commit(ctx context.Context, repo repository.UserRepository, email string) error {
	if _, err := repo.Commit(ctx); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.NewEmailConflictError(email)
		}
		return fmt.Errorf("変更の反映に失敗しました: %w", err)
	}
	return nil
}

// NormalizeEmail はメールアドレスを比較・保存用に正規化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizePhone は空白のみの電話番号を未指定として扱う。
func normalizePhone(phone *string) *string {
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return nil
	}
	p := *phone
	return &p
}
