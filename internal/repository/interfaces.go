// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/userman/internal/model"
)

// ErrDuplicateEmail は永続化層の一意制約によりメールアドレスの重複が検出された場合のエラー。
// サービス層の事前チェックをすり抜けた同時リクエストはこのエラーで検出される。
var ErrDuplicateEmail = errors.New("duplicate email")

// UserStore はユーザーリポジトリのユニットオブワークを開始するインターフェース。
// 1操作につき1つのUserRepositoryを取得し、操作間で状態を共有しない。
type UserStore interface {
	// Begin は新しいユニットオブワークを開始する。
	Begin() UserRepository
}

// UserRepository はユーザーデータの永続化インターフェース。
// Add/Updateは変更をステージするだけで、Commitを呼ぶまで永続化されない。
type UserRepository interface {
	// ListActive はactive=trueのユーザーを全件取得する。
	ListActive(ctx context.Context) ([]model.User, error)

	// FindByID は指定IDのユーザーを取得する。active状態は問わない。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByEmail は正規化済みメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, normalizedEmail string) (*model.User, error)

	// EmailExists は正規化済みメールアドレスを持つユーザーが存在するかを返す。
	EmailExists(ctx context.Context, normalizedEmail string) (bool, error)

	// Add はユーザーの新規作成をステージする。
	// Commit成功後、user.IDに採番されたIDが設定される。
	Add(ctx context.Context, user *model.User) error

	// Update はユーザーの更新をステージする。
	Update(ctx context.Context, user *model.User) error

	// Commit はステージされた変更を1トランザクションで反映し、影響を受けた行数を返す。
	// メールアドレスの一意制約違反はErrDuplicateEmailを返す。
	Commit(ctx context.Context) (int, error)
}
