package handler

import (
	"context"
	"errors"

	"github.com/hitoshi/userman/internal/model"
	"github.com/hitoshi/userman/internal/user"
)

// OperationRecorder はユーザー操作の結果を記録するインターフェース。
// metrics.Collectorが実装する。
type OperationRecorder interface {
	RecordUserOperation(operation, outcome string)
}

// 操作結果のラベル値
const (
	outcomeSuccess    = "success"
	outcomeValidation = "validation_error"
	outcomeConflict   = "conflict"
	outcomeNotFound   = "not_found"
	outcomeError      = "error"
)

// UserServiceAdapter は user.Service を UserServiceInterface に適合させるアダプタ。
type UserServiceAdapter struct {
	svc      *user.Service
	recorder OperationRecorder
}

// NewUserServiceAdapter はUserServiceAdapterを生成する。
// recorderがnilの場合は操作結果を記録しない。
func NewUserServiceAdapter(svc *user.Service, recorder OperationRecorder) *UserServiceAdapter {
	return &UserServiceAdapter{svc: svc, recorder: recorder}
}

// ListUsers は有効なユーザーの一覧をhandlerレスポンス型で返す。
func (a *UserServiceAdapter) ListUsers(ctx context.Context) ([]userResponse, error) {
	users, err := a.svc.List(ctx)
	a.record("list", err, true)
	if err != nil {
		return nil, err
	}

	results := make([]userResponse, len(users))
	for i := range users {
		results[i] = toUserResponse(&users[i])
	}
	return results, nil
}

// GetUser は指定IDのユーザーをhandlerレスポンス型で返す。
func (a *UserServiceAdapter) GetUser(ctx context.Context, id int64) (*userResponse, error) {
	u, err := a.svc.Get(ctx, id)
	a.record("get", err, u != nil)
	if err != nil || u == nil {
		return nil, err
	}
	resp := toUserResponse(u)
	return &resp, nil
}

// CreateUser はユーザーを作成しhandlerレスポンス型で返す。
func (a *UserServiceAdapter) CreateUser(ctx context.Context, in model.CreateUserInput) (*userResponse, error) {
	u, err := a.svc.Create(ctx, in)
	a.record("create", err, true)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(u)
	return &resp, nil
}

// UpdateUser はユーザーを更新しhandlerレスポンス型で返す。
func (a *UserServiceAdapter) UpdateUser(ctx context.Context, id int64, in model.UpdateUserInput) (*userResponse, error) {
	u, err := a.svc.Update(ctx, id, in)
	a.record("update", err, true)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(u)
	return &resp, nil
}

// DeleteUser はユーザーを論理削除する。
func (a *UserServiceAdapter) DeleteUser(ctx context.Context, id int64) (bool, error) {
	deleted, err := a.svc.Deactivate(ctx, id)
	a.record("delete", err, deleted)
	return deleted, err
}

// record は操作結果をrecorderに記録する。
// foundがfalseの場合はnot_foundとして扱う。
func (a *UserServiceAdapter) record(operation string, err error, found bool) {
	if a.recorder == nil {
		return
	}
	a.recorder.RecordUserOperation(operation, classifyOutcome(err, found))
}

// classifyOutcome はエラー種別から操作結果のラベル値を決定する。
func classifyOutcome(err error, found bool) string {
	if err == nil {
		if !found {
			return outcomeNotFound
		}
		return outcomeSuccess
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return outcomeError
	}
	switch apiErr.Code {
	case model.ErrCodeValidationFailed:
		return outcomeValidation
	case model.ErrCodeEmailConflict:
		return outcomeConflict
	case model.ErrCodeUserNotFound:
		return outcomeNotFound
	default:
		return outcomeError
	}
}

// --- compile-time interface checks ---

var _ UserServiceInterface = (*UserServiceAdapter)(nil)
