package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code       string      // エラーコード
	Message    string      // エラーメッセージ
	Category   string      // カテゴリ: validation, user, system
	Action     string      // ユーザー向け対処方法
	Violations []Violation // 入力検証エラーの場合のみ設定される
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("[%s] %s (%d violations)", e.Code, e.Message, len(e.Violations))
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeEmailConflict    = "EMAIL_CONFLICT"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeInvalidUserID    = "INVALID_USER_ID"

	ErrCodeRouteNotFound     = "ROUTE_NOT_FOUND"
	ErrCodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeRequestTimeout    = "REQUEST_TIMEOUT"
	ErrCodeRequestCanceled   = "REQUEST_CANCELED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewValidationError は入力検証エラーを生成する。
// 検出されたすべての違反を保持する。
func NewValidationError(violations []Violation) *APIError {
	return &APIError{
		Code:       ErrCodeValidationFailed,
		Message:    "入力内容の検証に失敗しました。",
		Category:   "validation",
		Action:     "errorsに示された項目を修正してから再度お試しください。",
		Violations: violations,
	}
}

// NewEmailConflictError はメールアドレス重複エラーを生成する。
func NewEmailConflictError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeEmailConflict,
		Message:  fmt.Sprintf("このメールアドレスは既に登録されています: %s", email),
		Category: "user",
		Action:   "別のメールアドレスを指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %d", id),
		Category: "user",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewInvalidUserIDError はユーザーIDの形式が不正な場合のエラーを生成する。
func NewInvalidUserIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUserID,
		Message:  fmt.Sprintf("無効なユーザーIDです: %s", raw),
		Category: "validation",
		Action:   "ユーザーIDには正の整数を指定してください。",
	}
}

// NewRateLimitError はレート制限超過エラーを生成する。
func NewRateLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエスト数が上限を超えました。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewRequestTimeoutError はリクエスト処理が期限内に完了しなかった場合のエラーを生成する。
func NewRequestTimeoutError() *APIError {
	return &APIError{
		Code:     ErrCodeRequestTimeout,
		Message:  "処理がタイムアウトしました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRequestCanceledError はリクエストが中断された場合のエラーを生成する。
func NewRequestCanceledError() *APIError {
	return &APIError{
		Code:     ErrCodeRequestCanceled,
		Message:  "リクエストが中断されました。",
		Category: "system",
		Action:   "再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録すること。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// HasCode はerrがAPIErrorであり、指定コードを持つかを判定する。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
