// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービスに登録されたユーザーを表す。
// IDとCreatedAtは作成後に変更されない。
type User struct {
	ID        int64
	Name      string
	Email     string // 常に小文字へ正規化済み
	Password  string // 受け取った値をそのまま保持する。ハッシュ化はこの層の責務外。
	BirthDate time.Time
	Phone     *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt *time.Time // 初回更新まではnil
}

// Clone はUserの複製を返す。
// ポインタフィールドも複製するため、呼び出し側の変更が元の値に波及しない。
func (u User) Clone() User {
	c := u
	if u.Phone != nil {
		p := *u.Phone
		c.Phone = &p
	}
	if u.UpdatedAt != nil {
		t := *u.UpdatedAt
		c.UpdatedAt = &t
	}
	return c
}

// CreateUserInput はユーザー作成時の入力。
type CreateUserInput struct {
	Name      string
	Email     string
	Password  string
	BirthDate time.Time
	Phone     *string
}

// UpdateUserInput はユーザー更新時の入力。
// パスワードとIDは更新対象に含まない。
type UpdateUserInput struct {
	Name      string
	Email     string
	BirthDate time.Time
	Phone     *string
	Active    bool
}

// Violation は入力検証で検出された1件の違反を表す。
type Violation struct {
	Field   string
	Message string
}
