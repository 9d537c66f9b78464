// Package validation はユーザー入力の検証ルールを提供する。
// すべてのルールを実行し、検出した違反をまとめて返す。I/Oは行わない。
package validation

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/idna"

	"github.com/hitoshi/userman/internal/model"
)

// 検証ルールの定数
const (
	MinNameLength = 3
	MaxNameLength = 100
	MinimumAge    = 18
)

// 違反として報告するフィールド名。HTTPリクエストのJSONフィールド名と一致させる。
const (
	FieldName      = "name"
	FieldEmail     = "email"
	FieldPassword  = "password"
	FieldBirthDate = "birth_date"
	FieldPhone     = "phone"
)

// phonePattern は電話番号の書式 (DD) DDDDD-DDDD を表す。
var phonePattern = regexp.MustCompile(`^\(\d{2}\) \d{5}-\d{4}$`)

// ValidateCreate はユーザー作成入力を検証する。
// nowは年齢計算の基準日時。違反がない場合は空のスライスを返す。
func ValidateCreate(in model.CreateUserInput, now time.Time) []model.Violation {
	var vs []model.Violation
	vs = appendIf(vs, checkName(in.Name))
	vs = appendIf(vs, checkEmail(in.Email))
	if strings.TrimSpace(in.Password) == "" {
		vs = append(vs, model.Violation{Field: FieldPassword, Message: "パスワードは必須です"})
	}
	vs = appendIf(vs, checkBirthDate(in.BirthDate, now))
	vs = appendIf(vs, checkPhone(in.Phone))
	return vs
}

// ValidateUpdate はユーザー更新入力を検証する。
// activeフラグはbool型である以上の制約を持たない。
func ValidateUpdate(in model.UpdateUserInput, now time.Time) []model.Violation {
	var vs []model.Violation
	vs = appendIf(vs, checkName(in.Name))
	vs = appendIf(vs, checkEmail(in.Email))
	vs = appendIf(vs, checkBirthDate(in.BirthDate, now))
	vs = appendIf(vs, checkPhone(in.Phone))
	return vs
}

// Age は誕生日からtodayまでの満年齢を返す。
// 今年の誕生日（月日）をまだ迎えていなければ1を引く。
func Age(birth, today time.Time) int {
	age := today.Year() - birth.Year()
	if birth.Month() > today.Month() ||
		(birth.Month() == today.Month() && birth.Day() > today.Day()) {
		age--
	}
	return age
}

// IsValidEmail はメールアドレスの構文が正しいかを判定する。
// 表示名付きの形式（"Ana <ana@example.com>"）は受け付けない。
func IsValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	if _, err := idna.Lookup.ToASCII(email[at+1:]); err != nil {
		return false
	}
	return true
}

// IsValidPhone は電話番号が (DD) DDDDD-DDDD 形式に一致するかを判定する。
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

func checkName(name string) *model.Violation {
	if strings.TrimSpace(name) == "" {
		return &model.Violation{Field: FieldName, Message: "名前は必須です"}
	}
	if n := utf8.RuneCountInString(name); n < MinNameLength || n > MaxNameLength {
		return &model.Violation{Field: FieldName, Message: "名前は3文字以上100文字以下で入力してください"}
	}
	return nil
}

func checkEmail(email string) *model.Violation {
	email = strings.TrimSpace(email)
	if email == "" {
		return &model.Violation{Field: FieldEmail, Message: "メールアドレスは必須です"}
	}
	if !IsValidEmail(email) {
		return &model.Violation{Field: FieldEmail, Message: "メールアドレスの形式が正しくありません"}
	}
	return nil
}

func checkBirthDate(birth, now time.Time) *model.Violation {
	if birth.IsZero() {
		return &model.Violation{Field: FieldBirthDate, Message: "生年月日は必須です"}
	}
	if Age(birth, now) < MinimumAge {
		return &model.Violation{Field: FieldBirthDate, Message: "18歳以上である必要があります"}
	}
	return nil
}

// checkPhone は電話番号を検証する。未指定や空白のみの場合は常に有効とする。
func checkPhone(phone *string) *model.Violation {
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return nil
	}
	if !IsValidPhone(*phone) {
		return &model.Violation{Field: FieldPhone, Message: "電話番号は (XX) XXXXX-XXXX の形式で入力してください"}
	}
	return nil
}

func appendIf(vs []model.Violation, v *model.Violation) []model.Violation {
	if v != nil {
		return append(vs, *v)
	}
	return vs
}
