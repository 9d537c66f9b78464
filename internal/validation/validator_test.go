package validation

import (
	"testing"
	"time"

	"github.com/hitoshi/userman/internal/model"
)

var testNow = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func validCreateInput() model.CreateUserInput {
	return model.CreateUserInput{
		Name:      "Ana Silva",
		Email:     "Ana@Mail.com",
		Password:  "x",
		BirthDate: date(2000, time.January, 1),
		Phone:     strPtr("(11) 98765-4321"),
	}
}

func validUpdateInput() model.UpdateUserInput {
	return model.UpdateUserInput{
		Name:      "Ana Silva",
		Email:     "ana@mail.com",
		BirthDate: date(2000, time.January, 1),
		Active:    true,
	}
}

// violationFields は違反のフィールド名一覧を返す。
func violationFields(vs []model.Violation) map[string]int {
	m := make(map[string]int)
	for _, v := range vs {
		m[v.Field]++
	}
	return m
}

func TestValidateCreate_ValidInput_NoViolations(t *testing.T) {
	vs := ValidateCreate(validCreateInput(), testNow)
	if len(vs) != 0 {
		t.Errorf("expected no violations, got %+v", vs)
	}
}

func TestValidateCreate_CollectsAllViolations(t *testing.T) {
	in := model.CreateUserInput{
		Name:      "Al",
		Email:     "not-an-email",
		Password:  "",
		BirthDate: date(2015, time.May, 1),
		Phone:     strPtr("11987654321"),
	}

	vs := ValidateCreate(in, testNow)

	fields := violationFields(vs)
	for _, f := range []string{FieldName, FieldEmail, FieldPassword, FieldBirthDate, FieldPhone} {
		if fields[f] != 1 {
			t.Errorf("violations for %q = %d, want 1 (all: %+v)", f, fields[f], vs)
		}
	}
	for _, v := range vs {
		if v.Message == "" {
			t.Errorf("violation for %q has empty message", v.Field)
		}
	}
}

func TestValidateCreate_RequiredFields(t *testing.T) {
	vs := ValidateCreate(model.CreateUserInput{}, testNow)

	fields := violationFields(vs)
	for _, f := range []string{FieldName, FieldEmail, FieldPassword, FieldBirthDate} {
		if fields[f] != 1 {
			t.Errorf("expected required violation for %q, got %+v", f, vs)
		}
	}
	if fields[FieldPhone] != 0 {
		t.Errorf("absent phone should be valid, got %+v", vs)
	}
}

func TestValidateCreate_NameLength(t *testing.T) {
	long := make([]rune, 101)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"2文字", "Al", true},
		{"3文字", "Ana", false},
		{"100文字", string(long[:100]), false},
		{"101文字", string(long), true},
		{"マルチバイト3文字", "山田太", false},
		{"空白のみ", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validCreateInput()
			in.Name = tt.value
			got := violationFields(ValidateCreate(in, testNow))[FieldName] > 0
			if got != tt.wantErr {
				t.Errorf("name %q violation = %v, want %v", tt.value, got, tt.wantErr)
			}
		})
	}
}

func TestValidateCreate_BirthDate_MinimumAge(t *testing.T) {
	tests := []struct {
		name    string
		birth   time.Time
		wantErr bool
	}{
		{"今日が18歳の誕生日", date(2008, time.October, 15), false},
		{"明日が18歳の誕生日", date(2008, time.October, 16), true},
		{"昨日が18歳の誕生日", date(2008, time.October, 14), false},
		{"17歳", date(2009, time.January, 1), true},
		{"成人", date(1980, time.June, 30), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validCreateInput()
			in.BirthDate = tt.birth
			got := violationFields(ValidateCreate(in, testNow))[FieldBirthDate] > 0
			if got != tt.wantErr {
				t.Errorf("birth %s violation = %v, want %v", tt.birth.Format("2006-01-02"), got, tt.wantErr)
			}
		})
	}
}

func TestValidateCreate_Phone(t *testing.T) {
	tests := []struct {
		name    string
		phone   *string
		wantErr bool
	}{
		{"未指定", nil, false},
		{"空文字", strPtr(""), false},
		{"空白のみ", strPtr("   "), false},
		{"正しい形式", strPtr("(11) 98765-4321"), false},
		{"括弧なし", strPtr("11 98765-4321"), true},
		{"ハイフンなし", strPtr("(11) 987654321"), true},
		{"桁不足", strPtr("(11) 9876-4321"), true},
		{"スペースなし", strPtr("(11)98765-4321"), true},
		{"末尾に余分な文字", strPtr("(11) 98765-4321x"), true},
		{"数字以外", strPtr("(ab) cdefg-hijk"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validCreateInput()
			in.Phone = tt.phone
			got := violationFields(ValidateCreate(in, testNow))[FieldPhone] > 0
			if got != tt.wantErr {
				t.Errorf("phone violation = %v, want %v", got, tt.wantErr)
			}
		})
	}
}

func TestValidateUpdate_ValidInput_NoViolations(t *testing.T) {
	vs := ValidateUpdate(validUpdateInput(), testNow)
	if len(vs) != 0 {
		t.Errorf("expected no violations, got %+v", vs)
	}
}

func TestValidateUpdate_UnderAge(t *testing.T) {
	in := validUpdateInput()
	in.BirthDate = testNow.AddDate(-17, 0, 0)

	vs := ValidateUpdate(in, testNow)
	if len(vs) != 1 || vs[0].Field != FieldBirthDate {
		t.Errorf("expected single birth_date violation, got %+v", vs)
	}
}

func TestValidateUpdate_DoesNotRequirePassword(t *testing.T) {
	vs := ValidateUpdate(validUpdateInput(), testNow)
	if violationFields(vs)[FieldPassword] != 0 {
		t.Errorf("update should not validate password, got %+v", vs)
	}
}

func TestValidateUpdate_InvalidPhone(t *testing.T) {
	in := validUpdateInput()
	in.Phone = strPtr("98765-4321")

	vs := ValidateUpdate(in, testNow)
	if violationFields(vs)[FieldPhone] != 1 {
		t.Errorf("expected phone violation, got %+v", vs)
	}
}

func TestAge(t *testing.T) {
	tests := []struct {
		name  string
		birth time.Time
		today time.Time
		want  int
	}{
		{"誕生日当日", date(2000, time.March, 10), date(2018, time.March, 10), 18},
		{"誕生日前日", date(2000, time.March, 10), date(2018, time.March, 9), 17},
		{"誕生月の前", date(2000, time.December, 1), date(2018, time.November, 30), 17},
		{"うるう日生まれ_平年2月28日", date(2004, time.February, 29), date(2022, time.February, 28), 17},
		{"うるう日生まれ_平年3月1日", date(2004, time.February, 29), date(2022, time.March, 1), 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Age(tt.birth, tt.today); got != tt.want {
				t.Errorf("Age() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"ana@mail.com", true},
		{"Ana@Mail.com", true},
		{"first.last+tag@example.co.jp", true},
		{"", false},
		{"plainaddress", false},
		{"@mail.com", false},
		{"ana@", false},
		{"ana@@mail.com", false},
		{"Ana Silva <ana@mail.com>", false},
		{"ana silva@mail.com", false},
	}

	for _, tt := range tests {
		if got := IsValidEmail(tt.email); got != tt.want {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}
