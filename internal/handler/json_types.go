package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// timestampLayout はAPIで扱う日時の形式。タイムゾーンと小数秒を含まない。
const timestampLayout = "2006-01-02T15:04:05"

// dateLayout はAPIで扱う日付の形式。
const dateLayout = "2006-01-02"

// localTimestamp はYYYY-MM-DDTHH:mm:ss形式でJSONに変換される日時。
// UTCに変換してから出力する。
type localTimestamp time.Time

// MarshalJSON はjson.Marshalerを実装する。
func (t localTimestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(timestampLayout))
}

// newLocalTimestamp はnilを保ったまま*time.Timeを変換する。
func newLocalTimestamp(t *time.Time) *localTimestamp {
	if t == nil {
		return nil
	}
	ts := localTimestamp(*t)
	return &ts
}

// civilDate はタイムゾーンを持たない暦日。
// 入力はYYYY-MM-DD、YYYY-MM-DDTHH:mm:ss、RFC3339のいずれかを受け付け、日付部分のみを使う。
// nullや空文字はゼロ値（未指定）として扱う。
type civilDate time.Time

var civilDateLayouts = []string{dateLayout, timestampLayout, time.RFC3339Nano}

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (d *civilDate) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = civilDate{}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = civilDate{}
		return nil
	}

	for _, layout := range civilDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*d = civilDate(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
			return nil
		}
	}
	return fmt.Errorf("invalid date: %q", s)
}

// MarshalJSON はjson.Marshalerを実装する。
func (d civilDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(d).Format(dateLayout))
}

// Time はtime.Timeに変換する。
func (d civilDate) Time() time.Time {
	return time.Time(d)
}
