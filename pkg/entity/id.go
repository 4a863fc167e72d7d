package entity

import (
	"encoding/json"
	"strconv"
	"time"
)

// ID identifies a server object. Mastodon ids are strings; some servers send integers, which are
// kept digit for digit. Equality and map hashing are those of the underlying string.
type ID string

// snowflakeShift is the number of low bits Mastodon reserves for the sequence part of an id.
const snowflakeShift = 16

// Int64 returns the id as an integer when it is purely numeric.
func (id ID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Time decodes the creation time embedded in a snowflake id. Ids that are not numeric, or are
// too small to carry a timestamp (legacy sequential ids), report false.
func (id ID) Time() (time.Time, bool) {
	n, ok := id.Int64()
	if !ok || n>>snowflakeShift == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(n >> snowflakeShift).UTC(), true
}

// IDFromTime returns the smallest snowflake id created at t. It is used to turn a time boundary
// into max_id/min_id/since_id parameters.
func IDFromTime(t time.Time) ID {
	return ID(strconv.FormatInt(t.UnixMilli()<<snowflakeShift, 10))
}

func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts both JSON strings and JSON numbers.
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// toID converts a raw scalar into an ID without altering it.
func toID(v any) (ID, bool) {
	switch x := v.(type) {
	case ID:
		return x, true
	case string:
		return ID(x), true
	case json.Number:
		return ID(x.String()), true
	case int:
		return ID(strconv.Itoa(x)), true
	case int64:
		return ID(strconv.FormatInt(x, 10)), true
	case float64:
		if x == float64(int64(x)) {
			return ID(strconv.FormatInt(int64(x), 10)), true
		}
	}
	return "", false
}
