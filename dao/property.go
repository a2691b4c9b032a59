package dao

import (
	"fmt"
	"strconv"
	"time"
)

// Property describes one mapped column of an entity.
type Property struct {
	// Ordinal is the position of the property in the entity's property list.
	Ordinal int
	// Name is the Go-side field name, used in messages only.
	Name string
	// Column is the database column name. It must match the entity's `db` tag.
	Column string
	// Type is the column type used by CREATE TABLE, e.g. TEXT or INTEGER.
	Type          string
	PrimaryKey    bool
	AutoIncrement bool
	NotNull       bool
}

func (p Property) String() string {
	return fmt.Sprintf("%s(%s)", p.Name, p.Column)
}

// ToParam converts a value into the string form used for query parameters.
// Booleans become "1"/"0" and times become Unix milliseconds, matching how
// entities store them.
func ToParam(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return strconv.FormatInt(v.UnixMilli(), 10)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Args turns string parameters into driver arguments.
func Args(params []string) []any {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p
	}
	return args
}
