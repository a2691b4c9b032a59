package query

import "errors"

var (
	// ErrWrongGoroutine is returned when a query is used by a goroutine other
	// than the one it was handed to. Call ForCurrentGoroutine to get one.
	ErrWrongGoroutine = errors.New("query may only be used by its owner goroutine, use ForCurrentGoroutine")
	// ErrIllegalParameter is returned for an out-of-range parameter index or
	// one reserved for limit/offset.
	ErrIllegalParameter = errors.New("illegal parameter index")
	// ErrNoLimit is returned by SetLimit on a query built without Limit.
	ErrNoLimit = errors.New("query has no limit parameter")
	// ErrNoOffset is returned by SetOffset on a query built without Offset.
	ErrNoOffset = errors.New("query has no offset parameter")
	// ErrOffsetWithoutLimit is returned when Offset is used without Limit.
	ErrOffsetWithoutLimit = errors.New("offset requires a limit")
	// ErrEmptyIn is returned for an IN / NOT IN condition without values.
	ErrEmptyIn = errors.New("IN condition needs at least one value")
	// ErrNilValue is returned for a nil value in a comparison. Use IsNull or
	// IsNotNull to match NULL.
	ErrNilValue = errors.New("nil value in comparison, use IsNull")
	// ErrNotUnique is returned by Unique when more than one row matches.
	ErrNotUnique = errors.New("expected a unique result")
	// ErrNoEntity is returned by UniqueOrError when no row matches.
	ErrNoEntity = errors.New("no entity found for query")
	// ErrDeleteOrdering is returned by BuildDelete when ordering, limit or offset was set.
	ErrDeleteOrdering = errors.New("delete queries cannot be ordered or limited")
)
