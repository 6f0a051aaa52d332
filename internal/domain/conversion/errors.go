package conversion

import "fmt"

// GroupNotFoundError marks a conversion group the catalog does not know.
type GroupNotFoundError struct {
	GroupID string
}

func (e *GroupNotFoundError) Error() string {
	return fmt.Sprintf("conversion group %q not found", e.GroupID)
}

// ConversionError marks a unit that is unreachable within its group. In
// strict mode this is terminal; silently returning the unconverted value
// would let unit-mismatched numbers through as if they were fine.
type ConversionError struct {
	GroupID string
	Unit    string
	Reason  string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %q within group %q: %s", e.Unit, e.GroupID, e.Reason)
}
