package tabular

import (
	"fmt"
	"math"
	"reflect"
	"unicode/utf8"
)

type missing struct{}

func (missing) String() string { return "NaN" }

// Missing marks an absent cell in sources that have no native null, such as an
// empty CSV field.
var Missing any = missing{}

// IsMissing reports whether v is a missing-value sentinel: nil, Missing, a NaN
// float or a nil pointer.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case missing:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Normalize turns missing sentinels into nil so drivers bind SQL NULL.
// Other values are returned unchanged.
func Normalize(v any) any {
	if IsMissing(v) {
		return nil
	}
	return v
}

// String renders a normalized value the way column widths are measured.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// DisplayWidth is the character count of String(Normalize(v)).
func DisplayWidth(v any) int {
	return utf8.RuneCountInString(String(Normalize(v)))
}
