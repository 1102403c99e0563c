package dbscribe

import (
	"reflect"
	"strings"
	"unicode"
)

// TableNamer turns a Go type name into a table name.
type TableNamer func(typeName string) string

// DefaultTableNamer names the table of an entity without a TableName
// method. It turns "OrderItem" into "order_items".
var DefaultTableNamer TableNamer = func(typeName string) string {
	return ToPlural(ToUnderscore(typeName))
}

// ToTableName returns the table of an entity: the result of its TableName
// method if it has one and it is not empty, otherwise its type name passed
// through DefaultTableNamer. It is empty for unnamed types and nil.
func ToTableName(entity interface{}) string {
	if e, ok := entity.(ModelWithTableName); ok {
		if name := e.TableName(); name != "" {
			return name
		}
	}
	rt := reflect.TypeOf(entity)
	for rt != nil && rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt == nil || rt.Name() == "" {
		return ""
	}
	return DefaultTableNamer(rt.Name())
}

// ToPlural pluralizes an English noun well enough for table names:
// "category" becomes "categories", "day" "days", "box" "boxes" and "user"
// "users".
func ToPlural(in string) string {
	switch {
	case in == "":
		return ""
	case strings.HasSuffix(in, "y") && !endsWithVowelY(in):
		return in[:len(in)-1] + "ies"
	case strings.HasSuffix(in, "s"), strings.HasSuffix(in, "x"), strings.HasSuffix(in, "z"),
		strings.HasSuffix(in, "ch"), strings.HasSuffix(in, "sh"):
		return in + "es"
	}
	return in + "s"
}

func endsWithVowelY(in string) bool {
	if len(in) < 2 {
		return false
	}
	return strings.ContainsRune("aeiou", rune(in[len(in)-2]))
}

// ToUnderscore converts a Go name to snake_case. Runs of capitals are kept
// together, so "UserID" becomes "user_id" and "HTTPServer" "http_server".
func ToUnderscore(in string) string {
	runes := []rune(in)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && runes[i-1] != '_' {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ToCamel converts a "snake_case" column name to the "camelCase" alias rows
// are keyed by. For example, "first_name" will be converted to "firstName".
// Names without underscore are returned unchanged.
func ToCamel(in string) string {
	if !strings.Contains(in, "_") {
		return in
	}
	var out []rune
	upper := false
	for _, r := range in {
		if r == '_' {
			upper = len(out) > 0
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		out = append(out, r)
	}
	return string(out)
}
