package querybuilder

import (
	"errors"
	"reflect"
	"strings"
	"sync"
)

// modelFields caches the exported db-tagged field indexes per struct type.
var modelFields sync.Map // reflect.Type -> []modelField

type modelField struct {
	column string
	index  int
}

// InsertModel renders an INSERT of every db-tagged field of model into table.
// Untagged, unexported and `db:"-"` fields are skipped.
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return "", nil, errors.New("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return "", nil, errors.New("model must be a struct, got " + value.Kind().String())
	}

	fields := fieldsOf(value.Type())
	if len(fields) == 0 {
		return "", nil, errors.New("model " + value.Type().Name() + " has no db columns")
	}

	cols := make([]string, len(fields))
	vals := make([]any, len(fields))
	for i, f := range fields {
		cols[i] = f.column
		vals[i] = value.Field(f.index).Interface()
	}
	return InsertInto(table).Columns(cols...).Values(vals...).Suffix(suffix).ToSQL()
}

func fieldsOf(typ reflect.Type) []modelField {
	if cached, ok := modelFields.Load(typ); ok {
		return cached.([]modelField)
	}

	fields := make([]modelField, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		column, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		column = strings.TrimSpace(column)
		if column == "" || column == "-" {
			continue
		}
		fields = append(fields, modelField{column: column, index: i})
	}

	actual, _ := modelFields.LoadOrStore(typ, fields)
	return actual.([]modelField)
}
