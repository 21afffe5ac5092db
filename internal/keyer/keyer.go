// Package keyer turns lists found in an rnbd/ibnbd dump into keyed mappings,
// so that devices, sessions and paths are addressed by their names rather than
// by their position in the list.
package keyer

import (
	"fmt"
	"strconv"

	"github.com/mcncl/rnbdview/internal/errors"
	"github.com/mcncl/rnbdview/internal/models"
)

// Fields looked up on list items, per list name. Names are matched exactly,
// "incomming" spelling included.
var keyFields = map[string]string{
	"exports":            "mapping_path",
	"imports":            "mapping_path",
	"incomming sessions": "sessname",
	"outgoing sessions":  "sessname",
	"incomming paths":    "pathname",
	"outgoing paths":     "pathname",
}

// KeyField returns the item field that keys the list called fieldName.
// It returns false for lists that are keyed by position.
func KeyField(fieldName string) (string, bool) {
	field, ok := keyFields[fieldName]
	return field, ok
}

// Keyed reports whether the list called fieldName is keyed by an item field.
func Keyed(fieldName string) bool {
	_, ok := keyFields[fieldName]
	return ok
}

// KeyFor derives the key of the item at index in the list called fieldName.
func KeyFor(fieldName string, index int, item models.Value) (string, error) {
	field, ok := KeyField(fieldName)
	if !ok {
		return strconv.Itoa(index), nil
	}

	obj, ok := item.(models.Object)
	if !ok {
		return "", &errors.MalformedInputError{
			Path:   fmt.Sprintf("%s[%d]", fieldName, index),
			Reason: fmt.Sprintf("expected an object with a %q field, got %s", field, kindOf(item)),
		}
	}
	value, ok := obj.Get(field)
	if !ok {
		return "", &errors.MissingFieldError{List: fieldName, Field: field, Index: index}
	}
	switch value.(type) {
	case models.Object, models.Array:
		return "", &errors.MalformedInputError{
			Path:   fmt.Sprintf("%s[%d].%s", fieldName, index, field),
			Reason: fmt.Sprintf("key field must be a scalar, got %s", kindOf(value)),
		}
	}
	return KeyText(value), nil
}

// DeriveKeys maps items to their keys, in the order of items. A later item
// whose key repeats an earlier one replaces the earlier item's value and keeps
// its position.
func DeriveKeys(fieldName string, items models.Array) (models.Object, error) {
	keyed := make(models.Object, 0, len(items))
	index := make(map[string]int, len(items))
	for i, item := range items {
		key, err := KeyFor(fieldName, i, item)
		if err != nil {
			return nil, err
		}
		keyed.SetIndexed(index, key, item)
	}
	return keyed, nil
}

// KeyText renders a scalar key value as a node label. Unlike leaf values,
// strings are kept verbatim.
func KeyText(v models.Value) string {
	switch t := v.(type) {
	case models.String:
		return string(t)
	case models.Number:
		return string(t)
	case models.Bool:
		return strconv.FormatBool(bool(t))
	case models.Null, nil:
		return "None"
	default:
		return fmt.Sprintf("%v", t)
	}
}

func kindOf(v models.Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Kind().String()
}
