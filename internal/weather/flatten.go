package weather

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"
)

var (
	// ErrNotObject is returned when the value to flatten is not a JSON object.
	ErrNotObject = errors.New("flatten: top-level value is not an object")

	// ErrNoData is returned when a timemachine payload carries no observation.
	ErrNoData = errors.New("payload has no observation data")
)

// weatherListKey names the list of condition objects that OpenWeather attaches to every
// observation. Its elements are merged into the parent rather than serialized.
const weatherListKey = "weather"

// ExtractObservation returns the first element of the top-level "data" array of a
// timemachine response.
func ExtractObservation(body []byte) ([]byte, error) {
	value, dataType, _, err := jsonparser.Get(body, "data", "[0]")
	if err != nil || dataType != jsonparser.Object {
		return nil, ErrNoData
	}
	return value, nil
}

// Flatten converts one JSON object into a flat Record:
//
//   - nested objects recurse with the parent key and "_" as prefix
//   - a "weather" list of objects merges each element's keys under "weather_", later
//     elements overwriting earlier ones
//   - a list of scalars is joined with ", "
//   - any other list is kept as compact JSON text
//
// Keys appear in document order.
func Flatten(data []byte) (*Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	rec := NewRecord()
	if err := flattenObject(rec, trimmed, ""); err != nil {
		return nil, fmt.Errorf("flatten: %w", err)
	}
	return rec, nil
}

func flattenObject(rec *Record, obj []byte, prefix string) error {
	return jsonparser.ObjectEach(obj, func(rawKey, value []byte, dataType jsonparser.ValueType, _ int) error {
		key, err := jsonparser.ParseString(rawKey)
		if err != nil {
			return err
		}

		switch dataType {
		case jsonparser.Object:
			return flattenObject(rec, value, prefix+key+"_")
		case jsonparser.Array:
			return flattenList(rec, key, value, prefix)
		default:
			text, err := cellText(value, dataType)
			if err != nil {
				return err
			}
			rec.Set(prefix+key, text)
			return nil
		}
	})
}

type element struct {
	value    []byte
	dataType jsonparser.ValueType
}

func flattenList(rec *Record, key string, list []byte, prefix string) error {
	elems, err := listElements(list)
	if err != nil {
		return err
	}

	if key == weatherListKey && allOf(elems, jsonparser.Object) {
		for _, e := range elems {
			err := jsonparser.ObjectEach(e.value, func(rawKey, value []byte, dataType jsonparser.ValueType, _ int) error {
				k, err := jsonparser.ParseString(rawKey)
				if err != nil {
					return err
				}
				text, err := cellText(value, dataType)
				if err != nil {
					return err
				}
				rec.Set(prefix+key+"_"+k, text)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}

	if allOf(elems, jsonparser.String, jsonparser.Number, jsonparser.Boolean) {
		parts := make([]string, 0, len(elems))
		for _, e := range elems {
			text, err := cellText(e.value, e.dataType)
			if err != nil {
				return err
			}
			parts = append(parts, text)
		}
		rec.Set(prefix+key, strings.Join(parts, ", "))
		return nil
	}

	text, err := compactJSON(list)
	if err != nil {
		return err
	}
	rec.Set(prefix+key, text)
	return nil
}

func listElements(list []byte) ([]element, error) {
	inner := bytes.TrimSpace(list)
	if len(inner) >= 2 && len(bytes.TrimSpace(inner[1:len(inner)-1])) == 0 {
		return nil, nil
	}

	var (
		elems []element
		cbErr error
	)
	_, err := jsonparser.ArrayEach(list, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if err != nil && cbErr == nil {
			cbErr = err
			return
		}
		elems = append(elems, element{value: value, dataType: dataType})
	})
	if err != nil {
		return nil, err
	}
	return elems, cbErr
}

func allOf(elems []element, types ...jsonparser.ValueType) bool {
	for _, e := range elems {
		ok := false
		for _, t := range types {
			if e.dataType == t {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// cellText renders a JSON value as a CSV cell.
func cellText(value []byte, dataType jsonparser.ValueType) (string, error) {
	switch dataType {
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Null:
		return "", nil
	case jsonparser.Object, jsonparser.Array:
		return compactJSON(value)
	default:
		return string(value), nil
	}
}

func compactJSON(raw []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}
