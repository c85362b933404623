package overlay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
)

// buildPopups renders one popup per feature: each property as a
// "key: value" line, in the order the keys appear in the document.
// Features without properties get an empty popup.
//
// Decoded property maps lose key order, so the order comes from a second
// token-stream pass over the raw document; values come from the decoded
// collection.
func buildPopups(raw []byte, fc *geojson.FeatureCollection) ([]string, error) {
	order, err := propertyOrder(raw)
	if err != nil {
		return nil, err
	}
	if len(order) != len(fc.Features) {
		return nil, eris.Errorf("property scan found %d features, collection has %d", len(order), len(fc.Features))
	}

	popups := make([]string, len(fc.Features))
	for i, f := range fc.Features {
		if len(f.Properties) == 0 {
			continue
		}
		var b strings.Builder
		for _, key := range order[i] {
			v, ok := f.Properties[key]
			if !ok {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%s: %s", key, formatValue(v))
		}
		popups[i] = b.String()
	}
	return popups, nil
}

// formatValue renders a decoded JSON property value. Numbers decode as
// float64 and must keep their plain decimal form; %v would turn large
// whole numbers into exponent notation.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// propertyOrder walks the raw GeoJSON and returns, per feature, the
// property keys in document order.
func propertyOrder(raw []byte) ([][]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var features [][]string
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		if key != "features" {
			if err := skipValue(dec); err != nil {
				return nil, err
			}
			continue
		}

		if err := expectDelim(dec, '['); err != nil {
			return nil, err
		}
		for dec.More() {
			keys, err := featureKeys(dec)
			if err != nil {
				return nil, err
			}
			features = append(features, keys)
		}
		if _, err := dec.Token(); err != nil { // closing ]
			return nil, err
		}
	}
	return features, nil
}

// featureKeys consumes one feature object and returns its property keys.
func featureKeys(dec *json.Decoder) ([]string, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var keys []string
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		if key != "properties" {
			if err := skipValue(dec); err != nil {
				return nil, err
			}
			continue
		}

		t, err := dec.Token()
		if err != nil {
			return nil, err
		}
		d, ok := t.(json.Delim)
		if !ok || d != '{' {
			continue // null properties
		}
		for dec.More() {
			k, err := stringToken(dec)
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
			if err := skipValue(dec); err != nil {
				return nil, err
			}
		}
		if _, err := dec.Token(); err != nil { // closing }
			return nil, err
		}
	}
	if _, err := dec.Token(); err != nil { // closing }
		return nil, err
	}
	return keys, nil
}

// skipValue consumes one JSON value of any shape.
func skipValue(dec *json.Decoder) error {
	t, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := t.(json.Delim)
	if !ok {
		return nil
	}
	switch d {
	case '{':
		for dec.More() {
			if _, err := dec.Token(); err != nil { // key
				return err
			}
			if err := skipValue(dec); err != nil {
				return err
			}
		}
	case '[':
		for dec.More() {
			if err := skipValue(dec); err != nil {
				return err
			}
		}
	default:
		return eris.Errorf("unexpected delimiter %v", d)
	}
	if _, err := dec.Token(); err != nil { // closing delim
		return err
	}
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	t, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := t.(json.Delim); !ok || d != want {
		return eris.Errorf("expected %v, got %v", want, t)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	t, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := t.(string)
	if !ok {
		return "", eris.Errorf("expected string key, got %v", t)
	}
	return s, nil
}
