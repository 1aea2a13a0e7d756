package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AngelCh415/fakestat/internal/models"
)

// ErrInvalidImport wraps every ImportJSON rejection.
var ErrInvalidImport = errors.New("invalid import")

type fieldKind int

const (
	kindString fieldKind = iota
	kindNullableString
	kindNumber
	kindInt
	kindCount // non-negative integer
)

var statFields = []struct {
	name string
	kind fieldKind
}{
	{"id", kindInt},
	{"name", kindString},
	{"origin", kindNullableString},
	{"conversion_ratio", kindNumber},
	{"successful_leads", kindCount},
	{"total_ftds", kindCount},
	{"total_leads", kindCount},
	{"late_total_ftds", kindCount},
	{"revenue", kindNumber},
}

func importErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidImport, fmt.Sprintf(format, args...))
}

// decodeStats parses a JSON array of traffic stats, checking the shape of
// every element before any of them is accepted.
func decodeStats(data []byte) ([]models.TrafficStat, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, importErr("expected a JSON array")
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, importErr("malformed JSON: %v", err)
	}

	out := make([]models.TrafficStat, 0, len(elems))
	seen := make(map[int]struct{}, len(elems))
	for i, raw := range elems {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			return nil, importErr("element %d: expected an object", i)
		}
		for _, f := range statFields {
			v, ok := obj[f.name]
			if !ok {
				return nil, importErr("element %d: missing field %q", i, f.name)
			}
			if err := checkKind(v, f.kind); err != nil {
				return nil, importErr("element %d: field %q %v", i, f.name, err)
			}
		}
		var st models.TrafficStat
		if err := json.Unmarshal(raw, &st); err != nil {
			return nil, importErr("element %d: %v", i, err)
		}
		if _, dup := seen[st.ID]; dup {
			return nil, importErr("element %d: duplicate id %d", i, st.ID)
		}
		seen[st.ID] = struct{}{}
		out = append(out, st)
	}
	return out, nil
}

func checkKind(raw json.RawMessage, kind fieldKind) error {
	raw = bytes.TrimSpace(raw)
	isNull := bytes.Equal(raw, []byte("null"))

	switch kind {
	case kindString, kindNullableString:
		if isNull && kind == kindNullableString {
			return nil
		}
		if len(raw) == 0 || raw[0] != '"' {
			return errors.New("must be a string")
		}
		return nil
	}

	if len(raw) == 0 || !(raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')) {
		return errors.New("must be a number")
	}
	n := json.Number(raw)
	if kind == kindNumber {
		if _, err := n.Float64(); err != nil {
			return errors.New("must be a number")
		}
		return nil
	}
	v, err := n.Int64()
	if err != nil {
		return errors.New("must be an integer")
	}
	if kind == kindCount && v < 0 {
		return errors.New("must not be negative")
	}
	return nil
}
