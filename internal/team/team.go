// Package team normalizes team-member records and decides who on a team is
// the leader.
//
// Member lists reach the store in several historical shapes: a JSON array, a
// JSON array serialized into a string, or an object keyed by array indices
// ("0", "1", ...). Field names also drifted over time. Normalize folds all of
// them into one ordered []Member.
package team

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Member is the canonical team-member record.
type Member struct {
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	University string `json:"university,omitempty"`
	RollNumber string `json:"roll_number,omitempty"`
	CNIC       string `json:"cnic,omitempty"`
}

// IsBlank reports whether the member carries no identifying field.
func (m Member) IsBlank() bool {
	return strings.TrimSpace(m.Email) == "" &&
		strings.TrimSpace(m.Name) == "" &&
		strings.TrimSpace(m.RollNumber) == ""
}

// Field aliases, canonical spelling first.
var (
	nameKeys       = []string{"name", "full_name", "fullName", "fullname", "member_name", "memberName"}
	emailKeys      = []string{"email", "email_address", "emailAddress", "mail"}
	universityKeys = []string{"university", "university_name", "universityName", "uni", "institute", "institution"}
	rollKeys       = []string{"roll_number", "rollNumber", "roll_no", "rollNo", "roll", "registration_number"}
	cnicKeys       = []string{"cnic", "cnic_number", "cnicNumber", "national_id", "nationalId"}
)

// Normalize converts raw team data into an ordered member list. Unknown or
// malformed input yields an empty, non-nil slice.
func Normalize(raw any) []Member {
	members := Decode(raw)
	for i := range members {
		members[i].CNIC = DigitsOnly(members[i].CNIC)
	}
	return members
}

// Decode resolves the same shapes and aliases as Normalize but leaves CNIC
// values trimmed rather than reduced to digits, so sealed values survive.
func Decode(raw any) []Member {
	members := normalize(raw, 0)
	if members == nil {
		return []Member{}
	}
	return members
}

func normalize(raw any, depth int) []Member {
	// A string can hold JSON that itself holds a string; stop after a couple
	// of rounds.
	if depth > 2 {
		return nil
	}

	switch v := raw.(type) {
	case nil:
		return nil
	case []Member:
		out := make([]Member, 0, len(v))
		for _, m := range v {
			out = append(out, clean(m))
		}
		return out
	case Member:
		return []Member{clean(v)}
	case string:
		return normalizeJSON([]byte(v), depth)
	case []byte:
		return normalizeJSON(v, depth)
	case json.RawMessage:
		return normalizeJSON(v, depth)
	case []any:
		out := make([]Member, 0, len(v))
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, fromMap(obj))
			}
		}
		return out
	case []map[string]any:
		out := make([]Member, 0, len(v))
		for _, obj := range v {
			out = append(out, fromMap(obj))
		}
		return out
	case map[string]any:
		return fromIndexedMap(v)
	default:
		return nil
	}
}

func normalizeJSON(data []byte, depth int) []Member {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return nil
	}
	return normalize(decoded, depth+1)
}

// fromIndexedMap handles the sparse-array encoding. Every key must parse as
// a non-negative integer; entries are ordered by that integer.
func fromIndexedMap(obj map[string]any) []Member {
	type entry struct {
		index int
		value map[string]any
	}

	entries := make([]entry, 0, len(obj))
	for key, value := range obj {
		index, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || index < 0 {
			return nil
		}
		if record, ok := value.(map[string]any); ok {
			entries = append(entries, entry{index: index, value: record})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].index < entries[j].index })

	out := make([]Member, 0, len(entries))
	for _, e := range entries {
		out = append(out, fromMap(e.value))
	}
	return out
}

func fromMap(obj map[string]any) Member {
	return clean(Member{
		Name:       lookup(obj, nameKeys),
		Email:      lookup(obj, emailKeys),
		University: lookup(obj, universityKeys),
		RollNumber: lookup(obj, rollKeys),
		CNIC:       lookup(obj, cnicKeys),
	})
}

func lookup(obj map[string]any, keys []string) string {
	for _, key := range keys {
		if value, ok := obj[key]; ok {
			if s := stringify(value); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

func clean(m Member) Member {
	return Member{
		Name:       strings.TrimSpace(m.Name),
		Email:      strings.TrimSpace(m.Email),
		University: strings.TrimSpace(m.University),
		RollNumber: strings.TrimSpace(m.RollNumber),
		CNIC:       strings.TrimSpace(m.CNIC),
	}
}

// DigitsOnly strips every non-digit character.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatCNIC renders a 13-digit national ID as #####-#######-#. Values of
// any other length are returned as their digits.
func FormatCNIC(s string) string {
	d := DigitsOnly(s)
	if len(d) != 13 {
		return d
	}
	return d[:5] + "-" + d[5:12] + "-" + d[12:]
}
