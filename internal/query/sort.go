package query

import (
	"fmt"
	"strings"
)

// Sort is a comma-separated list of field names; a leading "-" sorts that
// field descending. Example: "-due_date,priority".
type Sort string

// SortField is one parsed component of a Sort.
type SortField struct {
	Name string
	Desc bool
}

func (f SortField) String() string {
	if f.Desc {
		return "-" + f.Name
	}
	return f.Name
}

// ParseSort validates s. Field names are lower-case letters, digits and
// underscores.
func ParseSort(s string) (Sort, error) {
	fields := Sort(s).Fields()
	if len(fields) == 0 {
		return "", fmt.Errorf("sort %q has no fields", s)
	}
	for _, f := range fields {
		if !validFieldName(f.Name) {
			return "", fmt.Errorf("sort %q: invalid field %q", s, f.Name)
		}
	}
	return joinFields(fields), nil
}

// Fields splits s. Empty components are skipped, as the server does.
func (s Sort) Fields() []SortField {
	var out []SortField
	for _, part := range strings.Split(string(s), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "-") {
			out = append(out, SortField{Name: part[1:], Desc: true})
		} else {
			out = append(out, SortField{Name: part})
		}
	}
	return out
}

// Primary returns the first field, or a zero SortField.
func (s Sort) Primary() SortField {
	fields := s.Fields()
	if len(fields) == 0 {
		return SortField{}
	}
	return fields[0]
}

// Toggle flips the direction of the primary field.
func (s Sort) Toggle() Sort {
	fields := s.Fields()
	if len(fields) == 0 {
		return s
	}
	fields[0].Desc = !fields[0].Desc
	return joinFields(fields)
}

func joinFields(fields []SortField) Sort {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.String()
	}
	return Sort(strings.Join(parts, ","))
}

func validFieldName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}
