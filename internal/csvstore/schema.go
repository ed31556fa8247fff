package csvstore

// Schema is the ordered set of column names in force for a CSV file. It only grows:
// Extend appends columns and never reorders existing ones.
type Schema struct {
	columns []string
	index   map[string]int
}

// NewSchema builds a Schema from columns, dropping repeated names.
func NewSchema(columns []string) *Schema {
	s := &Schema{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		s.add(c)
	}
	return s
}

func (s *Schema) add(column string) {
	if _, ok := s.index[column]; ok {
		return
	}
	s.index[column] = len(s.columns)
	s.columns = append(s.columns, column)
}

// Columns returns a copy of the column names in order.
func (s *Schema) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	return len(s.columns)
}

// Contains reports whether column is part of the schema.
func (s *Schema) Contains(column string) bool {
	_, ok := s.index[column]
	return ok
}

// Diff compares keys to the schema. added lists keys the schema lacks, in the order they
// appear in keys; missing lists schema columns absent from keys, in schema order.
func (s *Schema) Diff(keys []string) (added, missing []string) {
	present := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, seen := present[k]; seen {
			continue
		}
		present[k] = struct{}{}
		if !s.Contains(k) {
			added = append(added, k)
		}
	}
	for _, c := range s.columns {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return added, missing
}

// Extend returns a new Schema with columns appended after the existing ones.
// The receiver is not modified.
func (s *Schema) Extend(columns []string) *Schema {
	next := NewSchema(s.columns)
	for _, c := range columns {
		next.add(c)
	}
	return next
}
