package reminder

// projectRecord maps header names to row cells by position. Iteration runs
// over the header list, so row cells past the last header are dropped and
// headers past the last cell stay absent from the record. When two headers
// share a name the later column wins.
func projectRecord(headers []string, row []any) map[string]any {
	record := make(map[string]any, len(headers))
	for i, h := range headers {
		if i < len(row) {
			record[h] = row[i]
		}
	}
	return record
}

// cell returns the row value at a resolved column index. Unresolved
// columns (index -1) and short rows both read as absent.
func cell(row []any, i int) (any, bool) {
	if i < 0 || i >= len(row) {
		return nil, false
	}
	return row[i], true
}
