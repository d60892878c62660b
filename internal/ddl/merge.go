package ddl

import (
	"fmt"
	"strings"
)

// KeyPredicate renders "l.k1 = r.k1 AND l.k2 = r.k2".
func KeyPredicate(d Dialect, left, right string, keys []string) string {
	conds := make([]string, len(keys))
	for i, k := range keys {
		q := d.Ident(k)
		conds[i] = fmt.Sprintf("%s.%s = %s.%s", left, q, right, q)
	}
	return strings.Join(conds, " AND ")
}

// BuildMergeSQL renders an upsert of every source row into target, matching
// on keys. Matched rows have every non-key column overwritten and unmatched
// rows are inserted with all columns. Rows only present in the target are not
// touched.
func BuildMergeSQL(d Dialect, target, source string, cols, keys []string) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("%s merge: at least one key column is required", d.Name)
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("%s merge: at least one column is required", d.Name)
	}
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	var set []string
	for _, c := range cols {
		if isKey[c] {
			continue
		}
		q := d.Ident(c)
		set = append(set, fmt.Sprintf("%s = s.%s", q, q))
	}
	values := make([]string, len(cols))
	for i, c := range cols {
		values[i] = "s." + d.Ident(c)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "MERGE INTO %s AS t\nUSING %s AS s\nON %s\n", target, source, KeyPredicate(d, "t", "s", keys))
	if len(set) > 0 {
		fmt.Fprintf(&sb, "WHEN MATCHED THEN UPDATE SET %s\n", strings.Join(set, ", "))
	}
	fmt.Fprintf(&sb, "WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s)%s",
		strings.Join(d.Idents(cols), ", "), strings.Join(values, ", "), d.Terminator)
	return sb.String(), nil
}

// BuildCountMatchedSQL counts source rows that already have a target row.
func BuildCountMatchedSQL(d Dialect, target, source string, keys []string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s AS s WHERE EXISTS (SELECT 1 FROM %s AS t WHERE %s)",
		source, target, KeyPredicate(d, "t", "s", keys))
}

// BuildInsertOnDuplicateSQL renders a MySQL multi-row upsert of rows rows.
// Rows whose unique key already exists get every non-key column overwritten.
func BuildInsertOnDuplicateSQL(d Dialect, target string, cols, keys []string, rows int) (string, error) {
	if len(cols) == 0 {
		return "", fmt.Errorf("%s upsert: at least one column is required", d.Name)
	}
	if rows <= 0 {
		return "", fmt.Errorf("%s upsert: at least one row is required", d.Name)
	}
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	tuples := make([]string, rows)
	for i := range tuples {
		tuples[i] = tuple
	}
	var set []string
	for _, c := range cols {
		if isKey[c] {
			continue
		}
		q := d.Ident(c)
		set = append(set, fmt.Sprintf("%s = VALUES(%s)", q, q))
	}
	if len(set) == 0 {
		// key-only table: a no-op assignment keeps duplicates from failing
		q := d.Ident(keys[0])
		set = append(set, fmt.Sprintf("%s = %s", q, q))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON DUPLICATE KEY UPDATE %s",
		target, strings.Join(d.Idents(cols), ", "), strings.Join(tuples, ", "), strings.Join(set, ", ")), nil
}

// BuildCountKeysSQL counts target rows whose key tuple is among n tuples of
// placeholders.
func BuildCountKeysSQL(d Dialect, target string, keys []string, n int) string {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ") + ")"
	tuples := make([]string, n)
	for i := range tuples {
		tuples[i] = tuple
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE (%s) IN (%s)",
		target, strings.Join(d.Idents(keys), ", "), strings.Join(tuples, ", "))
}
