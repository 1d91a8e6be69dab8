package sqlstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	_ "modernc.org/sqlite" // registers "sqlite"

	"github.com/nathoo/wayfarer/store"
)

// dialect captures the SQL differences between backends. Every query is
// written with ? placeholders; rebind converts them where needed.
type dialect struct {
	driver string
	schema []string
	rebind func(string) string

	// set, inc and push wrap expr with one JSON update each. Placeholders
	// inside the returned expression appear in the order of the returned
	// args, after any placeholders already in expr.
	set  func(expr string, segs []string, value []byte) (string, []any)
	inc  func(expr string, segs []string, delta int) (string, []any)
	push func(expr string, segs []string, values [][]byte) (string, []any)

	questFilter string
}

func dialectFor(driver string) (*dialect, error) {
	switch driver {
	case "sqlite":
		return sqliteDialect(), nil
	case "postgres":
		return postgresDialect(), nil
	}
	return nil, fmt.Errorf("unsupported sql driver %q", driver)
}

func sqliteDialect() *dialect {
	return &dialect{
		driver: "sqlite",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS documents (
				collection TEXT NOT NULL,
				id TEXT NOT NULL,
				name_key TEXT NOT NULL DEFAULT '',
				doc TEXT NOT NULL,
				PRIMARY KEY (collection, id)
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS documents_name ON documents (collection, name_key) WHERE name_key <> ''`,
		},
		rebind: func(q string) string { return q },
		set: func(expr string, segs []string, value []byte) (string, []any) {
			return fmt.Sprintf("json_set(%s, ?, json(?))", expr), []any{sqlitePath(segs), string(value)}
		},
		inc: func(expr string, segs []string, delta int) (string, []any) {
			p := sqlitePath(segs)
			return fmt.Sprintf("json_set(%s, ?, COALESCE(json_extract(doc, ?), 0) + ?)", expr), []any{p, p, delta}
		},
		push: func(expr string, segs []string, values [][]byte) (string, []any) {
			p := sqlitePath(segs) + "[#]"
			var args []any
			for _, v := range values {
				expr = fmt.Sprintf("json_insert(%s, ?, json(?))", expr)
				args = append(args, p, string(v))
			}
			return expr, args
		},
		questFilter: `json_extract(doc, '$.location') = ? AND json_extract(doc, '$.min_level') <= ?`,
	}
}

// sqlitePath renders segments as a quoted JSON path: $."a"."b".
func sqlitePath(segs []string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, s := range segs {
		b.WriteString(`."`)
		b.WriteString(s)
		b.WriteString(`"`)
	}
	return b.String()
}

func postgresDialect() *dialect {
	return &dialect{
		driver: "postgres",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS documents (
				collection TEXT NOT NULL,
				id TEXT NOT NULL,
				name_key TEXT NOT NULL DEFAULT '',
				doc JSONB NOT NULL,
				PRIMARY KEY (collection, id)
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS documents_name ON documents (collection, name_key) WHERE name_key <> ''`,
		},
		rebind: rebindDollar,
		set: func(expr string, segs []string, value []byte) (string, []any) {
			return fmt.Sprintf("jsonb_set(%s, ?::text[], ?::jsonb, true)", expr), []any{pq.Array(segs), string(value)}
		},
		inc: func(expr string, segs []string, delta int) (string, []any) {
			return fmt.Sprintf("jsonb_set(%s, ?::text[], to_jsonb(COALESCE((doc #>> ?::text[])::int, 0) + ?::int), true)", expr),
				[]any{pq.Array(segs), pq.Array(segs), delta}
		},
		push: func(expr string, segs []string, values [][]byte) (string, []any) {
			arr := make([]json.RawMessage, len(values))
			for i, v := range values {
				arr[i] = v
			}
			packed, _ := json.Marshal(arr)
			return fmt.Sprintf("jsonb_set(%s, ?::text[], COALESCE(doc #> ?::text[], '[]'::jsonb) || ?::jsonb, true)", expr),
				[]any{pq.Array(segs), pq.Array(segs), string(packed)}
		},
		questFilter: `doc->>'location' = ? AND (doc->>'min_level')::int <= ?`,
	}
}

// rebindDollar rewrites ? placeholders as $1, $2, ...
func rebindDollar(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// updateExpr builds the nested JSON expression applying m to column doc.
func (d *dialect) updateExpr(m store.Mutation) (string, []any, error) {
	expr := "doc"
	var args []any
	for _, path := range m.SetPaths() {
		segs, err := store.SplitPath(path)
		if err != nil {
			return "", nil, err
		}
		v, err := json.Marshal(m.Set[path])
		if err != nil {
			return "", nil, fmt.Errorf("encode %s: %w", path, err)
		}
		var a []any
		expr, a = d.set(expr, segs, v)
		args = append(args, a...)
	}
	for _, path := range m.IncPaths() {
		segs, err := store.SplitPath(path)
		if err != nil {
			return "", nil, err
		}
		var a []any
		expr, a = d.inc(expr, segs, m.Inc[path])
		args = append(args, a...)
	}
	for _, path := range m.PushPaths() {
		segs, err := store.SplitPath(path)
		if err != nil {
			return "", nil, err
		}
		values := make([][]byte, 0, len(m.Push[path]))
		for _, item := range m.Push[path] {
			v, err := json.Marshal(item)
			if err != nil {
				return "", nil, fmt.Errorf("encode %s: %w", path, err)
			}
			values = append(values, v)
		}
		var a []any
		expr, a = d.push(expr, segs, values)
		args = append(args, a...)
	}
	return expr, args, nil
}
