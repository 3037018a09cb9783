package library

import (
	"context"
	"database/sql"
	"fmt"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"sort"
	"strconv"
	"strings"
	"tagsearch/query"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// SQLite rejects compound SELECT statements with more terms than this.
const maxCompoundSelectTerms = 500

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tags (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	name     TEXT NOT NULL,
	name_key TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tag_aliases (
	tag_id    INTEGER NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
	alias     TEXT NOT NULL,
	alias_key TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tag_parents (
	tag_id    INTEGER NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
	parent_id INTEGER NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
	PRIMARY KEY (tag_id, parent_id)
);
CREATE TABLE IF NOT EXISTS entries (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	path       TEXT NOT NULL UNIQUE,
	file_type  TEXT NOT NULL,
	media_type TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entry_tags (
	entry_id INTEGER NOT NULL REFERENCES entries (id) ON DELETE CASCADE,
	tag_id   INTEGER NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
	PRIMARY KEY (entry_id, tag_id)
);
CREATE INDEX IF NOT EXISTS idx_tags_name_key ON tags (name_key);
CREATE INDEX IF NOT EXISTS idx_tag_aliases_alias_key ON tag_aliases (alias_key);
CREATE INDEX IF NOT EXISTS idx_entry_tags_tag ON entry_tags (tag_id);
CREATE INDEX IF NOT EXISTS idx_entries_file_type ON entries (file_type);
CREATE INDEX IF NOT EXISTS idx_entries_media_type ON entries (media_type);
`

// SqliteLibrary stores the library in a SQLite database file. Queries are compiled into one SQL statement.
type SqliteLibrary struct {
	db   *sql.DB
	path string
}

// OpenSqliteLibrary opens the database at the given path and creates the schema if needed.
func OpenSqliteLibrary(ctx context.Context, path string) (*SqliteLibrary, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn = dsn + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	} else {
		dsn = dsn + "&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to open library database %s", path)
	}
	// SQLite allows only one writer anyway and a single connection keeps the pragmas in effect.
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "Unable to connect to library database %s", path)
	}
	if _, err = db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "Unable to create schema of library database %s", path)
	}

	sigolo.Debugf("Opened library database %s", path)
	return &SqliteLibrary{db: db, path: path}, nil
}

// nullableID maps the ID 0 to NULL, so that SQLite chooses the next free ID.
func nullableID(id int) any {
	if id == 0 {
		return nil
	}
	return id
}

func (l *SqliteLibrary) AddTag(ctx context.Context, tag *Tag) (*Tag, error) {
	if tag.Name == "" {
		return nil, errors.New("Tag name must not be empty")
	}

	err := l.inTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "INSERT INTO tags (id, name, name_key) VALUES (?, ?, ?)", nullableID(tag.ID), tag.Name, nameKey(tag.Name))
		if err != nil {
			return errors.Wrapf(err, "Unable to insert tag '%s'", tag.Name)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return errors.Wrap(err, "Unable to get ID of new tag")
		}
		tag.ID = int(id)

		for _, alias := range tag.Aliases {
			if _, err = tx.ExecContext(ctx, "INSERT INTO tag_aliases (tag_id, alias, alias_key) VALUES (?, ?, ?)", tag.ID, alias, nameKey(alias)); err != nil {
				return errors.Wrapf(err, "Unable to insert alias '%s' of tag '%s'", alias, tag.Name)
			}
		}
		for _, parentID := range tag.ParentIDs {
			if _, err = tx.ExecContext(ctx, "INSERT INTO tag_parents (tag_id, parent_id) VALUES (?, ?)", tag.ID, parentID); err != nil {
				return errors.Wrapf(err, "Unable to insert parent tag %d of tag '%s'", parentID, tag.Name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tag, nil
}

func (l *SqliteLibrary) AddEntry(ctx context.Context, entry *Entry) (*Entry, error) {
	err := l.inTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "INSERT INTO entries (id, path, file_type, media_type) VALUES (?, ?, ?, ?)", nullableID(entry.ID), entry.Path, entry.FileType, entry.MediaType)
		if err != nil {
			return errors.Wrapf(err, "Unable to insert entry '%s'", entry.Path)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return errors.Wrap(err, "Unable to get ID of new entry")
		}
		entry.ID = int(id)

		for _, tagID := range entry.TagIDs {
			if _, err = tx.ExecContext(ctx, "INSERT INTO entry_tags (entry_id, tag_id) VALUES (?, ?)", entry.ID, tagID); err != nil {
				return errors.Wrapf(err, "Unable to add tag %d to entry '%s'", tagID, entry.Path)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (l *SqliteLibrary) Tags(ctx context.Context) ([]*Tag, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT t.id,
       t.name,
       COALESCE((SELECT group_concat(alias, char(31)) FROM tag_aliases a WHERE a.tag_id = t.id), ''),
       COALESCE((SELECT group_concat(parent_id) FROM tag_parents p WHERE p.tag_id = t.id), '')
FROM tags t
ORDER BY t.id`)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to query tags")
	}
	defer rows.Close()

	var tags []*Tag
	for rows.Next() {
		tag := &Tag{}
		var aliases, parentIDs string
		if err = rows.Scan(&tag.ID, &tag.Name, &aliases, &parentIDs); err != nil {
			return nil, errors.Wrap(err, "Unable to read tag")
		}
		if aliases != "" {
			tag.Aliases = strings.Split(aliases, "\x1f")
		}
		if tag.ParentIDs, err = splitIDs(parentIDs); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	return tags, errors.Wrap(rows.Err(), "Unable to read tags")
}

func (l *SqliteLibrary) Search(ctx context.Context, node query.Node) ([]*Entry, error) {
	sigolo.Debug("Start search in SQLite library")
	searchStartTime := time.Now()

	compiled, err := compileSqlQuery(node)
	if err != nil {
		return nil, err
	}
	sigolo.Tracef("Compiled query: %s %v", compiled.sql, compiled.args)

	rows, err := l.db.QueryContext(ctx, compiled.sql, compiled.args...)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to execute search query")
	}
	defer rows.Close()

	result := []*Entry{}
	for rows.Next() {
		entry := &Entry{}
		var tagIDs string
		if err = rows.Scan(&entry.ID, &entry.Path, &entry.FileType, &entry.MediaType, &tagIDs); err != nil {
			return nil, errors.Wrap(err, "Unable to read entry")
		}
		if entry.TagIDs, err = splitIDs(tagIDs); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "Unable to read search result")
	}

	sigolo.Debugf("Found %d entries in %s", len(result), time.Since(searchStartTime))
	return result, nil
}

func (l *SqliteLibrary) Close() error {
	return errors.Wrapf(l.db.Close(), "Unable to close library database %s", l.path)
}

func (l *SqliteLibrary) inTransaction(ctx context.Context, f func(tx *sql.Tx) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "Unable to start transaction")
	}

	if err = f(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return errors.Wrap(tx.Commit(), "Unable to commit transaction")
}

// nameKey folds the case of tag names and aliases. SQLite's lower() only folds ASCII letters, so the keys are
// computed here the same way the memory library does.
func nameKey(name string) string {
	return strings.ToLower(name)
}

// splitIDs parses comma separated IDs as returned by group_concat. The result is sorted.
func splitIDs(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	ids := make([]int, len(parts))
	for i, part := range parts {
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid ID '%s' in database", part)
		}
		ids[i] = id
	}
	sort.Ints(ids)
	return ids, nil
}

type sqlQuery struct {
	sql  string
	args []any
}

type cte struct {
	name string
	sql  string
}

// compileSqlQuery creates one SELECT statement returning all matching entries. Each node becomes a common table
// expression with a single "entry_id" column, which is combined by INTERSECT, UNION and EXCEPT.
func compileSqlQuery(node query.Node) (*sqlQuery, error) {
	const selectEntries = `SELECT e.id, e.path, e.file_type, e.media_type,
       COALESCE((SELECT group_concat(tag_id) FROM entry_tags et WHERE et.entry_id = e.id), '')
FROM entries e`

	if node == nil {
		return &sqlQuery{sql: selectEntries + "\nORDER BY e.id"}, nil
	}

	compiler := &sqlCompiler{}
	resultName, err := query.Visit[string](compiler, node)
	if err != nil {
		return nil, err
	}

	ctes := make([]string, len(compiler.ctes))
	for i, c := range compiler.ctes {
		ctes[i] = fmt.Sprintf("%s AS (%s)", c.name, c.sql)
	}

	statement := fmt.Sprintf("WITH RECURSIVE %s\n%s\nWHERE e.id IN (SELECT entry_id FROM %s)\nORDER BY e.id", strings.Join(ctes, ",\n"), selectEntries, resultName)
	return &sqlQuery{sql: statement, args: compiler.args}, nil
}

// sqlCompiler returns the name of the CTE holding the result of each visited node. Arguments are collected in the
// order their placeholders appear in the final statement, which is the order in which the CTEs are created.
type sqlCompiler struct {
	ctes    []cte
	args    []any
	counter int
}

func (c *sqlCompiler) arg(value any) string {
	c.args = append(c.args, value)
	return "?"
}

func (c *sqlCompiler) addCte(format string, args ...any) string {
	name := fmt.Sprintf("cte_%d", c.counter)
	c.counter++
	c.ctes = append(c.ctes, cte{name: name, sql: fmt.Sprintf(format, args...)})
	return name
}

func (c *sqlCompiler) combine(operator string, nodes []query.Node) (string, error) {
	names, err := query.VisitAll[string](c, nodes)
	if err != nil {
		return "", err
	}

	// Long lists are combined in chunks whose results are combined again with the same operator.
	for len(names) > maxCompoundSelectTerms {
		var chunkNames []string
		for start := 0; start < len(names); start += maxCompoundSelectTerms {
			end := min(start+maxCompoundSelectTerms, len(names))
			chunkNames = append(chunkNames, c.compoundSelect(operator, names[start:end]))
		}
		names = chunkNames
	}

	return c.compoundSelect(operator, names), nil
}

func (c *sqlCompiler) compoundSelect(operator string, names []string) string {
	selects := make([]string, len(names))
	for i, name := range names {
		selects[i] = "SELECT entry_id FROM " + name
	}
	return c.addCte("%s", strings.Join(selects, " "+operator+" "))
}

func (c *sqlCompiler) VisitANDList(list *query.ANDList) (string, error) {
	return c.combine("INTERSECT", list.Terms)
}

func (c *sqlCompiler) VisitORList(list *query.ORList) (string, error) {
	return c.combine("UNION", list.Elements)
}

func (c *sqlCompiler) VisitNot(not *query.Not) (string, error) {
	childName, err := query.Visit[string](c, not.Child)
	if err != nil {
		return "", err
	}
	return c.addCte("SELECT id AS entry_id FROM entries EXCEPT SELECT entry_id FROM %s", childName), nil
}

func (c *sqlCompiler) VisitProperty(property *query.Property) (string, error) {
	return "", errors.Errorf("Unsupported property '%s=%s'", property.Key, property.Value)
}

func (c *sqlCompiler) VisitConstraint(constraint *query.Constraint) (string, error) {
	for _, property := range constraint.Properties {
		if _, err := query.Visit[string](c, property); err != nil {
			return "", err
		}
	}

	value := constraint.Value

	if constraint.Implicit {
		tagEntries := c.entriesWithTags(c.tagsByName(value))
		return c.addCte("SELECT entry_id FROM %s UNION SELECT id AS entry_id FROM entries WHERE path GLOB %s OR file_type = %s",
			tagEntries, c.arg(pathPattern(value)), c.arg(normalizeFileType(value))), nil
	}

	switch constraint.Type {
	case query.ConstraintTypeTag:
		return c.entriesWithTags(c.tagsByName(value)), nil
	case query.ConstraintTypeTagID:
		tagID, err := strconv.Atoi(value)
		if err != nil {
			return "", errors.Wrapf(err, "Invalid tag ID '%s'", value)
		}
		return c.entriesWithTags(c.tagWithDescendants("SELECT id AS tag_id FROM tags WHERE id = %s", c.arg(tagID))), nil
	case query.ConstraintTypeMediaType:
		return c.addCte("SELECT id AS entry_id FROM entries WHERE media_type = %s", c.arg(strings.ToLower(value))), nil
	case query.ConstraintTypeFileType:
		return c.addCte("SELECT id AS entry_id FROM entries WHERE file_type = %s", c.arg(normalizeFileType(value))), nil
	case query.ConstraintTypePath:
		return c.addCte("SELECT id AS entry_id FROM entries WHERE path GLOB %s", c.arg(pathPattern(value))), nil
	case query.ConstraintTypeSpecial:
		switch strings.ToLower(value) {
		case specialUntagged:
			return c.addCte("SELECT id AS entry_id FROM entries WHERE id NOT IN (SELECT entry_id FROM entry_tags)"), nil
		}
		return "", errors.Errorf("Unknown special constraint '%s'", value)
	}

	return "", errors.Errorf("Constraint type %s not supported", constraint.Type.String())
}

// tagsByName creates a CTE with the IDs of all tags with the given name or alias and their descendants.
func (c *sqlCompiler) tagsByName(name string) string {
	key := nameKey(name)
	return c.tagWithDescendants("SELECT id AS tag_id FROM tags WHERE name_key = %s OR id IN (SELECT tag_id FROM tag_aliases WHERE alias_key = %s)",
		c.arg(key), c.arg(key))
}

// tagWithDescendants creates a recursive CTE starting with the tags of the given SELECT statement and adding all
// child tags.
func (c *sqlCompiler) tagWithDescendants(initialSelect string, args ...any) string {
	name := fmt.Sprintf("cte_%d", c.counter)
	c.counter++
	c.ctes = append(c.ctes, cte{
		name: name,
		sql:  fmt.Sprintf(initialSelect, args...) + fmt.Sprintf(" UNION SELECT p.tag_id FROM tag_parents p JOIN %s ON p.parent_id = %s.tag_id", name, name),
	})
	return name
}

func (c *sqlCompiler) entriesWithTags(tagsCte string) string {
	return c.addCte("SELECT entry_id FROM entry_tags WHERE tag_id IN (SELECT tag_id FROM %s)", tagsCte)
}
