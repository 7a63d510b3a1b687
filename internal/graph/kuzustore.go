//go:build cgo

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kuzu "github.com/kuzudb/go-kuzu"

	"github.com/dusk-indust/studyguide/internal/course"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path, so a resolved catalog survives across sessions.
// KuzuDB creates the leaf directory itself.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	db, err := kuzu.OpenDatabase(path, kuzu.DefaultSystemConfig())
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Course(
		code STRING,
		name STRING,
		localized_name STRING,
		locale STRING,
		credits INT64,
		enrollable_in STRING,
		teachers STRING,
		PRIMARY KEY(code)
	)`,
	`CREATE REL TABLE IF NOT EXISTS PREREQUISITE(FROM Course TO Course, position INT64)`,
	`CREATE REL TABLE IF NOT EXISTS COREQUISITE(FROM Course TO Course, position INT64)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// AddCourse upserts a Course node.
func (s *KuzuStore) AddCourse(_ context.Context, node CourseNode) error {
	teachers, err := json.Marshal(node.Teachers)
	if err != nil {
		return fmt.Errorf("kuzu: encode teachers: %w", err)
	}
	return s.exec(
		`MERGE (c:Course {code: $code})
		 SET c.name = $name,
		     c.localized_name = $localized,
		     c.locale = $locale,
		     c.credits = $credits,
		     c.enrollable_in = $term,
		     c.teachers = $teachers`,
		map[string]any{
			"code":      node.Code,
			"name":      node.Name,
			"localized": node.LocalizedName,
			"locale":    node.Locale,
			"credits":   int64(node.Credits),
			"term":      string(node.EnrollableIn),
			"teachers":  string(teachers),
		},
	)
}

// AddEdge upserts a relationship between two existing courses. The
// relationship table is chosen by the EdgeKind.
func (s *KuzuStore) AddEdge(ctx context.Context, edge Edge) error {
	if !edge.Kind.valid() {
		return fmt.Errorf("kuzu: unsupported edge kind: %s", edge.Kind)
	}
	for _, code := range []string{edge.SourceID, edge.TargetID} {
		node, err := s.GetCourse(ctx, code)
		if err != nil {
			return err
		}
		if node == nil {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, code)
		}
	}
	// Kind is one of the fixed table names checked above.
	cypher := fmt.Sprintf(
		`MATCH (a:Course {code: $src}), (b:Course {code: $dst})
		 MERGE (a)-[r:%s]->(b)
		 SET r.position = $pos`, edge.Kind)
	return s.exec(cypher, map[string]any{
		"src": edge.SourceID,
		"dst": edge.TargetID,
		"pos": int64(edge.Position),
	})
}

// ---------- Read operations ----------

const courseColumns = "c.code, c.name, c.localized_name, c.locale, c.credits, c.enrollable_in, c.teachers"

// GetCourse retrieves a single Course node by code, or returns nil if not found.
func (s *KuzuStore) GetCourse(_ context.Context, code string) (*CourseNode, error) {
	rows, err := s.query(
		"MATCH (c:Course {code: $code}) RETURN "+courseColumns,
		map[string]any{"code": code},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToCourse(rows[0])
}

// QueryCourses returns courses whose code or names contain the query string,
// ignoring case.
func (s *KuzuStore) QueryCourses(_ context.Context, queryStr string, limit int) ([]CourseNode, error) {
	cypher := `MATCH (c:Course)
		 WHERE lower(c.code) CONTAINS $q OR lower(c.name) CONTAINS $q OR lower(c.localized_name) CONTAINS $q
		 RETURN ` + courseColumns + ` ORDER BY c.code`
	params := map[string]any{"q": strings.ToLower(queryStr)}
	if limit > 0 {
		cypher += " LIMIT $lim"
		params["lim"] = int64(limit)
	}
	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	return rowsToCourses(rows)
}

// GetAllCourses returns every Course node ordered by code.
func (s *KuzuStore) GetAllCourses(_ context.Context) ([]CourseNode, error) {
	rows, err := s.query("MATCH (c:Course) RETURN "+courseColumns+" ORDER BY c.code", nil)
	if err != nil {
		return nil, err
	}
	return rowsToCourses(rows)
}

// GetAllEdges returns all edges across both relationship tables.
func (s *KuzuStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	var edges []Edge
	for _, kind := range EdgeKinds {
		rows, err := s.query(
			fmt.Sprintf("MATCH (a:Course)-[r:%s]->(b:Course) RETURN a.code, b.code, r.position", kind),
			nil,
		)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			edges = append(edges, Edge{
				SourceID: toString(r[0]),
				TargetID: toString(r[1]),
				Kind:     kind,
				Position: toInt(r[2]),
			})
		}
	}
	sortEdges(edges)
	return edges, nil
}

// ---------- Graph traversal ----------

// GetDependencies performs a BFS over both relationship tables starting from
// the given course. It returns one DependencyChain per reachable course.
func (s *KuzuStore) GetDependencies(_ context.Context, code string, dir Direction, maxDepth int) ([]DependencyChain, error) {
	if err := checkDirection(dir); err != nil {
		return nil, err
	}
	return walk(code, maxDepth, func(id string) ([]string, error) {
		return s.courseNeighbors(id, dir)
	})
}

// courseNeighbors returns the immediate neighbors of code, sorted.
func (s *KuzuStore) courseNeighbors(code string, dir Direction) ([]string, error) {
	var cypher string
	switch dir {
	case DirectionUpstream:
		cypher = "MATCH (a:Course {code: $code})-[:PREREQUISITE|:COREQUISITE]->(b:Course) RETURN DISTINCT b.code ORDER BY b.code"
	case DirectionDownstream:
		cypher = "MATCH (a:Course)-[:PREREQUISITE|:COREQUISITE]->(b:Course {code: $code}) RETURN DISTINCT a.code ORDER BY a.code"
	default:
		return nil, fmt.Errorf("kuzu: unknown direction: %s", dir)
	}
	rows, err := s.query(cypher, map[string]any{"code": code})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

// AssessImpact reports the courses that can no longer be taken once the
// dropped courses are gone.
func (s *KuzuStore) AssessImpact(_ context.Context, dropped []string) (*ImpactResult, error) {
	total, err := s.count("MATCH (c:Course) RETURN count(c)")
	if err != nil {
		return nil, err
	}
	return assessImpact(dropped, total, func(id string) ([]string, error) {
		return s.courseNeighbors(id, DirectionDownstream)
	})
}

// ---------- Stats ----------

// Stats returns counts of courses and both relationship tables.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	courses, err := s.count("MATCH (c:Course) RETURN count(c)")
	if err != nil {
		return nil, err
	}
	prereqs, err := s.count("MATCH ()-[r:PREREQUISITE]->() RETURN count(r)")
	if err != nil {
		return nil, err
	}
	coreqs, err := s.count("MATCH ()-[r:COREQUISITE]->() RETURN count(r)")
	if err != nil {
		return nil, err
	}
	return &GraphStats{
		CourseCount:       courses,
		PrerequisiteCount: prereqs,
		CorequisiteCount:  coreqs,
		EdgeCount:         prereqs + coreqs,
	}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// count runs a single-value count query.
func (s *KuzuStore) count(cypher string) (int, error) {
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// rowToCourse converts a courseColumns row into a CourseNode.
func rowToCourse(r []any) (*CourseNode, error) {
	node := &CourseNode{
		Code:          toString(r[0]),
		Name:          toString(r[1]),
		LocalizedName: toString(r[2]),
		Locale:        toString(r[3]),
		Credits:       toInt(r[4]),
		EnrollableIn:  course.Term(toString(r[5])),
	}
	if raw := toString(r[6]); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &node.Teachers); err != nil {
			return nil, fmt.Errorf("kuzu: decode teachers of %s: %w", node.Code, err)
		}
	}
	return node, nil
}

func rowsToCourses(rows [][]any) ([]CourseNode, error) {
	out := make([]CourseNode, 0, len(rows))
	for _, r := range rows {
		node, err := rowToCourse(r)
		if err != nil {
			return nil, err
		}
		out = append(out, *node)
	}
	return out, nil
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
