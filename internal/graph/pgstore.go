package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dusk-indust/studyguide/internal/course"
)

// Compile-time check that PgStore satisfies Store.
var _ Store = (*PgStore)(nil)

// PgStore implements Store on PostgreSQL tables.
type PgStore struct {
	Pool *pgxpool.Pool
}

// NewPgStore connects to the database at connString.
func NewPgStore(ctx context.Context, connString string) (*PgStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	return NewPgStoreWithConfig(ctx, cfg)
}

// NewPgStoreWithConfig connects with a prepared pool configuration.
func NewPgStoreWithConfig(ctx context.Context, cfg *pgxpool.Config) (*PgStore, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &PgStore{Pool: pool}, nil
}

// Close releases the pool.
func (s *PgStore) Close() error {
	s.Pool.Close()
	return nil
}

const createCourses = `CREATE TABLE IF NOT EXISTS courses (
	code text PRIMARY KEY,
	name text NOT NULL,
	localized_name text NOT NULL DEFAULT '',
	locale text NOT NULL DEFAULT '',
	credits integer NOT NULL,
	enrollable_in text NOT NULL,
	teachers text[] NOT NULL DEFAULT '{}'
)`

const createRelations = `CREATE TABLE IF NOT EXISTS course_relations (
	source_code text NOT NULL REFERENCES courses (code) ON DELETE CASCADE,
	target_code text NOT NULL REFERENCES courses (code) ON DELETE CASCADE,
	kind text NOT NULL,
	position integer NOT NULL,
	PRIMARY KEY (source_code, target_code, kind)
)`

const upsertCourse = `INSERT INTO courses (code, name, localized_name, locale, credits, enrollable_in, teachers)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (code) DO UPDATE SET name=EXCLUDED.name, localized_name=EXCLUDED.localized_name, locale=EXCLUDED.locale, credits=EXCLUDED.credits, enrollable_in=EXCLUDED.enrollable_in, teachers=EXCLUDED.teachers`

const upsertRelation = `INSERT INTO course_relations (source_code, target_code, kind, position) VALUES ($1, $2, $3, $4)
ON CONFLICT (source_code, target_code, kind) DO UPDATE SET position=EXCLUDED.position`

const selectCourses = `SELECT code, name, localized_name, locale, credits, enrollable_in, teachers FROM courses`

const selectRelations = `SELECT source_code, target_code, kind, position FROM course_relations ORDER BY source_code, kind, position`

const selectUpstream = `SELECT DISTINCT target_code FROM course_relations WHERE source_code = $1 ORDER BY target_code`
const selectDownstream = `SELECT DISTINCT source_code FROM course_relations WHERE target_code = $1 ORDER BY source_code`

// foreignKeyViolation is the SQLSTATE of a missing referenced row.
const foreignKeyViolation = "23503"

// InitSchema creates the course and relation tables if they do not exist.
func (s *PgStore) InitSchema(ctx context.Context) error {
	for _, stmt := range []string{createCourses, createRelations} {
		if _, err := s.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init schema: %w", err)
		}
	}
	return nil
}

// AddCourse upserts a course row.
func (s *PgStore) AddCourse(ctx context.Context, node CourseNode) error {
	if _, err := s.Pool.Exec(ctx, upsertCourse, courseArgs(node)...); err != nil {
		return fmt.Errorf("postgres: add course %s: %w", node.Code, err)
	}
	return nil
}

// AddEdge upserts a relation row. Missing endpoints surface as ErrNodeNotFound.
func (s *PgStore) AddEdge(ctx context.Context, edge Edge) error {
	if !edge.Kind.valid() {
		return fmt.Errorf("postgres: unsupported edge kind: %s", edge.Kind)
	}
	_, err := s.Pool.Exec(ctx, upsertRelation, edge.SourceID, edge.TargetID, string(edge.Kind), edge.Position)
	return relationError(edge, err)
}

// SaveCourses writes nodes and then edges in one transaction, as a single
// batch round trip.
func (s *PgStore) SaveCourses(ctx context.Context, nodes []CourseNode, edges []Edge) error {
	for _, e := range edges {
		if !e.Kind.valid() {
			return fmt.Errorf("postgres: unsupported edge kind: %s", e.Kind)
		}
	}
	return pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, n := range nodes {
			batch.Queue(upsertCourse, courseArgs(n)...)
		}
		for _, e := range edges {
			batch.Queue(upsertRelation, e.SourceID, e.TargetID, string(e.Kind), e.Position)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
				return fmt.Errorf("%w: %s", ErrNodeNotFound, pgErr.Detail)
			}
			return fmt.Errorf("postgres: save courses: %w", err)
		}
		return nil
	})
}

func courseArgs(n CourseNode) []any {
	teachers := n.Teachers
	if teachers == nil {
		teachers = []string{}
	}
	return []any{n.Code, n.Name, n.LocalizedName, n.Locale, n.Credits, string(n.EnrollableIn), teachers}
}

func relationError(edge Edge, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("%w: %s -> %s", ErrNodeNotFound, edge.SourceID, edge.TargetID)
	}
	return fmt.Errorf("postgres: add edge %s -> %s: %w", edge.SourceID, edge.TargetID, err)
}

// GetCourse returns the course with the given code, or nil if not found.
func (s *PgStore) GetCourse(ctx context.Context, code string) (*CourseNode, error) {
	courses, err := s.queryCourses(ctx, selectCourses+` WHERE code = $1`, code)
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, nil
	}
	return &courses[0], nil
}

// QueryCourses returns courses whose code or names contain query, ignoring
// case, ordered by code.
func (s *PgStore) QueryCourses(ctx context.Context, query string, limit int) ([]CourseNode, error) {
	sql := selectCourses + ` WHERE strpos(lower(code), $1) > 0 OR strpos(lower(name), $1) > 0 OR strpos(lower(localized_name), $1) > 0 ORDER BY code`
	args := []any{strings.ToLower(query)}
	if limit > 0 {
		sql += ` LIMIT $2`
		args = append(args, limit)
	}
	return s.queryCourses(ctx, sql, args...)
}

// GetAllCourses returns every course ordered by code.
func (s *PgStore) GetAllCourses(ctx context.Context) ([]CourseNode, error) {
	return s.queryCourses(ctx, selectCourses+` ORDER BY code`)
}

func (s *PgStore) queryCourses(ctx context.Context, sql string, args ...any) ([]CourseNode, error) {
	rows, err := s.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query courses: %w", err)
	}
	defer rows.Close()

	var out []CourseNode
	for rows.Next() {
		var (
			n    CourseNode
			term string
		)
		if err := rows.Scan(&n.Code, &n.Name, &n.LocalizedName, &n.Locale, &n.Credits, &term, &n.Teachers); err != nil {
			return nil, fmt.Errorf("postgres: scan course: %w", err)
		}
		n.EnrollableIn = course.Term(term)
		if len(n.Teachers) == 0 {
			n.Teachers = nil
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: query courses: %w", err)
	}
	return out, nil
}

// GetAllEdges returns every relation ordered by source, kind and position.
func (s *PgStore) GetAllEdges(ctx context.Context) ([]Edge, error) {
	rows, err := s.Pool.Query(ctx, selectRelations)
	if err != nil {
		return nil, fmt.Errorf("postgres: query relations: %w", err)
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var (
			e    Edge
			kind string
		)
		if err := rows.Scan(&e.SourceID, &e.TargetID, &kind, &e.Position); err != nil {
			return nil, fmt.Errorf("postgres: scan relation: %w", err)
		}
		e.Kind = EdgeKind(kind)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: query relations: %w", err)
	}
	return out, nil
}

// GetDependencies walks the relation table from code in the given direction.
func (s *PgStore) GetDependencies(ctx context.Context, code string, direction Direction, maxDepth int) ([]DependencyChain, error) {
	if err := checkDirection(direction); err != nil {
		return nil, err
	}
	return walk(code, maxDepth, func(id string) ([]string, error) {
		return s.neighbors(ctx, id, direction)
	})
}

func (s *PgStore) neighbors(ctx context.Context, code string, direction Direction) ([]string, error) {
	sql := selectUpstream
	if direction == DirectionDownstream {
		sql = selectDownstream
	}
	rows, err := s.Pool.Query(ctx, sql, code)
	if err != nil {
		return nil, fmt.Errorf("postgres: neighbors of %s: %w", code, err)
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: neighbors of %s: %w", code, err)
	}
	return codes, nil
}

// AssessImpact reports the courses that can no longer be taken once the
// dropped courses are gone.
func (s *PgStore) AssessImpact(ctx context.Context, dropped []string) (*ImpactResult, error) {
	var total int
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM courses`).Scan(&total); err != nil {
		return nil, fmt.Errorf("postgres: count courses: %w", err)
	}
	return assessImpact(dropped, total, func(id string) ([]string, error) {
		return s.neighbors(ctx, id, DirectionDownstream)
	})
}

// Stats returns counts of courses and relations.
func (s *PgStore) Stats(ctx context.Context) (*GraphStats, error) {
	stats := &GraphStats{}
	err := s.Pool.QueryRow(ctx, `SELECT
		(SELECT count(*) FROM courses),
		(SELECT count(*) FROM course_relations WHERE kind = $1),
		(SELECT count(*) FROM course_relations WHERE kind = $2)`,
		string(EdgeKindPrerequisite), string(EdgeKindCorequisite),
	).Scan(&stats.CourseCount, &stats.PrerequisiteCount, &stats.CorequisiteCount)
	if err != nil {
		return nil, fmt.Errorf("postgres: stats: %w", err)
	}
	stats.EdgeCount = stats.PrerequisiteCount + stats.CorequisiteCount
	return stats, nil
}
