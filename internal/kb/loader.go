package kb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/qlerdi098-png/chatbot-filkom/internal/logger"
	"github.com/qlerdi098-png/chatbot-filkom/internal/stringutil"
)

// Store holds the knowledge base: a persisted SQLite copy plus in-memory
// indexes used for fuzzy key lookups. All reads go through the indexes;
// SQLite is the durable copy rebuilt from the JSON seed on load.
type Store struct {
	db  *DB
	log *logger.Logger

	mu      sync.RWMutex
	loaded  bool
	metrics MetricsRecorder

	instructors          map[string]Instructor
	instructorsByCourse  map[string][]string
	courses              map[string]Course
	scheduleByCourse     map[string][]ScheduleEntry
	scheduleByDay        map[string][]ScheduleEntry
	calendar             []CalendarEntry
	thesis               []ThesisRequirement
	regulationsByProgram map[string][]SKSRegulation
	documents            []Document
}

// NewStore creates an empty knowledge base store backed by db.
func NewStore(db *DB, log *logger.Logger) *Store {
	return &Store{
		db:  db,
		log: log.WithModule("kb"),
	}
}

// IsLoaded reports whether the knowledge base has been loaded.
func (s *Store) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// LoadSeed reads the JSON seed file, persists it to SQLite, and builds
// the in-memory lookup indexes.
func (s *Store) LoadSeed(ctx context.Context, path string) error {
	start := time.Now()

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read knowledge base seed: %w", err)
	}

	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("failed to parse knowledge base seed: %w", err)
	}

	if err := s.persist(ctx, &seed); err != nil {
		return err
	}

	s.buildIndexes(&seed)

	s.log.WithFields(map[string]any{
		"instructors": len(seed.Instructors),
		"courses":     len(seed.Courses),
		"schedule":    len(seed.Schedule),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Knowledge base loaded")

	return nil
}

func (s *Store) persist(ctx context.Context, seed *Seed) error {
	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Seed load replaces the previous snapshot wholesale.
	for _, table := range []string{"instructors", "courses", "schedule", "calendar", "thesis_requirements", "sks_regulations", "documents"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}

	now := time.Now().Unix()

	if err := persistInstructors(ctx, tx, seed.Instructors, now); err != nil {
		return err
	}
	if err := persistCourses(ctx, tx, seed.Courses, now); err != nil {
		return err
	}
	if err := persistSchedule(ctx, tx, seed.Schedule, now); err != nil {
		return err
	}
	if err := persistCalendar(ctx, tx, seed.Calendar, now); err != nil {
		return err
	}
	if err := persistThesis(ctx, tx, seed.Thesis, now); err != nil {
		return err
	}
	if err := persistRegulations(ctx, tx, seed.Regulations, now); err != nil {
		return err
	}
	if err := persistDocuments(ctx, tx, seed.Documents, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit knowledge base load: %w", err)
	}
	return nil
}

func aliasJSON(a Aliases) string {
	if len(a) == 0 {
		return ""
	}
	b, err := json.Marshal(a)
	if err != nil {
		return ""
	}
	return string(b)
}

func persistInstructors(ctx context.Context, tx *sql.Tx, instructors map[string]Instructor, now int64) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO instructors (full_name, nickname, nidn, phone, course, semester, program, alias_json, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(full_name) DO UPDATE SET
			nickname = excluded.nickname,
			nidn = excluded.nidn,
			phone = excluded.phone,
			course = excluded.course,
			semester = excluded.semester,
			program = excluded.program,
			alias_json = excluded.alias_json,
			loaded_at = excluded.loaded_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare instructor insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, in := range instructors {
		if in.FullName == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, in.FullName, in.Nickname, in.NIDN, in.Phone, in.Course, in.Semester, in.Program, aliasJSON(in.Alias), now); err != nil {
			return fmt.Errorf("failed to save instructor %s: %w", in.FullName, err)
		}
	}
	return nil
}

func persistCourses(ctx context.Context, tx *sql.Tx, courses map[string]Course, now int64) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO courses (name, code, sks, semester, program, prerequisites, description, competencies, alias_json, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			code = excluded.code,
			sks = excluded.sks,
			semester = excluded.semester,
			program = excluded.program,
			prerequisites = excluded.prerequisites,
			description = excluded.description,
			competencies = excluded.competencies,
			alias_json = excluded.alias_json,
			loaded_at = excluded.loaded_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare course insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for name, c := range courses {
		if _, err := stmt.ExecContext(ctx, name, c.Code, c.SKS, c.Semester, c.Program, c.Prerequisites, c.Description, c.Competencies, aliasJSON(c.Alias), now); err != nil {
			return fmt.Errorf("failed to save course %s: %w", name, err)
		}
	}
	return nil
}

func persistSchedule(ctx context.Context, tx *sql.Tx, entries []ScheduleEntry, now int64) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO schedule (course, code, sks, day, time, start_hour, end_hour, room, class, semester, program, alias_json, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare schedule insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Course, e.Code, e.SKS, e.Day, e.Time, e.StartHour, e.EndHour, e.Room, e.Class, e.Semester, e.Program, aliasJSON(e.Alias), now); err != nil {
			return fmt.Errorf("failed to save schedule entry for %s: %w", e.Course, err)
		}
	}
	return nil
}

func persistCalendar(ctx context.Context, tx *sql.Tx, entries []CalendarEntry, now int64) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO calendar (year, semester, activity, start_date, end_date, target, notes, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare calendar insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Year, e.Semester, e.Activity, e.Start, e.End, e.Target, e.Notes, now); err != nil {
			return fmt.Errorf("failed to save calendar entry %s: %w", e.Activity, err)
		}
	}
	return nil
}

func persistThesis(ctx context.Context, tx *sql.Tx, entries []ThesisRequirement, now int64) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO thesis_requirements (program, min_sks, min_semester, min_gpa, required_courses, documents, procedure, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(program) DO UPDATE SET
			min_sks = excluded.min_sks,
			min_semester = excluded.min_semester,
			min_gpa = excluded.min_gpa,
			required_courses = excluded.required_courses,
			documents = excluded.documents,
			procedure = excluded.procedure,
			loaded_at = excluded.loaded_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare thesis insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Program, e.MinSKS, e.MinSemester, e.MinGPA, e.RequiredCourses, e.Documents, e.Procedure, now); err != nil {
			return fmt.Errorf("failed to save thesis requirement for %s: %w", e.Program, err)
		}
	}
	return nil
}

func persistRegulations(ctx context.Context, tx *sql.Tx, entries []SKSRegulation, now int64) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sks_regulations (semester, min_gpa, max_gpa, max_sks, min_sks, program, notes, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare regulation insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Semester, e.MinGPA, e.MaxGPA, e.MaxSKS, e.MinSKS, e.Program, e.Notes, now); err != nil {
			return fmt.Errorf("failed to save SKS regulation for %s: %w", e.Program, err)
		}
	}
	return nil
}

func persistDocuments(ctx context.Context, tx *sql.Tx, entries []Document, now int64) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (title, content, category, source, loaded_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare document insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, d := range entries {
		if d.Content == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, d.Title, d.Content, d.Category, d.Source, now); err != nil {
			return fmt.Errorf("failed to save document %s: %w", d.Title, err)
		}
	}
	return nil
}

// buildIndexes replaces the in-memory lookup maps from the parsed seed.
// Alias values index the same record under additional keys.
func (s *Store) buildIndexes(seed *Seed) {
	instructors := make(map[string]Instructor, len(seed.Instructors))
	instructorsByCourse := make(map[string][]string)
	for _, in := range seed.Instructors {
		if in.FullName == "" {
			s.log.WithField("record", in).Warn("Skipping instructor without full name")
			continue
		}
		mainKey := stringutil.Normalize(in.FullName)
		courseKey := stringutil.Normalize(in.Course)
		instructors[mainKey] = in
		instructorsByCourse[courseKey] = append(instructorsByCourse[courseKey], mainKey)
		for _, alias := range in.Alias["nama_lengkap"] {
			aliasKey := stringutil.Normalize(alias)
			instructors[aliasKey] = in
			instructorsByCourse[courseKey] = append(instructorsByCourse[courseKey], aliasKey)
		}
	}

	courses := make(map[string]Course, len(seed.Courses))
	for name, c := range seed.Courses {
		c.Name = name
		courses[stringutil.Normalize(name)] = c
		for _, alias := range c.Alias["mata_kuliah"] {
			courses[stringutil.Normalize(alias)] = c
		}
	}

	scheduleByCourse := make(map[string][]ScheduleEntry)
	scheduleByDay := make(map[string][]ScheduleEntry)
	for _, e := range seed.Schedule {
		courseKey := stringutil.Normalize(e.Course)
		scheduleByCourse[courseKey] = append(scheduleByCourse[courseKey], e)
		scheduleByDay[stringutil.Normalize(e.Day)] = append(scheduleByDay[stringutil.Normalize(e.Day)], e)
		for _, alias := range e.Alias["mata_kuliah"] {
			scheduleByCourse[stringutil.Normalize(alias)] = append(scheduleByCourse[stringutil.Normalize(alias)], e)
		}
	}

	regulationsByProgram := make(map[string][]SKSRegulation)
	for _, r := range seed.Regulations {
		key := stringutil.Normalize(r.Program)
		regulationsByProgram[key] = append(regulationsByProgram[key], r)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.instructors = instructors
	s.instructorsByCourse = instructorsByCourse
	s.courses = courses
	s.scheduleByCourse = scheduleByCourse
	s.scheduleByDay = scheduleByDay
	s.calendar = append([]CalendarEntry(nil), seed.Calendar...)
	s.thesis = append([]ThesisRequirement(nil), seed.Thesis...)
	s.regulationsByProgram = regulationsByProgram
	s.documents = corpusFromSeed(seed)
	s.loaded = true
}
