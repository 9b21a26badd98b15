package kb

import (
	"strings"

	"github.com/qlerdi098-png/chatbot-filkom/internal/fuzzy"
	"github.com/qlerdi098-png/chatbot-filkom/internal/stringutil"
)

// Fuzzy thresholds for key reconciliation. Day names are short and
// tolerate more distance than course or instructor names.
const (
	lookupThreshold = 80
	dayThreshold    = 75
)

// MetricsRecorder records lookup outcomes. Satisfied by *metrics.Metrics.
type MetricsRecorder interface {
	RecordKBLookup(entityType, status string)
}

// SetMetrics attaches an optional lookup metrics recorder.
func (s *Store) SetMetrics(m MetricsRecorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

func (s *Store) recordLookup(entityType string, hit bool) {
	if s.metrics == nil {
		return
	}
	status := "miss"
	if hit {
		status = "hit"
	}
	s.metrics.RecordKBLookup(entityType, status)
}

// NormalizeProgram canonicalizes study program names. Unknown and empty
// values default to "teknik informatika".
func NormalizeProgram(program string) string {
	program = stringutil.Normalize(program)
	switch program {
	case "", "ti", "it", "teknik informatika":
		return "teknik informatika"
	case "si", "sistem informasi":
		return "sistem informasi"
	}
	return program
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// resolveKey fuzzy-matches query against the map keys; falls back to the
// normalized query itself when nothing clears the threshold.
func resolveKey(query string, keys []string, threshold int) string {
	normalized := stringutil.Normalize(query)
	if match, ok := fuzzy.ExtractOneAbove(normalized, keys, threshold); ok {
		return match.Value
	}
	return normalized
}

// FindInstructorsByCourse returns the instructors teaching a course,
// reconciling the course name by fuzzy match.
func (s *Store) FindInstructorsByCourse(course string) []Instructor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := resolveKey(course, mapKeys(s.instructorsByCourse), lookupThreshold)
	names := s.instructorsByCourse[key]

	seen := make(map[string]struct{}, len(names))
	var result []Instructor
	for _, name := range names {
		in, ok := s.instructors[name]
		if !ok {
			continue
		}
		if _, dup := seen[in.FullName]; dup {
			continue
		}
		seen[in.FullName] = struct{}{}
		result = append(result, in)
	}
	s.recordLookup("dosen_by_matkul", len(result) > 0)
	return result
}

// FindScheduleByCourse returns schedule entries for a fuzzy-matched course name.
func (s *Store) FindScheduleByCourse(course string) []ScheduleEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := resolveKey(course, mapKeys(s.scheduleByCourse), lookupThreshold)
	entries := s.scheduleByCourse[key]
	s.recordLookup("jadwal_by_matkul", len(entries) > 0)
	return entries
}

// FindScheduleByDay returns schedule entries for a fuzzy-matched day name.
func (s *Store) FindScheduleByDay(day string) []ScheduleEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := resolveKey(day, mapKeys(s.scheduleByDay), dayThreshold)
	entries := s.scheduleByDay[key]
	s.recordLookup("jadwal_by_hari", len(entries) > 0)
	return entries
}

// GetCourseDetail returns the catalog record for a fuzzy-matched course name.
func (s *Store) GetCourseDetail(course string) (Course, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := resolveKey(course, mapKeys(s.courses), lookupThreshold)
	c, ok := s.courses[key]
	s.recordLookup("matakuliah", ok)
	return c, ok
}

// StripHonorifics drops the address words "dosen", "pak", and "bu" from an
// instructor name and normalizes the rest.
func StripHonorifics(name string) string {
	words := strings.Fields(stringutil.Normalize(name))
	kept := words[:0]
	for _, w := range words {
		if w == "dosen" || w == "pak" || w == "bu" {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// GetInstructorInfo returns the record for a fuzzy-matched instructor name.
// Honorifics are stripped before matching.
func (s *Store) GetInstructorInfo(name string) (Instructor, bool) {
	normalized := StripHonorifics(name)

	s.mu.RLock()
	defer s.mu.RUnlock()

	key := resolveKey(normalized, mapKeys(s.instructors), lookupThreshold)
	in, ok := s.instructors[key]
	s.recordLookup("dosen", ok)
	return in, ok
}

// GetCalendarEntry returns the first calendar entry whose notes mention the
// program and, when given, whose semester matches.
func (s *Store) GetCalendarEntry(program, semester string) (CalendarEntry, bool) {
	program = NormalizeProgram(program)
	semester = stringutil.Normalize(semester)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.calendar {
		if !strings.Contains(stringutil.Normalize(e.Notes), program) {
			continue
		}
		if semester != "" && !strings.Contains(stringutil.Normalize(e.Semester), semester) {
			continue
		}
		s.recordLookup("kalender", true)
		return e, true
	}
	s.recordLookup("kalender", false)
	return CalendarEntry{}, false
}

// FindCalendarByActivity returns the first calendar entry whose activity
// name contains the given text.
func (s *Store) FindCalendarByActivity(activity string) (CalendarEntry, bool) {
	activity = stringutil.Normalize(activity)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.calendar {
		if strings.Contains(stringutil.Normalize(e.Activity), activity) {
			s.recordLookup("kalender", true)
			return e, true
		}
	}
	s.recordLookup("kalender", false)
	return CalendarEntry{}, false
}

// GetSemesterCalendar returns the first calendar entry matching the semester name.
func (s *Store) GetSemesterCalendar(semester string) (CalendarEntry, bool) {
	semester = stringutil.Normalize(semester)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.calendar {
		if strings.Contains(stringutil.Normalize(e.Semester), semester) {
			s.recordLookup("jadwal_semester", true)
			return e, true
		}
	}
	s.recordLookup("jadwal_semester", false)
	return CalendarEntry{}, false
}

// GetSKSRegulation returns the credit-limit regulation applicable to the
// given semester and GPA within a program.
func (s *Store) GetSKSRegulation(semester string, gpa float64, program string) (SKSRegulation, bool) {
	program = NormalizeProgram(program)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.regulationsByProgram[program] {
		if r.Semester == semester && r.MinGPA <= gpa && gpa <= r.MaxGPA {
			s.recordLookup("batas_sks", true)
			return r, true
		}
	}
	s.recordLookup("batas_sks", false)
	return SKSRegulation{}, false
}

// GetThesisRequirements returns thesis requirements for a program. A
// negative gpa skips the GPA filter.
func (s *Store) GetThesisRequirements(program string, gpa float64) []ThesisRequirement {
	program = NormalizeProgram(program)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ThesisRequirement
	for _, t := range s.thesis {
		if stringutil.Normalize(t.Program) != program {
			continue
		}
		if gpa >= 0 && gpa < t.MinGPA {
			continue
		}
		result = append(result, t)
	}
	s.recordLookup("syarat_skripsi", len(result) > 0)
	return result
}

// CourseKeys returns the canonical course keys, used by the entity normalizer.
func (s *Store) CourseKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mapKeys(s.courses)
}

// InstructorKeys returns the canonical instructor keys, used by the entity normalizer.
func (s *Store) InstructorKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mapKeys(s.instructors)
}

// DayKeys returns the known schedule day keys, used by the entity normalizer.
func (s *Store) DayKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mapKeys(s.scheduleByDay)
}
