package templates

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qlerdi098-png/chatbot-filkom/internal/fuzzy"
	"github.com/qlerdi098-png/chatbot-filkom/internal/genai"
	"github.com/qlerdi098-png/chatbot-filkom/internal/kb"
	"github.com/qlerdi098-png/chatbot-filkom/internal/logger"
	"github.com/qlerdi098-png/chatbot-filkom/internal/search"
	"github.com/qlerdi098-png/chatbot-filkom/internal/stringutil"
)

// defaultAliasThreshold is the similarity floor for reconciling entity
// values against canonical knowledge base keys when no threshold is
// configured.
const defaultAliasThreshold = 75

const (
	noTemplateMessage  = "Maaf, saya belum memiliki template jawaban untuk intent ini."
	fillFailureMessage = "Maaf, terjadi kesalahan saat memproses jawaban untuk intent '%s'."
)

// placeholders lists every token the engine resolves, with the entity
// label it reads first.
var placeholders = []string{
	"MATA_KULIAH",
	"DOSEN",
	"PRODI",
	"SEMESTER",
	"HARI",
	"WAKTU",
	"RUANGAN",
	"KELAS",
	"SKS",
	"KODE_MATAKULIAH",
	"PRASYARAT",
	"NAMA_LENGKAP",
	"NAMA_PANGGILAN",
	"NIDN",
	"PHONE",
	"IPK",
	"TOTAL_SKS",
	"KEGIATAN",
	"TANGGAL_MULAI",
	"TANGGAL_SELESAI",
	"DOKUMEN",
	"PROSEDUR",
}

// sourceIntents get their {SOURCE} token filled from the top search result.
var sourceIntents = map[string]bool{
	genai.IntentOutOfScope:   true,
	genai.IntentPanduanKRS:   true,
	genai.IntentProsedurCuti: true,
}

// entityMap reads normalized entity values.
type entityMap map[string]string

func (e entityMap) value(key string) string {
	return strings.TrimSpace(e[key])
}

func (e entityMap) valueOr(key, fallback string) string {
	if v := e.value(key); v != "" {
		return v
	}
	return fallback
}

// resolver fills one placeholder from the knowledge base for a given intent.
type resolver func(e *Engine, placeholder string, ent entityMap) string

// resolvers dispatches intents to their knowledge base lookup strategy.
// Intents without an entry resolve every placeholder to "-".
var resolvers = map[string]resolver{
	genai.IntentBatasSKS:         resolveBatasSKS,
	genai.IntentDosenPengampu:    resolveDosenPengampu,
	genai.IntentInfoDosenUmum:    resolveInfoDosen,
	genai.IntentInfoMatakuliah:   resolveCourseDetail,
	genai.IntentSKSMatkul:        resolveCourseDetail,
	genai.IntentPrasyaratMatkul:  resolveCourseDetail,
	genai.IntentJadwalSemester:   resolveJadwalSemester,
	genai.IntentJadwalMatakuliah: resolveSchedule,
	genai.IntentJadwalHari:       resolveSchedule,
	genai.IntentJadwalRuangan:    resolveSchedule,
	genai.IntentJadwalDosen:      resolveJadwalDosen,
	genai.IntentJadwalKRS:        resolveJadwalKRS,
	genai.IntentJadwalProdi:      resolveJadwalProdi,
	genai.IntentKontakDosen:      resolveContact,
	genai.IntentNIDNDosen:        resolveContact,
	genai.IntentSyaratSkripsi:    resolveSyaratSkripsi,
}

// Engine fills templates. It never returns an error; failures degrade to
// apology messages or "-" placeholders.
type Engine struct {
	repo      *Repository
	kb        *kb.Store
	threshold int
	log       *logger.Logger
}

// NewEngine creates a template engine over the repository and knowledge base.
// threshold is the minimum fuzzy match score (0-100) for alias lookups;
// non-positive values fall back to the default.
func NewEngine(repo *Repository, store *kb.Store, threshold int, log *logger.Logger) *Engine {
	if threshold <= 0 {
		threshold = defaultAliasThreshold
	}
	return &Engine{
		repo:      repo,
		kb:        store,
		threshold: threshold,
		log:       log.WithModule("templates"),
	}
}

// Has reports whether a template exists for the intent.
func (e *Engine) Has(intent string) bool {
	_, ok := e.repo.Get(intent)
	return ok
}

// Fill renders the reply for an intent. Placeholder resolution order:
// extracted entity value, then intent-specific knowledge base lookup,
// then "-".
func (e *Engine) Fill(intent string, entities map[string]string, searchResults []search.Result) (out string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("intent", intent).Errorf("template fill panicked: %v", r)
			out = fmt.Sprintf(fillFailureMessage, intent)
		}
	}()

	tmpl, ok := e.repo.Get(intent)
	if !ok {
		return noTemplateMessage
	}

	ent := entityMap(entities)
	for _, p := range placeholders {
		token := "{" + p + "}"
		if !strings.Contains(tmpl, token) {
			continue
		}
		value := ent.value(p)
		if value == "" {
			value = e.lookup(intent, p, ent)
		}
		if value == "" {
			value = "-"
		}
		tmpl = strings.ReplaceAll(tmpl, token, value)
	}

	if sourceIntents[intent] && len(searchResults) > 0 {
		source := searchResults[0].Metadata["source"]
		if source == "" {
			source = kb.DefaultSource
		}
		tmpl = strings.ReplaceAll(tmpl, "{SOURCE}", source)
	}

	return tmpl
}

func (e *Engine) lookup(intent, placeholder string, ent entityMap) string {
	r, ok := resolvers[intent]
	if !ok {
		return "-"
	}
	if v := r(e, placeholder, ent); v != "" {
		return v
	}
	return "-"
}

// courseAlias reconciles a course entity value against catalog keys.
func (e *Engine) courseAlias(value string) string {
	if value == "" {
		return value
	}
	if m, ok := fuzzy.ExtractOneAbove(stringutil.Normalize(value), e.kb.CourseKeys(), e.threshold); ok {
		return m.Value
	}
	return value
}

// instructorAlias strips honorifics and reconciles against instructor keys.
func (e *Engine) instructorAlias(value string) string {
	value = kb.StripHonorifics(value)
	if value == "" {
		return value
	}
	if m, ok := fuzzy.ExtractOneAbove(value, e.kb.InstructorKeys(), e.threshold); ok {
		return m.Value
	}
	return value
}

func resolveBatasSKS(e *Engine, placeholder string, ent entityMap) string {
	if placeholder != "SKS" {
		return "-"
	}
	program := ent.valueOr("PRODI", "Teknik Informatika")
	semester := ent.valueOr("SEMESTER", "1")
	gpa, _ := strconv.ParseFloat(ent.value("IPK"), 64)

	reg, ok := e.kb.GetSKSRegulation(semester, gpa, program)
	if !ok {
		return "-"
	}
	return strconv.Itoa(reg.MaxSKS)
}

func resolveDosenPengampu(e *Engine, placeholder string, ent entityMap) string {
	course := e.courseAlias(ent.value("MATA_KULIAH"))
	instructors := e.kb.FindInstructorsByCourse(course)
	if len(instructors) == 0 {
		return "-"
	}
	in := instructors[0]
	switch placeholder {
	case "DOSEN":
		return in.FullName
	case "SEMESTER":
		return strconv.Itoa(in.Semester)
	case "PRODI":
		return in.Program
	}
	return "-"
}

func resolveInfoDosen(e *Engine, placeholder string, ent entityMap) string {
	in, ok := e.kb.GetInstructorInfo(e.instructorAlias(ent.value("DOSEN")))
	if !ok {
		return "-"
	}
	switch placeholder {
	case "NAMA_LENGKAP":
		return in.FullName
	case "NAMA_PANGGILAN":
		return in.Nickname
	case "PRODI":
		return in.Program
	case "MATA_KULIAH":
		return in.Course
	case "SEMESTER":
		return strconv.Itoa(in.Semester)
	}
	return "-"
}

func resolveCourseDetail(e *Engine, placeholder string, ent entityMap) string {
	c, ok := e.kb.GetCourseDetail(e.courseAlias(ent.value("MATA_KULIAH")))
	if !ok {
		return "-"
	}
	switch placeholder {
	case "MATA_KULIAH":
		return c.Name
	case "KODE_MATAKULIAH":
		return c.Code
	case "PRODI":
		return c.Program
	case "SEMESTER":
		return strconv.Itoa(c.Semester)
	case "SKS":
		return strconv.Itoa(c.SKS)
	case "PRASYARAT":
		return c.Prerequisites
	}
	return "-"
}

func resolveJadwalSemester(e *Engine, placeholder string, ent entityMap) string {
	semester := ent.valueOr("SEMESTER", "semester 1")
	cal, ok := e.kb.GetSemesterCalendar(semester)
	if !ok {
		return "-"
	}
	switch placeholder {
	case "TANGGAL_MULAI":
		return cal.Start
	case "TANGGAL_SELESAI":
		return cal.End
	}
	return "-"
}

func resolveSchedule(e *Engine, placeholder string, ent entityMap) string {
	entries := e.kb.FindScheduleByCourse(e.courseAlias(ent.value("MATA_KULIAH")))
	if len(entries) == 0 {
		return "-"
	}
	first := entries[0]
	switch placeholder {
	case "HARI":
		return first.Day
	case "WAKTU":
		return first.Time
	case "RUANGAN":
		return first.Room
	}
	return "-"
}

func resolveJadwalDosen(e *Engine, placeholder string, ent entityMap) string {
	in, ok := e.kb.GetInstructorInfo(e.instructorAlias(ent.value("DOSEN")))
	if !ok {
		return "-"
	}
	switch placeholder {
	case "DOSEN":
		return in.FullName
	case "MATA_KULIAH":
		return in.Course
	}

	entries := e.kb.FindScheduleByCourse(e.courseAlias(in.Course))
	if len(entries) == 0 {
		return "-"
	}
	first := entries[0]
	switch placeholder {
	case "HARI":
		return first.Day
	case "WAKTU":
		return first.Time
	case "RUANGAN":
		return first.Room
	}
	return "-"
}

func resolveJadwalKRS(e *Engine, placeholder string, ent entityMap) string {
	cal, ok := e.kb.FindCalendarByActivity("krs")
	if !ok {
		return "-"
	}
	switch placeholder {
	case "SEMESTER":
		return cal.Semester + " " + cal.Year
	case "TANGGAL_MULAI":
		return cal.Start
	case "TANGGAL_SELESAI":
		return cal.End
	}
	return "-"
}

func resolveJadwalProdi(e *Engine, placeholder string, ent entityMap) string {
	program := ent.valueOr("PRODI", "Teknik Informatika")
	cal, ok := e.kb.GetCalendarEntry(program, ent.value("SEMESTER"))
	if !ok {
		return "-"
	}
	switch placeholder {
	case "TANGGAL_MULAI":
		return cal.Start
	case "TANGGAL_SELESAI":
		return cal.End
	case "KEGIATAN":
		return cal.Activity
	}
	return "-"
}

func resolveContact(e *Engine, placeholder string, ent entityMap) string {
	in, ok := e.kb.GetInstructorInfo(e.instructorAlias(ent.value("DOSEN")))
	if !ok {
		return "-"
	}
	if placeholder == "NIDN" {
		return in.NIDN
	}
	return in.Phone
}

func resolveSyaratSkripsi(e *Engine, placeholder string, ent entityMap) string {
	program := ent.valueOr("PRODI", "Teknik Informatika")
	reqs := e.kb.GetThesisRequirements(program, -1)
	if len(reqs) == 0 {
		return "-"
	}
	r := reqs[0]
	switch placeholder {
	case "IPK":
		return strconv.FormatFloat(r.MinGPA, 'g', -1, 64)
	case "DOKUMEN":
		return r.Documents
	case "PROSEDUR":
		return r.Procedure
	}
	return strconv.Itoa(r.MinSKS)
}
