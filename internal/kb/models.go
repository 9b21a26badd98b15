// Package kb implements the structured knowledge base: instructors, courses,
// schedules, academic calendar, thesis requirements, and SKS regulations.
// Records are seeded from a JSON file, persisted in SQLite, and queried
// through fuzzy-matched key lookups.
package kb

// Aliases maps a field name to alternative spellings of its value,
// e.g. {"nama_lengkap": ["bu rina", "rina s."]}.
type Aliases map[string][]string

// Instructor is a teaching staff record.
type Instructor struct {
	FullName string  `json:"nama_lengkap"`
	Nickname string  `json:"panggilan"`
	NIDN     string  `json:"nidn"`
	Phone    string  `json:"no_hp"`
	Course   string  `json:"matakuliah"`
	Semester int     `json:"semester"`
	Program  string  `json:"prodi"`
	Alias    Aliases `json:"alias,omitempty"`
}

// Course is a course catalog record. Name is the catalog map key,
// filled in during load.
type Course struct {
	Name          string  `json:"-"`
	Code          string  `json:"kode"`
	SKS           int     `json:"sks"`
	Semester      int     `json:"semester"`
	Program       string  `json:"prodi"`
	Prerequisites string  `json:"prasyarat"`
	Description   string  `json:"deskripsi"`
	Competencies  string  `json:"kompetensi"`
	Alias         Aliases `json:"alias,omitempty"`
}

// ScheduleEntry is one class meeting in the weekly schedule.
type ScheduleEntry struct {
	Course    string  `json:"mata_kuliah"`
	Code      string  `json:"kode"`
	SKS       int     `json:"sks"`
	Day       string  `json:"hari"`
	Time      string  `json:"jam"`
	StartHour float64 `json:"jam_mulai"`
	EndHour   float64 `json:"jam_selesai"`
	Room      string  `json:"ruang"`
	Class     string  `json:"kelas"`
	Semester  int     `json:"semester"`
	Program   string  `json:"prodi"`
	Alias     Aliases `json:"alias,omitempty"`
}

// CalendarEntry is an academic-calendar activity.
type CalendarEntry struct {
	Year     string `json:"tahun"`
	Semester string `json:"semester"`
	Activity string `json:"kegiatan"`
	Start    string `json:"mulai"`
	End      string `json:"selesai"`
	Target   string `json:"target"`
	Notes    string `json:"keterangan"`
}

// ThesisRequirement lists the prerequisites for starting a thesis.
type ThesisRequirement struct {
	Program         string  `json:"prodi"`
	MinSKS          int     `json:"sks_minimum"`
	MinSemester     int     `json:"semester_minimum"`
	MinGPA          float64 `json:"ipk_minimum"`
	RequiredCourses string  `json:"matkul_wajib"`
	Documents       string  `json:"dokumen"`
	Procedure       string  `json:"prosedur"`
}

// SKSRegulation bounds the credit load for a GPA range in a semester.
type SKSRegulation struct {
	Semester string  `json:"semester"`
	MinGPA   float64 `json:"ipk_minimum"`
	MaxGPA   float64 `json:"ipk_maksimum"`
	MaxSKS   int     `json:"sks_maksimal"`
	MinSKS   int     `json:"sks_minimal"`
	Program  string  `json:"prodi"`
	Notes    string  `json:"keterangan"`
}

// Document is a free-text knowledge base entry (guides, procedures,
// announcements) used as the retrieval corpus.
type Document struct {
	Title    string `json:"judul"`
	Content  string `json:"konten"`
	Category string `json:"kategori"`
	Source   string `json:"source"`
}

// Seed is the top-level shape of the knowledge base JSON file.
type Seed struct {
	Instructors map[string]Instructor `json:"dosen"`
	Courses     map[string]Course     `json:"mata_kuliah"`
	Schedule    []ScheduleEntry       `json:"jadwal"`
	Calendar    []CalendarEntry       `json:"kalender"`
	Thesis      []ThesisRequirement   `json:"skripsi"`
	Regulations []SKSRegulation       `json:"regulasi_sks"`
	Documents   []Document            `json:"dokumen"`
}
