// Package genai provides integration with Google's Generative AI APIs:
// intent classification and entity extraction via Gemini function calling,
// and embedding generation for semantic search.
package genai

// Intent labels recognized by the classifier.
const (
	IntentBatasSKS         = "BATAS_SKS"
	IntentClarification    = "CLARIFICATION"
	IntentDosenPengampu    = "DOSEN_PENGAMPU"
	IntentGoodbye          = "GOODBYE"
	IntentGreeting         = "GREETING"
	IntentHelp             = "HELP"
	IntentInfoDosenUmum    = "INFO_DOSEN_UMUM"
	IntentInfoMatakuliah   = "INFO_MATAKULIAH"
	IntentJadwalDosen      = "JADWAL_DOSEN"
	IntentJadwalHari       = "JADWAL_HARI"
	IntentJadwalKRS        = "JADWAL_KRS"
	IntentJadwalMatakuliah = "JADWAL_MATAKULIAH"
	IntentJadwalProdi      = "JADWAL_PRODI"
	IntentJadwalRuangan    = "JADWAL_RUANGAN"
	IntentJadwalSemester   = "JADWAL_SEMESTER"
	IntentKontakDosen      = "KONTAK_DOSEN"
	IntentNIDNDosen        = "NIDN_DOSEN"
	IntentOutOfScope       = "OUT_OF_SCOPE"
	IntentPanduanKRS       = "PANDUAN_KRS"
	IntentPrasyaratMatkul  = "PRASYARAT_MATKUL"
	IntentProsedurCuti     = "PROSEDUR_CUTI"
	IntentSKSMatkul        = "SKS_MATKUL"
	IntentSyaratSkripsi    = "SYARAT_SKRIPSI"

	// IntentError marks an internal pipeline failure; never produced by the model.
	IntentError = "ERROR"
)

// IntentLabels enumerates every label the classifier may return.
var IntentLabels = []string{
	IntentBatasSKS,
	IntentClarification,
	IntentDosenPengampu,
	IntentGoodbye,
	IntentGreeting,
	IntentHelp,
	IntentInfoDosenUmum,
	IntentInfoMatakuliah,
	IntentJadwalDosen,
	IntentJadwalHari,
	IntentJadwalKRS,
	IntentJadwalMatakuliah,
	IntentJadwalProdi,
	IntentJadwalRuangan,
	IntentJadwalSemester,
	IntentKontakDosen,
	IntentNIDNDosen,
	IntentOutOfScope,
	IntentPanduanKRS,
	IntentPrasyaratMatkul,
	IntentProsedurCuti,
	IntentSKSMatkul,
	IntentSyaratSkripsi,
}

// IntentResult is the classifier output.
type IntentResult struct {
	Intent     string
	Confidence float64
}

// EntityLabels enumerates the named-entity types the extractor reports.
var EntityLabels = []string{
	"MATA_KULIAH",
	"DOSEN",
	"PRODI",
	"SEMESTER",
	"HARI",
	"WAKTU",
	"RUANGAN",
	"KELAS",
	"IPK",
	"SKS",
}

// Entities maps an entity label to the raw extracted strings.
// Values may be noisy; the chat pipeline normalizes them against the
// knowledge base before use.
type Entities map[string][]string
