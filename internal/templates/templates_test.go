package templates

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qlerdi098-png/chatbot-filkom/internal/kb"
	"github.com/qlerdi098-png/chatbot-filkom/internal/logger"
	"github.com/qlerdi098-png/chatbot-filkom/internal/search"
)

const seedJSON = `{
	"dosen": {
		"rina": {
			"nama_lengkap": "Rina Wijaya",
			"panggilan": "Bu Rina",
			"nidn": "0012345678",
			"no_hp": "0812000111",
			"matakuliah": "Machine Learning",
			"semester": 6,
			"prodi": "teknik informatika",
			"alias": {"nama_lengkap": ["bu rina"]}
		}
	},
	"mata_kuliah": {
		"Machine Learning": {
			"kode": "IF4021",
			"sks": 3,
			"semester": 6,
			"prodi": "teknik informatika",
			"prasyarat": "Algoritma dan Struktur Data",
			"deskripsi": "Pembelajaran mesin dasar",
			"alias": {"mata_kuliah": ["ML"]}
		}
	},
	"jadwal": [
		{
			"mata_kuliah": "Machine Learning",
			"kode": "IF4021",
			"sks": 3,
			"hari": "senin",
			"jam": "08.00-10.30",
			"ruang": "G2-301",
			"kelas": "A",
			"semester": 6,
			"prodi": "teknik informatika"
		}
	],
	"kalender": [
		{
			"tahun": "2025/2026",
			"semester": "ganjil",
			"kegiatan": "Pengisian KRS",
			"mulai": "2025-08-11",
			"selesai": "2025-08-22",
			"target": "mahasiswa",
			"keterangan": "teknik informatika"
		}
	],
	"skripsi": [
		{
			"prodi": "teknik informatika",
			"sks_minimum": 120,
			"semester_minimum": 7,
			"ipk_minimum": 2.75
		}
	],
	"regulasi_sks": [
		{
			"semester": "1",
			"ipk_minimum": 3.0,
			"ipk_maksimum": 4.0,
			"sks_maksimal": 24,
			"sks_minimal": 12,
			"prodi": "teknik informatika"
		}
	]
}`

const templatesJSON = `{
	"GREETING": "Halo! Ada yang bisa saya bantu?",
	"DOSEN_PENGAMPU": {"template": "Mata kuliah {MATA_KULIAH} diampu oleh {DOSEN} (prodi {PRODI})."},
	"SKS_MATKUL": "Mata kuliah {MATA_KULIAH} berbobot {SKS} SKS.",
	"BATAS_SKS": "Batas pengambilan SKS Anda adalah {SKS} SKS.",
	"KONTAK_DOSEN": "Nomor HP dosen {DOSEN}: {PHONE}.",
	"JADWAL_MATAKULIAH": "{MATA_KULIAH} diajarkan hari {HARI} pukul {WAKTU} di ruang {RUANGAN}.",
	"SYARAT_SKRIPSI": "Syarat skripsi: IPK minimal {IPK} dan lulus {TOTAL_SKS} SKS.",
	"JADWAL_PRODI": "Kegiatan {KEGIATAN} berlangsung {TANGGAL_MULAI} sampai {TANGGAL_SELESAI}.",
	"JADWAL_DOSEN": "{DOSEN} mengajar {MATA_KULIAH} hari {HARI} pukul {WAKTU} di ruang {RUANGAN}.",
	"JADWAL_KRS": "Pengisian KRS {SEMESTER} dijadwalkan {TANGGAL_MULAI} sampai {TANGGAL_SELESAI}.",
	"PANDUAN_KRS": "Silakan ikuti panduan pengisian KRS. Sumber: {SOURCE}",
	"BROKEN": 42
}`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return newTestEngineWithThreshold(t, defaultAliasThreshold)
}

func newTestEngineWithThreshold(t *testing.T, threshold int) *Engine {
	t.Helper()

	log := logger.NewWithWriter("error", io.Discard)

	db, err := kb.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dir := t.TempDir()
	seedPath := filepath.Join(dir, "kb.json")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedJSON), 0o644))

	store := kb.NewStore(db, log)
	require.NoError(t, store.LoadSeed(context.Background(), seedPath))

	tmplPath := filepath.Join(dir, "templates.json")
	require.NoError(t, os.WriteFile(tmplPath, []byte(templatesJSON), 0o644))

	repo, err := NewRepository(tmplPath, log)
	require.NoError(t, err)

	return NewEngine(repo, store, threshold, log)
}

func TestRepositoryLoad(t *testing.T) {
	e := newTestEngine(t)

	// String and object entries both load; the malformed one is skipped.
	assert.Equal(t, 11, e.repo.Count())

	tmpl, ok := e.repo.Get("DOSEN_PENGAMPU")
	require.True(t, ok)
	assert.Contains(t, tmpl, "{DOSEN}")

	_, ok = e.repo.Get("BROKEN")
	assert.False(t, ok)
}

func TestRepositoryMissingFile(t *testing.T) {
	_, err := NewRepository(filepath.Join(t.TempDir(), "nope.json"), logger.NewWithWriter("error", io.Discard))
	assert.Error(t, err)
}

func TestFillNoPlaceholders(t *testing.T) {
	e := newTestEngine(t)
	got := e.Fill("GREETING", nil, nil)
	assert.Equal(t, "Halo! Ada yang bisa saya bantu?", got)
}

func TestFillMissingTemplate(t *testing.T) {
	e := newTestEngine(t)
	got := e.Fill("NIDN_DOSEN", nil, nil)
	assert.Equal(t, "Maaf, saya belum memiliki template jawaban untuk intent ini.", got)
}

func TestFillEntityValueWins(t *testing.T) {
	e := newTestEngine(t)
	// MATA_KULIAH comes straight from the entity, SKS from the KB lookup
	// after the alias is reconciled to the catalog key.
	got := e.Fill("SKS_MATKUL", map[string]string{"MATA_KULIAH": "ML"}, nil)
	assert.Equal(t, "Mata kuliah ML berbobot 3 SKS.", got)
}

func TestFillDosenPengampu(t *testing.T) {
	e := newTestEngine(t)
	got := e.Fill("DOSEN_PENGAMPU", map[string]string{"MATA_KULIAH": "machine lerning"}, nil)
	assert.Equal(t, "Mata kuliah machine lerning diampu oleh Rina Wijaya (prodi teknik informatika).", got)
}

func TestFillDosenPengampu_RaisedThresholdSkipsAlias(t *testing.T) {
	e := newTestEngineWithThreshold(t, 100)

	// Only exact catalog keys reconcile; the typo misses the lookup.
	got := e.Fill("DOSEN_PENGAMPU", map[string]string{"MATA_KULIAH": "machine lerning"}, nil)
	assert.Equal(t, "Mata kuliah machine lerning diampu oleh - (prodi -).", got)

	got = e.Fill("DOSEN_PENGAMPU", map[string]string{"MATA_KULIAH": "machine learning"}, nil)
	assert.Equal(t, "Mata kuliah machine learning diampu oleh Rina Wijaya (prodi teknik informatika).", got)
}

func TestFillBatasSKS(t *testing.T) {
	e := newTestEngine(t)
	got := e.Fill("BATAS_SKS", map[string]string{"IPK": "3.5"}, nil)
	assert.Equal(t, "Batas pengambilan SKS Anda adalah 24 SKS.", got)

	// GPA below the regulated band resolves to "-"
	got = e.Fill("BATAS_SKS", map[string]string{"IPK": "2.0"}, nil)
	assert.Equal(t, "Batas pengambilan SKS Anda adalah - SKS.", got)
}

func TestFillKontakDosen(t *testing.T) {
	e := newTestEngine(t)
	got := e.Fill("KONTAK_DOSEN", map[string]string{"DOSEN": "Rina Wijaya"}, nil)
	assert.Equal(t, "Nomor HP dosen Rina Wijaya: 0812000111.", got)

	// Unknown instructor resolves the phone placeholder to "-"
	got = e.Fill("KONTAK_DOSEN", map[string]string{"DOSEN": "Joko"}, nil)
	assert.Equal(t, "Nomor HP dosen Joko: -.", got)
}

func TestFillSchedule(t *testing.T) {
	e := newTestEngine(t)
	got := e.Fill("JADWAL_MATAKULIAH", map[string]string{"MATA_KULIAH": "Machine Learning"}, nil)
	assert.Equal(t, "Machine Learning diajarkan hari senin pukul 08.00-10.30 di ruang G2-301.", got)
}

func TestFillJadwalDosen(t *testing.T) {
	e := newTestEngine(t)
	got := e.Fill("JADWAL_DOSEN", map[string]string{"DOSEN": "Rina Wijaya"}, nil)
	assert.Equal(t, "Rina Wijaya mengajar Machine Learning hari senin pukul 08.00-10.30 di ruang G2-301.", got)
}

func TestFillJadwalKRS(t *testing.T) {
	e := newTestEngine(t)
	got := e.Fill("JADWAL_KRS", nil, nil)
	assert.Equal(t, "Pengisian KRS ganjil 2025/2026 dijadwalkan 2025-08-11 sampai 2025-08-22.", got)
}

func TestFillSyaratSkripsi(t *testing.T) {
	e := newTestEngine(t)
	got := e.Fill("SYARAT_SKRIPSI", nil, nil)
	assert.Equal(t, "Syarat skripsi: IPK minimal 2.75 dan lulus 120 SKS.", got)
}

func TestFillJadwalProdi(t *testing.T) {
	e := newTestEngine(t)
	got := e.Fill("JADWAL_PRODI", map[string]string{"PRODI": "ti"}, nil)
	assert.Equal(t, "Kegiatan Pengisian KRS berlangsung 2025-08-11 sampai 2025-08-22.", got)
}

func TestFillSourceFromSearchResults(t *testing.T) {
	e := newTestEngine(t)

	results := []search.Result{{Metadata: map[string]string{"source": "Panduan Akademik FILKOM"}}}
	got := e.Fill("PANDUAN_KRS", nil, results)
	assert.Equal(t, "Silakan ikuti panduan pengisian KRS. Sumber: Panduan Akademik FILKOM", got)

	// Result without a source falls back to the default label
	got = e.Fill("PANDUAN_KRS", nil, []search.Result{{Metadata: map[string]string{}}})
	assert.Equal(t, "Silakan ikuti panduan pengisian KRS. Sumber: Referensi KB", got)

	// No results leaves the token untouched, as the original did
	got = e.Fill("PANDUAN_KRS", nil, nil)
	assert.Contains(t, got, "{SOURCE}")
}
