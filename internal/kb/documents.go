package kb

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultSource is the source label used when a document does not carry one.
const DefaultSource = "Referensi KB"

// Documents returns the retrieval corpus: seeded free-text documents plus
// entries flattened from the structured records. The slice is a copy.
func (s *Store) Documents() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Document(nil), s.documents...)
}

// corpusFromSeed flattens the seed into retrieval documents. Structured
// records are rendered as Indonesian sentences so lexical and semantic
// search both have something to match against.
func corpusFromSeed(seed *Seed) []Document {
	docs := make([]Document, 0, len(seed.Documents)+len(seed.Courses)+len(seed.Calendar)+len(seed.Thesis)+len(seed.Regulations))

	for _, d := range seed.Documents {
		if strings.TrimSpace(d.Content) == "" {
			continue
		}
		if d.Source == "" {
			d.Source = DefaultSource
		}
		docs = append(docs, d)
	}

	// Iterate course names in stable order so document IDs are reproducible.
	courseNames := make([]string, 0, len(seed.Courses))
	for name := range seed.Courses {
		courseNames = append(courseNames, name)
	}
	sort.Strings(courseNames)

	for _, name := range courseNames {
		c := seed.Courses[name]
		var b strings.Builder
		fmt.Fprintf(&b, "Mata kuliah %s (%s) berbobot %d SKS pada semester %d prodi %s.", name, c.Code, c.SKS, c.Semester, c.Program)
		if c.Prerequisites != "" {
			fmt.Fprintf(&b, " Prasyarat: %s.", c.Prerequisites)
		}
		if c.Description != "" {
			b.WriteString(" " + c.Description)
		}
		if c.Competencies != "" {
			fmt.Fprintf(&b, " Kompetensi: %s.", c.Competencies)
		}
		docs = append(docs, Document{
			Title:    name,
			Content:  b.String(),
			Category: "MATA_KULIAH",
			Source:   "Katalog Mata Kuliah",
		})
	}

	for _, e := range seed.Calendar {
		content := fmt.Sprintf("Kegiatan %s semester %s tahun %s berlangsung %s sampai %s.", e.Activity, e.Semester, e.Year, e.Start, e.End)
		if e.Notes != "" {
			content += " " + e.Notes
		}
		docs = append(docs, Document{
			Title:    e.Activity,
			Content:  content,
			Category: "KALENDER",
			Source:   "Kalender Akademik",
		})
	}

	for _, t := range seed.Thesis {
		content := fmt.Sprintf("Syarat skripsi prodi %s: minimal %d SKS, semester %d, IPK %.2f.", t.Program, t.MinSKS, t.MinSemester, t.MinGPA)
		if t.Documents != "" {
			content += fmt.Sprintf(" Dokumen: %s.", t.Documents)
		}
		if t.Procedure != "" {
			content += fmt.Sprintf(" Prosedur: %s", t.Procedure)
		}
		docs = append(docs, Document{
			Title:    "Syarat Skripsi " + t.Program,
			Content:  content,
			Category: "SKRIPSI",
			Source:   "Panduan Skripsi",
		})
	}

	for _, r := range seed.Regulations {
		content := fmt.Sprintf("Regulasi SKS semester %s prodi %s: IPK %.2f sampai %.2f boleh mengambil %d hingga %d SKS.", r.Semester, r.Program, r.MinGPA, r.MaxGPA, r.MinSKS, r.MaxSKS)
		if r.Notes != "" {
			content += " " + r.Notes
		}
		docs = append(docs, Document{
			Title:    "Regulasi SKS " + r.Semester,
			Content:  content,
			Category: "REGULASI_SKS",
			Source:   "Peraturan Akademik",
		})
	}

	return docs
}
