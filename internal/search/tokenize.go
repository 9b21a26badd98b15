package search

import (
	"github.com/qlerdi098-png/chatbot-filkom/internal/stringutil"
)

// Indonesian stopwords dropped before indexing and querying. Subset of the
// NLTK Indonesian list covering the function words that dominate FAQ queries.
var stopwords = map[string]struct{}{
	"ada": {}, "adalah": {}, "agar": {}, "akan": {}, "antara": {},
	"apa": {}, "apakah": {}, "atau": {}, "bagaimana": {}, "bagi": {},
	"bahwa": {}, "banyak": {}, "belum": {}, "berapa": {}, "bisa": {},
	"boleh": {}, "dalam": {}, "dan": {}, "dapat": {}, "dari": {},
	"dengan": {}, "di": {}, "dia": {}, "harus": {}, "hanya": {},
	"ini": {}, "itu": {}, "jika": {}, "juga": {}, "kalau": {},
	"kami": {}, "kapan": {}, "karena": {}, "ke": {}, "kepada": {},
	"kita": {}, "lagi": {}, "lain": {}, "lebih": {}, "mana": {},
	"masih": {}, "mereka": {}, "mohon": {}, "oleh": {}, "pada": {},
	"para": {}, "per": {}, "saat": {}, "saja": {}, "sama": {},
	"sampai": {}, "sangat": {}, "saya": {}, "sebagai": {}, "sedang": {},
	"semua": {}, "seperti": {}, "serta": {}, "siapa": {}, "sudah": {},
	"supaya": {}, "telah": {}, "tentang": {}, "tersebut": {}, "tidak": {},
	"untuk": {}, "yaitu": {}, "yang": {},
}

// tokenize lowercases, strips punctuation, and drops Indonesian stopwords.
// Used for both the indexed corpus and incoming queries so scores stay
// comparable.
func tokenize(text string) []string {
	raw := stringutil.Tokenize(text)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if _, skip := stopwords[t]; skip {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}
