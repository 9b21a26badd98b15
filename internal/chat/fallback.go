package chat

import "crypto/md5"

// fallbackResponses are rotated deterministically per message so a repeated
// question gets the same canned reply.
var fallbackResponses = [4]string{
	"Maaf, saya belum memahami pertanyaan Anda. Bisa dijelaskan lebih spesifik?",
	"Saya belum bisa menjawab pertanyaan tersebut. Coba tanyakan tentang jadwal kuliah, dosen, atau mata kuliah.",
	"Pertanyaan Anda di luar pemahaman saya saat ini. Silakan tanyakan informasi akademik FILKOM.",
	"Maaf, saya membutuhkan informasi yang lebih jelas. Coba tanyakan tentang kurikulum, jadwal, atau dosen.",
}

// FallbackResponse picks a canned reply from the MD5 digest of the message.
// The digest modulo 4 depends only on its last byte.
func FallbackResponse(message string) string {
	sum := md5.Sum([]byte(message))
	return fallbackResponses[int(sum[len(sum)-1])%len(fallbackResponses)]
}
