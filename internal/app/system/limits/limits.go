package limits

// Request body size limits. These help prevent memory exhaustion from
// oversized requests.
const (
	// MaxJSONBodySize bounds ordinary JSON API request bodies.
	MaxJSONBodySize = 64 << 10 // 64 KB

	// MaxChatMessageLen bounds a single chat message body (runes are
	// not counted; this is a byte bound applied after sanitization).
	MaxChatMessageLen = 2000

	// MaxJoinMessageLen bounds the free-text message on a join request.
	MaxJoinMessageLen = 500

	// MaxCatalogueBodySize bounds the catalogue load payload, which
	// carries the full module and major listings in one request.
	MaxCatalogueBodySize = 8 << 20 // 8 MB
)
