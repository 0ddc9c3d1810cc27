package logger

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so logs from the API
// server and the derivation workers can be aggregated and queried together.
const (
	// Request scope
	KeyRequestID = "request_id" // HTTP request id (chi middleware)
	KeyClientIP  = "client_ip"  // Client IP address
	KeyUserID    = "user_id"    // Owner of the resource being touched
	KeyUsername  = "username"   // Human-readable username

	// Media pipeline
	KeyMediaID   = "media_id"   // Media row id / object key of the original
	KeyPreviewID = "preview_id" // Object key of the derived preview
	KeyHash      = "hash"       // Client-supplied content digest (base64 sha-1)
	KeySubject   = "subject"    // Message bus subject
	KeyConsumer  = "consumer"   // Durable consumer name
	KeyBucket    = "bucket"     // Object store bucket
	KeyKey       = "key"        // Object store key

	// Outcomes
	KeyStatus     = "status"      // HTTP status or worker disposition
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeySize       = "size"        // Payload size in bytes
)
