package shared

const (
	AdminID       = "admin_id"
	ClientIP      = "client_ip"
	SanitizedData = "sanitized_data"

	// Security event names emitted by the defense pipeline
	EventRateLimitViolation = "RATE_LIMIT_VIOLATION"
	EventBlockedIPAttempt   = "BLOCKED_IP_ATTEMPT"
	EventBotDetected        = "BOT_DETECTED"
	EventSuspiciousPayload  = "SUSPICIOUS_PAYLOAD"
	EventValidationFailed   = "VALIDATION_FAILED"
	EventRequestAllowed     = "REQUEST_ALLOWED"
	EventRequestRejected    = "REQUEST_REJECTED"
	EventUploadRejected     = "UPLOAD_REJECTED"
	EventStoreReset         = "STORE_RESET"

	// Machine-readable discriminators for gate rejections
	ErrTypeBotDetection       = "bot_detection"
	ErrTypeIPBlocked          = "ip_blocked"
	ErrTypeRateLimit          = "rate_limit"
	ErrTypeMethodNotAllowed   = "method_not_allowed"
	ErrTypeUnsupportedContent = "unsupported_content_type"
	ErrTypeRequestTooLarge    = "request_too_large"
	ErrTypeInvalidDataFormat  = "invalid_data_format"
	ErrTypeValidationError    = "validation_error"
	ErrTypeInternalError      = "internal_error"
)
