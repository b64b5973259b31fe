package middleware

// RateLimit: limits applied to inbound drawing frames
type RateLimit struct {
	MaxMessageSize int
}

func NewRateLimit(maxMessageSize int) *RateLimit {
	return &RateLimit{MaxMessageSize: maxMessageSize}
}

// ValidateMessageSize: checks if a message is within the size limit (0 = unlimited)
func (rl *RateLimit) ValidateMessageSize(msgSize int) bool {
	return rl.MaxMessageSize <= 0 || msgSize <= rl.MaxMessageSize
}
