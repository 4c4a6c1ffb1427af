package voice

// Error definitions.
var (
	ErrBridgeExists      = NewVoiceError("a bridge is already running in this guild")
	ErrBridgeNotFound    = NewVoiceError("no bridge is running in this guild")
	ErrMaxBridgesReached = NewVoiceError("maximum concurrent bridges reached")
)

// VoiceError represents errors specific to voice operations. Its message is
// safe to show to users.
type VoiceError struct {
	message string
}

func NewVoiceError(message string) *VoiceError {
	return &VoiceError{message: message}
}

func (e *VoiceError) Error() string {
	return e.message
}
