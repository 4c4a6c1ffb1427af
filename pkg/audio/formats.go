package audio

// Format constants shared by the Discord and USRP sides of the bridge.
const (
	// Discord voice.
	DiscordSampleRate = 48_000 // Hz
	DiscordChannels   = 2      // interleaved stereo
	DiscordFrameSize  = 960    // samples per channel (20 ms)
	DiscordFrameBytes = DiscordFrameSize * DiscordChannels * 2

	// USRP voice.
	USRPSampleRate = 8_000 // Hz
	USRPChannels   = 1
	USRPFrameSize  = 160 // samples (20 ms)
)
