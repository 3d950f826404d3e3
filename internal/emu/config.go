package emu

// Config contains settings that affect emulation behavior.
type Config struct {
	FrameTicks  int   // core ticks per video frame
	AudioFrames int   // stereo frames per audio buffer before EventAudioFull
	Guest       Guest // optional guest program driven once per frame
}

// Defaults fills missing fields with DMG values.
func (c *Config) Defaults() {
	if c.FrameTicks <= 0 {
		c.FrameTicks = 70224
	}
	if c.AudioFrames <= 0 {
		c.AudioFrames = 1024
	}
}
