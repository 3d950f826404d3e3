package ui

// Config contains window/input/audio related settings.
type Config struct {
	Title  string // window title
	Scale  int    // integer upscaling factor
	Editor bool   // report an editor host to the guest

	// Audio buffering
	AudioBufferMs   int  // device buffer in ms
	AudioLowLatency bool // hard-cap buffering for minimal latency
	Mute            bool // open no audio sink

	FastSpeed float64 // speed factor while Tab is held
	ROMsDir   string  // directory to browse for ROMs
	Extended  bool    // request the extended device variant
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "gbbridge"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
	if c.AudioBufferMs <= 0 {
		c.AudioBufferMs = 40
	}
	if c.FastSpeed <= 0 {
		c.FastSpeed = 4
	}
	if c.ROMsDir == "" {
		c.ROMsDir = "roms"
	}
}
