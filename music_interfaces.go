// music_interfaces.go - Common interfaces for song players

package main

// SongPlayer is implemented by all song players (SMF, Lua script, demo tune)
// Provides a common interface for playback control
type SongPlayer interface {
	// Load loads a song from the given path
	Load(path string) error
	// LoadData loads song data from a byte slice
	LoadData(data []byte) error
	// Play starts playback
	Play() error
	// Stop stops playback
	Stop()
	// IsPlaying returns true if currently playing
	IsPlaying() bool
	// DurationSeconds returns the duration in seconds (0 if looping/unknown)
	DurationSeconds() float64
	// DurationText returns a formatted duration string (e.g., "3:45")
	DurationText() string
}
