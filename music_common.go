// music_common.go - Shared utilities for song players

package main

import (
	"fmt"
	"strconv"
	"strings"
)

// SongMetadata contains common metadata fields across all song sources
type SongMetadata struct {
	Title    string
	Author   string
	Duration float64
}

var noteOffsets = map[string]int{
	"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11,
}

var sharpNames = [12]string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
}

// parseNoteName converts scientific pitch notation to a MIDI note number.
// Accepts sharps and flats ("C4", "F#3", "Bb2"); middle C ("C4") is 60.
func parseNoteName(name string) (int, error) {
	s := strings.TrimSpace(name)
	if len(s) < 2 {
		return 0, fmt.Errorf("bad note name %q", name)
	}

	letter := strings.ToUpper(s[:1])
	offset, ok := noteOffsets[letter]
	if !ok {
		return 0, fmt.Errorf("bad note name %q", name)
	}
	rest := s[1:]

	switch {
	case strings.HasPrefix(rest, "#"):
		offset++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		offset--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("bad note name %q", name)
	}

	note := (octave+1)*12 + offset
	if note < 0 || note > 127 {
		return 0, fmt.Errorf("note %q out of MIDI range", name)
	}
	return note, nil
}

// noteName converts a MIDI note number to sharp-spelled pitch notation.
func noteName(note int) string {
	if note < 0 || note > 127 {
		return "?"
	}
	return fmt.Sprintf("%s%d", sharpNames[note%12], note/12-1)
}

// mustNote is parseNoteName for compiled-in song tables; bad names panic at init.
func mustNote(name string) int {
	n, err := parseNoteName(name)
	if err != nil {
		panic(err)
	}
	return n
}
