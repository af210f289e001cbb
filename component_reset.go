// component_reset.go - Reset() methods for song players (hard reset support)

/*
██████╗  █████╗ ██████╗ ████████╗██████╗  █████╗  ██████╗██╗  ██╗
██╔══██╗██╔══██╗██╔══██╗╚══██╔══╝██╔══██╗██╔══██╗██╔════╝██║ ██╔╝
██████╔╝███████║██║  ██║   ██║   ██████╔╝███████║██║     █████╔╝
██╔═══╝ ██╔══██║██║  ██║   ██║   ██╔══██╗██╔══██║██║     ██╔═██╗
██║     ██║  ██║██████╔╝   ██║   ██║  ██║██║  ██║╚██████╗██║  ██╗
╚═╝     ╚═╝  ╚═╝╚═════╝    ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝

(c) 2024 - 2026 Daniel Tibaquira
https://github.com/danieltibaquira/padtrack-sub000
License: GPLv3 or later
*/

package main

// MIDIPlayer.Reset stops playback and drops the loaded song.
func (p *MIDIPlayer) Reset() {
	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
	p.name = ""
	p.endTime = 0
}

// ScriptPlayer.Reset stops the script and drops the loaded source.
func (p *ScriptPlayer) Reset() {
	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = nil
	p.bpm = 120
}

// DemoSongPlayer.Reset stops playback; the song itself is compiled in.
func (p *DemoSongPlayer) Reset() {
	p.Stop()
}
