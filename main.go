// main.go - Command line entry point for the padtrack FM engine

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

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;0;190;190m██████╗  █████╗ ██████╗ ████████╗██████╗  █████╗  ██████╗██╗  ██╗\033[0m\n\033[38;2;40;200;200m██╔══██╗██╔══██╗██╔══██╗╚══██╔══╝██╔══██╗██╔══██╗██╔════╝██║ ██╔╝\033[0m\n\033[38;2;80;210;210m██████╔╝███████║██║  ██║   ██║   ██████╔╝███████║██║     █████╔╝\033[0m\n\033[38;2;120;220;220m██╔═══╝ ██╔══██║██║  ██║   ██║   ██╔══██╗██╔══██║██║     ██╔═██╗\033[0m\n\033[38;2;160;230;230m██║     ██║  ██║██████╔╝   ██║   ██║  ██║██║  ██║╚██████╗██║  ██╗\033[0m\n\033[38;2;200;240;240m╚═╝     ╚═╝  ╚═╝╚═════╝    ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝\033[0m")
	fmt.Println("\nA polyphonic 4-operator FM synthesis engine with live algorithm crossfading.")
	fmt.Println("(c) 2024 - 2026 Daniel Tibaquira")
	fmt.Println("https://github.com/danieltibaquira/padtrack-sub000")
	fmt.Println("License: GPLv3 or later")
}

func main() {
	boilerPlate()

	var (
		modeDemo   bool
		modeMIDI   bool
		modeScript bool
		modeRender bool
		modeServe  bool
		modeJam    bool

		backendName string
		sampleRate  int
		polyphony   int
		patchName   string
		algorithm   int
		stealName   string

		outputPath string
		renderRate int
		bitDepth   int
		tailSecs   float64
		port       int
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVar(&modeDemo, "demo", false, "Play the built-in demo song")
	flagSet.BoolVar(&modeMIDI, "midi", false, "Play a standard MIDI file")
	flagSet.BoolVar(&modeScript, "script", false, "Run a Lua performance script")
	flagSet.BoolVar(&modeRender, "render", false, "Render to WAV instead of playing (demo song, or a MIDI file argument)")
	flagSet.BoolVar(&modeServe, "serve", false, "Run the HTTP control/diagnostics server")
	flagSet.BoolVar(&modeJam, "jam", false, "Play live from the computer keyboard")
	flagSet.StringVar(&backendName, "backend", "oto", "Audio backend: oto, portaudio, alsa, headless, none")
	flagSet.IntVar(&sampleRate, "rate", SAMPLE_RATE, "Engine sample rate in Hz")
	flagSet.IntVar(&polyphony, "poly", DEFAULT_POLYPHONY, "Maximum simultaneous voices")
	flagSet.StringVar(&patchName, "patch", "init", "Starting patch name")
	flagSet.IntVar(&algorithm, "algorithm", 0, "Starting algorithm 1-8 (0 = the patch's own)")
	flagSet.StringVar(&stealName, "steal", "oldest", "Voice steal policy: oldest, quietest, newest, none")
	flagSet.StringVar(&outputPath, "o", "padtrack.wav", "Render output path")
	flagSet.IntVar(&renderRate, "render-rate", 0, "Render output sample rate (0 = engine rate)")
	flagSet.IntVar(&bitDepth, "bits", 16, "Render bit depth: 16 or 24")
	flagSet.Float64Var(&tailSecs, "tail", 4.0, "Seconds of release tail to render after the last note")
	flagSet.IntVar(&port, "port", 8080, "HTTP server port")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./padtrack -demo|-midi|-script|-render|-serve|-jam [options] [filename]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	filename := flagSet.Arg(0)

	modeCount := 0
	for _, m := range []bool{modeDemo, modeMIDI, modeScript, modeRender, modeServe, modeJam} {
		if m {
			modeCount++
		}
	}
	if modeCount == 0 {
		// Bare "./padtrack song.mid" plays the file; no arguments plays the demo.
		modeMIDI, modeScript = inferModeFromFilename(filename)
		if !modeMIDI && !modeScript {
			modeDemo = true
		}
		modeCount = 1
	}
	if modeCount != 1 {
		fmt.Println("Error: select exactly one mode flag: -demo, -midi, -script, -render, -serve, or -jam")
		os.Exit(1)
	}
	if modeMIDI && filename == "" {
		fmt.Println("Error: MIDI mode requires a filename")
		os.Exit(1)
	}
	if modeScript && filename == "" {
		fmt.Println("Error: script mode requires a filename")
		os.Exit(1)
	}

	backend, err := parseBackend(backendName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	steal, err := parseStealPolicy(stealName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	cfg := DefaultEngineConfig()
	cfg.SampleRate = sampleRate
	cfg.Polyphony = polyphony
	cfg.Backend = backend
	cfg.Algorithm = algorithm
	cfg.PatchName = patchName
	cfg.StealPolicy = steal

	if modeRender {
		opts := RenderOptions{
			OutputPath:  outputPath,
			OutputRate:  renderRate,
			BitDepth:    bitDepth,
			TailSeconds: tailSecs,
		}
		if filename != "" {
			err = RenderMIDIFile(cfg, filename, opts)
		} else {
			err = RenderDemoSong(cfg, opts)
		}
		if err != nil {
			fmt.Printf("Render failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	engine, err := NewFMEngine(cfg)
	if err != nil {
		fmt.Printf("Failed to initialize engine: %v\n", err)
		os.Exit(1)
	}
	if err := engine.Start(); err != nil {
		fmt.Printf("Failed to start audio: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	switch {
	case modeServe:
		fmt.Printf("padtrack engine on :%d (backend %s, %d voices)\n", port, backendName, polyphony)
		if err := NewFMServer(engine, port).Run(); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}

	case modeJam:
		if err := NewTerminalJam(engine).Run(); err != nil {
			fmt.Printf("Jam mode error: %v\n", err)
			os.Exit(1)
		}

	case modeMIDI:
		player := NewMIDIPlayer(engine)
		if err := player.Load(filename); err != nil {
			fmt.Printf("Error loading MIDI file: %v\n", err)
			os.Exit(1)
		}
		name := player.SongName()
		if name == "" {
			name = filename
		}
		fmt.Printf("Playing MIDI: %s (%s)\n", name, player.DurationText())
		if err := player.Play(); err != nil {
			fmt.Printf("Error playing MIDI file: %v\n", err)
			os.Exit(1)
		}
		waitForPlayer(player)

	case modeScript:
		player := NewScriptPlayer(engine)
		if err := player.Load(filename); err != nil {
			fmt.Printf("Error loading script: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Running script: %s\n", filename)
		if err := player.Play(); err != nil {
			fmt.Printf("Error running script: %v\n", err)
			os.Exit(1)
		}
		waitForPlayer(player)

	default:
		player := NewDemoSongPlayer(engine)
		meta := player.Metadata()
		fmt.Printf("Playing: %s - %s (%s)\n", meta.Title, meta.Author, player.DurationText())
		if err := player.Play(); err != nil {
			fmt.Printf("Error playing demo song: %v\n", err)
			os.Exit(1)
		}
		waitForPlayer(player)
	}
}

// inferModeFromFilename picks the playback mode for a bare filename
// argument: ".mid" plays as MIDI, ".lua" runs as a script, anything else
// falls through to the demo song.
func inferModeFromFilename(filename string) (midi, script bool) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".mid"):
		return true, false
	case strings.HasSuffix(lower, ".lua"):
		return false, true
	}
	return false, false
}

// waitForPlayer blocks until the player finishes or the process is
// interrupted, then releases anything still sounding.
func waitForPlayer(player SongPlayer) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			player.Stop()
			return
		case <-ticker.C:
			if !player.IsPlaying() {
				// Let release tails ring out before the backend closes.
				time.Sleep(500 * time.Millisecond)
				return
			}
		}
	}
}
