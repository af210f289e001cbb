// fm_render.go - Offline song rendering to WAV

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
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// renderEvent is one engine action pinned to the sample clock. Offline
// rendering runs far faster than real time, so the wall-clock players are
// useless here; instead each song source exposes its schedule and the
// renderer replays it sample-accurately.
type renderEvent struct {
	atSample int64
	apply    func(e *FMEngine)
}

// RenderOptions control the offline render.
type RenderOptions struct {
	OutputPath  string
	OutputRate  int     // file sample rate; 0 means the engine rate
	BitDepth    int     // 16 or 24
	TailSeconds float64 // how long to keep rendering release tails
}

// DefaultRenderOptions returns sensible settings for a CD-style render.
func DefaultRenderOptions(path string) RenderOptions {
	return RenderOptions{
		OutputPath:  path,
		BitDepth:    16,
		TailSeconds: 4.0,
	}
}

// schedule converts the loaded SMF events to the sample clock.
func (p *MIDIPlayer) schedule(sampleRate int) []renderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	events := make([]renderEvent, 0, len(p.events))
	for _, ev := range p.events {
		ev := ev
		at := ev.atMicros * int64(sampleRate) / 1e6
		events = append(events, renderEvent{atSample: at, apply: func(e *FMEngine) {
			switch ev.kind {
			case midiEvNoteOn:
				e.NoteOn(ev.note, ev.velocity, ev.channel)
			case midiEvNoteOff:
				e.NoteOff(ev.note, ev.channel)
			case midiEvProgram:
				if name := patchForProgram(ev.program); name != "" {
					_ = e.SetPatchByName(name)
				}
			}
		}})
	}
	return events
}

// schedule converts the demo step table to the sample clock.
func (p *DemoSongPlayer) schedule(sampleRate int) []renderEvent {
	samplesPerBeat := 60.0 / demoSongBPM * float64(sampleRate)

	var events []renderEvent
	var beat float64
	for _, step := range demoSong {
		step := step
		at := int64(beat * samplesPerBeat)
		events = append(events, renderEvent{atSample: at, apply: func(e *FMEngine) {
			if step.patch != "" {
				_ = e.SetPatchByName(step.patch)
			}
			if step.algorithm > 0 {
				_ = e.SelectAlgorithm(step.algorithm, step.fadeMs)
			}
			for _, name := range step.chord {
				e.NoteOn(mustNote(name), step.velocity, 0)
			}
		}})

		offAt := int64((beat + step.hold) * samplesPerBeat)
		events = append(events, renderEvent{atSample: offAt, apply: func(e *FMEngine) {
			for _, name := range step.chord {
				e.NoteOff(mustNote(name), 0)
			}
		}})

		beat += step.hold + step.rest
	}
	return events
}

// RenderMIDIFile renders a Standard MIDI File to a WAV file offline.
func RenderMIDIFile(cfg EngineConfig, midiPath string, opts RenderOptions) error {
	cfg.Backend = AUDIO_BACKEND_NONE
	engine, err := NewFMEngine(cfg)
	if err != nil {
		return err
	}

	player := NewMIDIPlayer(engine)
	if err := player.Load(midiPath); err != nil {
		return err
	}
	return renderToFile(engine, player.schedule(engine.SampleRate()), opts)
}

// RenderDemoSong renders the built-in demo song to a WAV file offline.
func RenderDemoSong(cfg EngineConfig, opts RenderOptions) error {
	cfg.Backend = AUDIO_BACKEND_NONE
	engine, err := NewFMEngine(cfg)
	if err != nil {
		return err
	}

	player := NewDemoSongPlayer(engine)
	return renderToFile(engine, player.schedule(engine.SampleRate()), opts)
}

func renderToFile(engine *FMEngine, events []renderEvent, opts RenderOptions) error {
	if opts.OutputPath == "" {
		return errors.New("no output path")
	}
	if len(events) == 0 {
		return errors.New("nothing to render")
	}

	samples := renderSchedule(engine, events, opts.TailSeconds)

	rate := engine.SampleRate()
	if opts.OutputRate > 0 && opts.OutputRate != rate {
		ratio := float64(opts.OutputRate) / float64(rate)
		converted, err := resampleSimple(samples, ratio)
		if err != nil {
			return fmt.Errorf("resample to %d Hz: %w", opts.OutputRate, err)
		}
		samples = converted
		rate = opts.OutputRate
	}

	if err := writeWAV(opts.OutputPath, samples, rate, opts.BitDepth); err != nil {
		return err
	}

	fmt.Printf("Rendered %.2fs to %s (%d Hz, %d-bit)\n",
		float64(len(samples))/float64(rate), opts.OutputPath, rate, opts.BitDepth)
	return nil
}

// renderSchedule replays the schedule against the engine and captures the
// output. Control events land on ring-drain boundaries, so each event is
// quantized to the block grid; the error is at most 63 samples, the same
// jitter a live control write sees.
func renderSchedule(engine *FMEngine, events []renderEvent, tailSeconds float64) []float32 {
	rate := engine.SampleRate()
	block := make([]float32, CONTROL_BLOCK_SAMPLES)

	last := events[len(events)-1].atSample
	out := make([]float32, 0, last+int64(tailSeconds*float64(rate))+CONTROL_BLOCK_SAMPLES)

	clock := int64(0)
	generate := func(until int64) {
		for clock < until {
			n := until - clock
			if n > int64(len(block)) {
				n = int64(len(block))
			}
			engine.GenerateBlock(block[:n])
			out = append(out, block[:n]...)
			clock += n
		}
	}

	for _, ev := range events {
		at := (ev.atSample + CONTROL_BLOCK_SAMPLES - 1) / CONTROL_BLOCK_SAMPLES * CONTROL_BLOCK_SAMPLES
		generate(at)
		ev.apply(engine)
	}

	// Capture release tails until the engine goes quiet
	tailLimit := clock + int64(tailSeconds*float64(rate))
	for clock < tailLimit {
		generate(clock + int64(len(block)))
		if engine.Status().ActiveVoices == 0 {
			break
		}
	}
	return out
}

// writeWAV encodes mono float samples as PCM.
func writeWAV(path string, samples []float32, sampleRate, bitDepth int) error {
	if bitDepth != 16 && bitDepth != 24 {
		return fmt.Errorf("unsupported bit depth %d (16 or 24)", bitDepth)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, 1, 1)
	scale := float32(int(1)<<(bitDepth-1) - 1)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		buf.Data[i] = int(clamp32(s, -1, 1) * scale)
	}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		return fmt.Errorf("encode WAV: %w", err)
	}
	return enc.Close()
}
