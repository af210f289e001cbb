//go:build !headless

// audio_backend_alsa.go - ALSA audio output implementation

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

/*
#cgo LDFLAGS: -lasound
#cgo CFLAGS: -Ofast -march=native -mtune=native -flto
#include <alsa/asoundlib.h>
#include <stdlib.h>

static snd_pcm_t* openPCM(const char* device, int* err) {
    snd_pcm_t* handle;
    *err = snd_pcm_open(&handle, device, SND_PCM_STREAM_PLAYBACK, 0);
    return handle;
}

static int setupPCM(snd_pcm_t* handle, unsigned int rate) {
    snd_pcm_hw_params_t* params;
    int err;

    snd_pcm_hw_params_alloca(&params);
    err = snd_pcm_hw_params_any(handle, params);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_access(handle, params, SND_PCM_ACCESS_RW_INTERLEAVED);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_format(handle, params, SND_PCM_FORMAT_FLOAT);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_channels(handle, params, 1);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_rate(handle, params, rate, 0);
    if (err < 0) return err;

    err = snd_pcm_hw_params(handle, params);
    if (err < 0) return err;

    return snd_pcm_prepare(handle);
}

static int writePCM(snd_pcm_t* handle, float* buffer, int frames) {
    return snd_pcm_writei(handle, buffer, frames);
}

static void closePCM(snd_pcm_t* handle) {
    if (handle != NULL) {
        snd_pcm_drain(handle);
        snd_pcm_close(handle);
    }
}
*/
import "C"
import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// ALSAPlayer pushes into the PCM device from its own pump goroutine; the
// blocking snd_pcm_writei paces the engine.
type ALSAPlayer struct {
	handle  *C.snd_pcm_t
	engine  *FMEngine
	started bool
	mutex   sync.Mutex
	samples []float32
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewALSAPlayer(sampleRate int, engine *FMEngine) (*ALSAPlayer, error) {
	var err C.int
	handle := C.openPCM(C.CString("default"), &err)
	if err < 0 {
		return nil, fmt.Errorf("failed to open PCM device: %s", C.GoString(C.snd_strerror(err)))
	}

	if err = C.setupPCM(handle, C.uint(sampleRate)); err < 0 {
		C.closePCM(handle)
		return nil, fmt.Errorf("failed to setup PCM: %s", C.GoString(C.snd_strerror(err)))
	}

	return &ALSAPlayer{
		handle: handle,
		engine: engine,
		// One period of 10ms keeps key-to-sound latency usable
		samples: make([]float32, sampleRate/100),
	}, nil
}

func (ap *ALSAPlayer) pump(done chan struct{}) {
	defer ap.wg.Done()
	for {
		select {
		case <-done:
			return
		default:
		}

		ap.engine.GenerateBlock(ap.samples)
		if err := ap.write(ap.samples); err != nil {
			return
		}
	}
}

func (ap *ALSAPlayer) write(samples []float32) error {
	ap.mutex.Lock()
	defer ap.mutex.Unlock()

	if ap.handle == nil {
		return errors.New("PCM device closed")
	}

	frames := C.writePCM(ap.handle, (*C.float)(unsafe.Pointer(&samples[0])), C.int(len(samples)))
	if frames < 0 {
		if frames == -C.EPIPE {
			// Underrun; recover and retry once
			C.snd_pcm_prepare(ap.handle)
			frames = C.writePCM(ap.handle, (*C.float)(unsafe.Pointer(&samples[0])), C.int(len(samples)))
		}
		if frames < 0 {
			return fmt.Errorf("write failed: %s", C.GoString(C.snd_strerror(C.int(frames))))
		}
	}
	return nil
}

func (ap *ALSAPlayer) Start() error {
	ap.mutex.Lock()
	defer ap.mutex.Unlock()

	if ap.started {
		return nil
	}
	if ap.handle == nil {
		return errors.New("PCM device closed")
	}

	ap.done = make(chan struct{})
	ap.wg.Add(1)
	go ap.pump(ap.done)
	ap.started = true
	return nil
}

func (ap *ALSAPlayer) Stop() error {
	ap.mutex.Lock()
	if !ap.started {
		ap.mutex.Unlock()
		return nil
	}
	done := ap.done
	ap.started = false
	ap.mutex.Unlock()

	close(done)
	ap.wg.Wait()
	return nil
}

func (ap *ALSAPlayer) Close() error {
	if err := ap.Stop(); err != nil {
		return err
	}

	ap.mutex.Lock()
	defer ap.mutex.Unlock()

	if ap.handle != nil {
		C.closePCM(ap.handle)
		ap.handle = nil
	}
	return nil
}

func (ap *ALSAPlayer) IsStarted() bool {
	ap.mutex.Lock()
	defer ap.mutex.Unlock()
	return ap.started
}
