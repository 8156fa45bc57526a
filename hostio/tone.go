//go:build !headless

// tone.go - square-wave beep for host-I/O op 0x30 TONE (SPEC_FULL.md §5).
// Grounded on the teacher's audio_backend_oto.go oto.Context/Player
// wiring, reduced from a continuous multi-channel mixer to a single
// transient tone generator.

package hostio

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/ebitengine/oto/v3"
)

const toneSampleRate = 44100

// toneDevice is the small capability the GUI backend needs to play a
// beep. Neither implementation's Close releases anything: the oto
// context stays open once created.
type toneDevice interface {
	Play(freqHz, durationMs int)
	Close() error
}

type otoTone struct {
	ctx *oto.Context
}

func newOtoTone() toneDevice {
	op := &oto.NewContextOptions{
		SampleRate:   toneSampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return noopTone{}
	}
	<-ready
	return &otoTone{ctx: ctx}
}

// Play synthesizes a square wave at freqHz for durationMs and plays it
// once, fire-and-forget.
func (t *otoTone) Play(freqHz, durationMs int) {
	if freqHz <= 0 || durationMs <= 0 {
		return
	}
	n := toneSampleRate * durationMs / 1000
	samples := make([]float32, n)
	period := float64(toneSampleRate) / float64(freqHz)
	for i := range samples {
		phase := math.Mod(float64(i), period) / period
		if phase < 0.5 {
			samples[i] = 0.2
		} else {
			samples[i] = -0.2
		}
	}

	buf := new(bytes.Buffer)
	for _, s := range samples {
		_ = binary.Write(buf, binary.LittleEndian, s)
	}

	player := t.ctx.NewPlayer(bytes.NewReader(buf.Bytes()))
	player.Play()
}

func (t *otoTone) Close() error {
	return nil
}

// noopTone is used if the audio device fails to open (e.g. no sound
// hardware in a CI sandbox); TONE becomes a silent no-op rather than a
// fatal error.
type noopTone struct{}

func (noopTone) Play(freqHz, durationMs int) {}
func (noopTone) Close() error                { return nil }
