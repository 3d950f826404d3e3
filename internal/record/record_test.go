package record

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/sound"
)

func s16(samples ...int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}

func TestRecorder_WritesWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	r, err := Create(path, false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f := sound.Format{Rate: 44100, Channels: 2, Kind: sound.KindS16}
	if r.Intercept(s16(100, -100, 2000, -2000), f) {
		t.Fatalf("pass-through recorder claimed the buffer")
	}
	r.Intercept(s16(-32768, 32767), f)
	if r.Frames() != 3 {
		t.Fatalf("frames got %d want 3", r.Frames())
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fh, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer fh.Close()
	dec := wav.NewDecoder(fh)
	if !dec.IsValidFile() {
		t.Fatalf("not a valid wav file")
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.SampleRate != 44100 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Fatalf("header rate=%d chans=%d depth=%d", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	want := []int{100, -100, 2000, -2000, -32768, 32767}
	if len(pcm.Data) != len(want) {
		t.Fatalf("samples got %d want %d", len(pcm.Data), len(want))
	}
	for i := range want {
		if pcm.Data[i] != want[i] {
			t.Fatalf("sample %d got %d want %d", i, pcm.Data[i], want[i])
		}
	}
}

func TestRecorder_MuteAndFormatErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mute.wav")
	r, err := Create(path, true)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f := sound.Format{Rate: 22050, Channels: 1, Kind: sound.KindS16}
	if !r.Intercept(s16(1, 2), f) {
		t.Fatalf("muting recorder let the buffer through")
	}
	g := f
	g.Rate = 44100
	r.Intercept(s16(1), g)
	if r.Err() == nil {
		t.Fatalf("format change not reported")
	}
	if r.Close() == nil {
		t.Fatalf("Close should surface the recording error")
	}
}
