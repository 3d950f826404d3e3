// Package record captures delivered audio to a WAV file. A Recorder is a
// sound.Override: it sees every assembled buffer before the host sink.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/sound"
)

const wavPCM = 1

// Recorder writes S16 buffers to a WAV stream. The encoder is created on
// the first buffer so the header matches the pipeline's format.
type Recorder struct {
	w      io.WriteSeeker
	closer io.Closer
	mute   bool

	enc    *wav.Encoder
	format sound.Format
	buf    audio.IntBuffer
	frames int
	err    error
}

// New records to w. With mute set the recorder reports every buffer as
// handled, so nothing reaches the host sink.
func New(w io.WriteSeeker, mute bool) *Recorder {
	return &Recorder{w: w, mute: mute}
}

// Create records to a new file at path.
func Create(path string, mute bool) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	r := New(f, mute)
	r.closer = f
	return r, nil
}

// Intercept implements sound.Override.
func (r *Recorder) Intercept(buf []byte, f sound.Format) bool {
	if r.err != nil {
		return r.mute
	}
	if f.Kind != sound.KindS16 {
		r.err = fmt.Errorf("record: unsupported sample kind %s", f.Kind)
		return r.mute
	}
	if r.enc == nil {
		r.format = f
		r.enc = wav.NewEncoder(r.w, f.Rate, 16, f.Channels, wavPCM)
		r.buf.Format = &audio.Format{NumChannels: f.Channels, SampleRate: f.Rate}
		r.buf.SourceBitDepth = 16
	} else if f != r.format {
		r.err = fmt.Errorf("record: format changed from %s to %s", r.format, f)
		return r.mute
	}

	n := len(buf) / 2
	if cap(r.buf.Data) < n {
		r.buf.Data = make([]int, n)
	}
	r.buf.Data = r.buf.Data[:n]
	for i := range r.buf.Data {
		r.buf.Data[i] = int(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}
	if err := r.enc.Write(&r.buf); err != nil {
		r.err = fmt.Errorf("record: %w", err)
		return r.mute
	}
	r.frames += n / f.Channels
	return r.mute
}

// Frames returns the number of frames written so far.
func (r *Recorder) Frames() int { return r.frames }

// Err returns the first error met while recording.
func (r *Recorder) Err() error { return r.err }

// Close finalises the WAV header and closes the file opened by Create.
func (r *Recorder) Close() error {
	var errs []error
	if r.err != nil {
		errs = append(errs, r.err)
	}
	if r.enc != nil {
		if err := r.enc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("record: %w", err))
		}
	}
	if r.closer != nil {
		if err := r.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("record: %w", err))
		}
	}
	return errors.Join(errs...)
}
