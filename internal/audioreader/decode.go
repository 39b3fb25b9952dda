package audioreader

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/tphakala/flac"

	"github.com/sonicvg/svcore/internal/apperrors"
	"github.com/sonicvg/svcore/internal/serialmutex"
)

// decodeChunkFrames is how many frames each codec-specific loop below
// reads per AddSamples call, mirroring the teacher's readfile_*.go
// chunked-callback shape.
const decodeChunkFrames = 8192

// DecodeFile drives path's codec-specific decode loop, pushing
// interleaved float32 samples into r via AddSamples and calling
// FinishDecodeCache once the file is exhausted. The codec is chosen by
// extension, matching the teacher's dispatch in readfile_*.go.
func DecodeFile(r *AudioReader, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return apperrors.Wrap(err).Component("audioreader").Category(apperrors.CategoryIO).Build()
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		err = decodeWAV(r, f)
	case ".flac":
		err = decodeFLAC(r, f)
	case ".mp3":
		err = decodeMP3(r, f)
	case ".ogg":
		err = decodeOggVorbis(r, f)
	default:
		return apperrors.Newf("audioreader: unsupported file extension %q", filepath.Ext(path)).
			Component("audioreader").Category(apperrors.CategoryValidation).Build()
	}
	if err != nil {
		return err
	}
	return r.FinishDecodeCache()
}

func decodeWAV(r *AudioReader, f *os.File) error {
	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return apperrors.Newf("audioreader: invalid WAV file").
			Component("audioreader").Category(apperrors.CategoryAudio).Build()
	}

	divisor := float32(int(1) << (dec.BitDepth - 1))
	buf := &audio.IntBuffer{
		Data:   make([]int, decodeChunkFrames*int(dec.NumChans)),
		Format: &audio.Format{SampleRate: int(dec.SampleRate), NumChannels: int(dec.NumChans)},
	}
	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return apperrors.Wrap(err).Component("audioreader").Category(apperrors.CategoryAudio).Build()
		}
		if n == 0 {
			return nil
		}
		chunk := make([]float32, n)
		for i, s := range buf.Data[:n] {
			chunk[i] = float32(s) / divisor
		}
		if err := r.AddSamples(chunk); err != nil {
			return err
		}
	}
}

func decodeFLAC(r *AudioReader, f *os.File) error {
	dec, err := flac.NewDecoder(f)
	if err != nil {
		return apperrors.Wrap(err).Component("audioreader").Category(apperrors.CategoryAudio).Build()
	}

	divisor := float32(int32(1) << (dec.BitsPerSample - 1))
	bytesPerSample := dec.BitsPerSample / 8

	for {
		frame, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return apperrors.Wrap(err).Component("audioreader").Category(apperrors.CategoryAudio).Build()
		}

		chunk := make([]float32, 0, len(frame)/bytesPerSample)
		for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
			var sample int32
			switch dec.BitsPerSample {
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
			case 24:
				sample = int32(frame[i]) | int32(frame[i+1])<<8 | int32(frame[i+2])<<16
			case 32:
				sample = int32(binary.LittleEndian.Uint32(frame[i:]))
			}
			chunk = append(chunk, float32(sample)/divisor)
		}
		if err := r.AddSamples(chunk); err != nil {
			return err
		}
	}
}

// decodeMP3 serialises through the named mutex registry because
// go-mp3's decoder (like many legacy C-derived MP3 decoders) is not
// safe for concurrent Read calls across independent *Decoder values
// sharing process-wide lookup tables (spec.md §5 "legacy decoder with
// global shared resources").
func decodeMP3(r *AudioReader, f *os.File) error {
	const lockID = "decoder:mp3"
	serialmutex.StartSerialised(lockID)
	defer serialmutex.EndSerialised(lockID)

	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		return apperrors.Wrap(err).Component("audioreader").Category(apperrors.CategoryAudio).Build()
	}

	buf := make([]byte, decodeChunkFrames*2*2) // 16-bit stereo
	for {
		n, err := dec.Read(buf)
		if n == 0 {
			if err == io.EOF || err == nil {
				return nil
			}
			return apperrors.Wrap(err).Component("audioreader").Category(apperrors.CategoryAudio).Build()
		}
		samples := n / 2
		chunk := make([]float32, samples)
		for i := 0; i < samples; i++ {
			v := int16(binary.LittleEndian.Uint16(buf[2*i:]))
			chunk[i] = float32(v) / 32768.0
		}
		if addErr := r.AddSamples(chunk); addErr != nil {
			return addErr
		}
		if err == io.EOF {
			return nil
		}
	}
}

func decodeOggVorbis(r *AudioReader, f *os.File) error {
	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		return apperrors.Wrap(err).Component("audioreader").Category(apperrors.CategoryAudio).Build()
	}

	buf := make([]float32, decodeChunkFrames*dec.Channels())
	for {
		n, err := dec.Read(buf)
		if n == 0 {
			if err == io.EOF || err == nil {
				return nil
			}
			return apperrors.Wrap(err).Component("audioreader").Category(apperrors.CategoryAudio).Build()
		}
		chunk := make([]float32, n)
		copy(chunk, buf[:n])
		if addErr := r.AddSamples(chunk); addErr != nil {
			return addErr
		}
		if err == io.EOF {
			return nil
		}
	}
}
