package processor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/yonas-y/dabstract/pkg/abstract"
)

// Info keys set by WavReader.
const (
	InfoFs       = "fs"
	InfoSamples  = "n_samples"
	InfoChannels = "channels"
)

var ErrWavFormat = errors.New("processor: unsupported wav file")

const (
	wavPCM        = 1
	wavFloat      = 3
	wavExtensible = 0xFFFE
)

// WavHeader describes the sample data of a wav file.
type WavHeader struct {
	Format     uint16
	Channels   int
	SampleRate int
	BitDepth   int
	// Samples is the number of samples per channel.
	Samples    int
	dataOffset int64
	blockAlign int
}

// ReadWavHeader parses the RIFF chunks of r up to the data chunk.
func ReadWavHeader(r io.ReadSeeker) (WavHeader, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return WavHeader{}, fmt.Errorf("%w: %w", ErrWavFormat, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return WavHeader{}, fmt.Errorf("%w: not a RIFF/WAVE file", ErrWavFormat)
	}
	var h WavHeader
	seenFmt := false
	offset := int64(12)
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return WavHeader{}, fmt.Errorf("%w: no data chunk", ErrWavFormat)
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))
		offset += 8
		switch id {
		case "fmt ":
			buf := make([]byte, size)
			if _, err := io.ReadFull(r, buf); err != nil || size < 16 {
				return WavHeader{}, fmt.Errorf("%w: short fmt chunk", ErrWavFormat)
			}
			h.Format = binary.LittleEndian.Uint16(buf[0:2])
			h.Channels = int(binary.LittleEndian.Uint16(buf[2:4]))
			h.SampleRate = int(binary.LittleEndian.Uint32(buf[4:8]))
			h.blockAlign = int(binary.LittleEndian.Uint16(buf[12:14]))
			h.BitDepth = int(binary.LittleEndian.Uint16(buf[14:16]))
			if h.Format == wavExtensible && size >= 26 {
				h.Format = binary.LittleEndian.Uint16(buf[24:26])
			}
			seenFmt = true
		case "data":
			if !seenFmt {
				return WavHeader{}, fmt.Errorf("%w: data before fmt chunk", ErrWavFormat)
			}
			if h.blockAlign == 0 || h.Channels == 0 {
				return WavHeader{}, fmt.Errorf("%w: empty frame layout", ErrWavFormat)
			}
			h.dataOffset = offset
			h.Samples = int(size) / h.blockAlign
			return h, h.validate()
		}
		if id != "fmt " {
			if _, err := r.Seek(size, io.SeekCurrent); err != nil {
				return WavHeader{}, err
			}
		}
		offset += size
		if size%2 == 1 {
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				return WavHeader{}, err
			}
			offset++
		}
	}
}

func (h WavHeader) validate() error {
	switch {
	case h.Format == wavPCM && (h.BitDepth == 16 || h.BitDepth == 32):
	case h.Format == wavFloat && (h.BitDepth == 32 || h.BitDepth == 64):
	default:
		return fmt.Errorf("%w: format %d with %d bits", ErrWavFormat, h.Format, h.BitDepth)
	}
	if h.blockAlign != h.Channels*h.BitDepth/8 {
		return fmt.Errorf("%w: block align %d", ErrWavFormat, h.blockAlign)
	}
	return nil
}

func (h WavHeader) sample(b []byte) float64 {
	switch {
	case h.Format == wavPCM && h.BitDepth == 16:
		return float64(int16(binary.LittleEndian.Uint16(b))) / 32768
	case h.Format == wavPCM:
		return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648
	case h.BitDepth == 32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// WavReader reads the wav file at a path into a []float64 of one channel,
// scaled to [-1, 1). A read range in the info limits the samples read.
type WavReader struct {
	Channel int `yaml:"channel"`
}

// Process reads the file named by value.
func (w WavReader) Process(_ context.Context, value any, info abstract.Info) (any, abstract.Info, error) {
	path, ok := value.(string)
	if !ok {
		return nil, nil, fmt.Errorf("%w: wav reader needs a path, got %T", ErrUnsupportedType, value)
	}
	var rr *abstract.Range
	if r, ok := info[abstract.InfoReadRange].(abstract.Range); ok {
		rr = &r
	}
	samples, h, err := ReadWav(path, w.Channel, rr)
	if err != nil {
		return nil, nil, err
	}
	return samples, abstract.Info{InfoFs: h.SampleRate, InfoSamples: h.Samples, InfoChannels: h.Channels}, nil
}

func (w WavReader) String() string { return fmt.Sprintf("wav_reader(%d)", w.Channel) }

// ReadWav reads channel of the file at path. With rr only the samples in
// [rr.Start, rr.End) are read.
func ReadWav(path string, channel int, rr *abstract.Range) ([]float64, WavHeader, error) {
	// #nosec G304 -- paths come from the dataset definition
	f, err := os.Open(path)
	if err != nil {
		return nil, WavHeader{}, err
	}
	defer f.Close()

	h, err := ReadWavHeader(f)
	if err != nil {
		return nil, WavHeader{}, fmt.Errorf("%s: %w", path, err)
	}
	if channel < 0 || channel >= h.Channels {
		return nil, h, fmt.Errorf("%w: channel %d of %d", ErrInvalidParams, channel, h.Channels)
	}
	start, end := 0, h.Samples
	if rr != nil {
		start = min(max(rr.Start, 0), h.Samples)
		end = min(max(rr.End, start), h.Samples)
	}
	buf := make([]byte, (end-start)*h.blockAlign)
	if _, err := f.ReadAt(buf, h.dataOffset+int64(start*h.blockAlign)); err != nil && !errors.Is(err, io.EOF) {
		return nil, h, fmt.Errorf("%s: %w", path, err)
	}
	width := h.BitDepth / 8
	out := make([]float64, end-start)
	for i := range out {
		off := i*h.blockAlign + channel*width
		out[i] = h.sample(buf[off : off+width])
	}
	return out, h, nil
}

// WriteWav writes mono 16-bit PCM samples in [-1, 1] to w.
func WriteWav(w io.Writer, samples []float64, sampleRate int) error {
	dataSize := uint32(len(samples) * 2)
	hdr := make([]byte, 44)
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 36+dataSize)
	copy(hdr[8:16], "WAVEfmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], wavPCM)
	binary.LittleEndian.PutUint16(hdr[22:24], 1)
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(hdr[32:34], 2)
	binary.LittleEndian.PutUint16(hdr[34:36], 16)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataSize)
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	body := make([]byte, dataSize)
	for i, s := range samples {
		v := int16(max(min(math.Round(s*32767), 32767), -32768))
		binary.LittleEndian.PutUint16(body[2*i:], uint16(v))
	}
	_, err := w.Write(body)
	return err
}
