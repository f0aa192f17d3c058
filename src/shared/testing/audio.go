package testing

import (
	"math"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	. "github.com/onsi/gomega"
)

// WAVFormat is what a test needs to know about a WAV on disk.
type WAVFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Frames     int
}

// WriteToneWAV writes a 16-bit PCM sine tone. Each channel gets a slightly
// different frequency so channel mixups are visible.
func WriteToneWAV(path string, sampleRate int, channels int, frames int) {
	ExpectWithOffset(1, os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())

	file := ExpectSuccess(os.Create(path))
	defer file.Close()

	encoder := wav.NewEncoder(file, sampleRate, 16, channels, 1)
	buffer := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, frames*channels),
		SourceBitDepth: 16,
	}

	for frame := 0; frame < frames; frame++ {
		for channel := 0; channel < channels; channel++ {
			freq := 220.0 * float64(channel+1)
			sample := 0.5 * math.Sin(2*math.Pi*freq*float64(frame)/float64(sampleRate))
			buffer.Data[frame*channels+channel] = int(sample * 32767)
		}
	}

	ExpectWithOffset(1, encoder.Write(buffer)).To(Succeed())
	ExpectWithOffset(1, encoder.Close()).To(Succeed())
}

func ReadWAVFormat(path string) WAVFormat {
	file := ExpectSuccess(os.Open(path))
	defer file.Close()

	decoder := wav.NewDecoder(file)
	ExpectWithOffset(1, decoder.IsValidFile()).To(BeTrue())

	buffer := ExpectSuccess(decoder.FullPCMBuffer())

	return WAVFormat{
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		BitDepth:   int(decoder.BitDepth),
		Frames:     buffer.NumFrames(),
	}
}

// WriteFile creates a file with arbitrary contents, making parent directories.
func WriteFile(path string, contents string) {
	ExpectWithOffset(1, os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
	ExpectWithOffset(1, os.WriteFile(path, []byte(contents), 0o644)).To(Succeed())
}

// ListFiles returns every regular file under dir, relative to it.
func ListFiles(dir string) []string {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		files = append(files, ExpectSuccess(filepath.Rel(dir, path)))
		return nil
	})
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	return files
}
