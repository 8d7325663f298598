// Command spectrogram renders PNG spectrograms for WAV files, useful for
// eyeballing the frequency content that the fingerprint windows over.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/eligwz/spectrogram"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind/audio"
)

func main() {
	inputDir := flag.String("in", "testdata", "Directory containing WAV files to render")
	outputDir := flag.String("out", "spectrograms", "Directory to write PNG files into")
	width := flag.Int("width", 2048, "Spectrogram image width in pixels")
	height := flag.Int("height", 512, "Spectrogram image height in pixels (frequency bins)")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatal(err)
	}

	err := filepath.WalkDir(*inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".wav" {
			return nil
		}

		fmt.Printf("Processing %s...\n", path)

		sample, err := audio.ReadWAVFile(path)
		if err != nil {
			log.Printf("Error reading %s: %v", path, err)
			return nil
		}

		fmt.Printf("Read %d samples at %d Hz\n", len(sample.Samples), sample.SampleRate)

		img := spectrogram.NewImage128(image.Rect(0, 0, *width, *height))

		black := spectrogram.ParseColor("000000")
		draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

		// Hamming window, FFT, magnitude, linear scale. LOG10 blows out the
		// low end on quiet recordings so it stays off.
		spectrogram.Drawfft(
			img,
			sample.Samples,
			uint32(sample.SampleRate),
			uint32(*height),
			false, // RECTANGLE
			false, // DFT
			true,  // MAG
			false, // LOG10
		)

		outputPath := filepath.Join(*outputDir, filepath.Base(path)+".png")
		if err := spectrogram.SavePng(img, outputPath); err != nil {
			log.Printf("Error saving PNG for %s: %v", outputPath, err)
			return nil
		}

		fmt.Printf("Saved spectrogram to %s\n", outputPath)
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Done!")
}
