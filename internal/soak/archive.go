package soak

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// compressedSuffix marks report files stored zstd-compressed
const compressedSuffix = ".zst"

// WriteReport stores rep as JSON at path, zstd-compressed when path ends
// in ".zst"
func WriteReport(path string, rep *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("soak: create report: %w", err)
	}
	defer func() { _ = f.Close() }()

	var w io.Writer = f
	var encoder *zstd.Encoder
	if strings.HasSuffix(path, compressedSuffix) {
		encoder, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("soak: create report encoder: %w", err)
		}
		w = encoder
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		if encoder != nil {
			_ = encoder.Close()
		}
		return fmt.Errorf("soak: encode report: %w", err)
	}
	if encoder != nil {
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("soak: compress report: %w", err)
		}
	}
	return f.Close()
}

// ReadReport loads a report written by WriteReport
func ReadReport(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("soak: open report: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, compressedSuffix) {
		decoder, err := zstd.NewReader(f, zstd.WithDecoderMaxMemory(64*1024*1024))
		if err != nil {
			return nil, fmt.Errorf("soak: create report decoder: %w", err)
		}
		defer decoder.Close()
		r = decoder
	}

	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, fmt.Errorf("soak: decode report: %w", err)
	}
	return &rep, nil
}
