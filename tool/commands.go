package tool

import (
	"fmt"

	"github.com/google/shlex"
)

// ExtractArgs builds the ffmpeg argument list that converts any supported
// input into the canonical waveform the separation model expects:
// 16-bit PCM, 44.1 kHz, stereo.
func ExtractArgs(extra []string, videoPath, audioPath string) []string {
	args := append([]string{}, extra...)
	args = append(args,
		"-i", videoPath,
		"-vn", "-acodec", "pcm_s16le",
		"-ar", "44100", "-ac", "2",
		"-y", audioPath,
	)
	return args
}

// SeparateArgs builds the demucs argument list for a two-stem
// vocals/accompaniment split. Demucs writes its stems under
// <outputDir>/<model>/<input stem>/.
func SeparateArgs(extra []string, outputDir, audioPath string) []string {
	args := []string{"--two-stems", "vocals", "-o", outputDir}
	args = append(args, extra...)
	args = append(args, audioPath)
	return args
}

// RemuxArgs builds the ffmpeg argument list that replaces the video's audio
// with the separated track. The video stream is copied, only audio is
// re-encoded, and -shortest bounds the output by the shorter input.
func RemuxArgs(extra []string, videoPath, audioPath, outputPath string) []string {
	args := append([]string{}, extra...)
	args = append(args,
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy", "-c:a", "aac",
		"-map", "0:v:0", "-map", "1:a:0",
		"-shortest",
		"-y", outputPath,
	)
	return args
}

// SplitExtraArgs splits a configured flag string into arguments without
// involving a shell, so the string can never inject further commands.
func SplitExtraArgs(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	args, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("invalid argument syntax: %w", err)
	}
	return args, nil
}
