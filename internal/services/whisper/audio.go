package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// AudioInfo summarizes the probed properties of an audio file.
type AudioInfo struct {
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration_seconds"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	BitRate    int     `json:"bit_rate,omitempty"`
}

// ProbeAudio inspects an audio file with ffprobe.
func ProbeAudio(ctx context.Context, ffprobeBinary, source string) (AudioInfo, error) {
	var info AudioInfo
	if ffprobeBinary == "" {
		ffprobeBinary = FFprobeBinary
	}
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name,sample_rate,channels,bit_rate:format=duration",
		"-of", "json",
		source,
	}
	cmd := exec.CommandContext(ctx, ffprobeBinary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return info, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var payload struct {
		Streams []struct {
			CodecName  string `json:"codec_name"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
			BitRate    string `json:"bit_rate"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		return info, fmt.Errorf("parse ffprobe json: %w", err)
	}
	if len(payload.Streams) == 0 {
		return info, fmt.Errorf("ffprobe: no audio stream in %s", source)
	}

	stream := payload.Streams[0]
	info.Codec = stream.CodecName
	info.Channels = stream.Channels
	info.SampleRate, _ = strconv.Atoi(stream.SampleRate)
	info.BitRate, _ = strconv.Atoi(stream.BitRate)
	if payload.Format.Duration != "" {
		info.Duration, _ = strconv.ParseFloat(payload.Format.Duration, 64)
	}
	return info, nil
}

// TranscodeToWAV converts the source audio to a mono 16kHz WAV file suitable
// for WhisperX.
func TranscodeToWAV(ctx context.Context, ffmpegBinary, source, dest string) error {
	if ffmpegBinary == "" {
		ffmpegBinary = FFmpegCommand
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	cmd := exec.CommandContext(ctx, ffmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg transcode: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
