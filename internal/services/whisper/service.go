package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"castpress/internal/transcript"
)

// Service provides WhisperX transcription and diarization.
type Service struct {
	cfg           Config
	ffmpegBinary  string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config, ffmpegBinary string) *Service {
	if ffmpegBinary == "" {
		ffmpegBinary = FFmpegCommand
	}
	return &Service{cfg: cfg, ffmpegBinary: ffmpegBinary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured transcription model name.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// DiarizationModel returns the configured diarization model name.
func (s *Service) DiarizationModel() string {
	return s.cfg.DiarizationModel
}

// Transcode converts source audio into the mono 16kHz WAV WhisperX expects.
func (s *Service) Transcode(ctx context.Context, source, dest string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.ffmpegBinary, "-i", source, dest)
	}
	return TranscodeToWAV(ctx, s.ffmpegBinary, source, dest)
}

// Transcribe runs WhisperX over a prepared WAV file and returns the timed
// segments. outputDir is where WhisperX writes its JSON output.
func (s *Service) Transcribe(ctx context.Context, source, outputDir, language string) ([]transcript.Segment, error) {
	return s.invoke(ctx, source, outputDir, language, false)
}

// Diarize runs WhisperX with word alignment and speaker diarization over a
// prepared WAV file. Alignment is an internal precondition of diarization,
// not a separate caller-visible operation.
func (s *Service) Diarize(ctx context.Context, source, outputDir, language string) ([]transcript.Segment, error) {
	return s.invoke(ctx, source, outputDir, language, true)
}

func (s *Service) invoke(ctx context.Context, source, outputDir, language string, diarize bool) ([]transcript.Segment, error) {
	if source == "" {
		return nil, fmt.Errorf("whisper: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("whisper: ensure output dir: %w", err)
	}

	args := s.buildArgs(source, outputDir, language, diarize)
	if err := s.run(ctx, UVXCommand, args...); err != nil {
		return nil, fmt.Errorf("whisperx: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	return LoadSegments(jsonPath)
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking
	// WhisperX/pyannote. Force legacy behavior so checkpoints load.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir, language string, diarize bool) []string {
	args := make([]string, 0, 32)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	model := s.cfg.Model
	if model == "" {
		model = DefaultModel
	}

	args = append(args,
		"whisperx",
		source,
		"--model", model,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--temperature", Temperature,
	)

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if s.cfg.HFToken != "" && (vadMethod == VADMethodPyannote || diarize) {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	if diarize {
		args = append(args, "--diarize")
	}

	if lang := strings.TrimSpace(language); lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}

// whisperXWord mirrors the word objects in WhisperX JSON output.
type whisperXWord struct {
	Word    string  `json:"word"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// whisperXSegment mirrors the segment objects in WhisperX JSON output.
type whisperXSegment struct {
	Text    string         `json:"text"`
	Start   float64        `json:"start"`
	End     float64        `json:"end"`
	Speaker string         `json:"speaker"`
	Words   []whisperXWord `json:"words"`
}

type whisperXPayload struct {
	Segments []whisperXSegment `json:"segments"`
}

// LoadSegments loads transcript segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]transcript.Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}

	segments := make([]transcript.Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		out := transcript.Segment{
			Text:    seg.Text,
			Start:   seg.Start,
			End:     seg.End,
			Speaker: seg.Speaker,
		}
		for _, word := range seg.Words {
			out.Words = append(out.Words, transcript.Word{
				Text:    word.Word,
				Start:   word.Start,
				End:     word.End,
				Speaker: word.Speaker,
			})
		}
		segments = append(segments, out)
	}
	return segments, nil
}
