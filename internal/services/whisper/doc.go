// Package whisper wraps the WhisperX speech-to-text and diarization tooling
// plus the ffmpeg audio preparation it depends on. WhisperX runs through uvx
// so the Python toolchain stays out of the deployment; ffmpeg produces the
// mono 16kHz WAV input WhisperX expects.
package whisper
