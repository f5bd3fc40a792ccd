package config

const (
	defaultLibraryDir          = "~/.local/share/castpress/library"
	defaultLogDir              = "~/.local/share/castpress/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultWhisperModel        = "large-v3"
	defaultDiarizationModel    = "pyannote-3.1"
	defaultVADMethod           = "silero"
	defaultLLMBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel            = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds   = 120
	defaultAnalysisTemplate    = "episode-brief"
	defaultAnalysisChunkChars  = 24000
	defaultMaxConcurrentChunks = 4
	defaultPublisherTimeout    = 30
	defaultNotifyTimeout       = 10
	defaultStepTimeout         = 3600
	defaultFetchTimeout        = 900
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
		},
		Steps: Steps{
			Preprocess: true,
			Analyze:    true,
			Export:     true,
		},
		Whisper: Whisper{
			Model:            defaultWhisperModel,
			DiarizationModel: defaultDiarizationModel,
			VADMethod:        defaultVADMethod,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Analysis: Analysis{
			Template:            defaultAnalysisTemplate,
			ChunkChars:          defaultAnalysisChunkChars,
			MaxConcurrentChunks: defaultMaxConcurrentChunks,
		},
		Publisher: Publisher{
			TimeoutSec: defaultPublisherTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Workflow: Workflow{
			StepTimeout:  defaultStepTimeout,
			FetchTimeout: defaultFetchTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
