package pipeline

import (
	"castpress/internal/artifact"
	"castpress/internal/config"
	"castpress/internal/consensus"
	"castpress/internal/steps"
	"castpress/internal/transcript"
)

// PlannedStep is one entry in a resolved run plan.
type PlannedStep struct {
	Name string
	// Soft steps downgrade the run instead of aborting it when they fail.
	Soft bool
}

// PlanSteps resolves the configured step list in execution order. Fetch,
// transcode, and transcribe always run; the rest are opt-in.
func PlanSteps(cfg *config.Config) []PlannedStep {
	plan := []PlannedStep{
		{Name: steps.StepFetch},
		{Name: steps.StepTranscode},
		{Name: steps.StepTranscribe},
	}
	if cfg.Steps.Diarize {
		plan = append(plan, PlannedStep{Name: steps.StepDiarize})
	}
	if cfg.Steps.Preprocess {
		plan = append(plan, PlannedStep{Name: steps.StepPreprocess})
	}
	if cfg.Steps.Analyze {
		plan = append(plan, PlannedStep{Name: steps.StepAnalyze})
	}
	if cfg.Steps.Export {
		plan = append(plan, PlannedStep{Name: steps.StepExport, Soft: true})
	}
	if cfg.Steps.Publish {
		plan = append(plan, PlannedStep{Name: steps.StepPublish, Soft: true})
	}
	return plan
}

// modelSet returns the transcript model qualifiers from configuration.
func modelSet(cfg *config.Config) transcript.ModelSet {
	return transcript.ModelSet{
		Transcription: cfg.Whisper.Model,
		Diarization:   cfg.Whisper.DiarizationModel,
	}
}

// analysisTracks resolves the track names and models for the analyze step.
func analysisTracks(cfg *config.Config) map[string]string {
	if !cfg.Analysis.DualTrack {
		return map[string]string{consensus.TrackSingle: cfg.LLM.Model}
	}
	precision := cfg.Analysis.PrecisionModel
	if precision == "" {
		precision = cfg.LLM.Model
	}
	recall := cfg.Analysis.RecallModel
	if recall == "" {
		recall = cfg.LLM.Model
	}
	return map[string]string{
		consensus.TrackPrecision: precision,
		consensus.TrackRecall:    recall,
	}
}

// Satisfied reports whether the step's output artifacts are already present,
// which makes the step skippable.
func Satisfied(step string, inv *artifact.Inventory, cfg *config.Config) bool {
	models := modelSet(cfg)
	switch step {
	case steps.StepFetch:
		return inv.Has(artifact.KindEpisodeMeta)
	case steps.StepTranscode:
		return inv.Has(artifact.KindAudioMeta)
	case steps.StepTranscribe:
		return inv.HasModel(artifact.KindBase, models.Transcription)
	case steps.StepDiarize:
		return inv.HasModel(artifact.KindDiarized, models.Diarization)
	case steps.StepPreprocess:
		return inv.HasModel(artifact.KindPreprocessed, models.Transcription)
	case steps.StepAnalyze:
		// An external analyze command stores one report under its own
		// track and model, which the config cannot predict.
		if len(cfg.Steps.Commands[steps.StepAnalyze]) > 0 {
			return inv.Has(artifact.KindAnalysis)
		}
		for track, model := range analysisTracks(cfg) {
			if !inv.HasTrack(track, model) {
				return false
			}
		}
		if cfg.Analysis.DualTrack {
			return inv.Has(artifact.KindConsensus) && inv.Has(artifact.KindAgreement)
		}
		return true
	case steps.StepExport:
		return inv.Has(artifact.KindExport)
	case steps.StepPublish:
		return inv.Has(artifact.KindReceipt)
	}
	return false
}
