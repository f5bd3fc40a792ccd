package pipeline

import (
	"encoding/json"

	"castpress/internal/artifact"
	"castpress/internal/command"
	"castpress/internal/episode"
	"castpress/internal/services"
	"castpress/internal/services/publisher"
	"castpress/internal/services/whisper"
	"castpress/internal/steps"
	"castpress/internal/transcript"
)

// runnerFor resolves the runner for a step: explicit override first, then a
// configured external command, then the built-in adapter. Analyze is handled
// separately because it fans out per track.
func (o *Orchestrator) runnerFor(name string, store *artifact.Store, ep episode.Episode) (command.Runner, error) {
	if runner, ok := o.overrides[name]; ok {
		return runner, nil
	}
	if argv := o.cfg.Steps.Commands[name]; len(argv) > 0 {
		return command.NewProcessRunner(argv), nil
	}

	switch name {
	case steps.StepFetch:
		return steps.NewFetch(store, ep), nil
	case steps.StepTranscode:
		return steps.NewTranscode(store, o.whisperService()), nil
	case steps.StepTranscribe:
		return steps.NewTranscribe(store, o.whisperService(), ""), nil
	case steps.StepDiarize:
		return steps.NewDiarize(store, o.whisperService(), ""), nil
	case steps.StepPreprocess:
		return steps.NewPreprocess(o.cfg.Whisper.Model), nil
	case steps.StepExport:
		return steps.NewExport(store, ep), nil
	case steps.StepPublish:
		return steps.NewPublish(store, ep, o.publisherClient()), nil
	}
	return nil, services.Wrap(services.ErrConfiguration, name, "resolve runner",
		"no runner available for step", nil)
}

func (o *Orchestrator) whisperService() *whisper.Service {
	return whisper.NewService(whisper.Config{
		Model:            o.cfg.Whisper.Model,
		DiarizationModel: o.cfg.Whisper.DiarizationModel,
		CUDAEnabled:      o.cfg.Whisper.CUDAEnabled,
		VADMethod:        o.cfg.Whisper.VADMethod,
		HFToken:          o.cfg.Whisper.HFToken,
	}, "")
}

func (o *Orchestrator) publisherClient() *publisher.Client {
	return publisher.NewClient(publisher.Config{
		BaseURL:     o.cfg.Publisher.BaseURL,
		Token:       o.cfg.Publisher.Token,
		Destination: o.cfg.Publisher.Destination,
		TimeoutSec:  o.cfg.Publisher.TimeoutSec,
	})
}

// inputFor resolves the stdin document for a step. Most built-ins read their
// inputs from the artifact store themselves; only the transcript-to-transcript
// steps get theirs wired through the request, so that external command
// overrides see the same contract.
func (o *Orchestrator) inputFor(name string, store *artifact.Store, inv *artifact.Inventory) (json.RawMessage, error) {
	switch name {
	case steps.StepDiarize:
		return o.transcriptFor(transcript.VariantDiarized, store, inv)
	case steps.StepPreprocess:
		return o.transcriptFor(transcript.VariantPreprocessed, store, inv)
	default:
		return nil, nil
	}
}

// transcriptFor validates the requested transition against the variant graph
// and loads the selected source document. A preprocessed-only directory is
// rejected here, before any runner is invoked.
func (o *Orchestrator) transcriptFor(target transcript.Variant, store *artifact.Store, inv *artifact.Inventory) (json.RawMessage, error) {
	source, err := transcript.PickSource(target, transcript.Available(inv, modelSet(o.cfg)))
	if err != nil {
		return nil, err
	}
	return o.loadTranscript(store, source)
}

// transcriptInput resolves the most processed transcript for analysis.
func (o *Orchestrator) transcriptInput(store *artifact.Store, inv *artifact.Inventory) (json.RawMessage, string, error) {
	models := modelSet(o.cfg)
	variant, ok := transcript.MostProcessed(inv, models)
	if !ok {
		return nil, "", services.Wrap(services.ErrConfiguration, steps.StepAnalyze, "resolve input",
			"no transcript artifact found: run transcribe first", nil)
	}
	raw, err := o.loadTranscript(store, variant)
	if err != nil {
		return nil, "", err
	}
	desc := transcriptDescriptor(variant, models)
	fileName, _ := desc.FileName()
	return raw, fileName, nil
}

func (o *Orchestrator) loadTranscript(store *artifact.Store, variant transcript.Variant) (json.RawMessage, error) {
	raw, err := store.Load(transcriptDescriptor(variant, modelSet(o.cfg)))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

func transcriptDescriptor(variant transcript.Variant, models transcript.ModelSet) artifact.Descriptor {
	return artifact.Descriptor{Kind: variant.Kind(), Model: models.ModelFor(variant)}
}

// persistFor returns the descriptor the executor persists a step's output
// under. Export writes its markdown file itself, so its output document is
// not persisted.
func (o *Orchestrator) persistFor(name string) *artifact.Descriptor {
	switch name {
	case steps.StepFetch:
		return &artifact.Descriptor{Kind: artifact.KindEpisodeMeta}
	case steps.StepTranscode:
		return &artifact.Descriptor{Kind: artifact.KindAudioMeta}
	case steps.StepTranscribe:
		return &artifact.Descriptor{Kind: artifact.KindBase, Model: o.cfg.Whisper.Model}
	case steps.StepDiarize:
		return &artifact.Descriptor{Kind: artifact.KindDiarized, Model: o.cfg.Whisper.DiarizationModel}
	case steps.StepPreprocess:
		return &artifact.Descriptor{Kind: artifact.KindPreprocessed, Model: o.cfg.Whisper.Model}
	case steps.StepPublish:
		return &artifact.Descriptor{Kind: artifact.KindReceipt}
	}
	return nil
}

// primaryArtifact names the file an already-satisfied step produced, so the
// lineage parent chain survives skipped steps.
func (o *Orchestrator) primaryArtifact(name string, inv *artifact.Inventory) string {
	if desc := o.persistFor(name); desc != nil {
		if fileName, err := desc.FileName(); err == nil {
			return fileName
		}
		return ""
	}
	switch name {
	case steps.StepExport:
		return "export.md"
	case steps.StepAnalyze:
		if o.cfg.Analysis.DualTrack {
			if fileName, err := (artifact.Descriptor{Kind: artifact.KindConsensus}).FileName(); err == nil {
				return fileName
			}
			return ""
		}
		if reports := inv.ByKind(artifact.KindAnalysis); len(reports) > 0 {
			if fileName, err := reports[0].FileName(); err == nil {
				return fileName
			}
		}
	}
	return ""
}
