package pipeline

import (
	"context"
	"encoding/json"
	"sync"

	"castpress/internal/artifact"
	"castpress/internal/command"
	"castpress/internal/consensus"
	"castpress/internal/episode"
	"castpress/internal/services"
	"castpress/internal/steps"
)

// analysisTrack is one planned analysis run.
type analysisTrack struct {
	Track string
	Model string
}

// orderedTracks returns the configured tracks in deterministic order:
// precision before recall, so merges and lineage records do not depend on map
// iteration.
func orderedTracks(tracks map[string]string) []analysisTrack {
	ordered := make([]analysisTrack, 0, len(tracks))
	for _, name := range []string{consensus.TrackPrecision, consensus.TrackRecall, consensus.TrackSingle} {
		if model, ok := tracks[name]; ok {
			ordered = append(ordered, analysisTrack{Track: name, Model: model})
		}
	}
	return ordered
}

// runAnalyze executes the analysis step. The built-in path fans out one run
// per configured track, then reconciles dual-track results into consensus and
// agreement artifacts. An external override runs once and its report is
// stored as a single-track analysis.
func (o *Orchestrator) runAnalyze(
	ctx context.Context,
	store *artifact.Store,
	inv *artifact.Inventory,
	executor *command.Executor,
	ep episode.Episode,
	runID string,
) (string, error) {
	input, parent, err := o.transcriptInput(store, inv)
	if err != nil {
		return "", err
	}

	if runner := o.externalAnalyzeRunner(); runner != nil {
		return o.runExternalAnalyze(ctx, store, executor, runner, input, ep, runID, parent)
	}

	tracks := orderedTracks(analysisTracks(o.cfg))
	reports := make([]consensus.Report, len(tracks))
	errs := make([]error, len(tracks))
	var wg sync.WaitGroup
	for i, track := range tracks {
		wg.Add(1)
		go func(idx int, track analysisTrack) {
			defer wg.Done()
			reports[idx], errs[idx] = o.analyzeTrack(ctx, executor, input, track)
		}(i, track)
	}
	wg.Wait()
	for _, trackErr := range errs {
		if trackErr != nil {
			return "", trackErr
		}
	}
	for _, track := range tracks {
		o.recordLineage(ctx, runID, ep.Key(), steps.StepAnalyze, analysisFileName(track), parent)
	}

	if len(tracks) == 1 {
		return analysisFileName(tracks[0]), nil
	}
	return o.reconcile(ctx, store, reports, tracks, ep, runID)
}

// externalAnalyzeRunner returns the override or configured command runner
// for the analyze step, or nil when the built-in fan-out applies.
func (o *Orchestrator) externalAnalyzeRunner() command.Runner {
	if runner, ok := o.overrides[steps.StepAnalyze]; ok {
		return runner
	}
	if argv := o.cfg.Steps.Commands[steps.StepAnalyze]; len(argv) > 0 {
		return command.NewProcessRunner(argv)
	}
	return nil
}

// runExternalAnalyze executes a single external analysis and persists its
// report. External commands own their model choice, so the consensus fan-out
// does not apply; the report is stored on the single track.
func (o *Orchestrator) runExternalAnalyze(
	ctx context.Context,
	store *artifact.Store,
	executor *command.Executor,
	runner command.Runner,
	input json.RawMessage,
	ep episode.Episode,
	runID, parent string,
) (string, error) {
	var options []string
	if o.cfg.Analysis.Template != "" {
		options = []string{"--template", o.cfg.Analysis.Template}
	}
	output, err := executor.Execute(ctx, command.Spec{
		Step:    steps.StepAnalyze,
		Runner:  runner,
		Input:   input,
		Options: options,
		Timeout: o.timeoutFor(steps.StepAnalyze),
	})
	if err != nil {
		return "", err
	}

	var report consensus.Report
	if err := json.Unmarshal(output, &report); err != nil {
		return "", services.Wrap(services.ErrStepOutputInvalid, steps.StepAnalyze, "decode report", "", err)
	}
	if report.Track == "" {
		report.Track = consensus.TrackSingle
	}
	if report.Model == "" {
		report.Model = "external"
	}
	if err := report.Validate(); err != nil {
		return "", services.Wrap(services.ErrStepOutputInvalid, steps.StepAnalyze, "validate report", "", err)
	}

	desc := artifact.Descriptor{Kind: artifact.KindAnalysis, Track: report.Track, Model: report.Model}
	if _, err := store.SaveJSON(desc, report); err != nil {
		return "", services.Wrap(services.ErrStepFailed, steps.StepAnalyze, "persist report", "", err)
	}
	fileName, _ := desc.FileName()
	o.recordLineage(ctx, runID, ep.Key(), steps.StepAnalyze, fileName, parent)
	return fileName, nil
}

// analyzeTrack runs one track's analysis through the executor, which also
// persists the report artifact.
func (o *Orchestrator) analyzeTrack(
	ctx context.Context,
	executor *command.Executor,
	input json.RawMessage,
	track analysisTrack,
) (consensus.Report, error) {
	runner := steps.NewAnalyze(o.completerFor(track.Model), steps.AnalyzeOptions{
		Track:               track.Track,
		Template:            o.cfg.Analysis.Template,
		ChunkChars:          o.cfg.Analysis.ChunkChars,
		MaxConcurrentChunks: o.cfg.Analysis.MaxConcurrentChunks,
	})
	output, err := executor.Execute(services.WithTrack(ctx, track.Track), command.Spec{
		Step:    steps.StepAnalyze,
		Runner:  runner,
		Input:   input,
		Timeout: o.timeoutFor(steps.StepAnalyze),
		Persist: &artifact.Descriptor{Kind: artifact.KindAnalysis, Track: track.Track, Model: track.Model},
	})
	if err != nil {
		return consensus.Report{}, err
	}
	var report consensus.Report
	if err := json.Unmarshal(output, &report); err != nil {
		return consensus.Report{}, services.Wrap(services.ErrStepOutputInvalid, steps.StepAnalyze, "decode report", "", err)
	}
	return report, nil
}

// reconcile merges the dual-track reports into the consensus document and
// scores their agreement.
func (o *Orchestrator) reconcile(
	ctx context.Context,
	store *artifact.Store,
	reports []consensus.Report,
	tracks []analysisTrack,
	ep episode.Episode,
	runID string,
) (string, error) {
	merged, err := consensus.Merge(reports...)
	if err != nil {
		return "", err
	}
	consensusDesc := artifact.Descriptor{Kind: artifact.KindConsensus}
	if _, err := store.SaveJSON(consensusDesc, merged); err != nil {
		return "", services.Wrap(services.ErrStepFailed, steps.StepAnalyze, "persist consensus", "", err)
	}
	consensusFile, _ := consensusDesc.FileName()
	o.recordLineage(ctx, runID, ep.Key(), steps.StepAnalyze, consensusFile, analysisFileName(tracks[0]))

	scorer := consensus.NewScorer(o.completerFor(o.cfg.LLM.Model))
	agreement, err := scorer.Score(ctx, reports[0], reports[1])
	if err != nil {
		return "", err
	}
	agreementDesc := artifact.Descriptor{Kind: artifact.KindAgreement}
	if _, err := store.SaveJSON(agreementDesc, agreement); err != nil {
		return "", services.Wrap(services.ErrStepFailed, steps.StepAnalyze, "persist agreement", "", err)
	}
	agreementFile, _ := agreementDesc.FileName()
	o.recordLineage(ctx, runID, ep.Key(), steps.StepAnalyze, agreementFile, consensusFile)

	return consensusFile, nil
}

func analysisFileName(track analysisTrack) string {
	fileName, err := (artifact.Descriptor{
		Kind:  artifact.KindAnalysis,
		Track: track.Track,
		Model: track.Model,
	}).FileName()
	if err != nil {
		return ""
	}
	return fileName
}
