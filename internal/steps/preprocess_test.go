package steps

import (
	"context"
	"encoding/json"
	"testing"

	"castpress/internal/command"
	"castpress/internal/services"
	"castpress/internal/transcript"
)

func marshalDoc(t *testing.T, doc transcript.Document) json.RawMessage {
	t.Helper()
	encoded, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("encode document: %v", err)
	}
	return encoded
}

func TestPreprocessMergesSameSpeakerRuns(t *testing.T) {
	input := transcript.Document{
		Variant: transcript.VariantDiarized,
		Model:   "pyannote-3.1",
		Segments: []transcript.Segment{
			{Text: "So  I was", Start: 0, End: 1, Speaker: "SPEAKER_00", Words: []transcript.Word{{Text: "So"}}},
			{Text: "thinking about caching.", Start: 1, End: 2.5, Speaker: "SPEAKER_00"},
			{Text: "Interesting.", Start: 2.5, End: 3, Speaker: "SPEAKER_01"},
			{Text: "Tell me more.", Start: 3, End: 4, Speaker: "SPEAKER_01"},
		},
	}

	adapter := NewPreprocess("large-v3")
	output, err := adapter.Run(context.Background(), command.Request{Step: StepPreprocess, Input: marshalDoc(t, input)})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	var doc transcript.Document
	if err := json.Unmarshal(output, &doc); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if doc.Variant != transcript.VariantPreprocessed || doc.Model != "large-v3" {
		t.Fatalf("unexpected document identity %+v", doc)
	}
	if len(doc.Segments) != 2 {
		t.Fatalf("expected 2 merged segments, got %d: %+v", len(doc.Segments), doc.Segments)
	}
	first := doc.Segments[0]
	if first.Text != "So I was thinking about caching." {
		t.Fatalf("unexpected merged text %q", first.Text)
	}
	if first.Start != 0 || first.End != 2.5 {
		t.Fatalf("expected merged timing 0-2.5, got %v-%v", first.Start, first.End)
	}
	if len(first.Words) != 0 {
		t.Fatal("expected word timings dropped")
	}
}

func TestPreprocessRejectsPreprocessedInput(t *testing.T) {
	input := transcript.Document{
		Variant:  transcript.VariantPreprocessed,
		Model:    "large-v3",
		Segments: []transcript.Segment{{Text: "done"}},
	}
	adapter := NewPreprocess("large-v3")
	_, err := adapter.Run(context.Background(), command.Request{Step: StepPreprocess, Input: marshalDoc(t, input)})
	if err == nil {
		t.Fatal("expected preprocess to reject terminal input")
	}
	if !services.Fatal(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestPreprocessRequiresInput(t *testing.T) {
	adapter := NewPreprocess("large-v3")
	if _, err := adapter.Run(context.Background(), command.Request{Step: StepPreprocess}); err == nil {
		t.Fatal("expected preprocess to fail without input")
	}
}
