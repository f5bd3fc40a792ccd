package artifact

import "testing"

func TestFileNameRoundTrip(t *testing.T) {
	cases := []struct {
		desc Descriptor
		want string
	}{
		{Descriptor{Kind: KindEpisodeMeta}, "episode-meta.json"},
		{Descriptor{Kind: KindAudioMeta}, "audio-meta.json"},
		{Descriptor{Kind: KindBase, Model: "large-v3"}, "transcript-base.large-v3.json"},
		{Descriptor{Kind: KindDiarized, Model: "pyannote-3.1"}, "transcript-diarized.pyannote-3_1.json"},
		{Descriptor{Kind: KindPreprocessed, Model: "large-v3"}, "transcript-preprocessed.large-v3.json"},
		{Descriptor{Kind: KindAnalysis, Track: "precision", Model: "gemini-flash"}, "analysis.precision.gemini-flash.json"},
		{Descriptor{Kind: KindConsensus}, "analysis-consensus.json"},
		{Descriptor{Kind: KindAgreement}, "analysis-agreement.json"},
		{Descriptor{Kind: KindExport}, "export.md"},
		{Descriptor{Kind: KindReceipt}, "publish-receipt.json"},
	}
	for _, tc := range cases {
		name, err := tc.desc.FileName()
		if err != nil {
			t.Fatalf("FileName(%+v): %v", tc.desc, err)
		}
		if name != tc.want {
			t.Fatalf("FileName(%+v) = %q, want %q", tc.desc, name, tc.want)
		}
		parsed := ParseFileName(name)
		if parsed == nil {
			t.Fatalf("ParseFileName(%q) = nil", name)
		}
		if parsed.Kind != tc.desc.Kind {
			t.Fatalf("round trip kind: got %q, want %q", parsed.Kind, tc.desc.Kind)
		}
	}
}

func TestFileNameRequiresQualifiers(t *testing.T) {
	if _, err := (Descriptor{Kind: KindBase}).FileName(); err == nil {
		t.Fatal("transcript-base without model should fail")
	}
	if _, err := (Descriptor{Kind: KindAnalysis, Model: "m"}).FileName(); err == nil {
		t.Fatal("analysis without track should fail")
	}
	if _, err := (Descriptor{Kind: "mystery"}).FileName(); err == nil {
		t.Fatal("unknown kind should fail")
	}
}

func TestParseFileNameIgnoresForeignFiles(t *testing.T) {
	for _, name := range []string{
		"audio.wav",
		"notes.txt",
		"transcript-base.json",      // missing model
		"analysis.primary.json",     // missing model
		"export.json",               // wrong extension for export
		"transcript-base.large.srt", // unknown extension
		"episode-meta.extra.json",   // unqualified kind with qualifier
		".hidden",
	} {
		if desc := ParseFileName(name); desc != nil {
			t.Fatalf("ParseFileName(%q) = %+v, want nil", name, desc)
		}
	}
}
