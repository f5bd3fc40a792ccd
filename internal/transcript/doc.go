// Package transcript defines the transcript document model and the variant
// state graph that governs which processing step may consume which input.
//
// A transcript moves through named variants: base (raw speech-to-text),
// diarized (speaker-labeled, word-aligned), and preprocessed (merged and
// cleaned for reading). Preprocessing breaks word-for-word timestamp
// fidelity, so preprocessed is terminal: nothing may diarize or align it.
// The graph rejects illegal requests before any subprocess is spawned.
package transcript
