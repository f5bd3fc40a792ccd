// Package artifact owns the working-directory naming convention for step
// outputs and the detector that reconstructs completed work from a directory
// listing.
//
// Every step output is a file whose name encodes its kind, the producing
// model or engine, and (for analyses) the track. Detection is purely
// filename-based: the detector never opens artifact payloads, so a scan is a
// single directory listing regardless of transcript size. Files that do not
// match the convention are ignored, not errors, which lets working
// directories carry foreign files (raw audio payloads, editor droppings)
// without confusing resumption.
package artifact
