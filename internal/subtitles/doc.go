// Package subtitles turns freeform text into a timed caption track.
//
// The text is split into sentences ([Segment]) and the sentences are laid
// end to end over the audio duration, each receiving the same share of time
// ([Synthesize]). The resulting [Track] serializes to the SubRip (.srt)
// format consumed by ffmpeg's subtitles filter.
package subtitles
