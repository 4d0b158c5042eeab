// Package transcoder merges an image sequence and an audio track into a
// single MP4 using FFmpeg.
//
// It supports:
//   - Measuring audio duration with ffprobe, with a fixed fallback
//   - Deriving the frame rate so the images exactly span the audio
//   - Burning a SubRip caption track into the video stream
//   - A hard wall-clock timeout on every merge
//   - Killing in-flight merges on shutdown
//
// FFmpeg and ffprobe are treated as black boxes: [BuildArgs] fixes the
// argument contract and [Transcoder.Run] interprets only the exit status and
// the presence of the output file. On failure ffmpeg's stderr is returned
// verbatim in a [FailedError].
package transcoder
