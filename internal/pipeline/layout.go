package pipeline

import (
	"fmt"
	"strconv"
)

// Names of the files a request writes into its session.
const (
	AudioBaseName = "audio"
	SubtitlesName = "subtitles.srt"
	OutputName    = "output.mp4"
)

const minImageDigits = 3

// ImageDigits returns the zero-padding width for count frames: at least 3,
// widened when count needs more digits.
func ImageDigits(count int) int {
	if count <= 1 {
		return minImageDigits
	}
	return max(minImageDigits, len(strconv.Itoa(count-1)))
}

// ImageName returns the session file name of the frame at index.
func ImageName(index, digits int) string {
	return fmt.Sprintf("img%0*d.jpg", digits, index)
}

// ImagePattern returns the printf-style pattern matching ImageName.
func ImagePattern(digits int) string {
	return fmt.Sprintf("img%%0%dd.jpg", digits)
}

// DownloadName is the attachment name offered for a session's video.
func DownloadName(sessionID string) string {
	return "video_" + sessionID + ".mp4"
}
