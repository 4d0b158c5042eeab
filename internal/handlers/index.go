package handlers

import (
	"html/template"
	"net/http"
	"strings"

	"video-creator/internal/logging"
	"video-creator/internal/mediatypes"
	"video-creator/internal/startup"

	"github.com/dustin/go-humanize"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Video Creator</title>
</head>
<body>
<h1>Video Creator with Subtitles</h1>
<p>POST to <code>/create-video</code> as <code>multipart/form-data</code> with:</p>
<ul>
  <li><b>audio</b>: one {{.AudioTypes}} file{{if .MaxAudio}} (up to {{.MaxAudio}}){{end}}</li>
  <li><b>images</b>: one or more {{.ImageTypes}} files, shown in upload order{{if .MaxImage}} (up to {{.MaxImage}} each){{end}}{{if .MaxImages}}, at most {{.MaxImages}}{{end}}</li>
  <li><b>subtitle_text</b>: (optional) plain text, one caption per sentence</li>
</ul>
<p>Total upload limit: {{.MaxRequest}}. The response is the MP4 as an attachment.</p>
<p><small>video-creator {{.Version}}</small></p>
</body>
</html>
`))

type indexData struct {
	AudioTypes string
	ImageTypes string
	MaxAudio   string
	MaxImage   string
	MaxImages  int
	MaxRequest string
	Version    string
}

// Index serves a short description of the upload API.
func (h *Handlers) Index(w http.ResponseWriter, _ *http.Request) {
	data := indexData{
		AudioTypes: strings.Join(mediatypes.Allowed(mediatypes.FileTypeAudio), "/"),
		ImageTypes: strings.Join(mediatypes.Allowed(mediatypes.FileTypeImage), "/"),
		MaxImages:  h.limits.MaxImages,
		MaxRequest: humanize.Bytes(uint64(h.limits.MaxRequestBytes)),
		Version:    startup.Version,
	}
	if h.limits.MaxAudioBytes > 0 {
		data.MaxAudio = humanize.Bytes(uint64(h.limits.MaxAudioBytes))
	}
	if h.limits.MaxImageBytes > 0 {
		data.MaxImage = humanize.Bytes(uint64(h.limits.MaxImageBytes))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		logging.Error("failed to render index page: %v", err)
	}
}
