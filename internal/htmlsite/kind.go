package htmlsite

import (
	"path/filepath"
	"strings"
)

// KindDocument is the kind of files whose links are followed
const KindDocument = "HTMLDocument"

var kindsByExt = map[string]string{
	".html":  KindDocument,
	".htm":   KindDocument,
	".css":   "Stylesheet",
	".js":    "Script",
	".mjs":   "Script",
	".png":   "Image",
	".jpg":   "Image",
	".jpeg":  "Image",
	".gif":   "Image",
	".svg":   "Image",
	".webp":  "Image",
	".ico":   "Image",
	".woff":  "Font",
	".woff2": "Font",
	".ttf":   "Font",
	".mp4":   "Media",
	".webm":  "Media",
	".mp3":   "Media",
	".ogg":   "Media",
	".pdf":   "Document",
	".json":  "Data",
	".xml":   "Data",
}

func kindOf(path string) string {
	if k, ok := kindsByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return k
	}
	return "File"
}
