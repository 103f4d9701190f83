package util //nolint:revive // package name util hosts shared media-type helpers used by provider and storage

import (
	"mime"
	"path"
	"strings"
)

// mediaTypes covers generated media formats that the platform mime tables
// do not reliably know about.
var mediaTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".aac":  "audio/aac",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// ContentTypeForPath guesses a media type from the extension of p.
// It returns "" when the extension is unknown.
func ContentTypeForPath(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return ""
	}
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	return mime.TypeByExtension(ext)
}

// ExtensionForContentType returns a file extension (with dot) for a media
// type, or "" when none is known.
func ExtensionForContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "image/jpeg":
		return ".jpg"
	}
	for ext, ct := range mediaTypes {
		if ct == mediaType {
			return ext
		}
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
