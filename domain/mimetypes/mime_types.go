package mimetypes

import (
	"chat-session/errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type MIME string

const (
	Unknown MIME = "unknown"

	TextCSV   MIME = "text/csv"
	TextPlain MIME = "text/plain"

	ApplicationPDF  MIME = "application/pdf"
	ApplicationRTF  MIME = "application/rtf"
	ApplicationDOC  MIME = "application/msword"
	ApplicationDOCX MIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ApplicationPPT  MIME = "application/vnd.ms-powerpoint"
	ApplicationPPTX MIME = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	ApplicationXLS  MIME = "application/vnd.ms-excel"
	ApplicationXLSX MIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	ImageHEIC MIME = "image/heic"
	ImageJPEG MIME = "image/jpeg"
	ImagePNG  MIME = "image/png"

	AudioWAV MIME = "audio/wav"

	VideoMP4       MIME = "video/mp4"
	VideoQuickTime MIME = "video/quicktime"
)

// attachmentTypes is the allow-list of attachment types, keyed by lower-case extension.
var attachmentTypes = map[string]MIME{
	".csv":  TextCSV,
	".doc":  ApplicationDOC,
	".docx": ApplicationDOCX,
	".heic": ImageHEIC,
	".jpg":  ImageJPEG,
	".jpeg": ImageJPEG,
	".mov":  VideoQuickTime,
	".mp4":  VideoMP4,
	".pdf":  ApplicationPDF,
	".png":  ImagePNG,
	".ppt":  ApplicationPPT,
	".pptx": ApplicationPPTX,
	".rtf":  ApplicationRTF,
	".txt":  TextPlain,
	".wav":  AudioWAV,
	".xls":  ApplicationXLS,
	".xlsx": ApplicationXLSX,
}

// Supported reports whether a media type may be sent as an attachment.
func Supported(m MIME) bool {
	for _, allowed := range attachmentTypes {
		if _, ok := Matches(string(m), allowed); ok {
			return true
		}
	}
	return false
}

// Resolve returns the attachment type of a file. The extension decides first,
// then the system extension table, then the file content.
func Resolve(path string) (MIME, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if m, ok := attachmentTypes[ext]; ok {
		return m, nil
	}
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return check(byExt)
		}
	}
	detected, err := mimetype.DetectFile(path)
	if err != nil || detected.Is("application/octet-stream") {
		return Unknown, fmt.Errorf("%w: %s", errors.ErrMimeTypeUnresolvable, filepath.Base(path))
	}
	for _, allowed := range attachmentTypes {
		if detected.Is(string(allowed)) {
			return allowed, nil
		}
	}
	return check(detected.String())
}

func check(detected string) (MIME, error) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, fmt.Errorf("%w: %s", errors.ErrMimeTypeUnresolvable, detected)
	}
	if !Supported(MIME(mt)) {
		return Unknown, fmt.Errorf("%w: type %s is not supported", errors.ErrUnsupportedMimeType, mt)
	}
	return MIME(mt), nil
}

func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return expected, mt == string(expected)
}
