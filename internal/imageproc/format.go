package imageproc

import (
	"path/filepath"
	"strings"
)

// convertFormats are camera RAW and HEIC family encodings that are
// normalized to JPEG before anything is stored.
var convertFormats = map[string]struct{}{
	"heic": {},
	"heif": {},
	"raw":  {},
	"cr2":  {},
	"nef":  {},
	"arw":  {},
	"dng":  {},
}

// NeedsConversion reports whether a source with the given format tag must be
// re-encoded to JPEG. An empty tag means the format could not be determined
// and is normalized as well.
func NeedsConversion(format string) bool {
	if format == "" {
		return true
	}
	_, ok := convertFormats[strings.ToLower(format)]
	return ok
}

// OutputFilename keeps filename untouched unless the source is converted, in
// which case only the extension becomes .jpeg.
func OutputFilename(filename string, convert bool) string {
	if !convert {
		return filename
	}
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ".jpeg"
}

// OutputFormat is the encoding written for every tier.
func OutputFormat(format string, convert bool) string {
	if convert {
		return "jpeg"
	}
	f := strings.ToLower(format)
	if f == "jpg" {
		return "jpeg"
	}
	return f
}

func MimeType(format string) string {
	return "image/" + format
}
