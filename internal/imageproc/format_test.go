package imageproc

import "testing"

func TestNeedsConversion(t *testing.T) {
	tests := []struct {
		format string
		want   bool
	}{
		{"heic", true},
		{"HEIF", true},
		{"raw", true},
		{"Cr2", true},
		{"nef", true},
		{"ARW", true},
		{"dng", true},
		{"", true},
		{"jpeg", false},
		{"png", false},
		{"webp", false},
		{"bmp", false},
		{"gif", false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if got := NeedsConversion(tt.format); got != tt.want {
				t.Errorf("NeedsConversion(%q) = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}

func TestOutputFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		convert  bool
		want     string
	}{
		{"raw rewritten", "IMG_001.cr2", true, "IMG_001.jpeg"},
		{"heic rewritten", "holiday.photo.HEIC", true, "holiday.photo.jpeg"},
		{"no extension", "scan", true, "scan.jpeg"},
		{"jpg kept", "DSC_0042.JPG", false, "DSC_0042.JPG"},
		{"jpeg kept", "a b.jpeg", false, "a b.jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputFilename(tt.filename, tt.convert); got != tt.want {
				t.Errorf("OutputFilename(%q, %v) = %q, want %q", tt.filename, tt.convert, got, tt.want)
			}
		})
	}
}

func TestOutputFormat(t *testing.T) {
	if got := OutputFormat("nef", true); got != "jpeg" {
		t.Errorf("converted output = %q, want jpeg", got)
	}
	if got := OutputFormat("JPG", false); got != "jpeg" {
		t.Errorf("jpg output = %q, want jpeg", got)
	}
	if got := OutputFormat("png", false); got != "png" {
		t.Errorf("png output = %q, want png", got)
	}
	if got := MimeType("webp"); got != "image/webp" {
		t.Errorf("MimeType(webp) = %q", got)
	}
}
