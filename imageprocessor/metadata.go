package imageprocessor

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"raycheck/logging"

	"github.com/barasher/go-exiftool"
)

// DecodeError is returned when no loader could produce an image
type DecodeError struct {
	Path string
	Err  error
	// Detail carries the exiftool view of the file when exiftool is installed
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("cannot decode image %s: %v (%s)", e.Path, e.Err, e.Detail)
	}
	return fmt.Sprintf("cannot decode image %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var probeFields = []string{"FileType", "MIMEType", "ImageSize", "BitDepth", "ColorType", "Warning", "Error"}

var (
	exiftoolOnce sync.Once
	haveExiftool bool
)

// Check if exiftool is available on the system
func hasExiftool() bool {
	exiftoolOnce.Do(func() {
		_, err := exec.LookPath("exiftool")
		haveExiftool = err == nil
	})
	return haveExiftool
}

// probeMetadata describes what exiftool sees in a file that failed to
// decode. It returns "" when exiftool is unavailable or finds nothing.
func probeMetadata(path string) string {
	if !hasExiftool() || !fileExists(path) {
		return ""
	}

	et, err := exiftool.NewExiftool()
	if err != nil {
		logging.DebugLog("Failed to initialize exiftool: %v", err)
		return ""
	}
	defer et.Close()

	fileInfos := et.ExtractMetadata(path)
	if len(fileInfos) == 0 {
		return ""
	}
	fileInfo := fileInfos[0]
	if fileInfo.Err != nil {
		logging.DebugLog("Error extracting metadata from %s: %v", path, fileInfo.Err)
		return ""
	}

	var parts []string
	for _, key := range probeFields {
		if v, ok := fileInfo.Fields[key]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", key, v))
		}
	}
	return strings.Join(parts, ", ")
}
