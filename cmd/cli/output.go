package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// saveAsset writes a fetch response to output and returns the path written.
// Metadata records without an output path are printed instead.
func saveAsset(header http.Header, body []byte, output string) (string, error) {
	if output == "-" {
		_, err := os.Stdout.Write(body)
		return "", err
	}

	filename := attachmentFilename(header)
	if output == "" && filename == "" {
		// Metadata record: pretty-print it
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, body, "", "  "); err != nil {
			pretty.Reset()
			pretty.Write(body)
		}
		fmt.Println(pretty.String())
		return "", nil
	}

	path := output
	switch {
	case path == "":
		path = filename
	case isDir(path) && filename != "":
		path = filepath.Join(path, filename)
	}

	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// attachmentFilename returns the base filename of a Content-Disposition header
func attachmentFilename(header http.Header) string {
	_, params, err := mime.ParseMediaType(header.Get("Content-Disposition"))
	if err != nil || params["filename"] == "" {
		return ""
	}
	return filepath.Base(params["filename"])
}

// describeError renders a server error body for humans
func describeError(body []byte) string {
	var re struct {
		Platform  string `json:"platform"`
		Category  string `json:"category"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(body, &re); err != nil {
		return string(bytes.TrimSpace(body))
	}
	if re.Category == "" {
		if re.Error != "" {
			return re.Error
		}
		return string(bytes.TrimSpace(body))
	}

	msg := fmt.Sprintf("[%s] %s", re.Category, re.Message)
	if re.Platform != "" && re.Platform != "unsupported" {
		msg = re.Platform + " " + msg
	}
	if re.Retryable {
		msg += " (retryable)"
	}
	return msg
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
