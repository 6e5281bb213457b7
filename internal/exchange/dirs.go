package exchange

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Dirs locates the file interface shared with the instrument. Orders go to
// Inbox, responses show up in Outbox, every issued order document is
// archived under Requests, and processed Outbox files move to Responses.
type Dirs struct {
	Inbox     string
	Outbox    string
	Requests  string
	Responses string
}

// EnsureAll creates the directories if they do not exist yet.
func (d Dirs) EnsureAll() error {
	for _, dir := range []string{d.Inbox, d.Outbox, d.Requests, d.Responses} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// WriteOrder delivers an order document into the Inbox and archives a copy.
// It returns the Inbox path the instrument will pick up.
func (d Dirs) WriteOrder(filename string, doc []byte) (string, error) {
	if d.Inbox == "" {
		return "", errors.New("exchange: inbox directory not configured")
	}
	if filename == "" || len(doc) == 0 {
		return "", errors.New("exchange: empty order")
	}

	if d.Requests != "" {
		if err := os.WriteFile(filepath.Join(d.Requests, filename), doc, 0o644); err != nil {
			return "", err
		}
	}

	path := filepath.Join(d.Inbox, filename)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ArchiveResponse moves a processed Outbox file into the Responses archive
// and returns the archived path. With no archive configured the file is
// removed instead and the original path comes back.
func (d Dirs) ArchiveResponse(path string) (string, error) {
	if d.Responses == "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return "", err
		}
		return path, nil
	}
	archived := filepath.Join(d.Responses, filepath.Base(path))
	if err := os.Rename(path, archived); err != nil {
		return "", err
	}
	return archived, nil
}

// IsResponseFile reports whether an Outbox entry looks like an instrument
// response. The instrument names responses with an -R suffix; the check is
// a cheap filter only, correlation always happens on the embedded order id.
func IsResponseFile(name string) bool {
	lower := strings.ToLower(filepath.Base(name))
	return strings.HasSuffix(lower, "-r.xml")
}
