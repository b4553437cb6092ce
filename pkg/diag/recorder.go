package diag

import (
	"fmt"
	"sync"
)

// Artifact is one capture held by a Recorder
type Artifact struct {
	Kind     string // "screenshot" or "markup"
	Category string
	Name     string
	Size     int
}

// Recorder is an in-memory Sink for tests
type Recorder struct {
	mu        sync.Mutex
	Infos     []string
	Errors    []string
	Artifacts []Artifact

	// FailScreenshots makes SaveScreenshot return an error
	FailScreenshots bool
}

func (r *Recorder) LogInfo(msg string, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Infos = append(r.Infos, msg)
}

func (r *Recorder) LogError(msg string, err error, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	r.Errors = append(r.Errors, msg)
}

func (r *Recorder) SaveScreenshot(png []byte, category, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailScreenshots {
		return "", fmt.Errorf("screenshot disabled")
	}
	r.Artifacts = append(r.Artifacts, Artifact{Kind: "screenshot", Category: category, Name: name, Size: len(png)})
	return category + "/" + name + ".png", nil
}

func (r *Recorder) SaveMarkupDump(markup, category, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Artifacts = append(r.Artifacts, Artifact{Kind: "markup", Category: category, Name: name, Size: len(markup)})
	return category + "/" + name + ".html", nil
}

// Captured returns a copy of the recorded artifacts
func (r *Recorder) Captured() []Artifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Artifact, len(r.Artifacts))
	copy(out, r.Artifacts)
	return out
}

// Find returns the first artifact with the given name
func (r *Recorder) Find(name string) (Artifact, bool) {
	for _, a := range r.Captured() {
		if a.Name == name {
			return a, true
		}
	}
	return Artifact{}, false
}
