package stories

import (
	"igstories/pkg/extractor"
	"igstories/pkg/storage"
)

// Observer receives batch progress. Calls happen on the controller's
// goroutine and must not block for long.
type Observer interface {
	AccountStarted(account string, index, total int)
	StateChanged(account string, from, to State)
	ArtifactSaved(account string, art storage.Artifact, source extractor.SourceKind)
	BatchFinished(result BatchResult)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) AccountStarted(string, int, int)                              {}
func (NopObserver) StateChanged(string, State, State)                            {}
func (NopObserver) ArtifactSaved(string, storage.Artifact, extractor.SourceKind) {}
func (NopObserver) BatchFinished(BatchResult)                                    {}

// Observers fans events out in order
type Observers []Observer

func (o Observers) AccountStarted(account string, index, total int) {
	for _, ob := range o {
		ob.AccountStarted(account, index, total)
	}
}

func (o Observers) StateChanged(account string, from, to State) {
	for _, ob := range o {
		ob.StateChanged(account, from, to)
	}
}

func (o Observers) ArtifactSaved(account string, art storage.Artifact, source extractor.SourceKind) {
	for _, ob := range o {
		ob.ArtifactSaved(account, art, source)
	}
}

func (o Observers) BatchFinished(result BatchResult) {
	for _, ob := range o {
		ob.BatchFinished(result)
	}
}
