package scavenger

import (
	"time"

	"github.com/keystat/keystat/scavenger/ecos"
)

// Scavenger holds the sources of structured data that posts are built from.
//
// Every source lives in its own package and is fetched by the jobs, the Scavenger only wires them with
// the shared settings.
type Scavenger struct {
	KeyStatistics *ecos.KeyStatistics
}

// NewScavenger creates the sources. baseURL overrides the ECOS endpoint when not empty.
func NewScavenger(ecosAPIKey, baseURL string, timeout time.Duration) *Scavenger {
	ks := ecos.NewKeyStatistics(ecosAPIKey, timeout)
	if baseURL != "" {
		ks.BaseURL = baseURL
	}
	return &Scavenger{
		KeyStatistics: ks,
	}
}
