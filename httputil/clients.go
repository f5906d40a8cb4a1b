package httputil

import (
	"net/http"
	"time"
)

// Clients holds the outbound HTTP clients, each with a bounded timeout so a
// slow collaborator can never wedge a worker loop.
type Clients struct {
	Enrichment *http.Client // generative extraction service
	Media      *http.Client // inbound media downloads
}

func NewClients(enrichmentTimeout time.Duration) *Clients {
	if enrichmentTimeout <= 0 {
		enrichmentTimeout = 20 * time.Second
	}

	return &Clients{
		Enrichment: &http.Client{Timeout: enrichmentTimeout},
		Media:      &http.Client{Timeout: 60 * time.Second},
	}
}
