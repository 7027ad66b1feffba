package metadata

import (
	"context"
	"log"

	"github.com/sourcegraph/conc/pool"

	"streamseek/models"
)

// enrichTitles fetches full details (ratings, overview, sources) for the
// first enrichLimit stubs concurrently. The output is index-aligned with the
// input regardless of completion order: each fetch writes only its own slot.
// A failed or empty detail fetch leaves that slot's original lightweight stub
// in place; one bad fetch never aborts its siblings.
func (s *Service) enrichTitles(ctx context.Context, stubs []models.Title, region string) []models.Title {
	results := make([]models.Title, len(stubs))
	copy(results, stubs)

	batch := len(stubs)
	if batch > enrichLimit {
		batch = enrichLimit
	}
	if batch == 0 {
		return results
	}

	p := pool.New().WithMaxGoroutines(batch)
	for i := 0; i < batch; i++ {
		p.Go(func() {
			stub := stubs[i]
			details, err := s.Details(ctx, stub.ID, DetailsOptions{Region: region})
			if err != nil || details == nil {
				if err != nil {
					log.Printf("[metadata] enrich fetch failed id=%s: %v", stub.ID, err)
				}
				return
			}
			results[i] = mergeEnriched(stub, *details)
		})
	}
	p.Wait()
	return results
}

// mergeEnriched layers a detail record over its originating stub. The detail
// poster wins only when present; otherwise the stub's thumbnail survives.
func mergeEnriched(stub, detail models.Title) models.Title {
	merged := detail
	merged.ID = stub.ID
	if merged.Poster == "" {
		merged.Poster = stub.Poster
	}
	if merged.Name == "" {
		merged.Name = stub.Name
	}
	if merged.Year == 0 {
		merged.Year = stub.Year
	}
	if merged.MediaType == "" {
		merged.MediaType = stub.MediaType
	}
	return merged
}
