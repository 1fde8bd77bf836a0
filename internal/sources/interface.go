package sources

import (
	"context"

	"github.com/leadscout/leadscout/internal/models"
)

// Source is a platform-specific search-and-normalize unit. Search must not
// return a Go error: remote failure comes back inside the SearchResult with
// Success == false so one platform can never abort the fan-out.
type Source interface {
	Name() string
	Info() models.PlatformInfo
	Search(ctx context.Context, criteria models.SearchCriteria) models.SearchResult
}
