package notify

import (
	"context"
	"log"

	"github.com/ParraLuca/AlertMe/models"
)

// Notifier delivers the new listings of one target to its subscriber.
// Duplicate deliveries are tolerable; the alert state, not the
// notifier, is what guarantees each listing is reported once.
type Notifier interface {
	Notify(ctx context.Context, result models.TargetResult, activeFilters []string) error
}

// LogNotifier prints the new listings instead of sending anything.
// It is the default sink when SMTP is not configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, result models.TargetResult, _ []string) error {
	log.Printf("[%s] %d new listing(s) for %s:", result.Site, len(result.NewItems), result.Email)
	for _, it := range result.NewItems {
		log.Printf("[%s]   • %s · %s · %s", result.Site, it.ID, priceLabel(it.Price), it.URL)
	}
	return nil
}

func priceLabel(p *int) string {
	if p == nil {
		return "price n/a"
	}
	return formatEUR(*p)
}
