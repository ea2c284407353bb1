// Package seed populates an empty database with sample events.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"eventreg/internal/model"
)

// EventCreator is the slice of the event repository the seeder needs.
type EventCreator interface {
	HasAny(ctx context.Context) (bool, error)
	Create(ctx context.Context, e model.Event) (*model.Event, error)
}

var sampleEvents = []model.Event{
	{
		Name:        "Python Workshop",
		Date:        "2026-02-20",
		Time:        "10:00 AM",
		Location:    "Tech Hub, Kalmeshwar",
		Capacity:    50,
		Description: "Learn advanced Python programming concepts",
	},
	{
		Name:        "Web Development Bootcamp",
		Date:        "2026-02-28",
		Time:        "2:00 PM",
		Location:    "Innovation Center",
		Capacity:    30,
		Description: "Full-stack web development with Go and React",
	},
	{
		Name:        "AI/ML Masterclass",
		Date:        "2026-03-15",
		Time:        "11:00 AM",
		Location:    "Tech Hub, Kalmeshwar",
		Capacity:    40,
		Description: "Deep dive into machine learning and AI applications",
	},
}

// Events inserts the sample events unless the events table already has
// rows. Safe to run on every startup.
func Events(ctx context.Context, events EventCreator) error {
	exists, err := events.HasAny(ctx)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if exists {
		slog.Debug("seed skipped, events already present")
		return nil
	}

	for _, e := range sampleEvents {
		if _, err := events.Create(ctx, e); err != nil {
			return fmt.Errorf("seed event %q: %w", e.Name, err)
		}
	}
	slog.Info("seeded sample events", "count", len(sampleEvents))
	return nil
}
