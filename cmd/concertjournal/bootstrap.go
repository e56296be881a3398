package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"concertjournal/internal/app/concerts"
	"concertjournal/internal/models"
)

// seedDemoConcerts fills an empty journal with a few sample entries and
// reports how many were added.
func seedDemoConcerts(ctx context.Context, svc concerts.Service) (int, error) {
	count, err := svc.Count(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("count concerts: %w", err)
	}
	if count > 0 {
		log.Info().Int("concerts", count).Msg("journal not empty, skipping demo data")
		return 0, nil
	}

	day := func(y int, m time.Month, d int) *time.Time {
		t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &t
	}

	demo := []models.Concert{
		{
			EventTitle: "Rock im Park",
			Performers: []string{"Metallica", "Ghost", "Mammoth WVH"},
			Venue:      "Zeppelinfeld",
			Country:    "Germany",
			City:       "Nuremberg",
			Date:       day(2022, time.June, 4),
			Rating:     5,
			Notes:      "Rain all day, worth it.",
		},
		{
			EventTitle: "Tuska Open Air",
			Performers: []string{"Ghost", "Nightwish"},
			Venue:      "Suvilahti",
			Country:    "Finland",
			City:       "Helsinki",
			Date:       day(2023, time.June, 30),
			Rating:     4.5,
		},
		{
			EventTitle: "Arena Tour",
			Performers: []string{"Nightwish"},
			Venue:      "Saku Suurhall",
			Country:    "Estonia",
			City:       "Tallinn",
			Date:       day(2023, time.November, 18),
			Rating:     4,
		},
		{
			EventTitle: "Club Night",
			Performers: []string{"Local Openers"},
			Venue:      "Tapper",
			Country:    "Estonia",
			City:       "Tallinn",
			Notes:      "Forgot to write down the date.",
		},
	}

	saved, err := svc.SaveBatch(ctx, demo)
	if err != nil {
		return saved, fmt.Errorf("seed demo concerts: %w", err)
	}
	return saved, nil
}
