package service

import (
	"fmt"

	"github.com/memalihaider/umttechverse02-sub001/internal/config"
	"github.com/memalihaider/umttechverse02-sub001/internal/identity"
	"github.com/memalihaider/umttechverse02-sub001/internal/phase"
	"github.com/memalihaider/umttechverse02-sub001/internal/track"
)

// Options carries the event rules into the services
type Options struct {
	UniqueID           identity.Config
	AccessCode         identity.Config
	Phases             *phase.Machine
	Track              track.Matcher
	MaxSubScore        float64
	LeaderboardDefault int
	LeaderboardMax     int
	WipeConfirmation   string
	PortalURL          string
}

// OptionsFromConfig builds Options from loaded configuration
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	phases, err := phase.NewMachine(cfg.Event.Phases)
	if err != nil {
		return Options{}, fmt.Errorf("invalid EVENT_PHASES: %w", err)
	}

	matcher, err := track.New(cfg.Event.TrackMatchMode, cfg.Event.TrackPhrase, cfg.Event.TrackPattern)
	if err != nil {
		return Options{}, err
	}

	return Options{
		UniqueID: identity.Config{
			Prefix:      cfg.Event.UniqueIDPrefix,
			Alphabet:    cfg.Event.UniqueIDAlphabet,
			Length:      cfg.Event.UniqueIDLength,
			MaxAttempts: cfg.Event.MaxAttempts,
		},
		AccessCode: identity.Config{
			Alphabet:    cfg.Event.AccessCodeAlphabet,
			Length:      cfg.Event.AccessCodeLength,
			MaxAttempts: cfg.Event.MaxAttempts,
		},
		Phases:             phases,
		Track:              matcher,
		MaxSubScore:        cfg.Event.MaxSubScore,
		LeaderboardDefault: cfg.Event.LeaderboardDefault,
		LeaderboardMax:     cfg.Event.LeaderboardMax,
		WipeConfirmation:   cfg.App.WipeConfirmation,
		PortalURL:          cfg.Email.PortalURL,
	}, nil
}

// DefaultOptions returns the stock event rules
func DefaultOptions() Options {
	phases, _ := phase.NewMachine(phase.DefaultOrder)
	return Options{
		UniqueID:           identity.Config{Prefix: "TV"},
		AccessCode:         identity.Config{Length: 8},
		Phases:             phases,
		Track:              track.NewPhraseMatcher("innovation challenge"),
		MaxSubScore:        20,
		LeaderboardDefault: 50,
		LeaderboardMax:     500,
		WipeConfirmation:   "DELETE ALL DATA",
	}
}

func (o Options) leaderboardLimit(limit int) int {
	if limit <= 0 {
		return o.LeaderboardDefault
	}
	if limit > o.LeaderboardMax {
		return o.LeaderboardMax
	}
	return limit
}
