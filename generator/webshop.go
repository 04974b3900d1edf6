package generator

import (
	"math/rand/v2"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/utils"
)

// generateWebSessions emits one conversion session per online order (same
// customer, same day, shortly before the order) and fills the rest of count
// with browsing sessions. When count is below the number of orders only the
// conversion sessions are emitted.
func (g *Generator) generateWebSessions(rng *rand.Rand, count int, in *Tables) ([]models.WebSession, error) {
	browsing := count - len(in.Orders)
	if browsing < 0 {
		browsing = 0
	}
	total := len(in.Orders) + browsing
	if total == 0 {
		return []models.WebSession{}, nil
	}

	logins := Allocation(rng, browsing, g.weights(config.WeightSessionLogin))
	if browsing > 0 && len(in.Customers) == 0 {
		// anonymous traffic only
		for i := range logins {
			logins[i] = config.SessionAnonymous
		}
	}
	devices := Allocation(rng, total, g.weights(config.WeightDevice))
	sources := Allocation(rng, total, g.weights(config.WeightTrafficSource))
	countryWeights := g.weights(config.WeightCountry)
	opts := g.cfg.Webshop

	sessions := make([]models.WebSession, 0, total)
	for i := 0; i < total; i++ {
		device, err := models.ParseDevice(devices[i])
		if err != nil {
			return nil, models.NewConfigurationError("distribution_weights.device", devices[i], err)
		}
		source, err := models.ParseTrafficSource(sources[i])
		if err != nil {
			return nil, models.NewConfigurationError("distribution_weights.traffic_source", sources[i], err)
		}
		s := models.WebSession{
			Device:        device,
			TrafficSource: source,
			PageViews:     IntBetween(rng, opts.PageViewsMin, opts.PageViewsMax),
		}
		if i < len(in.Orders) {
			order := in.Orders[i]
			s.CustomerId = order.CustomerId
			s.CountryCode = order.CountryCode
			s.ConversionSession = true
			s.OrderRef = order.OrderId
			s.SessionStart = sessionStartBefore(rng, order.OrderDate)
		} else {
			if logins[i-len(in.Orders)] == config.SessionLoggedIn {
				customer := pick(rng, in.Customers)
				s.CustomerId = customer.CustomerId
				s.CountryCode = customer.CountryCode
			} else {
				s.CountryCode = Categorical(rng, countryWeights)
			}
			s.SessionStart = TimeBetweenHours(rng, rngDateInRange(rng, g.cfg), 0, 24)
		}
		sessions = append(sessions, s)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].SessionStart.Before(sessions[j].SessionStart)
	})
	for i := range sessions {
		id, _, err := g.nextId(models.TableWebSessions)
		if err != nil {
			return nil, err
		}
		sessions[i].SessionId = id
	}
	return sessions, nil
}

// sessionStartBefore starts a session up to an hour before at, without
// leaving at's calendar day.
func sessionStartBefore(rng *rand.Rand, at time.Time) time.Time {
	start := at.Add(-time.Duration(rng.IntN(3600)) * time.Second)
	if day := utils.TruncateDay(at); start.Before(day) {
		return day
	}
	return start
}
