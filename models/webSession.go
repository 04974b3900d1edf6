package models

import (
	"time"

	"bitbucket.org/mmdatafocus/books_synth/utils"
)

// WebSession is loosely tied to orders: a conversion session shares the
// customer and the day of an online order, nothing more.
type WebSession struct {
	SessionId         string
	CustomerId        string
	CountryCode       string
	Device            Device
	TrafficSource     TrafficSource
	PageViews         int
	SessionStart      time.Time
	ConversionSession bool
	OrderRef          string
}

func (s WebSession) Columns() []string {
	return []string{"session_id", "customer_id", "country_code", "device", "traffic_source", "page_views", "session_start", "conversion_session", "order_ref"}
}

func (s WebSession) Values() []string {
	return []string{
		s.SessionId,
		s.CustomerId,
		s.CountryCode,
		string(s.Device),
		string(s.TrafficSource),
		utils.FormatInt(s.PageViews),
		utils.FormatTimestamp(s.SessionStart),
		utils.FormatBool(s.ConversionSession),
		s.OrderRef,
	}
}
