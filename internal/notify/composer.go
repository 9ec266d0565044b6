// Package notify renders the push notification sent for a taxi request.
package notify

import (
	"strings"
	"time"
	_ "time/tzdata" // the relay must render Damascus time on hosts without a zoneinfo database
)

// Defaults reproduce the Arabic notification read by the dispatch app.
const (
	DefaultTimeZone      = "Asia/Damascus"
	DefaultTimeLayout    = "2\u200f/1\u200f/2006، 3:04:05 PM" // U+200F follows day and month, as ar-SY renders it
	DefaultTitleTemplate = "🚕 طلب سيارة نوع {type}"
	DefaultBodyTemplate  = "الجهاز ذو الرقم {serial} المركب بمكان {location} طلب سيارة {type} في {time}"
)

// Data keys carried in the notification data map.
const (
	KeySerial   = "serial"
	KeyLocation = "location"
	KeyType     = "type"
	KeyTime     = "time"
)

// arabicNumerals converts a rendered Go time into the ar-SY presentation.
var arabicNumerals = strings.NewReplacer(
	"0", "٠", "1", "١", "2", "٢", "3", "٣", "4", "٤",
	"5", "٥", "6", "٦", "7", "٧", "8", "٨", "9", "٩",
	"AM", "ص", "PM", "م",
)

// Request is the device input a notification is derived from.
type Request struct {
	Serial   string
	Location string
	Type     string
}

// Payload is the notification handed to the dispatcher.
type Payload struct {
	Title string
	Body  string
	Data  map[string]string
}

// Config holds configuration for the Composer.
type Config struct {
	// Location is the zone the request time is rendered in.
	// Default: Asia/Damascus
	Location *time.Location

	// TimeLayout is a Go reference-time layout.
	// Default: DefaultTimeLayout
	TimeLayout string

	// ArabicDigits renders digits as Arabic-Indic and AM/PM as ص/م.
	ArabicDigits bool

	// TitleTemplate and BodyTemplate use {serial}, {location}, {type} and {time} placeholders.
	TitleTemplate string
	BodyTemplate  string
}

// DefaultConfig returns the ar-SY rendering.
func DefaultConfig() Config {
	loc, err := time.LoadLocation(DefaultTimeZone)
	if err != nil {
		loc = time.UTC
	}
	return Config{
		Location:      loc,
		TimeLayout:    DefaultTimeLayout,
		ArabicDigits:  true,
		TitleTemplate: DefaultTitleTemplate,
		BodyTemplate:  DefaultBodyTemplate,
	}
}

// Composer builds notification payloads. It is stateless and safe for concurrent use.
type Composer struct {
	cfg Config
}

// NewComposer creates a Composer, filling unset fields from DefaultConfig.
func NewComposer(cfg Config) *Composer {
	def := DefaultConfig()
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.TimeLayout == "" {
		cfg.TimeLayout = def.TimeLayout
	}
	if cfg.TitleTemplate == "" {
		cfg.TitleTemplate = def.TitleTemplate
	}
	if cfg.BodyTemplate == "" {
		cfg.BodyTemplate = def.BodyTemplate
	}
	return &Composer{cfg: cfg}
}

// FormatTime renders t in the configured zone and numeral system.
func (c *Composer) FormatTime(t time.Time) string {
	s := t.In(c.cfg.Location).Format(c.cfg.TimeLayout)
	if c.cfg.ArabicDigits {
		s = arabicNumerals.Replace(s)
	}
	return s
}

// Compose derives the payload for req at instant now.
// Inputs are assumed validated; nothing here rejects.
func (c *Composer) Compose(req Request, now time.Time) Payload {
	rendered := c.FormatTime(now)

	fill := strings.NewReplacer(
		"{serial}", req.Serial,
		"{location}", req.Location,
		"{type}", req.Type,
		"{time}", rendered,
	)

	return Payload{
		Title: fill.Replace(c.cfg.TitleTemplate),
		Body:  fill.Replace(c.cfg.BodyTemplate),
		Data: map[string]string{
			KeySerial:   req.Serial,
			KeyLocation: req.Location,
			KeyType:     req.Type,
			KeyTime:     rendered,
		},
	}
}
