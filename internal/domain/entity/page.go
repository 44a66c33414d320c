package entity

import "time"

// PageSnapshot is the rendered markup of a navigated page.
type PageSnapshot struct {
	URL        string
	HTML       string
	Screenshot string
	CapturedAt time.Time
}

type Screenshot struct {
	Data   []byte
	Format string
	Width  int
	Height int
}
