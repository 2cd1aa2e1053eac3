package models

import "time"

// PresignedURLInfo is the result handed back to the requesting user: a
// time-limited download URL and the moment it stops working.
type PresignedURLInfo struct {
	URL            string
	ExpirationTime time.Time
}
