// FilePath: internal/models/models.record.go
package models

import "time"

// Record is a single telemetry reading. Append-only: never updated or
// deleted. ID is the insertion sequence and serves as the deterministic
// tie-break when two records share a timestamp.
type Record struct {
	ID            int64     `json:"id" db:"id"`
	DeviceID      string    `json:"device_id" db:"device_id"`
	Temperature   float64   `json:"temperature" db:"temperature"`
	Humidity      float64   `json:"humidity" db:"humidity"`
	Radioactivity float64   `json:"radioactivity" db:"radioactivity"`
	PM25          float64   `json:"pm25" db:"pm25"`
	PM10          float64   `json:"pm10" db:"pm10"`
	Noisiness     float64   `json:"noisiness" db:"noisiness"`
	Time          time.Time `json:"time" db:"time"`
}

// DeviceSnapshot is one row of the freshness query: a device's coordinates
// joined with its most recent record.
type DeviceSnapshot struct {
	Lon           float64 `json:"lon" db:"lon"`
	Lat           float64 `json:"lat" db:"lat"`
	Temperature   float64 `json:"temperature" db:"temperature"`
	Humidity      float64 `json:"humidity" db:"humidity"`
	Radioactivity float64 `json:"radioactivity" db:"radioactivity"`
	PM25          float64 `json:"pm25" db:"pm25"`
	PM10          float64 `json:"pm10" db:"pm10"`
	Noisiness     float64 `json:"noisiness" db:"noisiness"`
}
