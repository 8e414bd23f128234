package ws

import (
	"net/url"
	"strings"
)

// ObserverPath is the reserved dashboard endpoint, checked before station
// identity resolution.
const ObserverPath = "/ws/ui"

// StationIdentity is the result of resolving a connecting URL.
type StationIdentity struct {
	StationID string
	// Version is the protocol version segment embedded in the path, when
	// the /ocpp/{version}/{id} shape was used. Empty otherwise.
	Version string
}

// ResolveStationIdentity extracts a station id from the connection URL.
// Accepted shapes, in priority order: /{id}, /ocpp/{id}, /ocpp/{version}/{id},
// then a stationId query parameter as fallback.
func ResolveStationIdentity(u *url.URL) (StationIdentity, bool) {
	var id StationIdentity

	parts := splitPath(u.Path)
	switch {
	case len(parts) == 1:
		id.StationID = parts[0]
	case len(parts) == 2 && parts[0] == "ocpp":
		id.StationID = parts[1]
	case len(parts) == 3 && parts[0] == "ocpp":
		id.Version = parts[1]
		id.StationID = parts[2]
	}

	if id.StationID == "" {
		id.StationID = u.Query().Get("stationId")
	}

	return id, id.StationID != ""
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
