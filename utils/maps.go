package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// PointURL builds a Google Maps link for an exact coordinate, used to
// inspect where a delivery proof was signed.
func PointURL(lat, lng float64) string {
	return fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%f,%f", lat, lng)
}

// GoogleMapsURL builds a navigation link from a free-form address. The
// zip is appended when present since Brazilian addresses geocode much
// better with the CEP.
func GoogleMapsURL(address, zip string) string {
	return "https://www.google.com/maps/dir/?api=1&destination=" + url.QueryEscape(destinationQuery(address, zip))
}

// WazeURL builds the equivalent Waze deep link.
func WazeURL(address, zip string) string {
	return "https://waze.com/ul?navigate=yes&q=" + url.QueryEscape(destinationQuery(address, zip))
}

func destinationQuery(address, zip string) string {
	address = strings.TrimSpace(address)
	zip = strings.TrimSpace(zip)
	if zip == "" {
		return address
	}
	if address == "" {
		return zip
	}
	return address + ", " + zip
}
