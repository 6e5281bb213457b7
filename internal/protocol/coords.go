package protocol

import "math"

// Coordinate is a single axis position in degrees/minutes/seconds with a
// hemisphere letter, the form the instrument expects on the wire.
type Coordinate struct {
	Degrees    int
	Minutes    int
	Seconds    float64
	Hemisphere string // N/S for latitude, E/W for longitude
}

// LongitudeDMS converts a decimal-degrees longitude to the wire form.
// Negative values are west.
func LongitudeDMS(decimal float64) Coordinate {
	return toDMS(decimal, "E", "W")
}

// LatitudeDMS converts a decimal-degrees latitude to the wire form.
// Negative values are south.
func LatitudeDMS(decimal float64) Coordinate {
	return toDMS(decimal, "N", "S")
}

func toDMS(decimal float64, positive, negative string) Coordinate {
	hem := positive
	if decimal < 0 {
		hem = negative
		decimal = -decimal
	}
	deg := int(decimal)
	rem := (decimal - float64(deg)) * 60
	min := int(rem)
	sec := (rem - float64(min)) * 60
	// Guard against 59.999999 rounding up into the next minute.
	sec = math.Round(sec*1000) / 1000
	if sec >= 60 {
		sec -= 60
		min++
	}
	if min >= 60 {
		min -= 60
		deg++
	}
	return Coordinate{Degrees: deg, Minutes: min, Seconds: sec, Hemisphere: hem}
}

// Decimal converts the coordinate back to signed decimal degrees.
func (c Coordinate) Decimal() float64 {
	dec := float64(c.Degrees) + float64(c.Minutes)/60 + c.Seconds/3600
	if c.Hemisphere == "W" || c.Hemisphere == "S" {
		dec = -dec
	}
	return dec
}
