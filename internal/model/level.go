package model

import "fmt"

// Level is the fifty-percent reference price: the midpoint of the previous period's range.
// The zero value is the undefined level.
type Level struct {
	Price float64
	Valid bool
}

// UndefinedLevel is returned when fewer than two periods are available.
var UndefinedLevel = Level{}

// NewLevel returns a defined level at price.
func NewLevel(price float64) Level {
	return Level{Price: price, Valid: true}
}

// Defined reports whether the level may be used as a price.
func (l Level) Defined() bool { return l.Valid }

// Float returns the price, or 0 for the undefined level.
func (l Level) Float() float64 {
	if !l.Valid {
		return 0
	}
	return l.Price
}

func (l Level) String() string {
	if !l.Valid {
		return "undefined"
	}
	return fmt.Sprintf("%.4f", l.Price)
}
