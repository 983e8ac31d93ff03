package model

import (
	"fmt"
	"strings"
)

// Variant selects which rule evaluator a check uses.
type Variant string

const (
	// VariantSignal is the stateless boolean evaluator.
	VariantSignal Variant = "signal"
	// VariantDirection is the directional state-machine evaluator.
	VariantDirection Variant = "direction"
)

// ParseVariant parses a variant name.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "signal", "bool", "boolean":
		return VariantSignal, nil
	case "direction", "directional", "dir":
		return VariantDirection, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVariant, s)
	}
}

// Direction is the outcome of the directional evaluator.
type Direction string

const (
	DirectionNone Direction = "none"
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Truthy reports whether the direction carries a signal.
func (d Direction) Truthy() bool {
	return d == DirectionUp || d == DirectionDown
}

// Check is one (variant, granularity) pair requested for every ticker.
type Check struct {
	Variant     Variant
	Granularity Granularity
}

// ParseCheck parses "variant:granularity", e.g. "signal:weekly".
func ParseCheck(s string) (Check, error) {
	v, g, ok := strings.Cut(s, ":")
	if !ok {
		return Check{}, fmt.Errorf("check %q: expected variant:granularity", s)
	}
	variant, err := ParseVariant(v)
	if err != nil {
		return Check{}, err
	}
	gran, err := ParseGranularity(g)
	if err != nil {
		return Check{}, err
	}
	return Check{Variant: variant, Granularity: gran}, nil
}

// Validate rejects combinations no evaluator supports.
func (c Check) Validate() error {
	switch c.Variant {
	case VariantSignal:
		if !c.Granularity.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidGranularity, c.Granularity)
		}
	case VariantDirection:
		// The directional scan needs daily bars inside a coarser period.
		if c.Granularity != Weekly && c.Granularity != Monthly {
			return fmt.Errorf("%w: %q for direction variant", ErrInvalidGranularity, c.Granularity)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidVariant, c.Variant)
	}
	return nil
}

func (c Check) String() string { return string(c.Variant) + ":" + string(c.Granularity) }

// Outcome is the result of evaluating one check for one ticker.
type Outcome struct {
	Symbol    string
	Check     Check
	Level     Level
	Signal    bool
	Direction Direction
	Err       error
}

// Truthy reports whether the outcome should appear in a report.
func (o Outcome) Truthy() bool {
	if o.Check.Variant == VariantDirection {
		return o.Direction.Truthy()
	}
	return o.Signal
}
