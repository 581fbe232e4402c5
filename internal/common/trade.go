package common

import "fmt"

// Trade is a diagnostic record of one fill produced by the matcher (spec
// §4.3). Trade price is always the resting (maker) order's level price.
type Trade struct {
	Price       Price
	Quantity    int32
	AggressorID uint64
	RestingID   uint64
}

func (t Trade) String() string {
	return fmt.Sprintf("trade price=%.6f qty=%d aggressor=%d resting=%d",
		t.Price.Float(), t.Quantity, t.AggressorID, t.RestingID)
}
