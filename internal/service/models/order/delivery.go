package order

import "strings"

// DeliveryService tags an order with the courier platform it came from.
// The empty value means dine-in or unspecified.
type DeliveryService string

const (
	DeliveryNone    DeliveryService = ""
	DeliveryFoodora DeliveryService = "foodora"
	DeliveryWolt    DeliveryService = "wolt"
	DeliveryBolt    DeliveryService = "bolt"
)

// deliveryPriority is the match order; the first hit wins.
var deliveryPriority = []DeliveryService{DeliveryFoodora, DeliveryWolt, DeliveryBolt}

func (d DeliveryService) String() string {
	return string(d)
}

// DeriveDeliveryService matches the order note case-insensitively against known platforms.
func DeriveDeliveryService(note string) DeliveryService {
	lower := strings.ToLower(note)
	for _, d := range deliveryPriority {
		if strings.Contains(lower, string(d)) {
			return d
		}
	}

	return DeliveryNone
}
