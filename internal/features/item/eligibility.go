package item

import "lara-bot/internal/platform/forte"

// Refundable reports whether a purchase can still be refunded: it is live,
// unused, not synced to a game, was paid for, and its type is not excluded.
func Refundable(it forte.Item, excluded func(itemID string) bool) bool {
	if it.Expired || it.Consumed || it.Sync {
		return false
	}
	if it.Price == 0 {
		return false
	}
	if excluded != nil && excluded(it.ItemID.String()) {
		return false
	}
	return true
}

// FilterRefundable keeps the refundable items in input order.
func FilterRefundable(items []forte.Item, excluded func(itemID string) bool) []forte.Item {
	out := make([]forte.Item, 0, len(items))
	for _, it := range items {
		if Refundable(it, excluded) {
			out = append(out, it)
		}
	}
	return out
}

// Find returns the item with the given record id.
func Find(items []forte.Item, id forte.ID) (forte.Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return forte.Item{}, false
}

// ExcludedSet builds an exclusion predicate from a list of item type ids.
func ExcludedSet(ids []string) func(string) bool {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(itemID string) bool {
		_, ok := set[itemID]
		return ok
	}
}
