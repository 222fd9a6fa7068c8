package cart

// Mutation helpers over a cart snapshot. None of these mutate their
// input; every call returns a fresh slice so callers can diff old and
// new states safely.

// AddOrIncrement merges by product id. If the product is already in
// the cart its quantity grows by item.Quantity and the existing row
// keeps its price id, even when the new item carries a different one.
// Otherwise the item is appended, preserving the order of everything
// else.
func AddOrIncrement(items []Item, item Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ProductID == item.ProductID {
			out[i].Quantity += item.Quantity
			return out
		}
	}
	return append(out, item)
}

// SetQuantity replaces the quantity of the matching item. A quantity
// of zero or below removes the row entirely. Unknown product ids are
// a no-op.
func SetQuantity(items []Item, productID string, quantity int) []Item {
	if quantity <= 0 {
		return RemoveItem(items, productID)
	}
	out := make([]Item, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ProductID == productID {
			out[i].Quantity = quantity
			break
		}
	}
	return out
}

// RemoveItem excludes the matching item. Removing an absent product
// id returns an equal cart.
func RemoveItem(items []Item, productID string) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item.ProductID == productID {
			continue
		}
		out = append(out, item)
	}
	return out
}

// DecrementOrRemove lowers the matching item's quantity by one,
// dropping the row when it reaches zero.
func DecrementOrRemove(items []Item, productID string) []Item {
	for _, item := range items {
		if item.ProductID == productID {
			return SetQuantity(items, productID, item.Quantity-1)
		}
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// RemovePurchased clears rows whose price ids were confirmed
// purchased by the payment provider.
func RemovePurchased(items []Item, priceIDs []string) []Item {
	if len(priceIDs) == 0 {
		out := make([]Item, len(items))
		copy(out, items)
		return out
	}
	purchased := make(map[string]struct{}, len(priceIDs))
	for _, id := range priceIDs {
		purchased[id] = struct{}{}
	}
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if _, ok := purchased[item.PriceID]; ok {
			continue
		}
		out = append(out, item)
	}
	return out
}
