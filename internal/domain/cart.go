package domain

// CartLine is one entry of a device-local shopping cart.
type CartLine struct {
	ItemID string  `json:"id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Qty    int     `json:"qty"`
}

// Cart is the ordered list of cart lines.
type Cart []CartLine

// Total returns the sum of price times quantity.
func (c Cart) Total() float64 {
	var total float64
	for _, line := range c {
		total += line.Price * float64(line.Qty)
	}
	return total
}

// Add increments the quantity of item, appending it when absent.
func (c Cart) Add(item MenuItem) Cart {
	for i := range c {
		if c[i].ItemID == item.ID {
			c[i].Qty++
			return c
		}
	}
	return append(c, CartLine{ItemID: item.ID, Name: item.Name, Price: item.Price, Qty: 1})
}

// ChangeQty adjusts the quantity of itemID by delta, never below one.
func (c Cart) ChangeQty(itemID string, delta int) (Cart, bool) {
	for i := range c {
		if c[i].ItemID == itemID {
			c[i].Qty = max(1, c[i].Qty+delta)
			return c, true
		}
	}
	return c, false
}

// Remove drops the line for itemID.
func (c Cart) Remove(itemID string) (Cart, bool) {
	out := make(Cart, 0, len(c))
	found := false
	for _, line := range c {
		if line.ItemID == itemID {
			found = true
			continue
		}
		out = append(out, line)
	}
	return out, found
}

// Lines converts the cart into order lines.
func (c Cart) Lines() []OrderLine {
	lines := make([]OrderLine, len(c))
	for i, l := range c {
		lines[i] = OrderLine{ItemID: l.ItemID, Name: l.Name, Price: l.Price, Qty: l.Qty}
	}
	return lines
}
