package model

// カートの明細。RestaurantIDはカートの紐付け先と必ず一致する。
type CartLine struct {
	MenuItemID          int64  `json:"menu_item_id"`
	RestaurantID        int64  `json:"restaurant_id"`
	Name                string `json:"name"`
	Price               int64  `json:"price"`
	Quantity            int64  `json:"quantity"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
}

// 1つのカートは1つのレストランにだけ紐付く
// RestaurantID == 0 は未紐付け（空カート）。
type Cart struct {
	RestaurantID   int64      `json:"restaurant_id"`
	RestaurantName string     `json:"restaurant_name"`
	Items          []CartLine `json:"items"`
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) TotalItems() int64 {
	var n int64
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c Cart) TotalPrice() int64 {
	var total int64
	for _, it := range c.Items {
		total += it.Price * it.Quantity
	}
	return total
}

// Clone は明細スライスを複製したコピーを返す。
func (c Cart) Clone() Cart {
	out := c
	out.Items = make([]CartLine, len(c.Items))
	copy(out.Items, c.Items)
	return out
}

// 別レストランの追加で確認待ちになっている明細
type PendingAddition struct {
	ID                    string   `json:"id"`
	Line                  CartLine `json:"line"`
	RestaurantName        string   `json:"restaurant_name"`
	CurrentRestaurantID   int64    `json:"current_restaurant_id"`
	CurrentRestaurantName string   `json:"current_restaurant_name"`
}
