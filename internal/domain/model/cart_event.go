package model

import "time"

// カート操作の種類
type CartAction string

const (
	CartActionItemAdded       CartAction = "ITEM_ADDED"
	CartActionSwitchRequested CartAction = "SWITCH_REQUESTED"
	CartActionSwitchConfirmed CartAction = "SWITCH_CONFIRMED"
	CartActionSwitchCanceled  CartAction = "SWITCH_CANCELED"
	CartActionItemRemoved     CartAction = "ITEM_REMOVED"
	CartActionQuantityUpdated CartAction = "QUANTITY_UPDATED"
	CartActionCleared         CartAction = "CLEARED"
)

// カート操作ログ。
// 「誰が」「どのレストランの」「何を」「どう変えたか」を残す。
type CartEvent struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	UserID int64 `gorm:"not null;index" json:"user_id"`

	Action CartAction `gorm:"type:varchar(50);not null;index" json:"action"`

	RestaurantID int64 `gorm:"not null;index" json:"restaurant_id"`

	//明細単位の操作のときだけ入る
	MenuItemID int64 `gorm:"not null;default:0" json:"menu_item_id"`
	Quantity   int64 `gorm:"not null;default:0" json:"quantity"`

	PendingID string `gorm:"type:varchar(36)" json:"pending_id,omitempty"`

	//操作後のカート（JSON文字列）
	CartJSON string `gorm:"type:text" json:"cart_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
