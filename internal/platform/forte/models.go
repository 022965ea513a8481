package forte

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID accepts both JSON numbers and strings; the backend is not consistent.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Flag accepts 0/1 integers, booleans and numeric strings.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null", "false", "0", `"0"`, `""`, `"false"`:
		*f = false
		return nil
	case "true", "1", `"1"`, `"true"`:
		*f = true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		data = []byte(s)
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("flag: unexpected value %s", data)
	}
	*f = n != 0
	return nil
}

// User is a backend account, optionally linked to a Discord account.
type User struct {
	ID        ID      `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Points    int64   `json:"points"`
	CreatedAt string  `json:"created_at"`
	DeletedAt *string `json:"deleted_at"`
}

// Deleted reports a soft-deleted account; such users are rejected from all flows.
func (u *User) Deleted() bool { return u.DeletedAt != nil }

// ItemMeta is the catalog entry a purchase refers to.
type ItemMeta struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Item is one purchase record owned by a user.
type Item struct {
	ID       ID       `json:"id"`
	UserID   ID       `json:"user_id"`
	ItemID   ID       `json:"item_id"`
	Price    int64    `json:"price"`
	Expired  Flag     `json:"expired"`
	Consumed Flag     `json:"consumed"`
	Sync     Flag     `json:"sync"`
	Item     ItemMeta `json:"item"`
}

// Name falls back to the item type id when the backend omits the metadata.
func (i Item) Name() string {
	if i.Item.Name != "" {
		return i.Item.Name
	}
	return "#" + i.ItemID.String()
}

// Attendance is the per-user check-in record.
type Attendance struct {
	KeyCount *int   `json:"key_count"`
	Status   string `json:"status"`
	Diff     any    `json:"diff"`
	Error    any    `json:"error"`
}

// DiffText renders the remaining cooldown the backend reported.
func (a *Attendance) DiffText() string {
	if a.Diff == nil {
		return ""
	}
	return fmt.Sprint(a.Diff)
}

// Declares reports whether the backend flagged the body itself as an error.
func (a *Attendance) Declares() bool {
	switch v := a.Error.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	default:
		return true
	}
}

// UnpackResult is the award of a box opening.
type UnpackResult struct {
	Point    int `json:"point"`
	KeyCount int `json:"key_count"`
}

type receiptResponse struct {
	ReceiptID ID `json:"receipt_id"`
}

type tokenResponse struct {
	Token string `json:"token"`
}
