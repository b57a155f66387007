package domain

// Owner is the identity a cart belongs to: a registered user, a guest
// session, or both while a guest cart is being handed over.
type Owner struct {
	UserID  UserID  `bson:"user_id,omitempty" json:"user_id,omitempty"`
	GuestID GuestID `bson:"guest_id,omitempty" json:"guest_id,omitempty"`
}

func UserOwner(id UserID) Owner   { return Owner{UserID: id} }
func GuestOwner(id GuestID) Owner { return Owner{GuestID: id} }

func (o Owner) Validate() error {
	if o.UserID == "" && o.GuestID == "" {
		return ErrInvalidOwner
	}
	return nil
}

func (o Owner) IsGuest() bool {
	return o.UserID == ""
}

// Key is a stable string for cache keys and request coalescing. A user id
// wins over a guest id.
func (o Owner) Key() string {
	if o.UserID != "" {
		return "user:" + string(o.UserID)
	}
	return "guest:" + string(o.GuestID)
}
