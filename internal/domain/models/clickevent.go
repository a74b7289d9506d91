// internal/domain/models/clickevent.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Register-button locations tracked on the landing page.
const (
	ButtonHeroRegister          = "hero_register"
	ButtonNavbarRegisterDesktop = "navbar_register_desktop"
	ButtonNavbarRegisterMobile  = "navbar_register_mobile"
)

// ButtonTypes is the canonical list, reused by the collection validator.
var ButtonTypes = []string{
	ButtonHeroRegister,
	ButtonNavbarRegisterDesktop,
	ButtonNavbarRegisterMobile,
}

// ClickEvent records one click on a register button. The caller's IP is
// kept only as a keyed hash.
type ClickEvent struct {
	ID         primitive.ObjectID `bson:"_id"`
	ButtonType string             `bson:"button_type"`
	UserAgent  string             `bson:"user_agent"`
	IPHash     string             `bson:"ip_hash"`
	Referrer   string             `bson:"referrer"`
	CreatedAt  time.Time          `bson:"created_at"`
}
