package redisx

import "time"

const (
	// Authenticated cart: hash carts_{user_id} sku_id -> quantity
	KeyCart = "carts_%d"

	// Selection markers: set selected_{user_id} of sku_ids
	KeyCartSelected = "selected_%d"

	// Login session: session:{session_id} -> user_id
	KeySession = "session:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var TTLDedup = 48 * time.Hour
