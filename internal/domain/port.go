//go:generate go run go.uber.org/mock/mockgen -source=port.go -destination=../mocks/mock_port.go -package=mocks Authenticator,ProfileRepository,MenuRepository,OrderRepository,ObjectStore

package domain

import "context"

// Authenticator is the hosted authentication provider.
type Authenticator interface {
	// GetCurrentSession validates accessToken with the provider. It returns
	// (nil, nil) when the provider reports no active session for the token.
	GetCurrentSession(ctx context.Context, accessToken string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Registration, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Registration is the result of a sign-up. Session is nil when the provider
// requires a confirmation step before issuing one.
type Registration struct {
	UserID  string
	Session *Session
}

// ProfileRepository reads and writes the profiles collection.
type ProfileRepository interface {
	GetProfile(ctx context.Context, id string) (*Profile, error)
	UpsertProfile(ctx context.Context, profile Profile) error
}

// MenuRepository reads and writes the menu_items collection.
type MenuRepository interface {
	ListItems(ctx context.Context, onlyAvailable bool) ([]MenuItem, error)
	GetItem(ctx context.Context, id string) (*MenuItem, error)
	CreateItem(ctx context.Context, in ItemInput) (*MenuItem, error)
	UpdateItem(ctx context.Context, id string, in ItemInput) (*MenuItem, error)
	DeleteItem(ctx context.Context, id string) error
	ToggleAvailability(ctx context.Context, id string) (*MenuItem, error)
}

// OrderRepository reads and writes the orders collection.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order Order) (*Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]Order, error)
	// ListOrders returns every order joined with its customer name; an empty
	// status returns all statuses.
	ListOrders(ctx context.Context, status OrderStatus) ([]Order, error)
	// UpdateStatus moves an order from one status to another. It fails with
	// ErrInvalidTransition when the order is no longer in from.
	UpdateStatus(ctx context.Context, id string, from, to OrderStatus) error
}

// ObjectStore uploads binary objects and returns their public URL.
type ObjectStore interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
}

// ChangeType is the kind of a change-feed event.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent is a row mutation pushed by the change feed. It carries the
// row key only; pg_notify payloads are capped below 8000 bytes.
type ChangeEvent struct {
	Table string     `json:"table"`
	Type  ChangeType `json:"type"`
	ID    string     `json:"id,omitempty"`
}

// ChangeFeed delivers row mutations for the subscribed tables.
type ChangeFeed interface {
	Subscribe(fn func(ChangeEvent)) (unsubscribe func())
}

// SessionNotifier is the session-change notification stream.
type SessionNotifier interface {
	Subscribe(deviceID string, fn func(SessionEvent, *Session)) (unsubscribe func())
	Publish(deviceID string, event SessionEvent, session *Session)
}

// DeviceStorage is the advisory, device-local persistence of session, profile and
// cart. Load methods report a miss for absent or malformed entries.
type DeviceStorage interface {
	LoadSession(ctx context.Context) (*Session, bool)
	SaveSession(ctx context.Context, session *Session) error
	ClearSession(ctx context.Context) error
	LoadProfile(ctx context.Context) (*Profile, bool)
	SaveProfile(ctx context.Context, profile *Profile) error
	ClearProfile(ctx context.Context) error
	LoadCart(ctx context.Context) Cart
	SaveCart(ctx context.Context, cart Cart) error
	// Clear removes the session, profile and cart entries.
	Clear(ctx context.Context) error
}
