package models

import "time"

// User represents a member of the community.
type User struct {
	Coins      int       `json:"coins"`              // Coin balance, never negative
	InviteCode string    `json:"invite_code"`        // Stable referral token, unique across users
	Invited    int       `json:"invited"`            // How many new users redeemed this code
	Blocked    bool      `json:"blocked"`            // Reserved for moderation
	Username   string    `json:"username,omitempty"` // Telegram handle, may be empty
	Name       string    `json:"name,omitempty"`     // Full name, may be empty
	JoinedAt   time.Time `json:"joined_at"`
}

// DisplayName returns a name safe to show to other users: the handle if set,
// the full name otherwise, and an invite-code placeholder as a last resort.
func (u *User) DisplayName() string {
	switch {
	case u.Username != "":
		return "@" + u.Username
	case u.Name != "":
		return u.Name
	default:
		return "User-" + u.InviteCode
	}
}

// Admin is a user granted moderation rights by the main admin.
type Admin struct {
	Name     string    `json:"name"`
	Date     time.Time `json:"date"`     // When the grant happened
	Activity int       `json:"activity"` // Moderation decisions taken
}

// AdminRequest is a pending promotion request, consumed on approve/reject.
type AdminRequest struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// Category identifies one of the moderated content queues.
type Category string

const (
	CategoryComment     Category = "comment"
	CategoryCrashReport Category = "crash"
	CategoryConfession  Category = "confession"
)

// ModerationItem is a unit of submitted content awaiting an admin decision.
type ModerationItem struct {
	From       string    `json:"from"` // Author id; visible to admins only
	Text       string    `json:"text"`
	Date       time.Time `json:"date"`
	Processed  bool      `json:"processed"`
	Approved   bool      `json:"approved"`
	ResolvedBy string    `json:"resolved_by,omitempty"` // Admin who decided
}

// CoinRequest is a user's plea for free coins. At most one unprocessed
// request per user exists at a time.
type CoinRequest struct {
	Name       string    `json:"name"`
	Date       time.Time `json:"date"`
	Processed  bool      `json:"processed"`
	Approved   bool      `json:"approved"`
	ResolvedBy string    `json:"resolved_by,omitempty"`
}

// CrushMessage is a paid anonymous direct message, threadable via one reply.
type CrushMessage struct {
	ID          string     `json:"id"`
	From        string     `json:"from"`
	FromName    string     `json:"from_name"`
	To          string     `json:"to"`
	ToName      string     `json:"to_name"`
	Text        string     `json:"text"`
	Date        time.Time  `json:"date"`
	Replied     bool       `json:"replied"`
	ReplyText   string     `json:"reply_text,omitempty"`
	ReplyTime   *time.Time `json:"reply_time,omitempty"`
	DeliveryRef int        `json:"delivery_ref,omitempty"` // Telegram message id of the delivered copy
}

// HistoryEntry records an inbound message or reply event for a recipient.
type HistoryEntry struct {
	MessageID string    `json:"id,omitempty"` // CrushMessage id this event belongs to
	From      string    `json:"from"`
	Text      string    `json:"text"`
	Time      time.Time `json:"time"`
	IsReply   bool      `json:"is_reply,omitempty"`
}

// Accounts is the identity/economy aggregate, persisted as one document.
type Accounts struct {
	MainAdmin      string                    `json:"main_admin,omitempty"`
	Admins         map[string]*Admin         `json:"admins"`
	AdminRequests  map[string]*AdminRequest  `json:"admin_requests"`
	Users          map[string]*User          `json:"users"`
	CoinRequests   map[string]*CoinRequest   `json:"coin_requests"`
	MessageHistory map[string][]HistoryEntry `json:"message_history"`
}

// NewAccounts returns an empty accounts document with all maps allocated.
func NewAccounts() *Accounts {
	return &Accounts{
		Admins:         make(map[string]*Admin),
		AdminRequests:  make(map[string]*AdminRequest),
		Users:          make(map[string]*User),
		CoinRequests:   make(map[string]*CoinRequest),
		MessageHistory: make(map[string][]HistoryEntry),
	}
}

// Content is the submitted-content aggregate, persisted as one document.
type Content struct {
	CrushMessages []*CrushMessage   `json:"crush_messages"`
	Comments      []*ModerationItem `json:"comments"`
	Confessions   []*ModerationItem `json:"confessions"`
	CrashReports  []*ModerationItem `json:"crash_reports"`
}

// Queue returns a pointer to the moderation list for a category so callers
// can append in place. Unknown categories return nil.
func (c *Content) Queue(cat Category) *[]*ModerationItem {
	switch cat {
	case CategoryComment:
		return &c.Comments
	case CategoryCrashReport:
		return &c.CrashReports
	case CategoryConfession:
		return &c.Confessions
	}
	return nil
}
