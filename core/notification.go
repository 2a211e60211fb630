package core

// NotificationCategory is the severity of a notification
type NotificationCategory string

const (
	NotificationInfo    NotificationCategory = "info"
	NotificationSuccess NotificationCategory = "success"
	NotificationError   NotificationCategory = "error"
)

// Notification is a transient status message tied to an in-flight operation
type Notification struct {
	ID          int64                `json:"id"`
	Category    NotificationCategory `json:"type"`
	Text        string               `json:"text"`
	Signature   string               `json:"signature,omitempty"`
	ExplorerURL string               `json:"explorerUrl,omitempty"`
}

// NotificationPatch carries the fields to overwrite on an existing notification
type NotificationPatch struct {
	Category    *NotificationCategory
	Text        *string
	Signature   *string
	ExplorerURL *string
}
