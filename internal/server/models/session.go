package models

import "time"

type Session struct {
	SessionID string    `json:"sessionId"`
	Username  string    `json:"username"`
	DocType   string    `json:"docType"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
