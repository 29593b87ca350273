package models

// User holds login credentials, stored under user_<userId>. Password is the
// bcrypt hash and is cleared before a User leaves the service layer.
type User struct {
	DocType  string `json:"docType"`
	ID       string `json:"_id"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// UserInfo is the result of the user/customer lookup by username.
type UserInfo struct {
	CustID       int64
	UserID       int64
	Username     string
	PasswordHash string
}

// Account is returned by registration.
type Account struct {
	CustomerInfo *Customer `json:"customerInfo"`
	UserInfo     *User     `json:"userInfo"`
}

// LoginUser is the public part of a logged-in user, including the bearer token.
type LoginUser struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Login is returned by a successful login or session verification.
type Login struct {
	UserInfo     LoginUser `json:"userInfo"`
	CustomerInfo *Customer `json:"customerInfo"`
}
