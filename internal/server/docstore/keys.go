package docstore

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	customerPrefix = "customer_"
	userPrefix     = "user_"
	orderPrefix    = "order_"
	sessionPrefix  = "session::"
	usernamePrefix = "username::"
)

func CustomerKey(custID int64) string { return customerPrefix + strconv.FormatInt(custID, 10) }

func UserKey(userID int64) string { return userPrefix + strconv.FormatInt(userID, 10) }

func OrderKey(orderID int64) string { return orderPrefix + strconv.FormatInt(orderID, 10) }

func SessionKey(sessionID string) string { return sessionPrefix + sessionID }

// UsernameKey names the document that reserves a username.
func UsernameKey(username string) string { return usernamePrefix + username }

// CounterKey names the counter document of an entity class,
// e.g. "storefront-order-counter".
func CounterKey(prefix, class string) string {
	if prefix == "" {
		return fmt.Sprintf("%s-counter", class)
	}
	return fmt.Sprintf("%s-%s-counter", prefix, class)
}

// ParseOrderID accepts either a bare order id ("5001") or an order key
// ("order_5001").
func ParseOrderID(raw string) (int64, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), orderPrefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return id, nil
}
