package ssosession

import (
	"github.com/learnpath/cert-portal/pkg/sessionstore"
)

// Entitlement permission tags returned by the auth backend.
const (
	PermSubscribed        = "subscribed"
	PermCanBuy            = "can_buy_subscription"
	PermCancelled         = "cancelled_subscription"
	PermExpired           = "expired_subscription"
	PermGroupSubscription = "group_subscription"
)

func hasPerm(permissions []string, perm string) bool {
	for _, p := range permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// GetUserType classifies a permission set into a subscription tier. The
// rules are evaluated in order and the first match wins:
// expired, then the trial combination (subscribed + cancelled + can-buy all
// present), then cancelled, then subscribed, then can-buy, default New.
func GetUserType(permissions []string) sessionstore.UserType {
	switch {
	case hasPerm(permissions, PermExpired):
		return sessionstore.UserTypeExpired
	case hasPerm(permissions, PermSubscribed) &&
		hasPerm(permissions, PermCancelled) &&
		hasPerm(permissions, PermCanBuy):
		return sessionstore.UserTypeTrial
	case hasPerm(permissions, PermCancelled):
		return sessionstore.UserTypeCancelled
	case hasPerm(permissions, PermSubscribed):
		return sessionstore.UserTypePaid
	case hasPerm(permissions, PermCanBuy):
		return sessionstore.UserTypeFree
	default:
		return sessionstore.UserTypeNew
	}
}
