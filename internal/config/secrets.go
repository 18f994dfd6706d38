package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

// LookupPassword returns the web source password stored for user, or an
// empty string when there is none.
func LookupPassword(user string) string {
	if user == "" {
		return ""
	}
	p, err := keyring.Get(KeyringService, user)
	if err != nil {
		slog.Debug(MsgPassFail,
			LogKeyComponent, CompConfig,
			LogKeyUser, user,
			LogKeyError, err)
		return ""
	}
	return p
}

// StorePassword saves the web source password for user in the OS keyring.
func StorePassword(user, password string) error {
	if user == "" {
		return errors.New(ErrUserRequired)
	}
	if err := keyring.Set(KeyringService, user, password); err != nil {
		return fmt.Errorf("%s: %w", ErrKeyringSave, err)
	}
	return nil
}
