package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

const (
	DefaultDatabaseName = "session_client"
	DefaultDatabasePort = "5432"
)

// MakeConnStr builds a key/value connection string for the session_records
// database. An empty name or port falls back to the defaults.
func MakeConnStr(conf Database) (string, error) {
	host, err := commoncfg.LoadValueFromSourceRef(conf.Host)
	if err != nil {
		return "", fmt.Errorf("loading db host: %w", err)
	}
	if len(host) == 0 {
		return "", errors.New("db host is empty")
	}

	user, err := commoncfg.LoadValueFromSourceRef(conf.User)
	if err != nil {
		return "", fmt.Errorf("loading db user: %w", err)
	}

	password, err := commoncfg.LoadValueFromSourceRef(conf.Password)
	if err != nil {
		return "", fmt.Errorf("loading db password: %w", err)
	}

	name := conf.Name
	if name == "" {
		name = DefaultDatabaseName
	}
	port := conf.Port
	if port == "" {
		port = DefaultDatabasePort
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s",
		quoteConnValue(string(host)), quoteConnValue(string(user)), quoteConnValue(string(password)),
		quoteConnValue(name), quoteConnValue(port)), nil
}

// quoteConnValue single-quotes values that are empty or contain spaces,
// quotes or backslashes.
func quoteConnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
