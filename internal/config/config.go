// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	Exchange  Exchange  `yaml:"exchange"`
	Session   Session   `yaml:"session"`
	Scheduler Scheduler `yaml:"scheduler"`
	Storage   Storage   `yaml:"storage"`
	KeepAlive KeepAlive `yaml:"keepAlive"`

	Database Database `yaml:"database"`
	ValKey   ValKey   `yaml:"valkey"`
}

type ClientAuthType string

const (
	ClientAuthClientSecret ClientAuthType = "client_secret"
	ClientAuthMTLS         ClientAuthType = "mtls"
	ClientAuthInsecure     ClientAuthType = "insecure"
)

type ClientAuth struct {
	Type         ClientAuthType      `yaml:"type" default:"insecure"`
	ClientID     string              `yaml:"clientID"`
	ClientSecret commoncfg.SourceRef `yaml:"clientSecret"`
	MTLS         *commoncfg.MTLS     `yaml:"mtls"`
}

// Exchange configures the token endpoint. TokenEndpoint takes precedence;
// otherwise it is discovered from IssuerURL.
type Exchange struct {
	IssuerURL         string        `yaml:"issuerURL"`
	TokenEndpoint     string        `yaml:"tokenEndpoint"`
	Scopes            []string      `yaml:"scopes"`
	Timeout           time.Duration `yaml:"timeout" default:"10s"`
	DiscoveryCacheTTL time.Duration `yaml:"discoveryCacheTTL" default:"1h"`
	ClientAuth        ClientAuth    `yaml:"clientAuth"`
}

type Session struct {
	Key        string `yaml:"key" default:"ux.auth"`
	LoginRoute string `yaml:"loginRoute" default:"login"`
}

type Scheduler struct {
	Far             time.Duration `yaml:"far" default:"12m"`
	Near            time.Duration `yaml:"near" default:"4m"`
	Lead            time.Duration `yaml:"lead" default:"2m"`
	TriggerWindow   time.Duration `yaml:"triggerWindow" default:"5s"`
	RecheckInterval time.Duration `yaml:"recheckInterval"`
}

type StorageType string

const (
	StorageFile     StorageType = "file"
	StorageValKey   StorageType = "valkey"
	StoragePostgres StorageType = "postgres"
	StorageMemory   StorageType = "memory"
)

type Storage struct {
	Type StorageType `yaml:"type" default:"file"`
	// Directory holds the file backend records. Empty means
	// $HOME/.session-client/state.
	Directory string `yaml:"directory"`
	// CleanupInterval applies to the memory backend.
	CleanupInterval time.Duration `yaml:"cleanupInterval" default:"10m"`
}

type KeepAlive struct {
	Interval time.Duration `yaml:"interval" default:"30s"`
}

type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
}

type ValKey struct {
	Host      commoncfg.SourceRef `yaml:"host"`
	User      commoncfg.SourceRef `yaml:"user"`
	Password  commoncfg.SourceRef `yaml:"password"`
	Prefix    string              `yaml:"prefix" default:"session-client"`
	SecretRef commoncfg.SecretRef `yaml:"secretRef"`
}
