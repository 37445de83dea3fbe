package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FeePolicy holds the tunable parts of the fee engine that are policy, not code:
// how recently a member must have joined to count as a "new member", and how many
// days of grace a one-off fee gets before it is due.
type FeePolicy struct {
	NewMemberWindowDays int `mapstructure:"newMemberWindowDays"`
	OneTimeGraceDays    int `mapstructure:"oneTimeGraceDays"`
}

func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		NewMemberWindowDays: 90,
		OneTimeGraceDays:    7,
	}
}

type FeePolicyHolder struct {
	current atomic.Value // holds FeePolicy
}

func NewFeePolicyHolder() (*FeePolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("fees")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/agrocoop/config")
	v.AddConfigPath("/etc/agrocoop")
	v.AddConfigPath(".")

	v.SetEnvPrefix("AGROCOOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultFeePolicy()
	v.SetDefault("fees.newMemberWindowDays", defaults.NewMemberWindowDays)
	v.SetDefault("fees.oneTimeGraceDays", defaults.OneTimeGraceDays)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg FeePolicy
	if err := v.UnmarshalKey("fees", &cfg); err != nil {
		return nil, err
	}
	if err := validateFeePolicy(cfg); err != nil {
		return nil, err
	}

	holder := &FeePolicyHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated FeePolicy
		if err := v.UnmarshalKey("fees", &updated); err != nil {
			log.Printf("[fee-policy] reload failed: %v", err)
			return
		}
		if err := validateFeePolicy(updated); err != nil {
			log.Printf("[fee-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[fee-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticFeePolicyHolder returns a holder pinned to the given policy. Used by tests
// and by callers that do not want file watching.
func NewStaticFeePolicyHolder(cfg FeePolicy) *FeePolicyHolder {
	holder := &FeePolicyHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *FeePolicyHolder) Get() FeePolicy {
	return h.current.Load().(FeePolicy)
}

func validateFeePolicy(cfg FeePolicy) error {
	if cfg.NewMemberWindowDays <= 0 {
		return errors.New("fees.newMemberWindowDays must be positive")
	}
	if cfg.OneTimeGraceDays < 0 {
		return errors.New("fees.oneTimeGraceDays cannot be negative")
	}
	return nil
}
