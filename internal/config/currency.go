package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CurrencyConfig is the static display-currency rate table. Rates are units
// of the keyed currency per one unit of Base.
type CurrencyConfig struct {
	Base  string             `mapstructure:"base"`
	Rates map[string]float64 `mapstructure:"rates"`
}

func DefaultCurrencyConfig() CurrencyConfig {
	return CurrencyConfig{
		Base: "USD",
		Rates: map[string]float64{
			"USD": 1,
			"EUR": 0.92,
			"GBP": 0.79,
			"INR": 83.2,
			"IDR": 15650,
			"JPY": 149.5,
			"NGN": 1480,
		},
	}
}

func DefaultCurrencyConfigPaths() []string {
	return []string{
		"/etc/coursepulse", // System config
		".",                // Current directory (dev mode)
	}
}

type CurrencyConfigHolder struct {
	current atomic.Value // holds CurrencyConfig
}

// NewStaticCurrencyConfigHolder wraps a fixed table; it never reloads.
func NewStaticCurrencyConfigHolder(cfg CurrencyConfig) (*CurrencyConfigHolder, error) {
	cfg = normalizeCurrencyConfig(cfg)
	if err := validateCurrencyConfig(cfg); err != nil {
		return nil, err
	}
	holder := &CurrencyConfigHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

// NewCurrencyConfigHolder reads currency.yml from the given paths, falling
// back to DefaultCurrencyConfig, and reloads it when the file changes.
func NewCurrencyConfigHolder(paths ...string) (*CurrencyConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("currency")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("COURSEPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCurrencyConfig()
	v.SetDefault("currency.base", defaults.Base)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
		v.SetDefault("currency.rates", defaults.Rates)
	}

	cfg, err := unmarshalCurrencyConfig(v)
	if err != nil {
		return nil, err
	}

	holder := &CurrencyConfigHolder{}
	holder.current.Store(cfg)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := unmarshalCurrencyConfig(v)
			if err != nil {
				log.Printf("[currency-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[currency-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

func (h *CurrencyConfigHolder) Get() CurrencyConfig {
	return h.current.Load().(CurrencyConfig)
}

func unmarshalCurrencyConfig(v *viper.Viper) (CurrencyConfig, error) {
	var cfg CurrencyConfig
	if err := v.UnmarshalKey("currency", &cfg); err != nil {
		return CurrencyConfig{}, err
	}
	cfg = normalizeCurrencyConfig(cfg)
	if err := validateCurrencyConfig(cfg); err != nil {
		return CurrencyConfig{}, err
	}
	return cfg, nil
}

func normalizeCurrencyConfig(cfg CurrencyConfig) CurrencyConfig {
	out := CurrencyConfig{
		Base:  strings.ToUpper(strings.TrimSpace(cfg.Base)),
		Rates: make(map[string]float64, len(cfg.Rates)+1),
	}
	for code, rate := range cfg.Rates {
		out.Rates[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	if _, ok := out.Rates[out.Base]; !ok && out.Base != "" {
		out.Rates[out.Base] = 1
	}
	return out
}

func validateCurrencyConfig(cfg CurrencyConfig) error {
	if cfg.Base == "" {
		return errors.New("currency.base cannot be empty")
	}
	if cfg.Rates[cfg.Base] != 1 {
		return fmt.Errorf("currency.rates.%s must be 1 for the base currency", cfg.Base)
	}
	for code, rate := range cfg.Rates {
		if code == "" {
			return errors.New("currency.rates contains an empty code")
		}
		if rate <= 0 {
			return fmt.Errorf("currency.rates.%s must be positive", code)
		}
	}
	return nil
}
