package engine

import (
	"errors"
	"fmt"
	"reflect"

	"mosync/config"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Settings are the config sections an operator may edit while running.
// Breaker thresholds and the request timeout are read once at startup.
type Settings struct {
	Delivery  config.DeliveryConfig  `json:"delivery"`
	ERP       config.ERPConfig       `json:"erp"`
	Messaging config.MessagingConfig `json:"messaging"`
}

func (e *Engine) Settings() Settings {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	s := Settings{
		Delivery:  e.cfg.Delivery,
		ERP:       e.cfg.ERP,
		Messaging: e.cfg.Messaging,
	}
	// callers may decode into the copy
	s.ERP.Categories = append([]string(nil), s.ERP.Categories...)
	s.Messaging.Kafka.Brokers = append([]string(nil), s.Messaging.Kafka.Brokers...)
	return s
}

// UpdateSettings validates and applies s, writes the config file when the
// engine was loaded from one, then reconnects the ERP client and, if its
// section changed, messaging.
func (e *Engine) UpdateSettings(s Settings) error {
	e.cfgMu.Lock()
	prev := *e.cfg
	e.cfg.Delivery = s.Delivery
	e.cfg.ERP = s.ERP
	e.cfg.Messaging = s.Messaging
	if err := e.cfg.Validate(); err != nil {
		*e.cfg = prev
		e.cfgMu.Unlock()
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if e.configPath != "" {
		if err := e.cfg.Save(e.configPath); err != nil {
			*e.cfg = prev
			e.cfgMu.Unlock()
			return fmt.Errorf("save config: %w", err)
		}
	}
	msgChanged := !reflect.DeepEqual(prev.Messaging, e.cfg.Messaging)
	e.cfgMu.Unlock()

	e.logFn("engine: settings updated")
	e.ReconfigureERP()
	if msgChanged {
		e.ReconfigureMessaging()
	}
	return nil
}
