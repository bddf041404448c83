package app

import (
	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/internal/source"
	"github.com/git-tkc/self-assistant/internal/source/groupware"
	"github.com/git-tkc/self-assistant/internal/source/mail"
	"github.com/git-tkc/self-assistant/internal/source/tracker"
)

// buildAdapters creates one adapter per enabled source, in registration
// order.
func buildAdapters(cfg *model.AppConfig) []source.Adapter {
	var adapters []source.Adapter
	for _, name := range cfg.EnabledSources() {
		switch name {
		case model.SourceGroupware:
			adapters = append(adapters, groupware.NewAdapter(
				model.Timeout(cfg.Groupware.TimeoutSec, groupware.DefaultTimeout),
				cfg.Groupware.MaxItems,
			))
		case model.SourceMail:
			adapters = append(adapters, mail.NewAdapter(mail.Options{
				Label:       cfg.Mail.Label,
				Endpoint:    cfg.Mail.Endpoint,
				ListLimit:   cfg.Mail.ListLimit,
				DetailLimit: cfg.Mail.DetailLimit,
				Timeout:     model.Timeout(cfg.Mail.TimeoutSec, mail.DefaultTimeout),
			}))
		case model.SourceTracker:
			adapters = append(adapters, tracker.NewAdapter(tracker.Options{
				BaseURL:  cfg.Tracker.BaseURL,
				Timeout:  model.Timeout(cfg.Tracker.TimeoutSec, tracker.DefaultTimeout),
				MaxItems: cfg.Tracker.MaxItems,
			}))
		}
	}
	return adapters
}
