package templates

import (
	"net/url"
	"strings"
	"time"

	"github.com/exotic-fruits/auth-service/config"
)

const timeLayout = "02 January 2006, 15:04 MST"

// Option pattern
type Option func(*EmailData)

func WithIP(ip string) Option { return func(d *EmailData) { d.IP = ip } }

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format(timeLayout)
	}
}

func WithLocation(loc string) Option {
	return func(d *EmailData) {
		if s := strings.TrimSpace(loc); s != "" {
			d.Location = s
		}
	}
}

// WithExpiresIn sets the expiry relative to from.
func WithExpiresIn(from time.Time, dur time.Duration) Option {
	return func(d *EmailData) {
		utc := from.Add(dur).UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format(timeLayout)
		d.ExpiresInMinutes = int(dur.Minutes())
	}
}

// NewBaseEmailData fills the branding fields from config, then applies opts.
func NewBaseEmailData(cfg *config.Config, typ, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: email,
		Type:           typ,

		CompanyName:    cfg.CompanyName,
		CompanyAddress: cfg.CompanyAddress,
		AppName:        cfg.AppName,
		LogoURL:        cfg.LogoURL,
		SupportURL:     cfg.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewVerifyEmailData(cfg *config.Config, name, email, code string, opts ...Option) map[string]any {
	d := NewBaseEmailData(cfg, VerifyEmail, name, email, opts...)
	d.Code = code
	return ToMap(d)
}

// NewForgotPasswordData embeds token into the front-end reset link.
func NewForgotPasswordData(cfg *config.Config, name, email, token string, opts ...Option) map[string]any {
	d := NewBaseEmailData(cfg, ForgotPassword, name, email, opts...)
	d.ResetURL = cfg.ResetPasswordURL() + "?token=" + url.QueryEscape(token)
	return ToMap(d)
}
