package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/exotic-fruits/auth-service/pkg/mailer/templates"
)

// ErrBadJob marks a message that can never be delivered; the worker drops it
// instead of requeueing.
var ErrBadJob = errors.New("bad email job")

// Worker turns queued jobs into delivered mail.
type Worker struct {
	Transport Transport
	Geo       templates.GeoResolver // optional
	Logger    *logrus.Logger
}

// Process decodes, renders and sends one queue message.
func (w *Worker) Process(ctx context.Context, body []byte) error {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: %v", ErrBadJob, err)
	}
	if job.To == "" {
		return fmt.Errorf("%w: missing recipient", ErrBadJob)
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		if !templates.Known(job.Template) {
			return fmt.Errorf("%w: unknown template %q", ErrBadJob, job.Template)
		}
		if job.Data == nil {
			job.Data = map[string]any{}
		}
		w.locate(ctx, job.Data)
		s, t, h, err := templates.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadJob, err)
		}
		subject, text, html = s, t, h
	}
	if subject == "" || (text == "" && html == "") {
		return fmt.Errorf("%w: empty message", ErrBadJob)
	}

	if err := w.Transport.Send(ctx, job.To, subject, text, html); err != nil {
		return fmt.Errorf("send %s: %w", job.Template, err)
	}
	if w.Logger != nil {
		w.Logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Info("email sent")
	}
	return nil
}

// locate fills Location from IP when the job has none yet.
func (w *Worker) locate(ctx context.Context, data map[string]any) {
	if w.Geo == nil {
		return
	}
	if loc, _ := data["Location"].(string); loc != "" {
		return
	}
	ip, _ := data["IP"].(string)
	if !templates.Routable(ip) {
		return
	}
	g, err := w.Geo.Lookup(ctx, ip)
	if err != nil {
		if w.Logger != nil {
			w.Logger.WithError(err).WithField("ip", ip).Debug("geo lookup failed")
		}
		return
	}
	data["Location"] = templates.FormatGeo(g)
}
