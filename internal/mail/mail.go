// Package mail sends the one notification email a capture session is
// allowed: a templated message carrying the cloud share link.
package mail

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"text/template"

	gomail "github.com/wneessen/go-mail"
	"gopkg.in/yaml.v3"

	"github.com/snapmatch/snapmatch/internal/apperr"
	"github.com/snapmatch/snapmatch/internal/config"
)

//go:embed templates.yaml
var templatesYAML []byte

// Dispatcher sends a share-link notification to a recipient. Idempotency is
// the caller's responsibility; a dispatcher always attempts exactly one send.
type Dispatcher interface {
	Send(ctx context.Context, recipient, link string) error
}

type messageTemplates struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
	Service string `yaml:"service"`
}

// SMTPDispatcher delivers over SMTP using the configured mail server.
type SMTPDispatcher struct {
	cfg     config.MailConfig
	subject string
	service string
	body    *template.Template
}

// NewSMTPDispatcher parses the embedded message templates and returns a
// dispatcher bound to the given mail configuration.
func NewSMTPDispatcher(cfg config.MailConfig) (*SMTPDispatcher, error) {
	var tmpls messageTemplates
	if err := yaml.Unmarshal(templatesYAML, &tmpls); err != nil {
		return nil, fmt.Errorf("parsing embedded mail templates: %w", err)
	}

	body, err := template.New("body").Parse(tmpls.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing mail body template: %w", err)
	}

	return &SMTPDispatcher{
		cfg:     cfg,
		subject: tmpls.Subject,
		service: tmpls.Service,
		body:    body,
	}, nil
}

// Send delivers one message. A transport failure is surfaced with the
// underlying message; there is no retry or queueing.
func (d *SMTPDispatcher) Send(ctx context.Context, recipient, link string) error {
	var buf bytes.Buffer
	if err := d.body.Execute(&buf, struct {
		Link    string
		Service string
	}{Link: link, Service: d.service}); err != nil {
		return fmt.Errorf("rendering mail body: %w", err)
	}

	msg := gomail.NewMsg()
	if err := msg.From(d.cfg.From); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid sender address", err)
	}
	if err := msg.To(recipient); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid recipient address", err)
	}
	msg.Subject(d.subject)
	msg.SetBodyString(gomail.TypeTextPlain, buf.String())

	opts := []gomail.Option{
		gomail.WithPort(d.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(d.cfg.Username),
		gomail.WithPassword(d.cfg.Password),
	}
	if d.cfg.UseTLS {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}

	client, err := gomail.NewClient(d.cfg.Host, opts...)
	if err != nil {
		return apperr.Wrap(apperr.Transport, "mail client setup failed", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return apperr.Wrap(apperr.Transport, fmt.Sprintf("email failed: %v", err), err)
	}
	return nil
}
