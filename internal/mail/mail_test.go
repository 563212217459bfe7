package mail

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/snapmatch/snapmatch/internal/config"
)

func TestNewSMTPDispatcher(t *testing.T) {
	d, err := NewSMTPDispatcher(config.MailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "noreply@example.com",
		From:     "noreply@example.com",
	})
	if err != nil {
		t.Fatalf("expected embedded templates to parse: %v", err)
	}
	if d.subject == "" {
		t.Error("expected a non-empty subject")
	}
	if d.service == "" {
		t.Error("expected a non-empty service name")
	}
}

func TestEmbeddedTemplatesShape(t *testing.T) {
	var tmpls messageTemplates
	if err := yaml.Unmarshal(templatesYAML, &tmpls); err != nil {
		t.Fatalf("unmarshal templates: %v", err)
	}
	if tmpls.Subject == "" || tmpls.Body == "" {
		t.Fatalf("incomplete templates: %+v", tmpls)
	}
	if !strings.Contains(tmpls.Body, ".Link") {
		t.Error("body template must reference the share link")
	}
}

func TestBodyRendersLink(t *testing.T) {
	d, err := NewSMTPDispatcher(config.MailConfig{From: "noreply@example.com"})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	link := "http://localhost:9000/snapmatch/shares/Matched_Faces-abc/"
	var buf bytes.Buffer
	err = d.body.Execute(&buf, struct {
		Link    string
		Service string
	}{Link: link, Service: d.service})
	if err != nil {
		t.Fatalf("render body: %v", err)
	}
	if !strings.Contains(buf.String(), link) {
		t.Errorf("rendered body does not carry the link:\n%s", buf.String())
	}
}
