package core

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/mail"
	"path"
	"strings"
	"sync"
	"text/template"
)

//go:embed assets/templates/email/*.txt
var emailTemplatesFS embed.FS

var (
	templates map[string]*template.Template // {name: *Template}
	tmplInit  sync.Once
)

type (
	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails.
	//
	// The two delivery paths deliberately diverge: SendMessagesSync surfaces
	// transport failures to the caller, SendMessages is best-effort and only
	// logs them. Callers of the background path cannot observe failure; do
	// not unify the two without flagging the behavior change.
	EmailService interface {
		// SendMessages queues messages for background delivery, non-blocking.
		SendMessages(messages ...*EmailMessage)
		// SendMessagesSync delivers inline and returns the first failure.
		SendMessagesSync(messages ...*EmailMessage) error
	}
)

func (m *EmailMessage) getContextData() ContextData {
	return ContextData{
		AppName:         Conf.AppName,
		FrontendBaseURL: Conf.FrontendBaseURL,
		Data:            m.TemplateData,
	}
}

func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	if m.TemplateName == "" {
		return nil
	}

	tmplInit.Do(parseTemplates)
	tmpl, ok := templates[m.TemplateName]
	if !ok {
		return fmt.Errorf("unknown email template %q", m.TemplateName)
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.getContextData()); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}
	encoder := base64.NewEncoder(base64.StdEncoding, at.Content)
	if _, err = encoder.Write(content); err != nil {
		return err
	}
	if err = encoder.Close(); err != nil {
		return err
	}

	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return m.TextContent != "" }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

func parseTemplates() {
	templates = make(map[string]*template.Template)

	fps, err := fs.Glob(emailTemplatesFS, "assets/templates/email/*.txt")
	if err != nil {
		log.Print(fmt.Errorf("core.parseTemplates: %v", err))
		return
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		name := strings.TrimSuffix(fname, ".txt")

		tmpl, err := template.ParseFS(emailTemplatesFS, "assets/templates/email/_base.txt", fp)
		if err != nil {
			log.Print(fmt.Errorf("core.parseTemplates(%s): %v", fp, err))
			continue
		}
		if Conf.Debug || Conf.TestMode {
			tmpl = tmpl.Option("missingkey=error")
		}
		templates[name] = tmpl
	}
}
