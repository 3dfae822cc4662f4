// internal/service/template_service.go
package service

import (
	"fmt"

	"github.com/osteele/liquid"
)

// MergeData is the per-recipient binding set for merge tags.
type MergeData struct {
	Email        string
	ListName     string
	CampaignName string
}

func (d MergeData) bindings() liquid.Bindings {
	return liquid.Bindings{
		"email":         d.Email,
		"list_name":     d.ListName,
		"campaign_name": d.CampaignName,
	}
}

// TemplateService renders Liquid merge tags in campaign content.
type TemplateService struct {
	engine *liquid.Engine
}

func NewTemplateService() *TemplateService {
	return &TemplateService{engine: liquid.NewEngine()}
}

// Compiled is a parsed subject and body pair, reused for every recipient
// of one dispatch.
type Compiled struct {
	subject    *liquid.Template
	html       *liquid.Template
	rawSubject string
	rawHTML    string
}

// Compile parses subject and html. A source that fails to parse is kept
// verbatim and reported through the returned error; the Compiled value is
// always usable.
func (t *TemplateService) Compile(subject, html string) (*Compiled, error) {
	c := &Compiled{rawSubject: subject, rawHTML: html}

	var errs []error
	if tpl, err := t.engine.ParseString(subject); err != nil {
		errs = append(errs, fmt.Errorf("subject: %w", err))
	} else {
		c.subject = tpl
	}
	if tpl, err := t.engine.ParseString(html); err != nil {
		errs = append(errs, fmt.Errorf("html: %w", err))
	} else {
		c.html = tpl
	}

	if len(errs) > 0 {
		return c, fmt.Errorf("merge tags left unrendered: %v", errs)
	}
	return c, nil
}

// Render returns the merged subject and html for one recipient.
func (c *Compiled) Render(data MergeData) (string, string) {
	b := data.bindings()
	return render(c.subject, c.rawSubject, b), render(c.html, c.rawHTML, b)
}

func render(tpl *liquid.Template, raw string, b liquid.Bindings) string {
	if tpl == nil {
		return raw
	}
	out, err := tpl.RenderString(b)
	if err != nil {
		return raw
	}
	return out
}
