package services

import (
	"context"
	"fmt"

	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/internal/render"
)

type TemplateStore interface {
	Create(ctx context.Context, tpl *model.Template) (*model.Template, error)
	Update(ctx context.Context, tpl *model.Template) (*model.Template, error)
	Get(ctx context.Context, id int64) (*model.Template, error)
	List(ctx context.Context, f model.TemplateFilter) ([]*model.Template, int64, error)
}

// TemplateService owns message templates. Bodies are syntax-checked on
// every write so broken placeholders are caught at save time, not at
// send time.
type TemplateService struct {
	templates TemplateStore
	gateways  GatewayReader
	renderer  *render.Renderer
}

func NewTemplateService(templates TemplateStore, gateways GatewayReader, renderer *render.Renderer) *TemplateService {
	return &TemplateService{
		templates: templates,
		gateways:  gateways,
		renderer:  renderer,
	}
}

func (s *TemplateService) Create(ctx context.Context, tpl *model.Template) (*model.Template, error) {
	if err := s.validate(ctx, tpl); err != nil {
		return nil, err
	}
	return s.templates.Create(ctx, tpl)
}

func (s *TemplateService) Update(ctx context.Context, tpl *model.Template) (*model.Template, error) {
	if err := s.validate(ctx, tpl); err != nil {
		return nil, err
	}
	return s.templates.Update(ctx, tpl)
}

func (s *TemplateService) Get(ctx context.Context, id int64) (*model.Template, error) {
	return s.templates.Get(ctx, id)
}

func (s *TemplateService) List(ctx context.Context, f model.TemplateFilter) ([]*model.Template, int64, error) {
	return s.templates.List(ctx, f)
}

// Preview renders the template against a record snapshot.
func (s *TemplateService) Preview(ctx context.Context, id int64, rec *model.RecordRef) (string, error) {
	tpl, err := s.templates.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.renderer.Render(tpl, rec)
}

// Placeholders lists the placeholder expressions template authors may use.
func (s *TemplateService) Placeholders() []string {
	return render.Placeholders()
}

func (s *TemplateService) validate(ctx context.Context, tpl *model.Template) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	if err := render.ValidateBody(tpl.Body); err != nil {
		return err
	}
	if tpl.DefaultGatewayID != nil {
		if _, err := s.gateways.Get(ctx, *tpl.DefaultGatewayID); err != nil {
			return fmt.Errorf("default gateway %d: %w", *tpl.DefaultGatewayID, err)
		}
	}
	return nil
}
