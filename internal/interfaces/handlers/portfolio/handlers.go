package portfolio

import (
	portfoliosvc "estate-backend/internal/application/portfolio"
	"estate-backend/internal/interfaces/handlers/params"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *portfoliosvc.Service
}

// ImportRequest is the GitHub import form. Omitted flags keep their defaults.
type ImportRequest struct {
	Owner              string  `json:"owner"`
	Repo               string  `json:"repo"`
	PublishNow         *bool   `json:"publish_now"`
	PublishFrom        *string `json:"publish_from"`
	PublishTo          *string `json:"publish_to"`
	ImportTopics       *bool   `json:"import_topics"`
	ImportPrimaryLang  *bool   `json:"import_primary_lang"`
	ImportAllLanguages *bool   `json:"import_all_languages"`
	IncludePrivate     *bool   `json:"include_private"`
	SkipExisting       *bool   `json:"skip_existing"`
	FetchReadme        *bool   `json:"fetch_readme"`
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func (r *ImportRequest) options() (portfoliosvc.ImportOptions, error) {
	opts := portfoliosvc.DefaultImportOptions()
	setBool(&opts.PublishNow, r.PublishNow)
	setBool(&opts.ImportTopics, r.ImportTopics)
	setBool(&opts.ImportPrimaryLang, r.ImportPrimaryLang)
	setBool(&opts.ImportAllLanguages, r.ImportAllLanguages)
	setBool(&opts.IncludePrivate, r.IncludePrivate)
	setBool(&opts.SkipExisting, r.SkipExisting)
	setBool(&opts.FetchReadme, r.FetchReadme)
	var err error
	if opts.PublishFrom, err = params.Date(r.PublishFrom); err != nil {
		return opts, err
	}
	if opts.PublishTo, err = params.Date(r.PublishTo); err != nil {
		return opts, err
	}
	return opts, nil
}

func (h *Handlers) parse(c *fiber.Ctx) (ImportRequest, portfoliosvc.ImportOptions, bool, error) {
	var req ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return req, portfoliosvc.ImportOptions{}, false, response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	opts, err := req.options()
	if err != nil {
		return req, opts, false, response.Error(c, "Invalid date format, expected YYYY-MM-DD", fiber.StatusBadRequest, nil)
	}
	return req, opts, true, nil
}

// ImportRepo POST /api/v1/portfolio/import
func (h *Handlers) ImportRepo(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	req, opts, ok, err := h.parse(c)
	if !ok {
		return err
	}
	res, err := h.Service.ImportRepo(c.UserContext(), actor, req.Owner, req.Repo, opts)
	if err != nil {
		return response.FromError(c, err)
	}
	if res.Status == portfoliosvc.ResultCreated {
		return response.SuccessCreated(c, "Repository imported", res, nil)
	}
	return response.Success(c, "Repository "+res.Status, res, nil)
}

// ImportAll POST /api/v1/portfolio/import-all
func (h *Handlers) ImportAll(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	req, opts, ok, err := h.parse(c)
	if !ok {
		return err
	}
	sum, err := h.Service.ImportAll(c.UserContext(), actor, req.Owner, opts)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Import finished", sum, nil)
}

// ListTags GET /api/v1/portfolio/tags
func (h *Handlers) ListTags(c *fiber.Ctx) error {
	tags, err := h.Service.ListTags(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Tags fetched successfully", tags, nil)
}

// SetTagColor PATCH /api/v1/portfolio/tags/:id {"color": 0..9}
func (h *Handlers) SetTagColor(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	var req struct {
		Color *int `json:"color"`
	}
	if err := c.BodyParser(&req); err != nil || req.Color == nil {
		return response.Error(c, "color is required", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.SetTagColor(c.UserContext(), actor, id, *req.Color); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Tag updated", fiber.Map{"tag_id": id, "color": *req.Color}, nil)
}
