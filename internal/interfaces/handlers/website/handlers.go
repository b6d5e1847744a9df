package website

import (
	"context"
	"time"

	portfoliosvc "estate-backend/internal/application/portfolio"
	propsvc "estate-backend/internal/application/properties"
	"estate-backend/internal/domain"
	"estate-backend/internal/interfaces/handlers/params"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	PageSize = 20

	// CountCacheKey caches the number of publicly listed properties.
	CountCacheKey = "website:properties:count"
	countCacheTTL = time.Minute
)

// Handlers serve the public website: listed properties and the published portfolio. No auth.
type Handlers struct {
	Properties *propsvc.Service
	Portfolio  *portfoliosvc.Service
	Rdb        *redis.Client
}

func publicFilter() propsvc.ListFilter {
	return propsvc.ListFilter{ActiveOnly: true, OpenOnly: true}
}

// publicCount reads the listed property count from Redis, falling back to the database.
func (h *Handlers) publicCount(ctx context.Context) (int64, error) {
	if h.Rdb != nil {
		if n, err := h.Rdb.Get(ctx, CountCacheKey).Int64(); err == nil {
			return n, nil
		} else if err != redis.Nil {
			log.Warn().Err(err).Msg("website count cache read failed")
		}
	}
	n, err := h.Properties.CountProperties(ctx, publicFilter())
	if err != nil {
		return 0, err
	}
	if h.Rdb != nil {
		if err := h.Rdb.Set(ctx, CountCacheKey, n, countCacheTTL).Err(); err != nil {
			log.Warn().Err(err).Msg("website count cache write failed")
		}
	}
	return n, nil
}

// CountInvalidator drops the cached listing count whenever an event can change the public listing.
type CountInvalidator struct {
	Rdb *redis.Client
}

func (i *CountInvalidator) PublishPropertyEvents(ctx context.Context, events []domain.PropertyEvent) {
	for _, ev := range events {
		if !ev.ChangesListing() {
			continue
		}
		if err := i.Rdb.Del(ctx, CountCacheKey).Err(); err != nil {
			log.Warn().Err(err).Msg("website count cache invalidation failed")
		}
		return
	}
}

// ListProperties GET /api/v1/website/properties?page=
func (h *Handlers) ListProperties(c *fiber.Ctx) error {
	ctx := c.UserContext()
	page, offset := params.Page(c, PageSize)
	f := publicFilter()
	f.Limit, f.Offset = PageSize, offset
	props, err := h.Properties.FindProperties(ctx, f)
	if err != nil {
		return response.FromError(c, err)
	}
	total, err := h.publicCount(ctx)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Properties fetched successfully", props, response.NewPage(page, PageSize, total))
}

// Property GET /api/v1/website/properties/:id. Only active, unsold, uncancelled properties are public.
func (h *Handlers) Property(c *fiber.Ctx) error {
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	p, err := h.Properties.GetProperty(c.UserContext(), id)
	if err == nil && (!p.Active || p.IsClosed()) {
		err = propsvc.ErrPropertyNotFound
	}
	if err != nil {
		return response.FromError(c, err)
	}
	p.Offers = nil
	return response.Success(c, "Property fetched successfully", p, nil)
}

// ListPortfolio GET /api/v1/website/portfolio?tag=<slug>
func (h *Handlers) ListPortfolio(c *fiber.Ctx) error {
	ctx := c.UserContext()
	projects, err := h.Portfolio.ListPublished(ctx, c.Query("tag"))
	if err != nil {
		return response.FromError(c, err)
	}
	tags, err := h.Portfolio.ListTags(ctx)
	if err != nil {
		return response.FromError(c, err)
	}
	favorites, err := h.Portfolio.ListFavorites(ctx)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Projects fetched successfully", fiber.Map{
		"projects":   projects,
		"tags":       tags,
		"active_tag": c.Query("tag"),
		"favorites":  favorites,
	}, nil)
}

// PortfolioProject GET /api/v1/website/portfolio/:id
func (h *Handlers) PortfolioProject(c *fiber.Ctx) error {
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	p, err := h.Portfolio.GetPublished(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Project fetched successfully", p, nil)
}
