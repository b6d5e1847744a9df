package router

import (
	"net/http"

	authsvc "estate-backend/internal/application/auth"
	billingsvc "estate-backend/internal/application/billing"
	catsvc "estate-backend/internal/application/catalog"
	healthsvc "estate-backend/internal/application/health"
	"estate-backend/internal/application/notifications"
	offersvc "estate-backend/internal/application/offers"
	portfoliosvc "estate-backend/internal/application/portfolio"
	propsvc "estate-backend/internal/application/properties"
	"estate-backend/internal/config"
	"estate-backend/internal/infrastructure/database"
	"estate-backend/internal/infrastructure/realtime"
	authhandler "estate-backend/internal/interfaces/handlers/auth"
	cathandler "estate-backend/internal/interfaces/handlers/catalog"
	healthhandler "estate-backend/internal/interfaces/handlers/health"
	invhandler "estate-backend/internal/interfaces/handlers/invoices"
	livehandler "estate-backend/internal/interfaces/handlers/live"
	offerhandler "estate-backend/internal/interfaces/handlers/offers"
	payhandler "estate-backend/internal/interfaces/handlers/payments"
	portalhandler "estate-backend/internal/interfaces/handlers/portal"
	portfoliohandler "estate-backend/internal/interfaces/handlers/portfolio"
	prophandler "estate-backend/internal/interfaces/handlers/properties"
	webhandler "estate-backend/internal/interfaces/handlers/website"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp opens Postgres and Redis from cfg and builds the app on them.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	rdb, err := middleware.OpenRedis(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return NewApp(cfg, db, rdb), db, rdb, nil
}

// NewApp wires services and routes on existing connections. With a nil db only auth
// and health routes are mounted.
func NewApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.NewErrorHandler(rdb),
		EnableTrustedProxyCheck: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(helmet.New(helmet.Config{
		XFrameOptions: "DENY",
		HSTSMaxAge:    31536000,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix:  cfg.FrontendURLEndsWith,
		DevPassword:    cfg.DevPassword,
		PublicPrefixes: []string{"/api/v1/website"},
	}))
	// Stripe signs the raw body; mounted ahead of the session.
	stripeWebhook := &payhandler.WebhookHandler{WebhookSecret: cfg.StripeWebhookSecret}
	app.Post("/api/v1/stripe/webhook", stripeWebhook.HandleWebhook)

	app.Use(middleware.SessionWithClient(rdb))
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.BearerAuth(cfg.JWTSecret))

	sources := healthsvc.Sources{Redis: rdb, Probes: externalProbes(cfg)}
	if db != nil {
		sources.DB = &gormDBPinger{db: db}
	}
	hh := &healthhandler.Handlers{Sources: sources, HealthAdminKey: cfg.HealthAdminKey}

	sessionCfg := middleware.SessionConfig{
		CookieDomain:      cfg.CookieDomain,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}
	var userFinder authsvc.UserFinder
	if db != nil {
		userFinder = &authsvc.GormUserFinder{DB: db}
	}
	ah := &authhandler.Handlers{
		UserFinder: userFinder,
		Rdb:        rdb,
		Config:     sessionCfg,
		JWTSecret:  cfg.JWTSecret,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Post("/token", ah.Token)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	if db == nil {
		mountHealth(app, hh)
		return app
	}

	hub := realtime.NewHub()
	billing := &billingsvc.Service{
		DB:             db,
		CommissionRate: &cfg.BillingCommissionRate,
		AdminFee:       &cfg.BillingAdminFee,
	}
	publisher := propsvc.Publishers{hub, &webhandler.CountInvalidator{Rdb: rdb}}
	if cfg.StripeSecretKey != "" {
		billing.Pusher = &billingsvc.StripePusher{SecretKey: cfg.StripeSecretKey}
		publisher = append(publisher, billing)
	}
	stripeWebhook.Billing = billing
	hooks := &propsvc.Hooks{}
	hooks.OnBeforeSell(billing)

	props := &propsvc.Service{DB: db, Hooks: hooks, Publisher: publisher}
	offers := &offersvc.Service{DB: db, Publisher: publisher}
	if cfg.SendinblueAPIKey != "" {
		offers.Notifier = &notifications.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom}
	}
	portfolio := &portfoliosvc.Service{DB: db, GitHub: &portfoliosvc.GitHubClient{Token: cfg.GitHubToken}}

	hh.Sources.Workflow = props.CountByState
	mountHealth(app, hh)

	// Properties
	ph := &prophandler.Handlers{Service: props, PageSize: cfg.PageSize}
	pg := app.Group("/api/v1/properties", middleware.RequireAuth())
	pg.Get("/", middleware.AuthorizePermission(constants.ViewProperties), ph.List)
	pg.Post("/", middleware.AuthorizePermission(constants.ManageProperties), ph.Create)
	pg.Get("/available-count", middleware.AuthorizePermission(constants.ManageProperties), ph.MyAvailableCount)
	pg.Get("/:id", middleware.AuthorizePermission(constants.ViewProperties), ph.Get)
	pg.Patch("/:id", middleware.AuthorizePermission(constants.ManageProperties), ph.Update)
	pg.Delete("/:id", middleware.AuthorizePermission(constants.DeleteProperty), ph.Delete)
	pg.Post("/:id/sell", middleware.AuthorizePermission(constants.SellProperty), ph.Sell)
	pg.Post("/:id/cancel", middleware.AuthorizePermission(constants.CancelProperty), ph.Cancel)
	pg.Get("/:id/offers", middleware.AuthorizePermission(constants.ManageProperties), ph.Offers)
	pg.Get("/:id/events", middleware.AuthorizePermission(constants.ManageProperties), ph.Events)

	// Offers
	oh := &offerhandler.Handlers{Service: offers}
	og := app.Group("/api/v1/offers", middleware.RequireAuth())
	og.Post("/", middleware.AuthorizePermission(constants.PlaceOffer), oh.Create)
	og.Get("/:id", middleware.AuthorizePermission(constants.ManageProperties), oh.Get)
	og.Post("/:id/accept", middleware.AuthorizePermission(constants.DecideOffer), oh.Accept)
	og.Post("/:id/refuse", middleware.AuthorizePermission(constants.DecideOffer), oh.Refuse)
	og.Patch("/:id/validity", middleware.AuthorizePermission(constants.EditOffer), oh.SetValidity)
	og.Patch("/:id/deadline", middleware.AuthorizePermission(constants.EditOffer), oh.SetDeadline)

	// Catalog
	ch := &cathandler.Handlers{Service: &catsvc.Service{DB: db}}
	cg := app.Group("/api/v1/catalog", middleware.RequireAuth())
	manage := middleware.AuthorizePermission(constants.ManageCatalog)
	cg.Get("/types", middleware.AuthorizePermission(constants.ViewProperties), ch.ListTypes)
	cg.Get("/types/:id", middleware.AuthorizePermission(constants.ViewProperties), ch.GetType)
	cg.Post("/types", manage, ch.CreateType)
	cg.Patch("/types/:id", manage, ch.UpdateType)
	cg.Delete("/types/:id", manage, ch.DeleteType)
	cg.Get("/tags", middleware.AuthorizePermission(constants.ViewProperties), ch.ListTags)
	cg.Post("/tags", manage, ch.CreateTag)
	cg.Patch("/tags/:id", manage, ch.UpdateTag)
	cg.Delete("/tags/:id", manage, ch.DeleteTag)

	// Invoices
	ih := &invhandler.Handlers{Service: billing}
	ig := app.Group("/api/v1/invoices", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ViewInvoices))
	ig.Get("/", ih.List)
	ig.Get("/:id", ih.Get)

	// Portal (bidders)
	porth := &portalhandler.Handlers{Properties: props, Offers: offers}
	portg := app.Group("/api/v1/portal", middleware.RequireAuth(), middleware.AuthorizePermission(constants.PlaceOffer))
	portg.Get("/", porth.Hub)
	portg.Get("/properties", porth.ListProperties)
	portg.Get("/properties/:id", porth.Property)
	portg.Post("/properties/:id/bid", porth.Bid)
	portg.Get("/my-offers", porth.MyOffers)

	// Public website
	wh := &webhandler.Handlers{Properties: props, Portfolio: portfolio, Rdb: rdb}
	wg := app.Group("/api/v1/website")
	wg.Get("/properties", wh.ListProperties)
	wg.Get("/properties/:id", wh.Property)
	wg.Get("/portfolio", wh.ListPortfolio)
	wg.Get("/portfolio/:id", wh.PortfolioProject)

	// Portfolio import (admin)
	pfh := &portfoliohandler.Handlers{Service: portfolio}
	pfg := app.Group("/api/v1/portfolio", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ImportPortfolio))
	pfg.Post("/import", pfh.ImportRepo)
	pfg.Post("/import-all", pfh.ImportAll)
	pfg.Get("/tags", pfh.ListTags)
	pfg.Patch("/tags/:id", pfh.SetTagColor)

	// Live offer feed
	lh := &livehandler.Handlers{Hub: hub, Properties: props}
	app.Get("/ws/properties/:id", middleware.RequireAuth(), lh.Upgrade, lh.Stream())

	return app
}

// externalProbes lists the third-party APIs the deployment is configured to call.
func externalProbes(cfg *config.Config) []healthsvc.Probe {
	var probes []healthsvc.Probe
	if cfg.StripeSecretKey != "" {
		probes = append(probes, healthsvc.Probe{Name: "stripe", URL: "https://api.stripe.com"})
	}
	if cfg.SendinblueAPIKey != "" {
		probes = append(probes, healthsvc.Probe{Name: "brevo", URL: "https://api.brevo.com"})
	}
	if cfg.GitHubToken != "" {
		probes = append(probes, healthsvc.Probe{Name: "github", URL: "https://api.github.com"})
	}
	return probes
}

func mountHealth(app *fiber.App, hh *healthhandler.Handlers) {
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
